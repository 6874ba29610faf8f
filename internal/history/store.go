// internal/history/store.go
//
// SQLite-backed store for users and finished games. This is the History
// Store the generator reads its exclusion set from, and the Result
// Recorder the finish endpoint writes to. Leaderboard and stats queries
// for the API and the report CLI also live here.

package history

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateRecord is returned when the uniqueness constraint on
// game_history rejects an insert.
var ErrDuplicateRecord = errors.New("game already recorded")

// Outcome is a finished game, finalized once and never mutated.
type Outcome struct {
	Username string `json:"username"`
	Word     string `json:"word"`
	Clue     string `json:"clue"`
	Attempts int    `json:"attempts"`
	Hints    int    `json:"hints"`
}

// Store wraps a *sql.DB. All methods are safe for concurrent use.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// UpsertUser inserts the user if missing. Reports whether a new row was
// created, so the login handler can greet new and returning players
// differently.
func (s *Store) UpsertUser(ctx context.Context, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (username) VALUES (?)`, username)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RecentWords returns up to limit most recent target words for a user,
// newest first. The id tiebreak keeps ordering stable when several games
// finish within the same second.
func (s *Store) RecentWords(ctx context.Context, username string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_word FROM game_history
		 WHERE username = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RecordOutcome persists a finished game. A constraint violation
// (duplicate word for the user, or an unknown user under foreign keys)
// maps to ErrDuplicateRecord rather than a hard failure.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_history (username, target_word, clue_text, attempts, hints)
		 VALUES (?, ?, ?, ?, ?)`,
		o.Username, o.Word, o.Clue, o.Attempts, o.Hints)
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		return ErrDuplicateRecord
	}
	return err
}

// UserStats returns the total game count and average attempts for a user.
// Average is 0 when the user has no games.
func (s *Store) UserStats(ctx context.Context, username string) (total int, avgAttempts float64, err error) {
	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(attempts) FROM game_history WHERE username = ?`,
		username).Scan(&total, &avg)
	if avg.Valid {
		avgAttempts = avg.Float64
	}
	return total, avgAttempts, err
}

/* --------------------------- report queries ---------------------------- */

// GameRow is one game_history row, as shown by recent-games listings and
// the spreadsheet export.
type GameRow struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Word      string `json:"word"`
	Clue      string `json:"clue"`
	Attempts  int    `json:"attempts"`
	Hints     int    `json:"hints"`
	CreatedAt string `json:"createdAt"`
}

// ActiveRow ranks users by how many games they have played.
type ActiveRow struct {
	Username      string `json:"username"`
	TotalGames    int    `json:"totalGames"`
	TotalAttempts int    `json:"totalAttempts"`
}

// SkillRow ranks users by average attempts, lower is better.
// Users need at least two games to qualify.
type SkillRow struct {
	Username    string  `json:"username"`
	Games       int     `json:"games"`
	AvgAttempts float64 `json:"avgAttempts"`
	AvgHints    float64 `json:"avgHints"`
}

// HardWordRow ranks words by average attempts across all users.
// Words need at least two plays to qualify.
type HardWordRow struct {
	Word        string  `json:"word"`
	TimesPlayed int     `json:"timesPlayed"`
	AvgAttempts float64 `json:"avgAttempts"`
}

// Recent returns the newest finished games across all users.
func (s *Store) Recent(ctx context.Context, limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, target_word, clue_text, attempts, hints, created_at
		 FROM game_history
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGames(rows, limit)
}

// AllGames returns every game_history row, newest first.
func (s *Store) AllGames(ctx context.Context) ([]GameRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, target_word, clue_text, attempts, hints, created_at
		 FROM game_history
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGames(rows, 0)
}

func scanGames(rows *sql.Rows, capHint int) ([]GameRow, error) {
	out := make([]GameRow, 0, capHint)
	for rows.Next() {
		var g GameRow
		if err := rows.Scan(&g.ID, &g.Username, &g.Word, &g.Clue, &g.Attempts, &g.Hints, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MostActive returns users ordered by total games played.
func (s *Store) MostActive(ctx context.Context, limit int) ([]ActiveRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, COUNT(*) AS total_games, SUM(attempts) AS total_attempts
		 FROM game_history
		 GROUP BY username
		 ORDER BY total_games DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ActiveRow, 0, limit)
	for rows.Next() {
		var r ActiveRow
		if err := rows.Scan(&r.Username, &r.TotalGames, &r.TotalAttempts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopSkill returns users ordered by average attempts ascending.
func (s *Store) TopSkill(ctx context.Context, limit int) ([]SkillRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username,
		        COUNT(*)                 AS games,
		        ROUND(AVG(attempts), 2)  AS avg_attempts,
		        ROUND(AVG(hints), 2)     AS avg_hints
		 FROM game_history
		 GROUP BY username
		 HAVING games >= 2
		 ORDER BY avg_attempts ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SkillRow, 0, limit)
	for rows.Next() {
		var r SkillRow
		if err := rows.Scan(&r.Username, &r.Games, &r.AvgAttempts, &r.AvgHints); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HardestWords returns the words with the highest average attempts.
func (s *Store) HardestWords(ctx context.Context, limit int) ([]HardWordRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_word, COUNT(*) AS times_played, ROUND(AVG(attempts), 2) AS avg_attempts
		 FROM game_history
		 GROUP BY target_word
		 HAVING times_played >= 2
		 ORDER BY avg_attempts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HardWordRow, 0, limit)
	for rows.Next() {
		var r HardWordRow
		if err := rows.Scan(&r.Word, &r.TimesPlayed, &r.AvgAttempts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
