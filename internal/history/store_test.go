package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clueword/internal/db"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.Migrate(database))
	return NewStore(database)
}

// record inserts an outcome with a distinct created_at so recency
// ordering is deterministic in tests.
func record(t *testing.T, s *Store, username, word string, attempts, hints, seq int) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO game_history (username, target_word, clue_text, attempts, hints, created_at)
		 VALUES (?, ?, ?, ?, ?, datetime('2024-01-01 00:00:00', ?))`,
		username, word, "clue for "+word, attempts, hints, fmt.Sprintf("+%d seconds", seq))
	require.NoError(t, err)
}

func TestUpsertUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.UpsertUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.UpsertUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRecentWords_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "alice")
	require.NoError(t, err)
	_, err = s.UpsertUser(ctx, "bob")
	require.NoError(t, err)

	record(t, s, "alice", "苹果", 3, 0, 1)
	record(t, s, "alice", "电脑", 5, 1, 2)
	record(t, s, "alice", "星空", 2, 0, 3)
	record(t, s, "bob", "帆船", 4, 0, 4)

	words, err := s.RecentWords(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"星空", "电脑"}, words)

	words, err = s.RecentWords(ctx, "alice", 0) // default limit
	require.NoError(t, err)
	assert.Equal(t, []string{"星空", "电脑", "苹果"}, words)

	words, err = s.RecentWords(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestRecordOutcome_Duplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "alice")
	require.NoError(t, err)

	o := Outcome{Username: "alice", Word: "苹果", Clue: "一种水果", Attempts: 4, Hints: 1}
	require.NoError(t, s.RecordOutcome(ctx, o))

	err = s.RecordOutcome(ctx, o)
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	// same word for a different user is fine
	_, err = s.UpsertUser(ctx, "bob")
	require.NoError(t, err)
	o.Username = "bob"
	assert.NoError(t, s.RecordOutcome(ctx, o))
}

func TestRecordOutcome_UnknownUser(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordOutcome(context.Background(), Outcome{Username: "ghost", Word: "苹果", Clue: "c"})
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestUserStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "alice")
	require.NoError(t, err)

	total, avg, err := s.UserStats(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, avg)

	record(t, s, "alice", "苹果", 3, 0, 1)
	record(t, s, "alice", "电脑", 6, 1, 2)

	total, avg, err = s.UserStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.InDelta(t, 4.5, avg, 0.001)
}

func seedLeaderboard(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := s.UpsertUser(ctx, u)
		require.NoError(t, err)
	}
	seq := 0
	add := func(user, word string, attempts int) {
		seq++
		record(t, s, user, word, attempts, 0, seq)
	}
	add("alice", "苹果", 2)
	add("alice", "电脑", 4)
	add("alice", "星空", 3)
	add("bob", "苹果", 8)
	add("bob", "帆船", 6)
	add("carol", "高铁", 5) // only one game, below skill threshold
}

func TestMostActive(t *testing.T) {
	s := openTestStore(t)
	seedLeaderboard(t, s)

	rows, err := s.MostActive(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, 3, rows[0].TotalGames)
	assert.Equal(t, 9, rows[0].TotalAttempts)
	assert.Equal(t, "bob", rows[1].Username)
}

func TestTopSkill(t *testing.T) {
	s := openTestStore(t)
	seedLeaderboard(t, s)

	rows, err := s.TopSkill(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2) // carol filtered by the two-game minimum
	assert.Equal(t, "alice", rows[0].Username)
	assert.InDelta(t, 3.0, rows[0].AvgAttempts, 0.001)
	assert.Equal(t, "bob", rows[1].Username)
	assert.InDelta(t, 7.0, rows[1].AvgAttempts, 0.001)
}

func TestHardestWords(t *testing.T) {
	s := openTestStore(t)
	seedLeaderboard(t, s)

	rows, err := s.HardestWords(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1) // only 苹果 was played twice
	assert.Equal(t, "苹果", rows[0].Word)
	assert.Equal(t, 2, rows[0].TimesPlayed)
	assert.InDelta(t, 5.0, rows[0].AvgAttempts, 0.001)
}

func TestRecentAndAllGames(t *testing.T) {
	s := openTestStore(t)
	seedLeaderboard(t, s)

	recent, err := s.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "高铁", recent[0].Word)
	assert.Equal(t, "帆船", recent[1].Word)

	all, err := s.AllGames(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 6)
}
