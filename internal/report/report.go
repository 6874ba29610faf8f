// internal/report/report.go
//
// Read-only reporting over the game history database: the ranking
// sections served by the CLI and the spreadsheet export.

package report

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"clueword/internal/history"
)

// Overview bundles every ranking section the summary command prints.
type Overview struct {
	Recent  []history.GameRow
	Active  []history.ActiveRow
	Skill   []history.SkillRow
	Hardest []history.HardWordRow
}

// Report runs queries against a history store.
type Report struct {
	store *history.Store
}

func New(store *history.Store) *Report { return &Report{store: store} }

// Overview gathers all sections concurrently; the queries are
// independent reads against the same database.
func (r *Report) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Recent, err = r.store.Recent(ctx, 10)
		return err
	})
	g.Go(func() (err error) {
		o.Active, err = r.store.MostActive(ctx, 10)
		return err
	})
	g.Go(func() (err error) {
		o.Skill, err = r.store.TopSkill(ctx, 10)
		return err
	})
	g.Go(func() (err error) {
		o.Hardest, err = r.store.HardestWords(ctx, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &o, nil
}

// ExportXLSX writes every game_history row to a spreadsheet at path.
// Returns the number of exported rows.
func (r *Report) ExportXLSX(ctx context.Context, path string) (int, error) {
	games, err := r.store.AllGames(ctx)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := []any{"id", "username", "target_word", "clue_text", "attempts", "hints", "created_at"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return 0, err
	}
	for i, g := range games {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []any{g.ID, g.Username, g.Word, g.Clue, g.Attempts, g.Hints, g.CreatedAt}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(games), nil
}
