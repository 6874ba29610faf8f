// cmd/report/main.go
//
// clueword-report: query the game history database from the command line
// and export it to a spreadsheet. Replaces ad-hoc inspection of the
// SQLite file.
//
// Usage:
//   clueword-report summary            # all ranking sections
//   clueword-report recent --limit 10  # newest finished games
//   clueword-report export --out game_data.xlsx
//   clueword-report leaderboard --kind skill

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clueword/internal/db"
	"clueword/internal/history"
	"clueword/internal/report"
)

func main() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "clueword-report",
		Short:         "Inspect and export the clueword game history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "game_history.db", "path to the SQLite database")

	root.AddCommand(newSummaryCmd(&dbPath))
	root.AddCommand(newRecentCmd(&dbPath))
	root.AddCommand(newLeaderboardCmd(&dbPath))
	root.AddCommand(newExportCmd(&dbPath))
	return root
}

// openStore opens the database and verifies the history table exists,
// so a typoed --db path fails with a clear message instead of empty
// sections.
func openStore(dbPath string) (*history.Store, func(), error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureHistoryTable(database); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return history.NewStore(database), func() { _ = database.Close() }, nil
}

func ensureHistoryTable(database *sql.DB) error {
	var name string
	err := database.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='game_history'`).Scan(&name)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no game_history table found; run the server once or check --db")
	}
	return err
}

func newSummaryCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print recent games, activity and skill rankings, and hardest words",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			o, err := report.New(store).Overview(cmd.Context())
			if err != nil {
				return err
			}

			printSection("最近 10 局游戏记录")
			tw := newTab(cmd)
			fmt.Fprintln(tw, "id\tusername\tword\tattempts\thints\tcreated_at")
			for _, g := range o.Recent {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", g.ID, g.Username, g.Word, g.Attempts, g.Hints, g.CreatedAt)
			}
			tw.Flush()

			printSection("用户活跃度排行榜 (总局数)")
			tw = newTab(cmd)
			fmt.Fprintln(tw, "username\ttotal_games\ttotal_attempts")
			for _, r := range o.Active {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Username, r.TotalGames, r.TotalAttempts)
			}
			tw.Flush()

			printSection("用户实力排行榜 (平均猜测次数越低越强)")
			tw = newTab(cmd)
			fmt.Fprintln(tw, "username\tgames\tavg_attempts\tavg_hints")
			for _, r := range o.Skill {
				fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", r.Username, r.Games, r.AvgAttempts, r.AvgHints)
			}
			tw.Flush()

			printSection("最难猜的词汇 Top 5 (平均猜测次数最高)")
			tw = newTab(cmd)
			fmt.Fprintln(tw, "word\ttimes_played\tavg_attempts")
			for _, r := range o.Hardest {
				fmt.Fprintf(tw, "%s\t%d\t%.2f\n", r.Word, r.TimesPlayed, r.AvgAttempts)
			}
			tw.Flush()
			return nil
		},
	}
}

func newRecentCmd(dbPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest finished games",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			games, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := newTab(cmd)
			fmt.Fprintln(tw, "id\tusername\tword\tattempts\tcreated_at")
			for _, g := range games {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", g.ID, g.Username, g.Word, g.Attempts, g.CreatedAt)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of games to list")
	return cmd
}

func newLeaderboardCmd(dbPath *string) *cobra.Command {
	var kind string
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the activity or skill ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			tw := newTab(cmd)
			switch kind {
			case "active":
				rows, err := store.MostActive(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "username\ttotal_games\ttotal_attempts")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Username, r.TotalGames, r.TotalAttempts)
				}
			case "skill":
				rows, err := store.TopSkill(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "username\tgames\tavg_attempts\tavg_hints")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", r.Username, r.Games, r.AvgAttempts, r.AvgHints)
				}
			default:
				return fmt.Errorf("unknown leaderboard kind %q (want active or skill)", kind)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "active", "ranking kind: active or skill")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}

func newExportCmd(dbPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all game history to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := report.New(store).ExportXLSX(cmd.Context(), out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "game_data.xlsx", "output spreadsheet path")
	return cmd
}

func printSection(title string) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println(title)
	fmt.Println("============================================================")
}

func newTab(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}
