package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raine/loadsheet-bot/internal/storage"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit      int
		telegramID int64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds from the run history database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), root.dbPath, telegramID, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().Int64Var(&telegramID, "user", 0, "Only runs of this Telegram user (0 = everyone)")

	return cmd
}

func runHistory(w io.Writer, dbPath string, telegramID int64, limit int) error {
	if dbPath == "" {
		return errors.New("no history database, set --db or LOADSHEET_DB_PATH")
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(telegramID, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "USER", "PRODUCTS", "DEPTH", "ROWS", "TOOK", "STATUS").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style
		})
	for _, run := range runs {
		status := run.Status
		if run.Error != "" {
			status += ": " + run.Error
		}
		user := "cli"
		if run.TelegramID != 0 {
			user = fmt.Sprint(run.TelegramID)
		}
		t.Row(
			humanize.Time(run.CreatedAt),
			user,
			tablefile.ShortenFilename(run.ProductFile, maxDisplayNameLength),
			fmt.Sprint(run.TargetDepth),
			humanize.Comma(int64(run.OutputRows)),
			run.Duration.Round(time.Millisecond).String(),
			status,
		)
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}
