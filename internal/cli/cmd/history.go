package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"funlight/internal/config"
	"funlight/internal/history"
	"funlight/internal/util/format"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List past conversions, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := config.Load()
			if s.NoHistory || s.HistoryPath == "" {
				return &ExitError{Code: ExitCLIError, Err: errors.New("history is disabled")}
			}
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			store, err := history.Open(s.HistoryPath)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
	return cmd
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions yet.")
		return
	}
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := ok.Render("ok")
		result := e.OutputPath
		size := format.Megabytes(e.Bytes)
		if e.Status != history.StatusSucceeded {
			status = bad.Render("failed")
			result = e.Error
			size = "-"
		}
		rows = append(rows, []string{
			e.Finished.Local().Format(time.DateTime),
			e.Format,
			status,
			size,
			truncate(result, 60),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3D3D3D"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("FINISHED", "FORMAT", "STATUS", "SIZE", "OUTPUT / ERROR").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
