package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/config"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the attendance report",
	Long: `Prints all attendance sessions, most recent first, with per-day
running totals. Sessions still open and sessions with corrupted times
show "-" instead of a duration.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
	reportCmd.Flags().String("name", "", "Only show sessions for this identity")
	reportCmd.Flags().String("date", "", "Only show sessions on this date (YYYY-MM-DD)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := attendance.BuildReport(context.Background(), store)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	name := mustGetString(cmd, "name")
	date := mustGetString(cmd, "date")
	if name != "" || date != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if name != "" && row.Name != name {
				continue
			}
			if date != "" && row.Date != date {
				continue
			}
			filtered = append(filtered, row)
		}
		rows = filtered
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDATE\tIN\tOUT\tDURATION\tDAY TOTAL")
	for _, row := range rows {
		out := row.OutTime
		duration := "-"
		if out == "" {
			out = "-"
		}
		if row.Closed && !row.Flagged {
			duration = attendance.FormatDuration(row.Duration)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Name, row.Date, row.InTime, out, duration,
			attendance.FormatDuration(row.DailyTotal))
	}
	return w.Flush()
}
