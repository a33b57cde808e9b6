package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the attendance database",
}

var dbReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Dump all session records",
	Long:  `Prints every raw session record in chronological order, open sessions included.`,
	RunE:  runDbRead,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbReadCmd)
}

func runDbRead(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	count, err := store.CountIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to count identities: %w", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Printf("Identities: %d\n", count)
	fmt.Printf("Sessions:   %d\n\n", len(sessions))

	if len(sessions) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATE\tIN\tOUT")
	for _, session := range sessions {
		out := session.OutTime
		if out == "" {
			out = "(open)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			session.ID, session.Name, session.Date, session.InTime, out)
	}
	return w.Flush()
}
