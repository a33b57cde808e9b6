package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/database/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "face-attend",
	Short: "A camera-based attendance tracker using face recognition",
	Long: `Face Attend watches a camera feed, recognizes enrolled faces and
turns sightings into IN/OUT attendance sessions. Identities and sessions
are stored in PostgreSQL (with pgvector) or a local SQLite file.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openStore opens the configured persistence backend: PostgreSQL when
// DATABASE_URL is set, the local SQLite file otherwise.
func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL != "" {
		store, err := postgres.Open(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		return store, nil
	}

	store, err := sqlite.Open(cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite store: %w", err)
	}
	return store, nil
}
