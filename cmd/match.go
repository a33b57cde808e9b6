package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/matcher"
	"github.com/kozaktomas/face-attend/internal/vision"
)

var matchCmd = &cobra.Command{
	Use:   "match [image]",
	Short: "Match a probe photo against the enrolled identities",
	Long: `Encodes the most confident face in the photo and matches it against
the enrolled identities. With a PostgreSQL backend the nearest
candidates come from a pgvector index scan.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int("nearest", 5, "Number of nearest candidates to show")
}

func runMatch(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "nearest")

	cfg := config.Load()
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	resized, err := vision.ResizeFrame(data, constants.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("unsupported image: %w", err)
	}

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Engine.EmbeddingDim)
	embedding, err := visionClient.EncodeFirstFace(ctx, resized)
	if err != nil {
		if errors.Is(err, vision.ErrNoFaceDetected) {
			return errors.New("no face detected in the image")
		}
		return fmt.Errorf("face encoding failed: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	faceMatcher := matcher.New(store, cfg.Engine.MatchTolerance)
	if err := faceMatcher.Refresh(ctx); err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	name, distance, ok, err := faceMatcher.Match(embedding)
	if errors.Is(err, matcher.ErrNoIdentities) {
		return errors.New("no identities enrolled, register someone first")
	}
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	if ok {
		fmt.Printf("Match: %s (distance %.3f, tolerance %.2f)\n", name, distance, cfg.Engine.MatchTolerance)
	} else {
		fmt.Printf("UNKNOWN (best distance %.3f, tolerance %.2f)\n", distance, cfg.Engine.MatchTolerance)
	}

	// With pgvector available, show the index's view of the neighborhood.
	if pg, isPostgres := store.(*postgres.Store); isPostgres {
		nearest, err := pg.FindNearestIdentities(ctx, embedding, limit)
		if err != nil {
			return fmt.Errorf("nearest neighbor query failed: %w", err)
		}
		fmt.Println("\nNearest candidates:")
		for i, candidate := range nearest {
			fmt.Printf("  %d. %s (distance %.3f)\n", i+1, candidate.Name, candidate.Distance)
		}
	}

	return nil
}
