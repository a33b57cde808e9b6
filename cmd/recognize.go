package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/camera"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/matcher"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// matcherRefreshInterval is how often the recognition loop reloads
// identities, so registrations made while the loop runs get picked up.
const matcherRefreshInterval = time.Minute

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run the live recognition and attendance loop",
	Long: `Continuously reads camera frames, recognizes enrolled faces and turns
sightings into IN/OUT attendance sessions. Runs until interrupted, or
until a frames directory is exhausted.`,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("bell", true, "Ring the terminal bell on IN/OUT transitions")
}

// newFrameSource builds the configured frame source: camera snapshots
// when CAMERA_SNAPSHOT_URL is set, a frames directory otherwise.
func newFrameSource(cfg *config.Config) (camera.FrameSource, error) {
	if cfg.Camera.SnapshotURL != "" {
		return camera.NewSnapshotSource(cfg.Camera.SnapshotURL, cfg.Camera.PollInterval), nil
	}
	if cfg.Camera.FramesDir != "" {
		return camera.NewDirSource(cfg.Camera.FramesDir)
	}
	return nil, errors.New("no camera configured, set CAMERA_SNAPSHOT_URL or CAMERA_FRAMES_DIR")
}

// runRecognitionLoop drives frames through detection, matching and the
// session engine until the context is cancelled or the source runs dry.
// Frame, vision and matching failures are logged and skipped; only
// storage corruption stops the loop.
func runRecognitionLoop(ctx context.Context, cfg *config.Config, store database.Store, notifier attendance.Notifier, log *logrus.Logger) error {
	faceMatcher := matcher.New(store, cfg.Engine.MatchTolerance)
	if err := faceMatcher.Refresh(ctx); err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}
	if faceMatcher.Empty() {
		return errors.New("no identities enrolled, register someone first")
	}
	log.WithField("identities", faceMatcher.Count()).Info("recognition loop started")

	engine := attendance.NewEngine(store, cfg.Engine.Cooldown(), cfg.Engine.MinSession(),
		attendance.WithNotifier(notifier),
		attendance.WithLogger(log),
	)
	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Engine.EmbeddingDim)

	source, err := newFrameSource(cfg)
	if err != nil {
		return err
	}

	lastRefresh := time.Now()
	for {
		if time.Since(lastRefresh) >= matcherRefreshInterval {
			if err := faceMatcher.Refresh(ctx); err != nil {
				log.WithError(err).Warn("identity refresh failed")
			}
			lastRefresh = time.Now()
		}

		frame, err := source.NextFrame(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("frame source exhausted")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			log.WithError(err).Warn("frame read failed")
			continue
		}

		resized, err := vision.ResizeFrame(frame, constants.MaxFrameSize)
		if err != nil {
			log.WithError(err).Warn("frame decode failed")
			continue
		}

		faces, err := visionClient.DetectFaces(ctx, resized)
		if err != nil {
			log.WithError(err).Warn("face detection failed")
			continue
		}

		for _, face := range faces {
			embedding, err := visionClient.ComputeEmbedding(ctx, resized, face)
			if err != nil {
				log.WithError(err).Warn("face encoding failed")
				continue
			}

			name, distance, ok, err := faceMatcher.Match(embedding)
			if err != nil {
				return fmt.Errorf("matching failed: %w", err)
			}
			if !ok {
				log.WithField("distance", fmt.Sprintf("%.3f", distance)).Debug("unknown face")
				continue
			}

			outcome, err := engine.HandleMatch(ctx, name, time.Now())
			if err != nil {
				log.WithError(err).WithField("name", name).Error("session transition failed")
				continue
			}
			log.WithFields(logrus.Fields{
				"name":     name,
				"distance": fmt.Sprintf("%.3f", distance),
				"outcome":  outcome,
			}).Debug("match handled")
		}
	}
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	log := logrus.New()
	notifier := attendance.MultiNotifier{
		attendance.ConsoleNotifier{Bell: mustGetBool(cmd, "bell")},
		attendance.LogNotifier{Log: log},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	return runRecognitionLoop(ctx, cfg, store, notifier, log)
}
