package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/camera"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
	"github.com/kozaktomas/face-attend/internal/vision"
)

var registerCmd = &cobra.Command{
	Use:   "register [name]",
	Short: "Register a new identity from a photo or camera frame",
	Long: `Registers a new identity under the given name. The reference photo
comes from --image, or from a single camera snapshot when no image is
given. The photo must contain exactly one recognizable face; nothing is
stored otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("image", "", "Path to a reference photo (default: capture from camera)")
}

// captureImage loads the registration photo from disk or grabs one
// camera snapshot.
func captureImage(ctx context.Context, cmd *cobra.Command, cfg *config.Config) ([]byte, error) {
	if path := mustGetString(cmd, "image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}

	if cfg.Camera.SnapshotURL == "" {
		return nil, errors.New("no --image given and CAMERA_SNAPSHOT_URL is not set")
	}

	fmt.Println("Capturing frame from camera...")
	src := camera.NewSnapshotSource(cfg.Camera.SnapshotURL, 0)
	data, err := src.NextFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	return data, nil
}

// saveFaceImage caches the registration photo under the faces directory.
// Best effort; registration already succeeded at this point.
func saveFaceImage(cfg *config.Config, name string, image []byte) {
	if cfg.FacesDir == "" {
		return
	}
	if err := os.MkdirAll(cfg.FacesDir, 0o755); err != nil {
		fmt.Printf("Warning: could not create faces directory: %v\n", err)
		return
	}
	path := filepath.Join(cfg.FacesDir, name+".jpg")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		fmt.Printf("Warning: could not cache face image: %v\n", err)
	}
}

func runRegister(cmd *cobra.Command, args []string) error {
	name := facematch.NormalizeIdentityName(args[0])
	if name == "" {
		return errors.New("name must not be empty")
	}

	cfg := config.Load()
	ctx := context.Background()

	image, err := captureImage(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	resized, err := vision.ResizeFrame(image, constants.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("unsupported image: %w", err)
	}

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Engine.EmbeddingDim)
	embedding, err := visionClient.EncodeFirstFace(ctx, resized)
	if err != nil {
		if errors.Is(err, vision.ErrNoFaceDetected) {
			return errors.New("no face detected in the image, nothing was stored")
		}
		return fmt.Errorf("face encoding failed: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identity, err := store.AddIdentity(ctx, name, embedding)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateIdentity) {
			return fmt.Errorf("identity %q is already registered", name)
		}
		return fmt.Errorf("failed to store identity: %w", err)
	}

	saveFaceImage(cfg, name, resized)

	fmt.Printf("Registered %s (id %d)\n", identity.Name, identity.ID)
	return nil
}
