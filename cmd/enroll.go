package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/camera"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
	"github.com/kozaktomas/face-attend/internal/vision"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [directory]",
	Short: "Batch-enroll identities from a directory of photos",
	Long: `Enrolls every photo in the directory. The identity name is taken from
the filename: "john-smith.jpg" enrolls "john smith", and numbered
variants like "john-smith_2.jpg" add extra reference poses to the same
identity. Photos without a recognizable face are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of photos processed in parallel")
	enrollCmd.Flags().Bool("json", false, "Print the result as JSON")
}

// nameFromFilename derives the identity name from a photo filename,
// dropping the extension and a trailing _<number> pose suffix.
func nameFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if i := strings.LastIndex(base, "_"); i > 0 {
		suffix := base[i+1:]
		numeric := suffix != ""
		for _, r := range suffix {
			if !unicode.IsDigit(r) {
				numeric = false
				break
			}
		}
		if numeric {
			base = base[:i]
		}
	}
	base = strings.ReplaceAll(base, "_", " ")
	return facematch.NormalizeIdentityName(base)
}

// enrollResult is the per-identity outcome of a batch enrollment.
type enrollResult struct {
	Name       string   `json:"name"`
	Embeddings int      `json:"embeddings"`
	Skipped    []string `json:"skipped,omitempty"`
}

// enrollGroup enrolls all photos of one identity in order. Photos where
// the vision service finds no face are collected in Skipped.
func enrollGroup(ctx context.Context, store database.Store, visionClient *vision.Client, name string, paths []string) (enrollResult, error) {
	result := enrollResult{Name: name}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, filepath.Base(path))
			continue
		}

		resized, err := vision.ResizeFrame(data, constants.MaxFrameSize)
		if err != nil {
			result.Skipped = append(result.Skipped, filepath.Base(path))
			continue
		}

		embedding, err := visionClient.EncodeFirstFace(ctx, resized)
		if err != nil {
			if errors.Is(err, vision.ErrNoFaceDetected) {
				result.Skipped = append(result.Skipped, filepath.Base(path))
				continue
			}
			return result, fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
		}

		if result.Embeddings == 0 {
			_, err = store.AddIdentity(ctx, name, embedding)
			if errors.Is(err, database.ErrDuplicateIdentity) {
				// Already enrolled in a previous run; add another pose.
				err = store.AddEmbedding(ctx, name, embedding)
			}
		} else {
			err = store.AddEmbedding(ctx, name, embedding)
		}
		if err != nil {
			return result, fmt.Errorf("storing %s: %w", filepath.Base(path), err)
		}
		result.Embeddings++
	}

	return result, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	dir := args[0]
	concurrency := mustGetInt(cmd, "concurrency")
	asJSON := mustGetBool(cmd, "json")

	cfg := config.Load()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	// Group photos by identity so poses of one person enroll in order.
	groups := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() || !camera.IsImageFile(e.Name()) {
			continue
		}
		name := nameFromFilename(e.Name())
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], filepath.Join(dir, e.Name()))
	}
	if len(groups) == 0 {
		return errors.New("no photos found in directory")
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		sort.Strings(groups[name])
		names = append(names, name)
	}
	sort.Strings(names)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	visionClient := vision.NewClient(cfg.Vision.URL, cfg.Engine.EmbeddingDim)
	ctx := context.Background()

	var bar *progressbar.ProgressBar
	if !asJSON {
		fmt.Printf("Enrolling %d identities from %s\n\n", len(names), dir)
		bar = progressbar.NewOptions(len(names),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("people"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var mu sync.Mutex
	var results []enrollResult
	var errs []string

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string, paths []string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := enrollGroup(ctx, store, visionClient, name, paths)

			mu.Lock()
			if err != nil {
				errs = append(errs, err.Error())
			} else {
				results = append(results, result)
			}
			mu.Unlock()
			if bar != nil {
				bar.Add(1)
			}
		}(name, groups[name])
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"enrolled": results,
			"errors":   errs,
		})
	}

	fmt.Println()
	for _, result := range results {
		fmt.Printf("  %s: %d embedding(s)", result.Name, result.Embeddings)
		if len(result.Skipped) > 0 {
			fmt.Printf(", skipped %s", strings.Join(result.Skipped, ", "))
		}
		fmt.Println()
	}
	for _, msg := range errs {
		fmt.Printf("  error: %s\n", msg)
	}

	fmt.Printf("\nEnrolled %d identities (%d errors)\n", len(results), len(errs))
	return nil
}
