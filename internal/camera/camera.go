// Package camera acquires frames for the recognition loop. Frames come
// either from an IP camera's HTTP snapshot endpoint or from a directory
// of images dropped by an external capture process. Read failures are
// recoverable: the loop skips the frame and retries, it never dies on a
// flaky camera.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FrameSource produces a sequence of encoded image frames on demand.
type FrameSource interface {
	// NextFrame blocks until the next frame is available and returns its
	// bytes. Returns io.EOF when the source is exhausted; any other error
	// is recoverable and the caller should skip and retry.
	NextFrame(ctx context.Context) ([]byte, error)
}

// SnapshotSource polls an IP camera's HTTP snapshot endpoint, at most
// once per poll interval.
type SnapshotSource struct {
	url      string
	interval time.Duration
	client   *http.Client
	last     time.Time
}

// NewSnapshotSource creates a snapshot-polling frame source.
func NewSnapshotSource(url string, interval time.Duration) *SnapshotSource {
	return &SnapshotSource{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NextFrame fetches one snapshot, waiting out the poll interval first.
func (s *SnapshotSource) NextFrame(ctx context.Context) ([]byte, error) {
	if wait := s.interval - time.Since(s.last); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	s.last = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// DirSource reads frames from a directory of image files in name order.
// Useful for replaying captured footage and for tests.
type DirSource struct {
	files []string
	pos   int
}

// NewDirSource lists the image files in dir. The set of frames is fixed
// at construction time.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsImageFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return &DirSource{files: files}, nil
}

// NextFrame returns the next file's contents, or io.EOF when exhausted.
// Unreadable files surface as recoverable errors and are skipped on the
// following call.
func (d *DirSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pos >= len(d.files) {
		return nil, io.EOF
	}

	path := d.files[d.pos]
	d.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
	}
	return data, nil
}

// Remaining returns how many frames are left.
func (d *DirSource) Remaining() int {
	return len(d.files) - d.pos
}

// IsImageFile reports whether the filename has a supported image extension.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp":
		return true
	}
	return false
}
