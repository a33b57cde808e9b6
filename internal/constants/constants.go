// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// EmbeddingDim is the fixed dimension of face embeddings produced by
	// the vision service (dlib ResNet face encodings)
	EmbeddingDim = 128

	// DefaultMatchTolerance is the maximum Euclidean distance accepted as
	// the same identity
	DefaultMatchTolerance = 0.6
)

// Session engine constants
const (
	// DefaultCooldown is how long re-detections are ignored after an
	// identity is marked OUT
	DefaultCooldown = 10 * time.Second

	// DefaultMinSession is the minimum elapsed time before an open session
	// may be closed; earlier re-detections are treated as noise
	DefaultMinSession = 30 * time.Second
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for batch enrollment
	WorkerPoolSize = 4

	// MaxFrameSize is the maximum dimension (width or height) sent to the
	// vision service; larger frames are downscaled first
	MaxFrameSize = 1280

	// DefaultPollInterval is the default delay between camera snapshot requests
	DefaultPollInterval = 250 * time.Millisecond
)

// Web server constants
const (
	// EventChannelBuffer is the buffer size for SSE event channels
	EventChannelBuffer = 100
)
