package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig
	Vision   VisionConfig
	Camera   CameraConfig
	Engine   EngineConfig
	FacesDir string // directory for cached reference images (faces/<name>.jpg)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; when empty the SQLite backend is used
	SQLitePath   string // SQLite database file (default attendance.db)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type VisionConfig struct {
	URL string // face detection/embedding service, defaults to http://localhost:8000
}

type CameraConfig struct {
	SnapshotURL  string        // HTTP snapshot endpoint of an IP camera
	FramesDir    string        // alternative: directory of frame images to consume
	PollInterval time.Duration // delay between snapshot requests
}

type EngineConfig struct {
	MatchTolerance    float64 `yaml:"match_tolerance"`
	CooldownSeconds   int     `yaml:"cooldown_seconds"`
	MinSessionSeconds int     `yaml:"min_session_seconds"`
	EmbeddingDim      int     `yaml:"embedding_dim"`
}

// Cooldown returns the cooldown window as a duration.
func (e *EngineConfig) Cooldown() time.Duration {
	return time.Duration(e.CooldownSeconds) * time.Second
}

// MinSession returns the minimum session length as a duration.
func (e *EngineConfig) MinSession() time.Duration {
	return time.Duration(e.MinSessionSeconds) * time.Second
}

type defaultsFile struct {
	Engine EngineConfig `yaml:"engine"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	engine := defaults.Engine
	engine.MatchTolerance = envFloat("MATCH_TOLERANCE", engine.MatchTolerance)
	engine.CooldownSeconds = envInt("COOLDOWN_SECONDS", engine.CooldownSeconds)
	engine.MinSessionSeconds = envInt("MIN_SESSION_SECONDS", engine.MinSessionSeconds)
	engine.EmbeddingDim = envInt("EMBEDDING_DIM", engine.EmbeddingDim)

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			SQLitePath:   envString("SQLITE_PATH", "attendance.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Vision: VisionConfig{
			URL: os.Getenv("VISION_URL"),
		},
		Camera: CameraConfig{
			SnapshotURL:  os.Getenv("CAMERA_SNAPSHOT_URL"),
			FramesDir:    os.Getenv("CAMERA_FRAMES_DIR"),
			PollInterval: time.Duration(envInt("CAMERA_POLL_MS", 250)) * time.Millisecond,
		},
		Engine:   engine,
		FacesDir: envString("FACES_DIR", "faces"),
	}
}
