package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	os.Unsetenv("MATCH_TOLERANCE")
	os.Unsetenv("COOLDOWN_SECONDS")
	os.Unsetenv("MIN_SESSION_SECONDS")
	os.Unsetenv("EMBEDDING_DIM")

	cfg := Load()

	if cfg.Engine.MatchTolerance != 0.6 {
		t.Errorf("expected tolerance 0.6, got %f", cfg.Engine.MatchTolerance)
	}
	if cfg.Engine.Cooldown() != 10*time.Second {
		t.Errorf("expected cooldown 10s, got %s", cfg.Engine.Cooldown())
	}
	if cfg.Engine.MinSession() != 30*time.Second {
		t.Errorf("expected min session 30s, got %s", cfg.Engine.MinSession())
	}
	if cfg.Engine.EmbeddingDim != 128 {
		t.Errorf("expected embedding dim 128, got %d", cfg.Engine.EmbeddingDim)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MATCH_TOLERANCE", "0.45")
	t.Setenv("COOLDOWN_SECONDS", "20")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")

	cfg := Load()

	if cfg.Engine.MatchTolerance != 0.45 {
		t.Errorf("expected tolerance 0.45, got %f", cfg.Engine.MatchTolerance)
	}
	if cfg.Engine.CooldownSeconds != 20 {
		t.Errorf("expected cooldown 20, got %d", cfg.Engine.CooldownSeconds)
	}
	if cfg.Database.SQLitePath != "/tmp/test.db" {
		t.Errorf("expected sqlite path override, got %q", cfg.Database.SQLitePath)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("COOLDOWN_SECONDS", "not-a-number")
	t.Setenv("MATCH_TOLERANCE", "-1")

	cfg := Load()

	if cfg.Engine.CooldownSeconds != 10 {
		t.Errorf("expected fallback cooldown 10, got %d", cfg.Engine.CooldownSeconds)
	}
	if cfg.Engine.MatchTolerance != 0.6 {
		t.Errorf("expected fallback tolerance 0.6, got %f", cfg.Engine.MatchTolerance)
	}
}
