package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.StoreDriver != "memory" {
		t.Errorf("expected memory store, got %q", cfg.StoreDriver)
	}
	if cfg.ThinkingDelay != time.Second {
		t.Errorf("expected 1s thinking delay, got %v", cfg.ThinkingDelay)
	}
	if cfg.ResetTranscriptOnLogout {
		t.Error("transcript reset on logout should default to false")
	}
	if !cfg.IsDevelopment() {
		t.Error("empty FRONTEND_URL should mean development")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/portal.db")
	t.Setenv("THINKING_DELAY", "250ms")
	t.Setenv("RESET_TRANSCRIPT_ON_LOGOUT", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" || cfg.StoreDriver != "sqlite" || cfg.DBPath != "/tmp/portal.db" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.ThinkingDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", cfg.ThinkingDelay)
	}
	if !cfg.ResetTranscriptOnLogout {
		t.Error("expected transcript reset enabled")
	}
	if cfg.RateLimit.RequestsPerWindow != 5 {
		t.Errorf("expected 5 requests, got %d", cfg.RateLimit.RequestsPerWindow)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver": {"STORE_DRIVER": "postgres"},
		"long delay":     {"THINKING_DELAY": "10s"},
		"no upload room": {"MAX_UPLOAD_SIZE": "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
