// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port                    string
	FrontendURL             string
	StoreDriver             string // "memory" (default) or "sqlite"
	DBPath                  string
	SessionTTL              time.Duration
	SessionSweepInterval    time.Duration
	ThinkingDelay           time.Duration
	MaxUploadSize           int64
	ResetTranscriptOnLogout bool
	RateLimit               RateLimitConfig
	ConversationLog         ConversationLogConfig
}

// RateLimitConfig bounds chat traffic per session.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(newViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                    v.GetString("PORT"),
		FrontendURL:             v.GetString("FRONTEND_URL"),
		StoreDriver:             strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DBPath:                  v.GetString("DB_PATH"),
		SessionTTL:              v.GetDuration("SESSION_TTL"),
		SessionSweepInterval:    v.GetDuration("SESSION_SWEEP_INTERVAL"),
		ThinkingDelay:           v.GetDuration("THINKING_DELAY"),
		MaxUploadSize:           v.GetInt64("MAX_UPLOAD_SIZE"),
		ResetTranscriptOnLogout: v.GetBool("RESET_TRANSCRIPT_ON_LOGOUT"),
		RateLimit: RateLimitConfig{
			RequestsPerWindow: v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowDuration:    v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       v.GetBool("CONVERSATION_LOG_ENABLED"),
			Dir:           v.GetString("CONVERSATION_LOG_DIR"),
			GlobalEnabled: v.GetBool("CONVERSATION_LOG_GLOBAL_ENABLED"),
			GlobalPath:    v.GetString("CONVERSATION_LOG_GLOBAL_PATH"),
			QueueSize:     v.GetInt("CONVERSATION_LOG_QUEUE_SIZE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("DB_PATH", "./data/portal.db")
	v.SetDefault("SESSION_TTL", 60*time.Minute)
	v.SetDefault("SESSION_SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("THINKING_DELAY", time.Second)
	v.SetDefault("MAX_UPLOAD_SIZE", 10<<20)
	v.SetDefault("RESET_TRANSCRIPT_ON_LOGOUT", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 30)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("CONVERSATION_LOG_ENABLED", false)
	v.SetDefault("CONVERSATION_LOG_DIR", "./data/logs/conversations")
	v.SetDefault("CONVERSATION_LOG_GLOBAL_ENABLED", false)
	v.SetDefault("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson")
	v.SetDefault("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	v.AutomaticEnv()
	return v
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be memory or sqlite, got %q", c.StoreDriver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL cannot be negative")
	}
	if c.ThinkingDelay < 0 || c.ThinkingDelay > 5*time.Second {
		return fmt.Errorf("THINKING_DELAY must be between 0 and 5s")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if c.RateLimit.RequestsPerWindow < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS cannot be negative")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}
