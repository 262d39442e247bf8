// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at startup and passed by reference into each component;
// nothing mutates it after Load returns.
type Config struct {
	DifyURL           string        `env:"DIFY_URL"`
	DifyAPIKey        string        `env:"DIFY_API_KEY"`
	LineChannelSecret string        `env:"LINE_CHANNEL_SECRET"`
	LineChannelToken  string        `env:"LINE_CHANNEL_ACCESS_TOKEN"`
	Port              string        `env:"PORT" envDefault:"8787"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`
	EventTimeout      time.Duration `env:"WEBHOOK_EVENT_TIMEOUT" envDefault:"30s"`
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Warnings reports credentials that are missing. A missing credential is not
// fatal: the process still serves, the affected endpoint just cannot succeed.
func (c Config) Warnings() []string {
	var w []string
	if c.DifyAPIKey == "" {
		w = append(w, "DIFY_API_KEY is not set; upstream calls will fail")
	}
	if c.LineChannelSecret == "" {
		w = append(w, "LINE_CHANNEL_SECRET is not set; webhook signatures cannot be verified")
	}
	if c.LineChannelToken == "" {
		w = append(w, "LINE_CHANNEL_ACCESS_TOKEN is not set; replies cannot be delivered")
	}
	return w
}
