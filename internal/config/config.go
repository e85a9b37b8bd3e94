package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/narrative-engine/internal/engine"
)

// Server is the process configuration, read from the environment after an
// optional .env file.
type Server struct {
	Addr            string        `env:"NARRATIVE_ADDR" envDefault:":8080"`
	CatalogPath     string        `env:"NARRATIVE_CATALOG"`
	LogLevel        string        `env:"NARRATIVE_LOG_LEVEL" envDefault:"info"`
	LogDev          bool          `env:"NARRATIVE_LOG_DEV" envDefault:"false"`
	ResumePolicy    string        `env:"NARRATIVE_RESUME_POLICY" envDefault:"restart"`
	FrameInterval   time.Duration `env:"NARRATIVE_FRAME_INTERVAL" envDefault:"16ms"`
	TypeInterval    time.Duration `env:"NARRATIVE_TYPE_INTERVAL" envDefault:"45ms"`
	TypeJitter      float64       `env:"NARRATIVE_TYPE_JITTER" envDefault:"0.25"`
	OutboxSize      int           `env:"NARRATIVE_OUTBOX" envDefault:"16"`
	ShutdownTimeout time.Duration `env:"NARRATIVE_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads envFiles (default ".env") if present, then the environment.
// Missing .env files are not an error.
func Load(envFiles ...string) (Server, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Server{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config missing addr")
	}
	if _, err := engine.ParseResumePolicy(c.ResumePolicy); err != nil {
		return fmt.Errorf("resume policy %q: %w", c.ResumePolicy, err)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %s", c.FrameInterval)
	}
	if c.TypeInterval <= 0 {
		return fmt.Errorf("type interval must be positive, got %s", c.TypeInterval)
	}
	if c.TypeJitter < 0 || c.TypeJitter > 1 {
		return fmt.Errorf("type jitter must be within [0,1], got %v", c.TypeJitter)
	}
	if c.OutboxSize < 1 {
		return fmt.Errorf("outbox size must be at least 1, got %d", c.OutboxSize)
	}
	return nil
}
