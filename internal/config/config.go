// Package config loads server configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/classbank/ledger/pkg/logger"
)

// Config holds everything the server binary needs.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// DatabaseURL selects the postgres store when set; empty runs in-memory.
	DatabaseURL string `yaml:"database_url"`

	// TeacherPIN guards the teacher dashboard.
	TeacherPIN string `yaml:"teacher_pin"`

	// InterestSchedule is a cron expression for the weekly interest cycle.
	InterestSchedule string `yaml:"interest_schedule"`

	// Seed populates demo students, missions and rewards on an empty store.
	Seed bool `yaml:"seed"`

	// RateLimit is sustained requests per second per client; zero disables
	// throttling.
	RateLimit int `yaml:"rate_limit"`
	// RateBurst is the per-client burst allowance.
	RateBurst int `yaml:"rate_burst"`

	// AuditFile, when set, appends the API audit trail as JSONL.
	AuditFile string `yaml:"audit_file"`

	Logging logger.LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Addr:       ":8080",
		TeacherPIN: "1234",
		RateLimit:  25,
		RateBurst:  50,
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Addr == "" {
		return Config{}, fmt.Errorf("listen address is required")
	}
	if cfg.TeacherPIN == "" {
		return Config{}, fmt.Errorf("teacher pin is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CLASSBANK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("CLASSBANK_TEACHER_PIN"); v != "" {
		cfg.TeacherPIN = v
	}
	if v := os.Getenv("CLASSBANK_INTEREST_SCHEDULE"); v != "" {
		cfg.InterestSchedule = v
	}
	if v := os.Getenv("CLASSBANK_SEED"); v != "" {
		cfg.Seed, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CLASSBANK_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit = n
		}
	}
	if v := os.Getenv("CLASSBANK_AUDIT_FILE"); v != "" {
		cfg.AuditFile = v
	}
	if v := os.Getenv("CLASSBANK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLASSBANK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
