package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	DBPath          string
	Port            string
	LogLevel        string
	LogFormat       string
	ImportTimeout   time.Duration
	AutoCategorize  bool
	ImportRateLimit int
}

func Default() Config {
	return Config{
		DBPath:          "checklist.db",
		Port:            "8080",
		LogLevel:        "info",
		LogFormat:       "text",
		ImportTimeout:   15 * time.Second,
		ImportRateLimit: 10,
	}
}

// Load reads an optional .env file and then the CHECKLIST_* environment.
// Variables already set in the process environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, starting from Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(getenv("CHECKLIST_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_IMPORT_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHECKLIST_IMPORT_TIMEOUT: %w", err)
		}
		cfg.ImportTimeout = d
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_AUTO_CATEGORIZE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("CHECKLIST_AUTO_CATEGORIZE: %w", err)
		}
		cfg.AutoCategorize = b
	}
	if v := strings.TrimSpace(getenv("CHECKLIST_IMPORT_RATE_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("CHECKLIST_IMPORT_RATE_LIMIT: invalid value %q", v)
		}
		cfg.ImportRateLimit = n
	}

	return cfg, nil
}
