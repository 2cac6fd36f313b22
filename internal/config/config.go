package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"library-catalog/internal/logger"
	"library-catalog/library"
)

// Config holds the settings shared by the library commands.
type Config struct {
	DBPath    string
	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		DBPath:    withDefault(os.Getenv("LIBRARY_DB_PATH"), library.DefaultPath),
		LogLevel:  withDefault(os.Getenv("LIBRARY_LOG_LEVEL"), "warn"),
		LogFormat: strings.ToLower(withDefault(os.Getenv("LIBRARY_LOG_FORMAT"), logger.FormatText)),
	}

	if cfg.LogFormat != logger.FormatText && cfg.LogFormat != logger.FormatJSON {
		return nil, fmt.Errorf("LIBRARY_LOG_FORMAT must be %q or %q, got %q",
			logger.FormatText, logger.FormatJSON, cfg.LogFormat)
	}
	return cfg, nil
}

func withDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
