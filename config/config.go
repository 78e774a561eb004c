// Package config loads the loadsheet bot settings from the environment and
// the config.env file in the user's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/raine/loadsheet-bot/internal/category"
	"github.com/raine/loadsheet-bot/internal/pipeline"
	"github.com/raine/loadsheet-bot/internal/tablefile"
)

const (
	AppName     = "loadsheet-bot"
	EnvFileName = "config.env"

	DefaultDBPath = "loadsheet.db"
)

// Environment variable names.
const (
	EnvBotToken          = "BOT_TOKEN"
	EnvAdminTelegramID   = "ADMIN_TELEGRAM_ID"
	EnvDBPath            = "LOADSHEET_DB_PATH"
	EnvTargetDepth       = "LOADSHEET_TARGET_DEPTH"
	EnvExcludeCategories = "LOADSHEET_EXCLUDE_CATEGORIES"
	EnvOutputFormat      = "LOADSHEET_OUTPUT_FORMAT"
)

// RequiredEnvVars lists the variables the bot cannot start without.
var RequiredEnvVars = []string{EnvBotToken, EnvAdminTelegramID}

// Settings is the resolved configuration.
type Settings struct {
	BotToken     string
	AdminID      int64
	DBPath       string
	Build        pipeline.Options
	OutputFormat tablefile.Format
}

// Dir returns the application's config directory, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment win.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// WriteEnvFile writes values to the config file with owner-only permissions
// and returns its path.
func WriteEnvFile(values map[string]string) (string, error) {
	configPath, err := FilePath()
	if err != nil {
		return "", err
	}
	if err := godotenv.Write(values, configPath); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(configPath, 0600); err != nil {
		return "", fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return configPath, nil
}

// MissingRequired returns the names of required variables that are unset.
func MissingRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the settings from the environment. Only the build and output
// settings have defaults; callers check MissingRequired for the rest.
func Load() (*Settings, error) {
	s := &Settings{
		BotToken: os.Getenv(EnvBotToken),
		DBPath:   os.Getenv(EnvDBPath),
		Build:    pipeline.DefaultOptions(),
	}
	if s.DBPath == "" {
		s.DBPath = DefaultDBPath
	}

	if v := os.Getenv(EnvAdminTelegramID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid integer: %w", EnvAdminTelegramID, err)
		}
		s.AdminID = id
	}

	if v := os.Getenv(EnvTargetDepth); v != "" {
		depth, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid integer: %w", EnvTargetDepth, err)
		}
		s.Build.TargetDepth = depth
	}
	if err := s.Build.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", EnvTargetDepth, err)
	}

	if v, ok := os.LookupEnv(EnvExcludeCategories); ok {
		s.Build.Excluded = category.SplitNames(v)
	}

	format, err := tablefile.ParseFormat(os.Getenv(EnvOutputFormat))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvOutputFormat, err)
	}
	s.OutputFormat = format

	return s, nil
}
