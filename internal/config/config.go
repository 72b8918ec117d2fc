package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// CharterBaseURL is the root of the external charter booking API,
	// without a trailing slash.
	CharterBaseURL string `yaml:"charterBaseURL" validate:"required,url"`
	// CharterAPIKey authenticates every charter API call. Usually supplied
	// via the CHARTER_API_KEY environment variable instead of the file.
	CharterAPIKey string `yaml:"charterAPIKey,omitempty"`
	// DatabaseURL is the PostgreSQL connection string. Usually supplied via
	// the DATABASE_URL environment variable instead of the file.
	DatabaseURL string `yaml:"databaseURL,omitempty"`

	// EndYear is the last year (inclusive) the availability sync probes.
	EndYear int `yaml:"endYear" validate:"required,min=2000,max=2100"`
	// InterBoatDelaySeconds is the pause between boats during a sync run.
	InterBoatDelaySeconds int `yaml:"interBoatDelaySeconds" validate:"min=0"`

	// ListingCountry and ListingCategory scope the catalog refresh.
	ListingCountry  string `yaml:"listingCountry" validate:"required"`
	ListingCategory string `yaml:"listingCategory" validate:"required"`

	// TrackedBoats optionally overrides the tracked-boat list from the
	// database; when set, only these slugs are synced.
	TrackedBoats []string `yaml:"trackedBoats,omitempty"`
}

// InterBoatDelay returns the configured inter-boat pause as a duration.
func (c *Config) InterBoatDelay() time.Duration {
	return time.Duration(c.InterBoatDelaySeconds) * time.Second
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads the configuration for an environment, preferring
// boatwatch_config_<env>.yaml and falling back to boatwatch_config.yaml.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// DATABASE_URL and CHARTER_API_KEY environment variables override the file.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, including the fields that may
// arrive from the environment rather than the file.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("config validation failed: databaseURL not set (file or DATABASE_URL)")
	}
	if cfg.CharterAPIKey == "" {
		return fmt.Errorf("config validation failed: charterAPIKey not set (file or CHARTER_API_KEY)")
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if key := os.Getenv("CHARTER_API_KEY"); key != "" {
		cfg.CharterAPIKey = key
	}
}

// findConfigFile searches the current directory and then the home directory,
// trying the env-specific file name before the generic one.
func findConfigFile(env string) (string, error) {
	names := []string{"boatwatch_config.yaml"}
	if env != "" {
		names = []string{fmt.Sprintf("boatwatch_config_%s.yaml", env), "boatwatch_config.yaml"}
	}

	dirs := []string{"."}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, homeDir)
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
