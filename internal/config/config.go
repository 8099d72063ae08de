package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	// SBS connection settings
	SBS SBSConfig `mapstructure:"sbs"`

	// Persistence settings
	Store StoreConfig `mapstructure:"store"`
}

// SBSConfig holds the SBS endpoint and caller identity
type SBSConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Username          string `mapstructure:"username"`
	Country           string `mapstructure:"country"`
	Language          string `mapstructure:"language"`
	DatabaseID        string `mapstructure:"database_id"`
	Queue             string `mapstructure:"queue"`
	NoVerifySSL       bool   `mapstructure:"no_verify_ssl"`
	DetailConcurrency int    `mapstructure:"detail_concurrency"`
}

// StoreConfig holds SQLite persistence settings
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "text",
		SBS: SBSConfig{
			Country:           "ZA",
			Language:          "en",
			Queue:             "GENQ",
			DetailConcurrency: 4,
		},
		Store: StoreConfig{
			Path: "errjobs.db",
		},
	}
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 1. ./.errjobs.yaml or ./.errjobs.yml
// 2. ~/.errjobs.yaml or ~/.errjobs.yml
// 3. $XDG_CONFIG_HOME/errjobs/config.yaml (or ~/.config/errjobs/config.yaml)
// 4. /etc/errjobs/config.yaml
func Load() (*Config, error) {
	cfg := Default()

	configFile := findConfigFile()
	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	names := []string{".errjobs.yaml", ".errjobs.yml", "errjobs.yaml", "errjobs.yml"}

	home, homeErr := os.UserHomeDir()
	configDir, configDirErr := os.UserConfigDir()

	var searchPaths []string

	cwd, err := os.Getwd()
	if err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if homeErr == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDirErr == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "errjobs"))
	}
	searchPaths = append(searchPaths, "/etc/errjobs")

	for _, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to config.
// The SBS_* names match what operators already export for the legacy
// tooling, so a configured shell keeps working unchanged.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ERRJOBS_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("ERRJOBS_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("ERRJOBS_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("SBS_BASE_URL"); v != "" {
		cfg.SBS.BaseURL = v
	}
	if v := os.Getenv("SBS_USERNAME"); v != "" {
		cfg.SBS.Username = v
	}
	if v := os.Getenv("SBS_COUNTRY"); v != "" {
		cfg.SBS.Country = v
	}
	if v := os.Getenv("SBS_LANGUAGE"); v != "" {
		cfg.SBS.Language = v
	}
	if v := os.Getenv("SBS_DATABASE_ID"); v != "" {
		cfg.SBS.DatabaseID = v
	}
	if v := os.Getenv("SBS_QUEUE"); v != "" {
		cfg.SBS.Queue = v
	}
	if v := os.Getenv("SBS_NO_VERIFY_SSL"); v == "true" || v == "1" {
		cfg.SBS.NoVerifySSL = true
	}
	if v := os.Getenv("ERRJOBS_DB"); v != "" {
		cfg.Store.Path = v
	}
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}
