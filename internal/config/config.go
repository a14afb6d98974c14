// Package config resolves the runtime configuration: defaults, then the YAML file, then
// HABITUAL_* environment variables. Command-line flags are applied last by main.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/postgres"
)

type Config struct {
	APIURL      string        `yaml:"api_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Storage     string        `yaml:"storage"`
	Credentials string        `yaml:"credentials"`
	SavingDelay time.Duration `yaml:"saving_delay"`
	Debug       bool          `yaml:"debug"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`

	// Path is the file the configuration was read from, if any
	Path string `yaml:"-"`
}

func Default() Config {
	return Config{
		APIURL:      constants.DefaultAPIURL,
		Timeout:     constants.DefaultTimeout,
		Storage:     constants.DefaultStorage,
		Credentials: constants.CredentialsKeyring,
		SavingDelay: constants.SavingIndicatorDelay,
	}
}

// DefaultPath returns the expanded location of config.yaml.
func DefaultPath() string {
	dir, err := ExpandPath(constants.DefaultConfigDir)
	if err != nil {
		return filepath.Join(".", constants.DefaultConfigFile)
	}
	return filepath.Join(dir, constants.DefaultConfigFile)
}

// Load reads path over the defaults and applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	path, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg.APIURL = envOrDefault("HABITUAL_API_URL", cfg.APIURL)
	cfg.Storage = envOrDefault("HABITUAL_STORAGE", cfg.Storage)
	cfg.Credentials = envOrDefault("HABITUAL_CREDENTIALS", cfg.Credentials)
	cfg.Timeout = envDuration("HABITUAL_TIMEOUT", cfg.Timeout)
	cfg.Debug = envBool("HABITUAL_DEBUG", cfg.Debug)
	cfg.LogLevel = envOrDefault("HABITUAL_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate normalizes the storage target and rejects unusable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.SavingDelay < 0 {
		return fmt.Errorf("saving_delay must not be negative, got %s", c.SavingDelay)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFile != "" {
		expanded, err := ExpandPath(c.LogFile)
		if err != nil {
			return err
		}
		c.LogFile = expanded
	}

	switch c.Credentials {
	case constants.CredentialsKeyring, constants.CredentialsStorage:
	default:
		return fmt.Errorf("credentials must be %q or %q, got %q", constants.CredentialsKeyring, constants.CredentialsStorage, c.Credentials)
	}

	if storage.IsPostgres(c.Storage) {
		return postgres.ValidateConnString(c.Storage)
	}
	expanded, err := ExpandPath(c.Storage)
	if err != nil {
		return err
	}
	c.Storage = expanded
	return nil
}

// Logger returns the logger settings for this configuration.
func (c Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Debug: c.Debug, Dir: c.Dir(), File: c.LogFile}
}

// Dir is the directory holding the configuration file and logs.
func (c Config) Dir() string {
	if c.Path != "" {
		return filepath.Dir(c.Path)
	}
	return filepath.Dir(DefaultPath())
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
