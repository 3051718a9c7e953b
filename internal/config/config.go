// Package config provides configuration management for the Concepto AV service.
// Values come from defaults, then an optional TOML file, then a .env file,
// then CONCEPTO_* environment variables, each layer overriding the previous.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort                = 8787
	DefaultBindHost            = "127.0.0.1"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultDataDir             = ".concepto"
	DefaultFetchTimeoutSeconds = 60
	DefaultUserAgent           = "Concepto-AV-Export/1.0"
	DefaultMaxMediaBytes       = 256 * 1024 * 1024 // 256MB

	// Environment variable names
	EnvConfigPath       = "CONCEPTO_CONFIG"
	EnvPort             = "CONCEPTO_PORT"
	EnvBindHost         = "CONCEPTO_BIND_HOST"
	EnvLogLevel         = "CONCEPTO_LOG_LEVEL"
	EnvLogFormat        = "CONCEPTO_LOG_FORMAT"
	EnvDataDir          = "CONCEPTO_DATA_DIR"
	EnvAPIKey           = "CONCEPTO_API_KEY"
	EnvFetchConcurrency = "CONCEPTO_FETCH_CONCURRENCY"
	EnvFetchTimeout     = "CONCEPTO_FETCH_TIMEOUT_SECONDS"
	EnvUserAgent        = "CONCEPTO_USER_AGENT"
	EnvMaxMediaBytes    = "CONCEPTO_MAX_MEDIA_BYTES"
	EnvCORSOrigins      = "CONCEPTO_CORS_ORIGINS"

	// Database filename
	DBFilename = "concepto.db"
	// Lock file guarding the data directory against a second server
	LockFilename = "concepto.lock"
	// Dotenv file read from the working directory
	DotEnvFilename = ".env"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	BindHost() string
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string
	LockPath() string
	APIKey() string
	FetchConcurrency() int
	FetchTimeout() time.Duration
	UserAgent() string
	MaxMediaBytes() int64
	CORSOrigins() []string
}

// settings is the decoded form shared by the TOML file and the environment.
type settings struct {
	Port                int      `toml:"port" env:"CONCEPTO_PORT"`
	BindHost            string   `toml:"bind_host" env:"CONCEPTO_BIND_HOST"`
	LogLevel            string   `toml:"log_level" env:"CONCEPTO_LOG_LEVEL"`
	LogFormat           string   `toml:"log_format" env:"CONCEPTO_LOG_FORMAT"`
	DataDir             string   `toml:"data_dir" env:"CONCEPTO_DATA_DIR"`
	APIKey              string   `toml:"api_key" env:"CONCEPTO_API_KEY"`
	FetchConcurrency    int      `toml:"fetch_concurrency" env:"CONCEPTO_FETCH_CONCURRENCY"`
	FetchTimeoutSeconds int      `toml:"fetch_timeout_seconds" env:"CONCEPTO_FETCH_TIMEOUT_SECONDS"`
	UserAgent           string   `toml:"user_agent" env:"CONCEPTO_USER_AGENT"`
	MaxMediaBytes       int64    `toml:"max_media_bytes" env:"CONCEPTO_MAX_MEDIA_BYTES"`
	CORSOrigins         []string `toml:"cors_origins" env:"CONCEPTO_CORS_ORIGINS" envSeparator:","`
}

func defaults() settings {
	return settings{
		Port:                DefaultPort,
		BindHost:            DefaultBindHost,
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
		DataDir:             defaultDataDir(),
		FetchTimeoutSeconds: DefaultFetchTimeoutSeconds,
		UserAgent:           DefaultUserAgent,
		MaxMediaBytes:       DefaultMaxMediaBytes,
	}
}

// EnvConfig is the resolved configuration.
type EnvConfig struct {
	s          settings
	configPath string
}

// New loads configuration without an explicit config file path.
func New() (*EnvConfig, error) {
	return Load("")
}

// Load resolves configuration. path names a TOML file; when empty,
// CONCEPTO_CONFIG is consulted. A missing file is only an error when the path
// was given explicitly.
func Load(path string) (*EnvConfig, error) {
	return load(path, DotEnvFilename)
}

func load(path, dotenvPath string) (*EnvConfig, error) {
	s := defaults()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &s); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			path = ""
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Existing environment variables win over .env entries.
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &EnvConfig{s: s, configPath: path}, nil
}

func (s *settings) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d: port must be between 1 and 65535", s.Port)
	}
	switch strings.ToLower(s.LogFormat) {
	case "json", "text", "auto":
	default:
		return fmt.Errorf("invalid log format %q: want json, text or auto", s.LogFormat)
	}
	if s.FetchConcurrency < 0 {
		return fmt.Errorf("invalid fetch concurrency %d: must not be negative", s.FetchConcurrency)
	}
	if s.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch timeout %d: must be positive", s.FetchTimeoutSeconds)
	}
	if s.MaxMediaBytes <= 0 {
		return fmt.Errorf("invalid max media bytes %d: must be positive", s.MaxMediaBytes)
	}
	if strings.TrimSpace(s.DataDir) == "" {
		return fmt.Errorf("data dir is required")
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.s.Port
}

// BindHost returns the interface the HTTP server listens on
func (c *EnvConfig) BindHost() string {
	return c.s.BindHost
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.s.LogLevel
}

// LogFormat returns the log format (json, text, auto)
func (c *EnvConfig) LogFormat() string {
	return c.s.LogFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.s.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.s.DataDir, DBFilename)
}

func (c *EnvConfig) LockPath() string {
	return filepath.Join(c.s.DataDir, LockFilename)
}

// APIKey returns the configured API key, empty when one should be generated
func (c *EnvConfig) APIKey() string {
	return c.s.APIKey
}

// FetchConcurrency bounds concurrent media fetches; 0 means unbounded
func (c *EnvConfig) FetchConcurrency() int {
	return c.s.FetchConcurrency
}

func (c *EnvConfig) FetchTimeout() time.Duration {
	return time.Duration(c.s.FetchTimeoutSeconds) * time.Second
}

func (c *EnvConfig) UserAgent() string {
	return c.s.UserAgent
}

func (c *EnvConfig) MaxMediaBytes() int64 {
	return c.s.MaxMediaBytes
}

// CORSOrigins lists browser origins allowed in addition to loopback ones
func (c *EnvConfig) CORSOrigins() []string {
	return c.s.CORSOrigins
}

// ConfigPath returns the TOML file that was applied, if any
func (c *EnvConfig) ConfigPath() string {
	return c.configPath
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
