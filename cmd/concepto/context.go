package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/concepto/concepto-av/internal/config"
	"github.com/concepto/concepto-av/internal/db"
	"github.com/concepto/concepto-av/internal/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.EnvConfig
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.EnvConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.configPath))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to stderr at the configured level unless a flag overrides it.
func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		level, format := config.DefaultLogLevel, config.DefaultLogFormat
		if c.config != nil {
			level, format = c.config.LogLevel(), c.config.LogFormat()
		}
		if c.flags.logLevel != "" {
			level = c.flags.logLevel
		}
		if c.flags.logFormat != "" {
			format = c.flags.logFormat
		}
		c.log = logging.NewFileLogger(os.Stderr, level, format)
	})
	return c.log
}

// openDB creates the data directory if needed and opens the database.
func (c *commandContext) openDB() (*db.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), c.logger())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}
