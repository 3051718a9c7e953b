package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/concepto/concepto-av/internal/api"
	"github.com/concepto/concepto-av/internal/config"
	"github.com/concepto/concepto-av/internal/export"
	"github.com/concepto/concepto-av/internal/logging"
	"github.com/concepto/concepto-av/internal/media"
	"github.com/concepto/concepto-av/internal/script"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the script and export HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, ctx)
		},
	}
}

func runServer(cmd *cobra.Command, ctx *commandContext) error {
	startTime := time.Now()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.logger()

	database, err := ctx.openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another concepto server is using %s", cfg.DataDir())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release data dir lock", "error", err)
		}
	}()

	logger.Info("starting concepto", "version", config.Version, "data_dir", cfg.DataDir())

	if n, err := database.FailInterruptedExports(cmd.Context()); err != nil {
		logger.Warn("failed to mark interrupted exports", "error", err)
	} else if n > 0 {
		logger.Info("marked interrupted exports as failed", "count", n)
	}

	repo := script.NewRepository(database.Conn())
	apiKey, err := ensureAPIKey(cmd.Context(), repo, cfg.APIKey())
	if err != nil {
		return fmt.Errorf("failed to ensure api key: %w", err)
	}

	client := media.NewHTTPClient(media.Options{
		UserAgent: cfg.UserAgent(),
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.MaxMediaBytes(),
	}, logging.WithComponent(logger, "media"))
	history := export.NewHistory(database.Conn())
	exporter := export.NewExporter(
		export.NewFetcher(client, cfg.FetchConcurrency(), logger),
		history,
		logging.WithComponent(logger, "export"),
	)

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		BindHost:    cfg.BindHost(),
		Scripts:     script.NewService(repo, logging.WithComponent(logger, "script")),
		Exporter:    exporter,
		History:     history,
		Keys:        repo,
		CORSOrigins: cfg.CORSOrigins(),
		Logger:      logger,
		StartTime:   startTime,
		Version:     config.Version,
	})

	fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
		{"API URL", "http://" + net.JoinHostPort(cfg.BindHost(), strconv.Itoa(cfg.Port()))},
		{"API Key", apiKey},
		{"Data Dir", cfg.DataDir()},
	}))

	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		logger.Info("received shutdown signal")
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

type keyStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// ensureAPIKey stores the configured key, or keeps the stored one, or
// generates a new key on first start.
func ensureAPIKey(ctx context.Context, store keyStore, configured string) (string, error) {
	if configured != "" {
		if err := store.SetConfig(ctx, api.APIKeyConfigKey, configured); err != nil {
			return "", err
		}
		return configured, nil
	}

	existing, err := store.GetConfig(ctx, api.APIKeyConfigKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", err
	}
	key := hex.EncodeToString(keyBytes)

	if err := store.SetConfig(ctx, api.APIKeyConfigKey, key); err != nil {
		return "", err
	}
	return key, nil
}
