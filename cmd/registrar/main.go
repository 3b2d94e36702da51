package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edustack/registrar/internal/archive"
	archminio "github.com/edustack/registrar/internal/archive/minio"
	"github.com/edustack/registrar/internal/config"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/server"
	"github.com/edustack/registrar/internal/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	configPath string
	listen     string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "registrar",
		Short: "Registrar - student enrollment service",
		Long:  `Registrar manages a university enrollment database: schema lifecycle, demo seeding, and row-level reads and writes over HTTP, against PostgreSQL or MySQL.`,
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVarP(&listen, "listen", "l", "", "HTTP bind address (overrides config)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("registrar %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logger.SetGlobal(log)

	manager := session.NewManager(log)

	var snap *archive.Snapshotter
	if ac := cfg.ArchiveConfig(); ac != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := archminio.New(ctx, ac)
		cancel()
		if err != nil {
			log.ErrorErr("archive storage unavailable, archive endpoint disabled", err)
		} else {
			snap = archive.NewSnapshotter(store, ac.Bucket, log)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      server.New(manager, cfg.DatabaseConfig(), snap, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.With().Str("version", version).Str("listen", cfg.Listen).Logger().Info("registrar starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.With().Str("signal", sig.String()).Logger().Info("shutdown signal received")
	case err := <-errCh:
		log.ErrorErr("server error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorErr("shutdown incomplete", err)
	}

	// Release the database handle last so in-flight requests finish first.
	releaseManager(manager, log)

	log.Info("registrar stopped")
	return nil
}

// disconnector is the slice of the session manager shutdown needs.
type disconnector interface {
	Disconnect() error
}

// releaseManager disconnects the session manager on shutdown. Never having
// connected is the normal idle case and stays quiet; any other failure is
// worth a warning since the process is exiting anyway.
func releaseManager(m disconnector, log *logger.Logger) {
	switch err := m.Disconnect(); {
	case err == nil:
		log.Info("database handle released")
	case errs.IsNotConnected(err):
	default:
		log.WarnErr("database handle close failed", err)
	}
}
