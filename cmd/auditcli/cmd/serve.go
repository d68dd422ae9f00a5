package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/internal/service"
	"github.com/perf-analysis/pkg/config"
)

var serveConfigPath string

// serveCmd starts the long-running service.Service scheduler loop in the
// foreground, the same daemon cmd/auditworker runs standalone.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit worker scheduler loop",
	Long: `Load the service configuration, start the database-backed scheduler
and its configured run-intake sources, and block until interrupted.`,
	RunE: runServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file")
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	log.Info("Election version: %s", cfg.Election.Version)
	log.Info("Worker count: %d", cfg.Scheduler.WorkerCount)
	log.Info("Database: %s://%s:%d/%s", cfg.Database.Type, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	log.Info("Storage: %s", cfg.Storage.Type)

	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}

	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}

	log.Info("Worker started, waiting for audit runs...")

	select {
	case sig := <-sigChan:
		log.Info("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down...")
	}

	return svc.Stop()
}
