package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptlens/promptlens/internal/observability"
	"github.com/promptlens/promptlens/internal/server"
	"github.com/promptlens/promptlens/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP analysis server with graceful shutdown support.

Ctrl+C (SIGINT) or SIGTERM triggers a graceful shutdown: in-flight
requests finish within the configured shutdown timeout and logs are
flushed before exit.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("set", "", "prompt set YAML file")
	serveCmd.Flags().String("from-store", "", "prompt set name stored in the database")
	serveCmd.Flags().String("host", "", "bind host (overrides config)")
	serveCmd.Flags().Int("port", 0, "bind port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	setFile, err := cmd.Flags().GetString("set")
	if err != nil {
		return err
	}
	setName, err := cmd.Flags().GetString("from-store")
	if err != nil {
		return err
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return err
	}

	if host == "" {
		host = cfg.Server.Host
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	observability.InitServerLogger("promptlens", cfg.Logging.Level)

	set, err := loadPromptSet(cmd.Context(), setFile, setName)
	if err != nil {
		return err
	}

	eng, err := buildEngine(set)
	if err != nil {
		return err
	}

	observability.ServerLogger.Info("Initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("prompt_set", set.Name),
		zap.Int("prompts", len(set.Prompts)))

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	probe := buildModelClient()
	hm.RegisterChecker("model_endpoint", handlers.HealthCheckerFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return probe.Ping(ctx)
	}))

	srv := server.New(host, port, handlers.NewAnalysisHandler(eng))

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	observability.ServerLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		observability.ServerLogger.Error("Server shutdown failed", zap.Error(err))
		return err
	}

	observability.ServerLogger.Info("HTTP server stopped gracefully")
	if err := observability.ServerLogger.Sync(); err != nil {
		// Sync errors are often benign (stdout/stderr already closed)
		observability.ServerLogger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
	}

	return nil
}
