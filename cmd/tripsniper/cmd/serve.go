package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/tripsniper/internal/api/handlers"
	"github.com/wonny/tripsniper/internal/api/router"
	"github.com/wonny/tripsniper/internal/obs"
	"github.com/wonny/tripsniper/internal/pkg/logger"
	"github.com/wonny/tripsniper/internal/service/scheduler"
)

var serveWithScheduler bool

// serveCmd 조회 API 서버
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read API",
	Long: `Serve /api/v1/offers, /health and /metrics on PORT.
Free accounts only see offers older than API_FREE_TIER_DELAY.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithScheduler, "schedule", false, "also run the pipeline scheduler in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveWithScheduler {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log.Info().
		Str("version", serviceVersion).
		Msg("🚀 Starting TripSniper API Server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	metrics := obs.NewMetrics(prometheus.NewRegistry())

	var sched *scheduler.Scheduler
	if serveWithScheduler {
		sched, err = newScheduler(newPipeline(st, metrics), metrics)
		if err != nil {
			return err
		}
	}

	routerCfg := &router.Config{
		OffersHandler:  handlers.NewOffersHandler(st.offers, cfg.Server.FreeTierDelay, nil),
		HealthHandler:  handlers.NewHealthHandler(st.offers, st.pool, serviceVersion),
		Metrics:        metrics,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.WriteTimeout,
	}
	if st.runLogs != nil {
		routerCfg.RunsHandler = handlers.NewRunsHandler(st.runLogs)
	}
	if cfg.Logging.FileEnabled {
		accessLogger := logger.NewAccessLogger(
			cfg.Logging.FilePath,
			cfg.Logging.RotationSize,
			cfg.Logging.RetentionDays,
		)
		routerCfg.AccessLogger = &accessLogger
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Dur("free_tier_delay", cfg.Server.FreeTierDelay).
			Msg("✅ API Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if sched != nil {
		sched.Start(ctx)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("🛑 Shutdown signal received, stopping server...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("API Server failed")
		if sched != nil {
			sched.Stop()
		}
		return err
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("👋 API Server stopped")
	return nil
}
