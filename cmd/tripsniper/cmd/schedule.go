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

	"github.com/wonny/tripsniper/internal/obs"
	"github.com/wonny/tripsniper/internal/service/pipeline"
	"github.com/wonny/tripsniper/internal/service/scheduler"
)

var scheduleMetricsAddr string

// scheduleCmd 주기 실행
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on RUN_PIPELINE_CRON",
	Long: `Run the pipeline on a cron schedule (default hourly, "0 * * * *").
A failed run is retried PIPELINE_MAX_RETRIES times, PIPELINE_RETRY_DELAY apart.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&runPlanFile, "plan", "", "YAML run plan (overrides PIPELINE_PLAN_FILE)")
	scheduleCmd.Flags().BoolVar(&runAsync, "async", false, "fetch flights and hotels concurrently")
	scheduleCmd.Flags().BoolVar(&runFlightsOnly, "flights-only", false, "skip hotels")
	scheduleCmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. :9099)")
}

// newScheduler builds a scheduler that runs svc over the resolved plan
func newScheduler(svc *pipeline.Service, metrics *obs.Metrics) (*scheduler.Scheduler, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return nil, err
	}
	p := toPipelinePlan(plan)

	return scheduler.New(scheduler.Config{
		Cron:       cfg.Scheduler.Cron,
		Timezone:   cfg.Scheduler.Timezone,
		MaxRetries: cfg.Scheduler.MaxRetries,
		RetryDelay: cfg.Scheduler.RetryDelay,
	}, func(ctx context.Context) error {
		_, err := svc.Run(ctx, p)
		return err
	}, scheduler.WithMetrics(metrics))
}

func runSchedule(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	metrics := obs.NewMetrics(prometheus.NewRegistry())
	sched, err := newScheduler(newPipeline(st, metrics), metrics)
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if scheduleMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              scheduleMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", scheduleMetricsAddr).Msg("Metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	sched.Start(ctx)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("🛑 Shutdown signal received, stopping scheduler...")
	sched.Stop()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}

	log.Info().Msg("👋 Scheduler stopped")
	return nil
}
