package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wonny/tripsniper/internal/obs"
)

var (
	runPlanFile    string
	runAsync       bool
	runFlightsOnly bool
	runJSON        bool
)

// runCmd 파이프라인 1회 실행
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Fetch flights and hotels for every destination/date of the plan,
combine and score them, and upsert the results in one transaction.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runPlanFile, "plan", "", "YAML run plan (overrides PIPELINE_PLAN_FILE)")
	runCmd.Flags().BoolVar(&runAsync, "async", false, "fetch flights and hotels concurrently (ASYNC_FETCH=1)")
	runCmd.Flags().BoolVar(&runFlightsOnly, "flights-only", false, "skip hotels (FLIGHTS_ONLY=1)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run report as JSON")
}

// applyRunFlags copies command line overrides into the configuration
func applyRunFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("plan") {
		cfg.Pipeline.PlanFile = runPlanFile
	}
	if runAsync {
		cfg.Pipeline.Async = true
	}
	if runFlightsOnly {
		cfg.Pipeline.FlightsOnly = true
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	svc := newPipeline(st, obs.NewMetrics(prometheus.NewRegistry()))

	log.Info().
		Strs("destinations", plan.FlightDestinations).
		Strs("dates", plan.Dates).
		Bool("flights_only", plan.FlightsOnly).
		Msg("🚀 Starting pipeline run...")

	report, err := svc.Run(ctx, toPipelinePlan(plan))
	if report != nil {
		if runJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: %s (fetched=%d inserted=%d updated=%d skipped=%d invalid=%d store_failed=%d fetch_failed=%d)\n",
				report.RunID, report.Status, report.Fetched, report.Inserted, report.Updated,
				report.SkippedNotVisible, report.Invalid, report.StoreFailed, report.FetchFailed)
		}
	}
	return err
}
