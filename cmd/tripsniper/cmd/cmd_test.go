package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tripsniper/internal/obs"
	"github.com/wonny/tripsniper/internal/pkg/config"
	"github.com/wonny/tripsniper/internal/service/pipeline"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestOpenStore_Memory(t *testing.T) {
	withConfig(t, &config.Config{Database: config.DatabaseConfig{URL: "memory://"}})

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.close()

	assert.NotNil(t, st.offers)
	assert.NotNil(t, st.runLogs)
	assert.Nil(t, st.pool)
	assert.NoError(t, st.offers.Ping(context.Background()))
}

func TestOpenStore_SQLite(t *testing.T) {
	path := t.TempDir() + "/offers.db"
	withConfig(t, &config.Config{Database: config.DatabaseConfig{URL: "sqlite://" + path}})

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.close()

	assert.Nil(t, st.runLogs)
	assert.NoError(t, st.offers.Ping(context.Background()))
}

func TestOpenStore_MissingURL(t *testing.T) {
	withConfig(t, &config.Config{})

	_, err := openStore(context.Background())
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestToPipelinePlan(t *testing.T) {
	p := toPipelinePlan(&config.RunPlan{
		FlightDestinations: []string{"PAR", "ROM"},
		HotelDestinations:  []string{"-1456928", "-126693"},
		Dates:              []string{"2024-07-01"},
		Origin:             "WAW",
		Nights:             3,
	})

	assert.Equal(t, pipeline.Plan{
		FlightDestinations: []string{"PAR", "ROM"},
		HotelDestinations:  []string{"-1456928", "-126693"},
		Dates:              []string{"2024-07-01"},
		Origin:             "WAW",
		Nights:             3,
	}, p)
	assert.NoError(t, p.Validate())
}

func TestNewScheduler_InvalidCron(t *testing.T) {
	withConfig(t, &config.Config{
		Database: config.DatabaseConfig{URL: "memory://"},
		Pipeline: config.PipelineConfig{
			FlightDestinations: []string{"PAR"},
			Dates:              []string{"2024-07-01"},
			FlightsOnly:        true,
		},
		Scheduler: config.SchedulerConfig{Cron: "every hour"},
	})

	st, err := openStore(context.Background())
	require.NoError(t, err)
	metrics := obs.NewMetrics(prometheus.NewRegistry())

	_, err = newScheduler(newPipeline(st, metrics), metrics)
	assert.Error(t, err)
}

func TestWeightsCommand(t *testing.T) {
	withConfig(t, &config.Config{
		Scoring: config.ScoringConfig{WeightsJSON: `{"discount_pct": 0.5}`},
	})

	var out bytes.Buffer
	weightsCmd.SetOut(&out)
	require.NoError(t, weightsCmd.RunE(weightsCmd, nil))

	assert.Contains(t, out.String(), "source: inline")
	assert.Contains(t, out.String(), "0.5000")
}
