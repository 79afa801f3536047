package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Server.FreeTierDelay)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, "WAW", cfg.Pipeline.Origin)
	assert.True(t, cfg.Pipeline.HotelsActive())
	assert.False(t, cfg.Pipeline.Async)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Cron)
	assert.Equal(t, 3, cfg.Scheduler.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.RetryDelay)
	assert.Equal(t, "https://test.api.amadeus.com", cfg.Amadeus.BaseURL)
	assert.Equal(t, "https://booking-com18.p.rapidapi.com", cfg.Booking.BaseURL)
	assert.Equal(t, "EUR", cfg.Booking.Currency)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ASYNC_FETCH", "1")
	t.Setenv("HOTELS_ENABLED", "0")
	t.Setenv("ORIGIN_IATA", "KRK")
	t.Setenv("DESTINATIONS", "PAR, LON,,BCN")
	t.Setenv("PIPELINE_FETCH_TIMEOUT", "45")
	t.Setenv("API_FREE_TIER_DELAY", "15m")
	t.Setenv("AMADEUS_HOST", "production")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Pipeline.Async)
	assert.False(t, cfg.Pipeline.HotelsActive())
	assert.Equal(t, "KRK", cfg.Pipeline.Origin)
	assert.Equal(t, []string{"PAR", "LON", "BCN"}, cfg.Pipeline.FlightDestinations)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Server.FreeTierDelay)
	assert.Equal(t, "https://api.amadeus.com", cfg.Amadeus.BaseURL)
}

func TestFromEnv_MalformedValue(t *testing.T) {
	t.Setenv("PIPELINE_MAX_RETRIES", "three")

	_, err := FromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "PIPELINE_MAX_RETRIES")
}

func TestValidate(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "BOOKING_RAPIDAPI_KEY")

	cfg.Database.URL = "postgres://localhost/trips"
	cfg.Amadeus.APIKey = "k"
	cfg.Amadeus.APISecret = "s"
	cfg.Pipeline.FlightsOnly = true
	assert.NoError(t, cfg.Validate(), "booking key not needed in flights-only mode")

	cfg.Pipeline.FlightsOnly = false
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
}

func TestDatabaseDriver(t *testing.T) {
	assert.Equal(t, "postgres", DatabaseConfig{URL: "postgresql://u:p@localhost/db"}.Driver())
	assert.Equal(t, "sqlite", DatabaseConfig{URL: "sqlite://trips.db"}.Driver())
	assert.Equal(t, "trips.db", DatabaseConfig{URL: "sqlite://trips.db"}.SQLitePath())
	assert.Equal(t, "memory", DatabaseConfig{URL: "memory://"}.Driver())
}

func TestPlan_FromEnv(t *testing.T) {
	t.Setenv("DESTINATIONS", "PAR,LON")
	t.Setenv("DATES", "2024-06-01")

	cfg, err := FromEnv()
	require.NoError(t, err)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	assert.Equal(t, []string{"PAR", "LON"}, plan.FlightDestinations)
	assert.Equal(t, []string{"PAR", "LON"}, plan.HotelDestinations, "hotel destinations default to flight destinations")
	assert.Equal(t, "WAW", plan.Origin)
	assert.False(t, plan.FlightsOnly)
}

func TestPlan_MissingLists(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	_, err = cfg.Plan()
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
flight_destinations: [PAR, LON]
hotel_destinations: ["-1456928"]
dates:
  - 2024-06-01
  - 2024-06-08
nights: 7
`), 0o644))

	t.Setenv("PIPELINE_PLAN_FILE", path)
	t.Setenv("ORIGIN_IATA", "GDN")

	cfg, err := FromEnv()
	require.NoError(t, err)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	assert.Equal(t, []string{"PAR", "LON"}, plan.FlightDestinations)
	assert.Equal(t, []string{"-1456928"}, plan.HotelDestinations)
	assert.Equal(t, []string{"2024-06-01", "2024-06-08"}, plan.Dates)
	assert.Equal(t, 7, plan.Nights)
	assert.Equal(t, "GDN", plan.Origin)
}

func TestLoadPlan_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destinations: [PAR]\n"), 0o644))

	_, err := LoadPlan(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}
