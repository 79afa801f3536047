package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfiguration is returned for missing or unusable settings.
var ErrConfiguration = errors.New("configuration error")

// Config represents the application configuration
// SSOT: 모든 설정은 .env 파일 / 환경 변수에서 로드됨
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Pipeline  PipelineConfig
	Scoring   ScoringConfig
	Amadeus   AmadeusConfig
	Booking   BookingConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	FreeTierDelay   time.Duration // API_FREE_TIER_DELAY
}

type DatabaseConfig struct {
	URL             string // SSOT: DATABASE_URL
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Driver returns "sqlite", "memory" or "postgres" from the URL scheme.
func (d DatabaseConfig) Driver() string {
	switch {
	case strings.HasPrefix(d.URL, "sqlite://"), strings.HasPrefix(d.URL, "file:"):
		return "sqlite"
	case strings.HasPrefix(d.URL, "memory://"):
		return "memory"
	default:
		return "postgres"
	}
}

// SQLitePath strips the sqlite:// scheme.
func (d DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(d.URL, "sqlite://")
}

type LoggingConfig struct {
	Level         string
	Format        string
	FileEnabled   bool
	FilePath      string
	RotationSize  int // MB
	RetentionDays int
}

type PipelineConfig struct {
	Async              bool // ASYNC_FETCH=1
	FetchTimeout       time.Duration
	HotelsEnabled      bool
	FlightsOnly        bool
	Origin             string
	FlightDestinations []string
	HotelDestinations  []string
	Dates              []string
	Nights             int
	PlanFile           string
}

// HotelsActive reports whether hotel offers are fetched at all.
func (p PipelineConfig) HotelsActive() bool {
	return p.HotelsEnabled && !p.FlightsOnly
}

type ScoringConfig struct {
	WeightsJSON string // STEAL_SCORE_WEIGHTS
	WeightsFile string // STEAL_SCORE_WEIGHTS_FILE
}

type AmadeusConfig struct {
	APIKey            string
	APISecret         string
	BaseURL           string
	Currency          string
	MaxResults        int
	Adults            int
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
}

type BookingConfig struct {
	APIKey            string
	Host              string
	BaseURL           string // defaults to https://<Host>
	Currency          string
	Adults            int
	Limit             int
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
}

type CacheConfig struct {
	TTL time.Duration // 0 disables
}

type SchedulerConfig struct {
	Cron       string
	Timezone   string
	MaxRetries int
	RetryDelay time.Duration
}

// Load loads configuration from .env file
// SSOT: .env 파일이 없으면 환경 변수만 사용
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	env := envReader{errs: &errs}

	bookingHost := env.str("BOOKING_RAPIDAPI_HOST", "booking-com18.p.rapidapi.com")

	config := &Config{
		Server: ServerConfig{
			Port:            env.str("PORT", "8099"),
			ReadTimeout:     env.duration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: env.duration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
			FreeTierDelay:   env.duration("API_FREE_TIER_DELAY", time.Hour),
		},
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxConns:        int32(env.integer("DB_MAX_CONNS", 10)),
			MinConns:        int32(env.integer("DB_MIN_CONNS", 2)),
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:         env.str("LOG_LEVEL", "info"),
			Format:        env.str("LOG_FORMAT", "json"),
			FileEnabled:   env.boolean("LOG_FILE_ENABLED", false),
			FilePath:      env.str("LOG_FILE_PATH", "logs"),
			RotationSize:  env.integer("LOG_ROTATION_SIZE_MB", 100),
			RetentionDays: env.integer("LOG_RETENTION_DAYS", 14),
		},
		Pipeline: PipelineConfig{
			Async:              env.str("ASYNC_FETCH", "") == "1",
			FetchTimeout:       env.duration("PIPELINE_FETCH_TIMEOUT", 30*time.Second),
			HotelsEnabled:      env.str("HOTELS_ENABLED", "1") != "0",
			FlightsOnly:        env.str("FLIGHTS_ONLY", "") == "1",
			Origin:             env.str("ORIGIN_IATA", "WAW"),
			FlightDestinations: env.list("DESTINATIONS", nil),
			HotelDestinations:  env.list("HOTEL_DESTINATIONS", nil),
			Dates:              env.list("DATES", nil),
			Nights:             env.integer("HOTEL_NIGHTS", 1),
			PlanFile:           env.str("PIPELINE_PLAN_FILE", ""),
		},
		Scoring: ScoringConfig{
			WeightsJSON: env.str("STEAL_SCORE_WEIGHTS", ""),
			WeightsFile: env.str("STEAL_SCORE_WEIGHTS_FILE", ""),
		},
		Amadeus: AmadeusConfig{
			APIKey:            env.str("AMADEUS_API_KEY", ""),
			APISecret:         env.str("AMADEUS_API_SECRET", ""),
			BaseURL:           amadeusBaseURL(env.str("AMADEUS_HOST", "test")),
			Currency:          env.str("AMADEUS_CURRENCY", "PLN"),
			MaxResults:        env.integer("AMADEUS_MAX_RESULTS", 20),
			Adults:            1,
			Timeout:           env.duration("AMADEUS_TIMEOUT", 20*time.Second),
			MaxAttempts:       3,
			RequestsPerSecond: env.float("AMADEUS_RPS", 5),
		},
		Booking: BookingConfig{
			APIKey:            env.str("BOOKING_RAPIDAPI_KEY", ""),
			Host:              bookingHost,
			BaseURL:           env.str("BOOKING_RAPIDAPI_BASE_URL", "https://"+bookingHost),
			Currency:          env.str("BOOKING_RAPIDAPI_CURRENCY", "EUR"),
			Adults:            2,
			Limit:             30,
			Timeout:           env.duration("BOOKING_RAPIDAPI_TIMEOUT", 15*time.Second),
			MaxAttempts:       3,
			RequestsPerSecond: env.float("BOOKING_RAPIDAPI_RPS", 5),
		},
		Cache: CacheConfig{
			TTL: env.duration("CACHE_TTL", 0),
		},
		Scheduler: SchedulerConfig{
			Cron:       env.str("RUN_PIPELINE_CRON", "0 * * * *"),
			Timezone:   env.str("SCHEDULER_TZ", "UTC"),
			MaxRetries: env.integer("PIPELINE_MAX_RETRIES", 3),
			RetryDelay: env.duration("PIPELINE_RETRY_DELAY", 5*time.Minute),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return config, nil
}

// ValidateDatabase checks the settings every command needs.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL not provided", ErrConfiguration)
	}
	return nil
}

// Validate checks the settings a pipeline run needs: the store and the
// credentials of every enabled source.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Amadeus.APIKey == "" {
		missing = append(missing, "AMADEUS_API_KEY")
	}
	if c.Amadeus.APISecret == "" {
		missing = append(missing, "AMADEUS_API_SECRET")
	}
	if c.Pipeline.HotelsActive() && c.Booking.APIKey == "" {
		missing = append(missing, "BOOKING_RAPIDAPI_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

func amadeusBaseURL(host string) string {
	switch host {
	case "test", "":
		return "https://test.api.amadeus.com"
	case "production":
		return "https://api.amadeus.com"
	default:
		return host
	}
}

// envReader reads typed variables; parse failures are collected in errs.
type envReader struct {
	errs *[]error
}

// str gets environment variable with fallback
func (r envReader) str(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (r envReader) integer(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (r envReader) float(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (r envReader) boolean(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

// duration accepts Go durations ("90s") or plain seconds ("90").
func (r envReader) duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*r.errs = append(*r.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// list splits a comma separated variable, dropping blanks.
func (r envReader) list(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
