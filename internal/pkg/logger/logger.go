package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level          string // debug, info, warn, error
	Format         string // json, pretty
	FileEnabled    bool
	FilePath       string // logs directory path
	RotationSize   int    // MB
	RetentionDays  int
	ServiceName    string
	ServiceVersion string
}

// Init initializes the global logger
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writers, err := buildWriters(cfg, os.Stderr)
	if err != nil {
		return err
	}

	log.Logger = New(zerolog.MultiLevelWriter(writers...), cfg.ServiceName, cfg.ServiceVersion)

	log.Info().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Bool("file_enabled", cfg.FileEnabled).
		Msg("Logger initialized")

	return nil
}

// New returns a logger writing to w with service/version fields.
func New(w io.Writer, serviceName, serviceVersion string) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("service", serviceName).
		Str("version", serviceVersion).
		Logger()
}

func buildWriters(cfg Config, console io.Writer) ([]io.Writer, error) {
	var writers []io.Writer

	if cfg.Format == "pretty" {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05",
		})
	} else {
		writers = append(writers, console)
	}

	if !cfg.FileEnabled {
		return writers, nil
	}

	if err := os.MkdirAll(cfg.FilePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Main app log
	writers = append(writers, rotatingFile(cfg, "app.log", 10))

	// Error log (ERROR and above only)
	writers = append(writers, &minLevelWriter{
		w:   rotatingFile(cfg, "error.log", 10),
		min: zerolog.ErrorLevel,
	})

	return writers, nil
}

func rotatingFile(cfg Config, name string, backups int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.FilePath, name),
		MaxSize:    cfg.RotationSize, // MB
		MaxAge:     cfg.RetentionDays, // days
		MaxBackups: backups,
		Compress:   true,
	}
}

// minLevelWriter drops events below min.
type minLevelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (m *minLevelWriter) Write(p []byte) (int, error) {
	return m.w.Write(p)
}

func (m *minLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < m.min {
		return len(p), nil
	}
	return m.w.Write(p)
}

// NewQueryLogger creates a logger for database queries
func NewQueryLogger(logPath string, rotationSize int, retentionDays int) zerolog.Logger {
	return newFileLogger(logPath, "query.log", "query", rotationSize, retentionDays, 5)
}

// NewAccessLogger creates a logger for HTTP access logs
func NewAccessLogger(logPath string, rotationSize int, retentionDays int) zerolog.Logger {
	return newFileLogger(logPath, "access.log", "access", rotationSize, retentionDays, 10)
}

func newFileLogger(logPath, file, kind string, rotationSize, retentionDays, backups int) zerolog.Logger {
	if logPath == "" {
		return log.Logger
	}

	if err := os.MkdirAll(logPath, 0755); err != nil {
		log.Warn().Err(err).Str("type", kind).Msg("Failed to create log directory, using default logger")
		return log.Logger
	}

	cfg := Config{FilePath: logPath, RotationSize: rotationSize, RetentionDays: retentionDays}
	return zerolog.New(rotatingFile(cfg, file, backups)).With().
		Timestamp().
		Str("type", kind).
		Logger()
}
