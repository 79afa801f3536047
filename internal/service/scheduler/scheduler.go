// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrInvalidSchedule is returned by New for a bad cron spec or timezone.
var ErrInvalidSchedule = errors.New("invalid schedule")

// RunFunc executes one pipeline run. A non-nil error triggers a retry.
type RunFunc func(ctx context.Context) error

// Config 스케줄러 설정
type Config struct {
	Cron       string // 5 fields: minute hour dom month dow
	Timezone   string // IANA name, empty means UTC
	MaxRetries int    // retries after the first failed attempt
	RetryDelay time.Duration
}

// Metrics receives scheduler observations.
type Metrics interface {
	IncRunRetries()
}

type noopMetrics struct{}

func (noopMetrics) IncRunRetries() {}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Scheduler runs RunFunc on the cron schedule. A tick that fires while a
// run (including its retries) is still in progress is skipped.
type Scheduler struct {
	cfg      Config
	run      RunFunc
	cron     *cron.Cron
	schedule cron.Schedule
	metrics  Metrics

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// parser accepts standard 5-field specs and descriptors such as @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the schedule and builds a stopped Scheduler.
func New(cfg Config, run RunFunc, opts ...Option) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidSchedule, cfg.Timezone, err)
		}
		loc = l
	}

	schedule, err := parser.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("%w: cron %q: %w", ErrInvalidSchedule, cfg.Cron, err)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	s := &Scheduler{
		cfg:      cfg,
		run:      run,
		schedule: schedule,
		metrics:  noopMetrics{},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := cronLogger{}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	return s, nil
}

// Start begins firing on schedule. Runs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	log.Info().
		Str("cron", s.cfg.Cron).
		Str("timezone", s.cfg.Timezone).
		Time("next", s.Next()).
		Msg("⏰ Scheduler started")
}

// Stop cancels an in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// Next returns the next activation time, or zero when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled pipeline run failed")
	}
}

// RunOnce executes the run, retrying failures up to MaxRetries times with
// RetryDelay between attempts.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	attempt := 0
	op := func() error {
		attempt++
		err := s.run(ctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.metrics.IncRunRetries()
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", s.cfg.MaxRetries).
			Dur("retry_in", wait).
			Msg("Pipeline run failed, retrying")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.RetryDelay), uint64(s.cfg.MaxRetries)),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("pipeline run failed after %d attempt(s): %w", attempt, err)
	}
	return nil
}

// cronLogger routes robfig/cron logs into zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
