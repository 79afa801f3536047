package postgres

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/wonny/tripsniper/internal/domain/offer"
)

// SlowQueryThreshold marks queries logged at warn level.
const SlowQueryThreshold = 100 * time.Millisecond

type queryTraceKey struct{}

// queryTrace carries the statement from TraceQueryStart to TraceQueryEnd.
type queryTrace struct {
	sql   string
	start time.Time
}

// QueryTracer logs every statement with its duration, the HTTP request id
// or pipeline run id that issued it, and the affected row count.
type QueryTracer struct {
	logger zerolog.Logger
	level  zerolog.Level // level of ordinary queries
	slow   time.Duration
}

// NewQueryTracer creates a tracer writing ordinary queries at level.
func NewQueryTracer(logger zerolog.Logger, level zerolog.Level) *QueryTracer {
	return &QueryTracer{logger: logger, level: level, slow: SlowQueryThreshold}
}

// TraceQueryStart implements pgx.QueryTracer
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{sql: data.SQL, start: time.Now()})
}

// TraceQueryEnd implements pgx.QueryTracer
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, _ := ctx.Value(queryTraceKey{}).(queryTrace)
	var elapsed time.Duration
	if !trace.start.IsZero() {
		elapsed = time.Since(trace.start)
	}

	level, msg := t.level, "Query executed"
	switch {
	case data.Err != nil:
		level, msg = zerolog.ErrorLevel, "Query failed"
	case elapsed > t.slow:
		level, msg = zerolog.WarnLevel, "⚠️  Slow query detected"
	}

	event := t.logger.WithLevel(level)
	if !event.Enabled() {
		return
	}
	if data.Err != nil {
		event = event.Err(data.Err)
	}
	if requestID := middleware.GetReqID(ctx); requestID != "" {
		event = event.Str("request_id", requestID)
	}
	if runID, ok := offer.RunIDFromContext(ctx); ok {
		event = event.Str("run_id", runID.String())
	}

	event.
		Str("component", "pgx").
		Str("sql", compactSQL(trace.sql)).
		Int64("rows", data.CommandTag.RowsAffected()).
		Dur("duration", elapsed).
		Msg(msg)
}

// compactSQL folds the multi-line statements of the repositories onto one line.
func compactSQL(sql string) string {
	out := make([]byte, 0, len(sql))
	space := false
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; c {
		case ' ', '\n', '\t', '\r':
			space = len(out) > 0
		default:
			if space {
				out = append(out, ' ')
				space = false
			}
			out = append(out, c)
		}
	}
	return string(out)
}
