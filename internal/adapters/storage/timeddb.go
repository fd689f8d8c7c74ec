package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"gymdesk/internal/adapters/http/perf"
)

// SQLDB is the database handle the stores are built against.
// Both *sql.DB and *TimedDB satisfy it, so stores stay testable against a
// plain connection while production runs instrumented.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)
var _ SQLDB = (*TimedDB)(nil)

// DefaultSlowQueryMs is the slow-query warning threshold when
// GYMDESK_SLOW_QUERY_MS is unset.
const DefaultSlowQueryMs = 50

var (
	slowQueryOnce      sync.Once
	slowQueryThreshold float64
)

func loadSlowQueryThreshold() float64 {
	slowQueryOnce.Do(func() {
		slowQueryThreshold = DefaultSlowQueryMs
		if v := os.Getenv("GYMDESK_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				slowQueryThreshold = float64(n)
			}
		}
	})
	return slowQueryThreshold
}

// TimedDB wraps a *sql.DB so every store query is timed. Slow queries log
// at WARN; everything feeds the perf collector when one is attached.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold float64
}

// NewTimedDB wraps db with timing instrumentation. collector may be nil,
// which keeps the slow-query logging but skips dashboard recording.
func NewTimedDB(db *sql.DB, collector *perf.Collector) *TimedDB {
	return &TimedDB{
		db:        db,
		collector: collector,
		threshold: loadSlowQueryThreshold(),
	}
}

// RawDB returns the wrapped *sql.DB for migrations and pool configuration.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) record(op string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if durationMs >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext times sql.DB.ExecContext.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.record("ExecContext", start)
	return result, err
}

// QueryContext times sql.DB.QueryContext.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.record("QueryContext", start)
	return rows, err
}

// QueryRowContext times sql.DB.QueryRowContext.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.record("QueryRowContext", start)
	return row
}

// BeginTx times sql.DB.BeginTx. The transaction itself runs untimed; the
// stores' guarded transactions are short enough that BeginTx latency is
// the interesting number.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.record("BeginTx", start)
	return tx, err
}
