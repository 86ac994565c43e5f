package sql

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/rowmap"
)

// MapStats holds result mapping statistics.
type MapStats struct {
	// Results is the number of result sets mapped.
	Results atomic.Int64
	// Rows is the total number of rows mapped.
	Rows atomic.Int64
	// Specializations is the number of mapping plans built.
	Specializations atomic.Int64
	// TotalDuration is the total time spent mapping results.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowResults is the count of results exceeding the slow threshold.
	SlowResults atomic.Int64
	// Errors is the count of failed results.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *MapStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		Results:         s.Results.Load(),
		Rows:            s.Rows.Load(),
		Specializations: s.Specializations.Load(),
		TotalDuration:   time.Duration(s.TotalDuration.Load()),
		SlowResults:     s.SlowResults.Load(),
		Errors:          s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *MapStats) Reset() {
	s.Results.Store(0)
	s.Rows.Store(0)
	s.Specializations.Store(0)
	s.TotalDuration.Store(0)
	s.SlowResults.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of mapping statistics.
type StatsSnapshot struct {
	Results         int64
	Rows            int64
	Specializations int64
	TotalDuration   time.Duration
	SlowResults     int64
	Errors          int64
}

// AvgResultDuration returns the average time spent mapping one result.
func (s StatsSnapshot) AvgResultDuration() time.Duration {
	if s.Results == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Results)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"results=%d rows=%d plans=%d duration=%s avg=%s slow=%d errors=%d",
		s.Results, s.Rows, s.Specializations, s.TotalDuration, s.AvgResultDuration(),
		s.SlowResults, s.Errors,
	)
}

// SlowMapHook is a function called when mapping a result was slow.
type SlowMapHook func(ctx context.Context, typ reflect.Type, rows int, duration time.Duration)

// Scanner maps query results through a rowmap.Registry and collects
// statistics about it.
type Scanner struct {
	registry      *rowmap.Registry
	stats         *MapStats
	slowThreshold time.Duration
	slowHook      SlowMapHook
	mu            sync.RWMutex
}

// ScannerOption configures the Scanner.
type ScannerOption func(*Scanner)

// WithSlowThreshold sets the threshold for slow result detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.slowThreshold = d
	}
}

// WithSlowMapHook sets a callback function for slow results.
func WithSlowMapHook(hook SlowMapHook) ScannerOption {
	return func(s *Scanner) {
		s.slowHook = hook
	}
}

// WithSlowMapLog logs slow results to the given logger, or the default
// logger if nil.
func WithSlowMapLog(logger *slog.Logger) ScannerOption {
	return WithSlowMapHook(func(ctx context.Context, typ reflect.Type, rows int, duration time.Duration) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.WarnContext(ctx, "slow result mapping detected", "type", typ.String(), "rows", rows, "duration", duration)
	})
}

// NewScanner returns a Scanner mapping rows with the given registry.
//
// Example:
//
//	s := sql.NewScanner(reg,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowMapLog(logger),
//	)
//	users, err := sql.All[User](ctx, s, drv, "SELECT id, name FROM users")
//
//	// Later, check statistics:
//	fmt.Println(s.MapStats().Stats())
func NewScanner(reg *rowmap.Registry, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		registry:      reg,
		stats:         &MapStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry used for mapping.
func (s *Scanner) Registry() *rowmap.Registry {
	return s.registry
}

// MapStats returns the underlying MapStats for reading statistics.
func (s *Scanner) MapStats() *MapStats {
	return s.stats
}

// SlowThreshold returns the current slow result threshold.
func (s *Scanner) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow result threshold.
func (s *Scanner) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

func (s *Scanner) record(ctx context.Context, typ reflect.Type, rows int, specialized bool, start time.Time, err error) {
	duration := time.Since(start)
	s.stats.Results.Add(1)
	s.stats.Rows.Add(int64(rows))
	s.stats.TotalDuration.Add(int64(duration))
	if specialized {
		s.stats.Specializations.Add(1)
	}
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowResults.Add(1)
		if hook != nil {
			hook(ctx, typ, rows, duration)
		}
	}
}
