// Package metrics keeps the engine's own runtime counters and gauges in an
// embedded time-series store under the workdir. Values survive restarts and
// can be ranged for the last days without touching the main database.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

var (
	storage tstorage.Storage

	mu       sync.RWMutex
	gauges   = make(map[string]int64)
	counters = make(map[string]int64)
)

// InitMetrics opens the embedded store below workdir. Safe to skip in tests,
// the setters degrade to in-memory values when no store is open.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithRetention(7*24*time.Hour),
	)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

// SetGauge records the current value of a gauge metric
func SetGauge(name string, value int64) {
	mu.Lock()
	gauges[name] = value
	s := storage
	mu.Unlock()
	insertPoint(s, name, value)
}

// IncrCounter adds delta to a monotonic counter and records the running total
func IncrCounter(name string, delta int64) {
	mu.Lock()
	counters[name] += delta
	total := counters[name]
	s := storage
	mu.Unlock()
	insertPoint(s, name, total)
}

func insertPoint(s tstorage.Storage, name string, value int64) {
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
}

// GaugeValue returns the last value written for a gauge, 0 when never set
func GaugeValue(name string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	return gauges[name]
}

// CounterValue returns the running total of a counter
func CounterValue(name string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	return counters[name]
}

// RangePoints returns the stored points of a metric between start and end (unix seconds)
func RangePoints(name string, start, end int64) ([]*tstorage.DataPoint, error) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(name, nil, start, end)
	if err != nil {
		if err == tstorage.ErrNoDataPoints {
			return nil, nil
		}
		return nil, err
	}
	return points, nil
}

// Close flushes and closes the embedded store
func Close() error {
	mu.Lock()
	s := storage
	storage = nil
	mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}
