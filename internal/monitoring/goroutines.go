package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// GoroutineMonitor compares the goroutine count against a baseline taken at
// construction. Parallel search workers must all exit before a plan is
// returned, so growth that survives between battles points at a leak.
type GoroutineMonitor struct {
	mu         sync.Mutex
	logger     zerolog.Logger
	count      func() int
	baseline   int
	current    int
	peak       int
	threshold  int
	checks     int
	alerts     int
	components map[string]int
}

// GoroutineMetrics contains goroutine statistics
type GoroutineMetrics struct {
	Current         int            `json:"current"`
	Baseline        int            `json:"baseline"`
	Peak            int            `json:"peak"`
	Growth          int            `json:"growth"`
	Checks          int            `json:"checks"`
	Alerts          int            `json:"alerts"`
	ComponentCounts map[string]int `json:"component_counts"`
}

// NewGoroutineMonitor creates a monitor that warns once growth over the
// baseline exceeds threshold.
func NewGoroutineMonitor(logger zerolog.Logger, threshold int) *GoroutineMonitor {
	return newMonitor(logger, threshold, runtime.NumGoroutine)
}

func newMonitor(logger zerolog.Logger, threshold int, count func() int) *GoroutineMonitor {
	baseline := count()
	return &GoroutineMonitor{
		logger:     logger.With().Str("component", "GoroutineMonitor").Logger(),
		count:      count,
		baseline:   baseline,
		current:    baseline,
		peak:       baseline,
		threshold:  threshold,
		components: make(map[string]int),
	}
}

// Check samples the goroutine count. label names the checkpoint in logs.
func (gm *GoroutineMonitor) Check(label string) GoroutineMetrics {
	current := gm.count()

	gm.mu.Lock()
	gm.current = current
	if current > gm.peak {
		gm.peak = current
	}
	gm.checks++
	growth := current - gm.baseline
	leak := gm.threshold > 0 && growth > gm.threshold
	if leak {
		gm.alerts++
	}
	m := gm.metricsLocked()
	gm.mu.Unlock()

	gm.logger.Debug().
		Str("checkpoint", label).
		Int("current", current).
		Int("baseline", m.Baseline).
		Int("peak", m.Peak).
		Msg("Goroutine metrics")

	if leak {
		gm.logger.Warn().
			Str("checkpoint", label).
			Int("growth", growth).
			Int("threshold", gm.threshold).
			Interface("components", m.ComponentCounts).
			Msg("Goroutine count above baseline - possible leaked workers")
	}
	return m
}

// Start checks every interval until ctx is done. The returned function
// waits for the loop to exit.
func (gm *GoroutineMonitor) Start(ctx context.Context, interval time.Duration) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gm.Check("periodic")
			case <-ctx.Done():
				return
			}
		}
	}()
	return wg.Wait
}

// RegisterComponent records how many goroutines a component is expected to
// run at its peak.
func (gm *GoroutineMonitor) RegisterComponent(name string, count int) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.components[name] = count
}

// GetMetrics returns the metrics of the last check.
func (gm *GoroutineMonitor) GetMetrics() GoroutineMetrics {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.metricsLocked()
}

func (gm *GoroutineMonitor) metricsLocked() GoroutineMetrics {
	components := make(map[string]int, len(gm.components))
	for k, v := range gm.components {
		components[k] = v
	}
	return GoroutineMetrics{
		Current:         gm.current,
		Baseline:        gm.baseline,
		Peak:            gm.peak,
		Growth:          gm.current - gm.baseline,
		Checks:          gm.checks,
		Alerts:          gm.alerts,
		ComponentCounts: components,
	}
}
