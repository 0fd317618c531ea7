package shopauth

import (
	"sync"
	"testing"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(true)

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRotationConflict)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("login success = %d, want 2", got)
	}
	snap := m.Snapshot()
	if snap[MetricLoginSuccess] != 2 || snap[MetricRotationConflict] != 1 {
		t.Fatalf("snapshot = %v", snap)
	}
	if snap[MetricLoginFailure] != 0 {
		t.Fatalf("untouched counter = %d, want 0", snap[MetricLoginFailure])
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(false)

	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled counter = %d, want 0", got)
	}
	if snap := m.Snapshot(); len(snap) != 0 {
		t.Fatalf("disabled snapshot = %v, want empty", snap)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("nil counter = %d, want 0", got)
	}
	if snap := m.Snapshot(); len(snap) != 0 {
		t.Fatalf("nil snapshot = %v, want empty", snap)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(true)

	const (
		workers = 8
		each    = 1000
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*each {
		t.Fatalf("counter = %d, want %d", got, workers*each)
	}
}
