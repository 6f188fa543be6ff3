package metrics

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
)

func approx(a, b, delta float64) bool {
	return math.Abs(a-b) <= delta
}

func TestRecordTracksMinMaxAvg(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(6 * time.Millisecond)

	s := m.Stats()
	if s.Name != "test" {
		t.Errorf("Name = %q, want test", s.Name)
	}
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	for _, tc := range []struct {
		name      string
		got, want float64
	}{
		{"TotalMs", s.TotalMs, 12},
		{"AvgMs", s.AvgMs, 4},
		{"MaxMs", s.MaxMs, 6},
		{"MinMs", s.MinMs, 2},
	} {
		if !approx(tc.got, tc.want, 0.001) {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}

	m.Reset()
	if m.Count() != 0 {
		t.Errorf("Count after Reset = %d", m.Count())
	}
	if got := m.Stats().MaxMs; got != 0 {
		t.Errorf("MaxMs after Reset = %v", got)
	}
}

func TestRecordConcurrent(t *testing.T) {
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Record(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	s := m.Stats()
	if s.Count != 50 {
		t.Errorf("Count = %d, want 50", s.Count)
	}
	if !approx(s.MaxMs, 0.050, 0.0001) {
		t.Errorf("MaxMs = %v, want 0.050", s.MaxMs)
	}
	if !approx(s.MinMs, 0.001, 0.0001) {
		t.Errorf("MinMs = %v, want 0.001", s.MinMs)
	}
}

func TestDisabledSkipsSamples(t *testing.T) {
	SetEnabled(false)
	t.Cleanup(func() { SetEnabled(true) })

	m := newTimingMetric("off")
	m.Record(time.Millisecond)
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0 while disabled", m.Count())
	}
}

func TestTimerAndTable(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	t.Cleanup(ResetAll)

	Timer(PageRender)()
	Timer(PageRender)()
	Timer(nil)()

	stats := AllTimingStats()
	if len(stats) != 1 {
		t.Fatalf("got %d stats, want 1: %+v", len(stats), stats)
	}
	if stats[0].Name != "page_render" || stats[0].Count != 2 {
		t.Errorf("stats[0] = %s/%d, want page_render/2", stats[0].Name, stats[0].Count)
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("table has %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "METRIC") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "page_render") {
		t.Errorf("row = %q", lines[1])
	}
}
