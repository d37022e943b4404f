package recommend

import (
	"sort"
	"sync"
	"time"
)

// MetricsSink receives every sample the monitor accepts. Implementations
// must tolerate concurrent calls; a nil sink is a no-op.
type MetricsSink interface {
	Record(Sample)
}

// Snapshot is a read-only aggregate view over the monitor's rolling window.
type Snapshot struct {
	Samples      int            `json:"samples"`
	HitRate      float64        `json:"hit_rate"`
	ErrorRate    float64        `json:"error_rate"`
	P50LatencyMS int64          `json:"p50_latency_ms"`
	P95LatencyMS int64          `json:"p95_latency_ms"`
	PerSecond    float64        `json:"throughput_per_second"`
	EngineCounts map[Engine]int `json:"engine_counts"`
	WindowStart  time.Time      `json:"window_start"`
	WindowEnd    time.Time      `json:"window_end"`
}

// Monitor keeps the last N samples in a ring buffer. Record is cheap and
// never returns an error; the optional sink is fed on a separate goroutine
// so a slow metrics backend cannot stall the request path.
type Monitor struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	filled  bool
	sink    MetricsSink
}

func NewMonitor(window int, sink MetricsSink) *Monitor {
	if window <= 0 {
		window = 1000
	}
	return &Monitor{
		samples: make([]Sample, window),
		sink:    sink,
	}
}

func (m *Monitor) Record(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.samples[m.next] = s
	m.next++
	if m.next == len(m.samples) {
		m.next = 0
		m.filled = true
	}
	m.mu.Unlock()

	if m.sink != nil {
		go func() {
			defer func() { recover() }()
			m.sink.Record(s)
		}()
	}
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	var window []Sample
	if m.filled {
		window = append(window, m.samples...)
	} else {
		window = append(window, m.samples[:m.next]...)
	}
	m.mu.Unlock()

	snap := Snapshot{EngineCounts: make(map[Engine]int)}
	if len(window) == 0 {
		return snap
	}

	latencies := make([]time.Duration, 0, len(window))
	var hits, errs int
	first, last := window[0].Timestamp, window[0].Timestamp

	for _, s := range window {
		latencies = append(latencies, s.Latency)
		if s.CacheHit {
			hits++
		}
		if s.Err {
			errs++
		}
		if s.Engine != "" {
			snap.EngineCounts[s.Engine]++
		}
		if s.Timestamp.Before(first) {
			first = s.Timestamp
		}
		if s.Timestamp.After(last) {
			last = s.Timestamp
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	n := len(window)
	snap.Samples = n
	snap.HitRate = float64(hits) / float64(n)
	snap.ErrorRate = float64(errs) / float64(n)
	snap.P50LatencyMS = percentile(latencies, 0.50).Milliseconds()
	snap.P95LatencyMS = percentile(latencies, 0.95).Milliseconds()
	snap.WindowStart = first
	snap.WindowEnd = last
	if span := last.Sub(first).Seconds(); span > 0 {
		snap.PerSecond = float64(n) / span
	}
	return snap
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
