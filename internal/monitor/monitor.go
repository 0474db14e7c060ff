// Package monitor provides adaptive sampling observability for the
// hybrid cache layer. Every recorded operation increments cheap running
// counters; detailed events are kept in a bounded ring buffer and are
// probabilistically sampled as traffic grows, so recording overhead
// stays flat under load.
package monitor

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Mode describes how much detail is being recorded.
type Mode string

const (
	// ModeDetailed logs every operation to the ring buffer (<100 ops/sec).
	ModeDetailed Mode = "detailed"
	// ModeSampled logs 1-10% of operations (100-1000 ops/sec), the rate
	// decreasing as throughput increases within the band.
	ModeSampled Mode = "sampled"
	// ModeAggregated logs no per-event detail (>1000 ops/sec), only
	// running counters.
	ModeAggregated Mode = "aggregated"
)

// Kind identifies the operation being recorded.
type Kind string

const (
	KindCacheRead   Kind = "cache_read"
	KindCacheWrite  Kind = "cache_write"
	KindDBRead      Kind = "db_read"
	KindDBWrite     Kind = "db_write"
	KindHybridQuery Kind = "hybrid_query"
)

const (
	detailedMaxOps = 100.0  // ops/sec below which every event is logged
	sampledMaxOps  = 1000.0 // ops/sec above which no events are logged
	maxSampleRate  = 0.10
	minSampleRate  = 0.01

	// windowSeconds is the rolling window used to estimate throughput.
	windowSeconds = 10

	// enabledCheckInterval bounds how often the enabled flag provider is
	// consulted, keeping configuration lookups off the hot path.
	enabledCheckInterval = 5 * time.Second

	// DefaultCapacity is the default ring buffer size.
	DefaultCapacity = 1000
)

// Event is one sampled operation. Events are in-memory only and are
// silently overwritten once the ring buffer wraps.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	Kind      Kind          `json:"kind"`
	Room      string        `json:"room,omitempty"`
	Hit       bool          `json:"hit"`
	Count     int           `json:"count"`
	Duration  time.Duration `json:"duration"`
}

// Status is a point-in-time snapshot of the monitor's mode.
type Status struct {
	Mode       Mode    `json:"mode"`
	SampleRate float64 `json:"sample_rate"`
	OpsPerSec  float64 `json:"ops_per_sec"`
	Enabled    bool    `json:"enabled"`
}

type counter struct {
	count int64
	hits  int64
	total time.Duration
}

type bucket struct {
	sec int64
	n   int64
}

// Monitor records cache and database operation telemetry. All methods
// are safe for concurrent use; critical sections are sub-microsecond.
type Monitor struct {
	enabledFn func() bool

	enabled   atomic.Bool
	lastCheck atomic.Int64 // unix nanos of last enabledFn consult

	mu       sync.Mutex
	ring     []Event
	next     int
	size     int
	buckets  [windowSeconds]bucket // per-second op counts, rolling
	counters map[Kind]*counter
}

// New creates a Monitor with the given ring buffer capacity. enabledFn
// gates all recording and is re-consulted at most every five seconds;
// nil means always enabled.
func New(capacity int, enabledFn func() bool) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Monitor{
		enabledFn: enabledFn,
		ring:      make([]Event, capacity),
		counters: map[Kind]*counter{
			KindCacheRead:   {},
			KindCacheWrite:  {},
			KindDBRead:      {},
			KindDBWrite:     {},
			KindHybridQuery: {},
		},
	}
	m.enabled.Store(enabledFn == nil || enabledFn())
	m.lastCheck.Store(time.Now().UnixNano())
	return m
}

// LogCacheRead records a fast-store read. hit means the cache returned
// at least one entry.
func (m *Monitor) LogCacheRead(room string, hit bool, count int, d time.Duration) {
	m.record(KindCacheRead, room, hit, count, d)
}

// LogCacheWrite records a fast-store write of count entries.
func (m *Monitor) LogCacheWrite(room string, count int, d time.Duration) {
	m.record(KindCacheWrite, room, true, count, d)
}

// LogDBRead records a durable-store read.
func (m *Monitor) LogDBRead(room string, count int, d time.Duration) {
	m.record(KindDBRead, room, true, count, d)
}

// LogDBWrite records a durable-store write.
func (m *Monitor) LogDBWrite(room string, count int, d time.Duration) {
	m.record(KindDBWrite, room, true, count, d)
}

// LogHybridQuery records a read that consulted both stores. hit means
// the cache alone satisfied the request (no durable backfill needed).
func (m *Monitor) LogHybridQuery(room string, cacheCount, dbCount int, d time.Duration) {
	m.record(KindHybridQuery, room, dbCount == 0, cacheCount+dbCount, d)
}

func (m *Monitor) record(kind Kind, room string, hit bool, count int, d time.Duration) {
	if !m.isEnabled() {
		return
	}
	now := time.Now()

	m.mu.Lock()
	c := m.counters[kind]
	c.count++
	c.total += d
	if hit {
		c.hits++
	}

	ops := m.observeLocked(now)
	rate := sampleRate(ops)
	if rate >= 1.0 || (rate > 0 && rand.Float64() < rate) {
		m.ring[m.next] = Event{
			Timestamp: now,
			Kind:      kind,
			Room:      room,
			Hit:       hit,
			Count:     count,
			Duration:  d,
		}
		m.next = (m.next + 1) % len(m.ring)
		if m.size < len(m.ring) {
			m.size++
		}
	}
	m.mu.Unlock()
}

// observeLocked counts this operation against the rolling window and
// returns the current throughput estimate in ops/sec.
func (m *Monitor) observeLocked(now time.Time) float64 {
	sec := now.Unix()
	idx := sec % windowSeconds
	if m.buckets[idx].sec != sec {
		m.buckets[idx] = bucket{sec: sec}
	}
	m.buckets[idx].n++

	var total int64
	for _, b := range m.buckets {
		if sec-b.sec < windowSeconds {
			total += b.n
		}
	}
	return float64(total) / windowSeconds
}

// sampleRate maps throughput to the fraction of events kept.
func sampleRate(opsPerSec float64) float64 {
	switch {
	case opsPerSec < detailedMaxOps:
		return 1.0
	case opsPerSec <= sampledMaxOps:
		// Linear falloff from 10% at the bottom of the band to 1% at
		// the top.
		frac := (opsPerSec - detailedMaxOps) / (sampledMaxOps - detailedMaxOps)
		return maxSampleRate - frac*(maxSampleRate-minSampleRate)
	default:
		return 0
	}
}

// isEnabled returns the cached enabled flag, refreshing it from the
// provider at most once per enabledCheckInterval.
func (m *Monitor) isEnabled() bool {
	if m.enabledFn == nil {
		return true
	}
	now := time.Now().UnixNano()
	last := m.lastCheck.Load()
	if now-last >= int64(enabledCheckInterval) && m.lastCheck.CompareAndSwap(last, now) {
		m.enabled.Store(m.enabledFn())
	}
	return m.enabled.Load()
}

// GetRecentEvents returns up to limit sampled events, newest first,
// optionally filtered by room identifier (empty string matches all).
func (m *Monitor) GetRecentEvents(limit int, room string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = m.size
	}

	events := make([]Event, 0, limit)
	for i := 1; i <= m.size && len(events) < limit; i++ {
		e := m.ring[(m.next-i+len(m.ring))%len(m.ring)]
		if room != "" && e.Room != room {
			continue
		}
		events = append(events, e)
	}
	return events
}

// GetMetricsSummary returns the running counters as a flat map:
// "<kind>.count", "<kind>.hits", "<kind>.total_ms" and "<kind>.avg_ms"
// per operation kind.
func (m *Monitor) GetMetricsSummary() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.counters)*4)
	for kind, c := range m.counters {
		totalMs := float64(c.total) / float64(time.Millisecond)
		out[string(kind)+".count"] = float64(c.count)
		out[string(kind)+".hits"] = float64(c.hits)
		out[string(kind)+".total_ms"] = totalMs
		if c.count > 0 {
			out[string(kind)+".avg_ms"] = totalMs / float64(c.count)
		} else {
			out[string(kind)+".avg_ms"] = 0
		}
	}
	return out
}

// GetCurrentMode reports the monitor's mode for the current throughput.
func (m *Monitor) GetCurrentMode() Status {
	now := time.Now()

	m.mu.Lock()
	sec := now.Unix()
	var total int64
	for _, b := range m.buckets {
		if sec-b.sec < windowSeconds {
			total += b.n
		}
	}
	m.mu.Unlock()

	ops := float64(total) / windowSeconds
	rate := sampleRate(ops)

	mode := ModeDetailed
	switch {
	case ops > sampledMaxOps:
		mode = ModeAggregated
	case ops >= detailedMaxOps:
		mode = ModeSampled
	}

	return Status{
		Mode:       mode,
		SampleRate: rate,
		OpsPerSec:  ops,
		Enabled:    m.isEnabled(),
	}
}
