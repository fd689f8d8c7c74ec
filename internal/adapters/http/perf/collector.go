// Package perf collects request and query timings for the /admin/perf
// endpoint. Recording is cheap and lossy; aggregation is deferred to read
// time so the hot path never sorts or allocates maps.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes HTTP request timings from store query timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timing record.
type Entry struct {
	Kind       EntryKind
	Path       string // "METHOD /path" for requests, the SQL op for queries
	StatusCode int    // 0 for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector holds timings in a fixed ring. Once the ring wraps, the oldest
// entries are lost; that bounds memory no matter how busy the server gets.
type Collector struct {
	mu    sync.Mutex
	ring  []Entry
	next  int
	total int64 // all entries ever recorded, survives ring wrap
}

// NewCollector allocates a collector holding at most capacity entries.
// PRE: capacity > 0, or it falls back to DefaultRingSize
// POST: returns a collector with the ring pre-allocated
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, capacity)}
}

// Record stores one entry, overwriting the oldest when the ring is full.
// The critical section is one slot write and an index bump.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next = (c.next + 1) % len(c.ring)
	c.mu.Unlock()
	atomic.AddInt64(&c.total, 1)
}

// TotalRecorded returns how many entries were ever recorded, including
// those the ring has since overwritten.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.total)
}

// Snapshot is the aggregate view served to admins.
type Snapshot struct {
	TotalRequests  int64
	RequestP50Ms   float64
	RequestP95Ms   float64
	RequestP99Ms   float64
	SlowestPaths   []PathStat
	SlowestQueries []PathStat
}

// PathStat aggregates the timings of one request path or query op.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	TotalMs float64
}

// Snapshot aggregates ring entries recorded at or after since.
// It sorts, so callers should treat it as a dashboard-load operation,
// not something to poll.
// PRE: none
// POST: returns percentiles over requests plus the topN slowest paths and queries
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	entries := make([]Entry, len(c.ring))
	copy(entries, c.ring)
	c.mu.Unlock()

	var requestDurations []float64
	byPath := make(map[string]*PathStat)
	byQuery := make(map[string]*PathStat)

	for _, e := range entries {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		if e.Kind == KindRequest {
			requestDurations = append(requestDurations, e.DurationMs)
			accumulate(byPath, e)
		} else {
			accumulate(byQuery, e)
		}
	}

	snap := Snapshot{
		TotalRequests:  c.TotalRecorded(),
		SlowestPaths:   rankByAvg(byPath, topN),
		SlowestQueries: rankByAvg(byQuery, topN),
	}
	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
		snap.RequestP99Ms = percentile(requestDurations, 99)
	}
	return snap
}

func accumulate(stats map[string]*PathStat, e Entry) {
	s, ok := stats[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		stats[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
}

// percentile interpolates the p-th percentile from an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// rankByAvg finalises averages and returns the n slowest stats.
func rankByAvg(stats map[string]*PathStat, n int) []PathStat {
	ranked := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		ranked = append(ranked, *s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].AvgMs > ranked[j].AvgMs
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
