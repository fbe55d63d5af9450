// Package stats keeps rolling latency and error counts for remote document
// operations.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at     time.Time
	ms     int64
	failed bool
}

// Snapshot aggregates the samples of one operation still inside the window.
type Snapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Recorder tracks per-operation latencies within a rolling window.
// The zero value is not usable; call NewRecorder.
type Recorder struct {
	mu     sync.Mutex
	window time.Duration
	ops    map[string][]sample
}

func NewRecorder(window time.Duration) *Recorder {
	if window <= 0 {
		window = time.Hour
	}
	return &Recorder{window: window, ops: make(map[string][]sample)}
}

// Observe records one call of op. A nil Recorder ignores the call.
func (r *Recorder) Observe(op string, d time.Duration, err error) {
	if r == nil {
		return
	}
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op] = append(prune(r.ops[op], now.Add(-r.window)), sample{at: now, ms: ms, failed: err != nil})
}

// Snapshot returns the aggregate for every operation with live samples.
func (r *Recorder) Snapshot() map[string]Snapshot {
	out := make(map[string]Snapshot)
	if r == nil {
		return out
	}
	cutoff := time.Now().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()
	for op, samples := range r.ops {
		samples = prune(samples, cutoff)
		if len(samples) == 0 {
			delete(r.ops, op)
			continue
		}
		r.ops[op] = samples
		out[op] = aggregate(samples)
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	errs := 0
	for _, s := range samples {
		values = append(values, s.ms)
		sum += s.ms
		if s.failed {
			errs++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return Snapshot{
		Count:  len(values),
		Errors: errs,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

// prune drops samples older than cutoff in place.
func prune(samples []sample, cutoff time.Time) []sample {
	keep := samples[:0]
	for _, s := range samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	return keep
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}
	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(idx-float64(lower))
}
