// Package limbobench is a synthetic append/ack/confirm load generator
// for the limbo, grounded on the *shape* of benchmark.TestYCSB
// (utils.Stat's mutex-guarded result slice, percentile Log() line) but
// without pulling in github.com/pingcap/go-ycsb — that driver generates
// full sharded-KV workloads, a concern this package has no use for; see
// DESIGN.md.
package limbobench

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// result is utils.Info's equivalent: one completed Append-to-WaitComplete
// round trip.
type result struct {
	commit  bool
	latency time.Duration
}

// Stat accumulates results from concurrent worker goroutines, mirroring
// utils.Stat's Append/Log/Clear shape.
type Stat struct {
	mu      sync.Mutex
	results []result
}

// NewStat returns an empty Stat.
func NewStat() *Stat {
	return &Stat{}
}

// Append records one completed round trip.
func (s *Stat) Append(commit bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result{commit: commit, latency: latency})
}

// Clear discards all accumulated results, starting a fresh window.
func (s *Stat) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
}

// Log renders a one-line summary: throughput counts plus p50/p90/p99
// latency, in the spirit of utils.Stat.Log's semicolon-joined message.
func (s *Stat) Log(window time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.results)
	commits := 0
	latencies := make([]int64, 0, total)
	for _, r := range s.results {
		if r.commit {
			commits++
		}
		latencies = append(latencies, int64(r.latency))
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	msg := fmt.Sprintf("total:%d;commit:%d;rollback:%d;throughput:%.1f/s;",
		total, commits, total-commits, float64(total)/window.Seconds())
	if total == 0 {
		return msg + "p50:nil;p90:nil;p99:nil;"
	}
	pct := func(p float64) time.Duration {
		i := int(p * float64(total-1))
		return time.Duration(latencies[i])
	}
	return msg + fmt.Sprintf("p50:%s;p90:%s;p99:%s;", pct(0.50), pct(0.90), pct(0.99))
}
