// Package scancycle implements the hard-real-time scan-cycle scheduler
// and its timing statistics.
//
// Timing statistics mirror the original's incremental running averages
// exactly: min/max/avg for scan time, cycle time, and cycle latency, plus
// an overrun counter, all in microsecond resolution. The first cycle is a
// warm-up that seeds the expected-deadline clock without contributing a
// sample, matching the original's scan_count == 0 special case.
package scancycle

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of the timing statistics, safe to
// copy and hand to a caller outside the lock.
type Stats struct {
	ScanCount int64

	ScanTimeMinUs, ScanTimeMaxUs, ScanTimeAvgUs             int64
	CycleTimeMinUs, CycleTimeMaxUs, CycleTimeAvgUs          int64
	CycleLatencyMinUs, CycleLatencyMaxUs, CycleLatencyAvgUs int64

	Overruns int64
}

// Tracker accumulates timing statistics across scan cycles. The zero
// value is not usable; call New.
type Tracker struct {
	mu sync.Mutex

	expectedStart time.Time
	lastStart     time.Time

	stats Stats
}

func New() *Tracker {
	t := &Tracker{}
	t.stats.ScanTimeMinUs = int64(^uint64(0) >> 1)
	t.stats.CycleTimeMinUs = int64(^uint64(0) >> 1)
	t.stats.CycleLatencyMinUs = int64(^uint64(0) >> 1)
	return t
}

// CycleStart records the start of a scan cycle and must be paired with a
// later call to CycleEnd. tickNanos is the artifact's configured period.
//
// now is kept as a time.Time throughout, never converted to Unix wall
// time: time.Now() carries a monotonic reading on platforms that support
// one, and only .Sub() preserves it. Converting to epoch microseconds
// would make every statistic vulnerable to wall-clock steps (NTP, manual
// adjustment) during a run.
func (t *Tracker) CycleStart(tickNanos int64) {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stats.ScanCount == 0 {
		t.expectedStart = now.Add(time.Duration(tickNanos))
		t.lastStart = now
		t.stats.ScanCount++
		return
	}

	cycleTimeUs := now.Sub(t.lastStart).Microseconds()
	if cycleTimeUs < t.stats.CycleTimeMinUs {
		t.stats.CycleTimeMinUs = cycleTimeUs
	}
	if cycleTimeUs > t.stats.CycleTimeMaxUs {
		t.stats.CycleTimeMaxUs = cycleTimeUs
	}
	t.stats.CycleTimeAvgUs += (cycleTimeUs - t.stats.CycleTimeAvgUs) / t.stats.ScanCount

	latencyUs := now.Sub(t.expectedStart).Microseconds()
	if latencyUs < t.stats.CycleLatencyMinUs {
		t.stats.CycleLatencyMinUs = latencyUs
	}
	if latencyUs > t.stats.CycleLatencyMaxUs {
		t.stats.CycleLatencyMaxUs = latencyUs
	}
	t.stats.CycleLatencyAvgUs += (latencyUs - t.stats.CycleLatencyAvgUs) / t.stats.ScanCount

	t.lastStart = now
	t.expectedStart = t.expectedStart.Add(time.Duration(tickNanos))
	t.stats.ScanCount++
}

// CycleEnd records the end of a scan cycle: the program call plus hooks
// completed, and checks for an overrun against the expected deadline.
func (t *Tracker) CycleEnd() {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	scanTimeUs := now.Sub(t.lastStart).Microseconds()
	if scanTimeUs < t.stats.ScanTimeMinUs {
		t.stats.ScanTimeMinUs = scanTimeUs
	}
	if scanTimeUs > t.stats.ScanTimeMaxUs {
		t.stats.ScanTimeMaxUs = scanTimeUs
	}
	t.stats.ScanTimeAvgUs += (scanTimeUs - t.stats.ScanTimeAvgUs) / t.stats.ScanCount

	if now.After(t.expectedStart) {
		t.stats.Overruns++
	}
}

// Snapshot returns a copy of the current statistics. The second return
// value is false if no cycle has completed its warm-up yet.
func (t *Tracker) Snapshot() (Stats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats, t.stats.ScanCount > 0
}
