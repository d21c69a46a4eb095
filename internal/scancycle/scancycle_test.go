package scancycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstCycleIsWarmupOnly(t *testing.T) {
	tr := New()
	tr.CycleStart(int64(10 * time.Millisecond))
	tr.CycleEnd()

	snap, ok := tr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.ScanCount)
	assert.Equal(t, int64(0), snap.CycleTimeAvgUs)
}

func TestSnapshotInvalidBeforeAnyCycle(t *testing.T) {
	tr := New()
	_, ok := tr.Snapshot()
	assert.False(t, ok)
}

func TestScanCountIncrementsEachCycle(t *testing.T) {
	tr := New()
	period := int64(5 * time.Millisecond)
	for i := 0; i < 5; i++ {
		tr.CycleStart(period)
		tr.CycleEnd()
	}
	snap, ok := tr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(5), snap.ScanCount)
}

func TestSchedulerStopsAtBoundary(t *testing.T) {
	tracker := New()
	sched := NewScheduler(time.Millisecond, tracker)

	calls := 0
	go sched.Run(func() bool {
		calls++
		if calls >= 3 {
			return false
		}
		return true
	})

	select {
	case <-sched.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 3, calls)
}

func TestSchedulerExternalStop(t *testing.T) {
	tracker := New()
	sched := NewScheduler(time.Millisecond, tracker)

	go sched.Run(func() bool { return true })
	time.Sleep(5 * time.Millisecond)
	sched.Stop()

	select {
	case <-sched.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after Stop()")
	}
}
