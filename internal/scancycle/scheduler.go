package scancycle

import (
	"time"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
)

// CycleFunc performs one scan cycle's work (acquire the image-table lock,
// run plugin cycle_start hooks, invoke the program artifact, run plugin
// cycle_end hooks, release the lock) and reports whether the runtime
// should keep scanning.
type CycleFunc func() (keepRunning bool)

// Scheduler drives CycleFunc on an absolute-deadline clock: each
// iteration sleeps until previousDeadline + period rather than sleeping a
// fixed duration, so cumulative drift from cycle-to-cycle jitter cannot
// accumulate.
type Scheduler struct {
	period time.Duration
	tick   *Tracker

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler builds a scheduler for the given tick period, recording
// timing statistics into tracker.
func NewScheduler(period time.Duration, tracker *Tracker) *Scheduler {
	return &Scheduler{
		period: period,
		tick:   tracker,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run executes cycle repeatedly on the absolute-deadline clock until cycle
// returns false or Stop is called. Run blocks; callers invoke it in its
// own goroutine and wait on Done.
func (s *Scheduler) Run(cycle CycleFunc) {
	defer close(s.doneCh)

	log := logger.ScanCycle()
	applyRealtimePosture()
	deadline := time.Now().Add(s.period)

	for {
		select {
		case <-s.stopCh:
			log.Info().Msg("scan cycle scheduler stopping")
			return
		default:
		}

		s.tick.CycleStart(int64(s.period))
		keepRunning := cycle()
		s.tick.CycleEnd()

		if !keepRunning {
			log.Info().Msg("scan cycle scheduler exiting: cycle requested stop")
			return
		}

		sleep := time.Until(deadline)
		if sleep > 0 {
			time.Sleep(sleep)
		} else if snap, ok := s.tick.Snapshot(); ok {
			log.Warn().
				Int64("overruns", snap.Overruns).
				Dur("overrun_by", -sleep).
				Msg("scan cycle deadline missed")
		}
		deadline = deadline.Add(s.period)
	}
}

// Stop signals Run to exit at the next iteration boundary. It does not
// block; wait on Done to observe the loop has actually exited.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// Done returns a channel closed once Run has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.doneCh
}
