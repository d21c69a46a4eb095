// Package watchdog implements the liveness watchdog: it samples the scan
// thread's heartbeat every 2 seconds and terminates the process if two
// successive samples are identical while the state machine reports
// RUNNING. Start is fallible, matching the original's watchdog_init()
// returning an int.
package watchdog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
)

// SampleInterval is the fixed watchdog sampling period.
const SampleInterval = 2 * time.Second

// StateReader reports whether the runtime currently believes it is
// RUNNING, independent of the statemachine package to avoid an import
// cycle between the two.
type StateReader func() (running bool)

// TerminateFunc is invoked when the watchdog detects a stall. In
// production this is os.Exit; tests substitute a recording fake.
type TerminateFunc func(reason string)

// Watchdog samples a heartbeat clock and, optionally, mirrors it to a
// distributed store for multi-host aggregation.
type Watchdog struct {
	heartbeat atomic.Int64

	// Interval is the sampling period, defaulting to SampleInterval. The
	// orchestrator sets it from configuration; tests shorten it.
	Interval time.Duration

	isRunning StateReader
	terminate TerminateFunc
	mirror    HeartbeatMirror

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// HeartbeatMirror publishes the heartbeat timestamp to an external store.
// Only the timestamp is mirrored, never I/O state, so the "no persistence
// of I/O state across restarts" non-goal is respected.
type HeartbeatMirror interface {
	Publish(heartbeatUnixNano int64) error
}

// New constructs a watchdog. mirror may be nil to disable distributed
// heartbeat publication.
func New(isRunning StateReader, terminate TerminateFunc, mirror HeartbeatMirror) *Watchdog {
	return &Watchdog{
		Interval:  SampleInterval,
		isRunning: isRunning,
		terminate: terminate,
		mirror:    mirror,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Beat records a heartbeat. Called by the scan thread after every cycle.
func (w *Watchdog) Beat() {
	w.heartbeat.Store(time.Now().UnixNano())
}

// Start launches the sampling goroutine. Fallible: returns a FatalError
// if this watchdog has already been started and stopped.
func (w *Watchdog) Start() error {
	select {
	case <-w.doneCh:
		return runtimeerrors.NewFatalError("watchdog.Start", "watchdog already stopped, cannot restart")
	default:
	}

	go w.run()
	return nil
}

func (w *Watchdog) run() {
	defer close(w.doneCh)

	log := logger.Watchdog()
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	var last int64 = -1

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			current := w.heartbeat.Load()

			if w.mirror != nil {
				if err := w.mirror.Publish(current); err != nil {
					log.Warn().Err(err).Msg("heartbeat mirror publish failed")
				}
			}

			if current == last && w.isRunning() {
				log.Error().Msg("watchdog detected stalled scan thread, terminating")
				w.terminate("scan thread heartbeat did not advance across two watchdog samples")
				return
			}
			last = current
		}
	}
}

// Stop signals the sampling goroutine to exit.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Done returns a channel closed once the sampling goroutine has exited.
func (w *Watchdog) Done() <-chan struct{} {
	return w.doneCh
}
