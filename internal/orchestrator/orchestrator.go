// Package orchestrator composes the image table, program artifact
// loader, state machine, scan-cycle scheduler, and plugin driver into the
// runtime's lifecycle: the transition table of § PLC state machine.
package orchestrator

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/artifact"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/debugframe"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/eventbus"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/imagetable"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugindriver"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scancycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/statemachine"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/watchdog"
)

// OpenFunc opens a program artifact, used instead of importing
// artifact.Open directly so tests can substitute a fake.
type OpenFunc func(path string, matrixBases [13]uintptr) (artifact.Program, error)

// Runtime ties every subsystem together and implements the transition
// table in § PLC state machine.
type Runtime struct {
	mu sync.Mutex

	machine *statemachine.Machine
	table   *imagetable.Table
	tracker *scancycle.Tracker
	plugins *plugindriver.Driver
	watch   *watchdog.Watchdog
	bus     *eventbus.Bus
	mirror  watchdog.HeartbeatMirror

	open OpenFunc

	artifactPath      string
	descriptorPath    string
	tickOverrideNanos int64
	watchdogInterval  time.Duration

	program   artifact.Program
	scheduler *scancycle.Scheduler
	tick      atomic.Uint64
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithEventBus wires an optional event bus publisher.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(r *Runtime) { r.bus = bus }
}

// WithOpenFunc overrides the artifact-opening function, for tests.
func WithOpenFunc(fn OpenFunc) Option {
	return func(r *Runtime) { r.open = fn }
}

// WithWatchdogInterval overrides the watchdog's sampling period; zero
// leaves watchdog.SampleInterval in effect.
func WithWatchdogInterval(d time.Duration) Option {
	return func(r *Runtime) { r.watchdogInterval = d }
}

// WithHeartbeatMirror wires an optional distributed heartbeat mirror
// (e.g. watchdog.RedisMirror) into every watchdog this Runtime creates.
func WithHeartbeatMirror(m watchdog.HeartbeatMirror) Option {
	return func(r *Runtime) { r.mirror = m }
}

// New builds a Runtime. artifactPath may name a file or a directory to
// scan (see artifact.Discover); descriptorPath is the plugin descriptor
// file; tickOverrideNanos, if non-zero, overrides the artifact's declared
// period.
func New(artifactPath, descriptorPath string, tickOverrideNanos int64, opts ...Option) *Runtime {
	table := imagetable.New()
	r := &Runtime{
		machine:           statemachine.New(),
		table:             table,
		tracker:           scancycle.New(),
		plugins:           plugindriver.New(table),
		artifactPath:      artifactPath,
		descriptorPath:    descriptorPath,
		tickOverrideNanos: tickOverrideNanos,
		open: func(path string, bases [13]uintptr) (artifact.Program, error) {
			return artifact.Open(path, bases)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetState satisfies commandsocket.StateController.
func (r *Runtime) GetState() string {
	return r.machine.GetState().String()
}

func (r *Runtime) isRunning() bool {
	return r.machine.GetState() == statemachine.Running
}

func (r *Runtime) onStall(reason string) {
	logger.Watchdog().Error().Str("reason", reason).Msg("watchdog terminating process")
	r.machine.SetState(statemachine.Error)
	os.Exit(1)
}

// RequestStart implements the STOPPED/ERROR/EMPTY -> RUNNING transition:
// discover the artifact, open it, bind the image table, load plugins,
// and spawn the scan-cycle thread.
func (r *Runtime) RequestStart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.machine.GetState()
	if current == statemachine.Running {
		return nil
	}

	path, err := artifact.Discover(r.artifactPath)
	if err != nil {
		r.machine.SetState(statemachine.Empty)
		return err
	}

	if err := r.machine.SetState(statemachine.Init); err != nil && !errors.Is(err, runtimeerrors.ErrNoop) {
		r.machine.SetState(statemachine.Error)
		return err
	}

	r.table.Lock()
	bases := r.table.Bases()
	r.table.Unlock()

	program, err := r.open(path, bases)
	if err != nil {
		r.machine.SetState(statemachine.Error)
		return err
	}
	r.program = program

	r.table.Lock()
	r.table.Bind()
	r.table.Unlock()

	if r.descriptorPath != "" {
		if err := r.plugins.LoadConfig(r.descriptorPath); err != nil {
			logger.PluginDriver().Warn().Err(err).Msg("plugin descriptor load failed, continuing without plugins")
		} else {
			r.plugins.Init()
			r.plugins.Start()
		}
	}

	period := time.Duration(program.TickTime())
	if r.tickOverrideNanos != 0 {
		period = time.Duration(r.tickOverrideNanos)
	}
	r.tick.Store(0)
	r.scheduler = scancycle.NewScheduler(period, r.tracker)

	go r.scheduler.Run(r.cycle)

	r.watch = watchdog.New(r.isRunning, r.onStall, r.mirror)
	if r.watchdogInterval > 0 {
		r.watch.Interval = r.watchdogInterval
	}
	if err := r.watch.Start(); err != nil {
		logger.Watchdog().Warn().Err(err).Msg("watchdog did not start")
	}

	if err := r.machine.SetState(statemachine.Running); err != nil && !errors.Is(err, runtimeerrors.ErrNoop) {
		r.machine.SetState(statemachine.Error)
		return err
	}

	r.bus.PublishStateTransition(current.String(), statemachine.Running.String())
	return nil
}

// cycle runs one scan iteration: lock, plugin cycle_start, config_run__,
// updateTime, plugin cycle_end, unlock, heartbeat. Returns false when the
// state has left RUNNING, ending the scheduler loop at this boundary.
func (r *Runtime) cycle() bool {
	if r.machine.GetState() != statemachine.Running {
		return false
	}

	r.table.Lock()
	r.plugins.CycleStart()
	tick := r.tick.Add(1)
	r.program.Run(tick)
	r.plugins.CycleEnd()
	r.table.Unlock()

	r.watch.Beat()
	return true
}

// RequestStop implements the RUNNING -> STOPPED transition: marks
// STOPPED, joins the scan thread, clears the image table, and closes the
// artifact.
func (r *Runtime) RequestStop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.GetState() != statemachine.Running {
		return runtimeerrors.NewStateError(r.machine.GetState().String(), statemachine.Stopped.String())
	}

	if err := r.machine.SetState(statemachine.Stopped); err != nil {
		return err
	}

	if r.scheduler != nil {
		r.scheduler.Stop()
		<-r.scheduler.Done()
	}
	if r.watch != nil {
		r.watch.Stop()
	}
	r.plugins.Stop()

	r.table.Lock()
	r.table.Clear()
	r.table.Unlock()

	if r.program != nil {
		r.program.Close()
		r.program = nil
	}

	r.bus.PublishStateTransition(statemachine.Running.String(), statemachine.Stopped.String())
	return nil
}

// Shutdown stops a running scan loop (if any) and tears down the plugin
// driver entirely. Called once at process exit.
func (r *Runtime) Shutdown() {
	if r.GetState() == statemachine.Running.String() {
		r.RequestStop()
	}
	r.plugins.Destroy()
	r.bus.Close()
}

// DebugHandler builds a debugframe.Handler bound to the currently loaded
// program, or nil if no program is loaded.
func (r *Runtime) DebugHandler() *debugframe.Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	prog := r.program
	return debugframe.NewHandler(
		prog.(debugframe.VariableAccess),
		prog.ProgramMD5,
		func() uint32 { return uint32(r.tick.Load()) },
	)
}

// Tracker exposes the scan-cycle statistics tracker for the periodic
// reporter.
func (r *Runtime) Tracker() *scancycle.Tracker { return r.tracker }

// StateMachine exposes the underlying state machine for the telemetry
// broadcaster.
func (r *Runtime) StateMachine() *statemachine.Machine { return r.machine }

// ReloadPlugins re-parses the descriptor file without restarting
// the scan loop, matching the restart() operation's intent when called
// administratively rather than via a crash.
func (r *Runtime) ReloadPlugins() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.descriptorPath == "" {
		return nil
	}
	return r.plugins.Restart(r.descriptorPath)
}
