// Package statemachine implements the PLC runtime's top-level state word
// and its transition table.
package statemachine

import (
	"sync"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logger"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
)

// State is one of the five states the original plc_state_manager.h enum
// names.
type State int

const (
	Init State = iota
	Running
	Stopped
	Error
	Empty
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	case Error:
		return "ERROR"
	case Empty:
		return "EMPTY"
	default:
		return "UNKNOWN"
	}
}

// allowed lists, for each state, the states it may transition into
// directly, matching the documented transition matrix: STOPPED/ERROR/EMPTY
// may enter RUNNING (by way of the loader's transient INIT); RUNNING may
// only leave to STOPPED; and any state may always move to ERROR or EMPTY.
var allowed = map[State]map[State]bool{
	Stopped: {Init: true, Running: true},
	Error:   {Init: true, Running: true},
	Empty:   {Init: true, Running: true},
	Init:    {Running: true},
	Running: {Stopped: true},
}

// Machine is the lock-guarded current state.
type Machine struct {
	mu    sync.Mutex
	state State
}

// New returns a machine starting in Stopped, matching the runtime's state
// at boot.
func New() *Machine {
	return &Machine{state: Stopped}
}

// GetState returns the current state.
func (m *Machine) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetState attempts the transition to next. Any state may always move to
// Error, matching the original's handling of unrecoverable faults, or to
// Empty, the state recorded when artifact discovery finds nothing.
// Transitioning a state into itself is a no-op: it returns
// runtimeerrors.ErrNoop rather than nil, so a caller using errors.Is can
// tell "already there" apart from a transition that actually happened,
// matching set_state's documented false-iff-current-equals-requested
// return.
func (m *Machine) SetState(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logger.StateMachine()

	if next == m.state {
		return runtimeerrors.ErrNoop
	}
	if next == Error || next == Empty || allowed[m.state][next] {
		log.Info().Str("from", m.state.String()).Str("to", next.String()).Msg("state transition")
		m.state = next
		return nil
	}

	log.Warn().Str("from", m.state.String()).Str("to", next.String()).Msg("rejected state transition")
	return runtimeerrors.NewStateError(m.state.String(), next.String())
}
