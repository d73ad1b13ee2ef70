package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/parley/internal/bus"
)

// State represents the connection state of a parley session.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	Ready        State = "READY"
	Offline      State = "OFFLINE"
	Reconnecting State = "RECONNECTING"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:      {Connecting, Offline, Error},
	Connecting:   {Ready, Reconnecting, Offline, Error},
	Ready:        {Offline, Reconnecting, Error},
	Offline:      {Connecting, Reconnecting, Error},
	Reconnecting: {Connecting, Offline, Error},
	Error:        {Booting},
}

// KindStatusChanged is published on every successful transition.
const KindStatusChanged = "session.status_changed"

// Machine tracks and enforces session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsReady reports whether messages can be sent right now.
func (m *Machine) IsReady() bool {
	return m.Current() == Ready
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      KindStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
