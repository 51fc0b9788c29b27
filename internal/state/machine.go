package state

import (
	"fmt"

	"github.com/l1jgo/progress/internal/core/event"
	"go.uber.org/zap"
)

// Machine is the host application's state. Transitions are requested during
// a tick and applied by Apply after the tick, running exit hooks of the old
// state, then enter hooks of the new one. Game-loop goroutine only.
type Machine[S comparable] struct {
	current S
	next    S
	queued  bool
	started bool

	enter map[S][]func()
	exit  map[S][]func()

	bus *event.Bus
	log *zap.Logger
}

// NewMachine creates a machine in the initial state. Enter hooks for the
// initial state run on Start. bus may be nil.
func NewMachine[S comparable](initial S, bus *event.Bus, log *zap.Logger) *Machine[S] {
	return &Machine[S]{
		current: initial,
		enter:   make(map[S][]func()),
		exit:    make(map[S][]func()),
		bus:     bus,
		log:     log,
	}
}

func (m *Machine[S]) Current() S {
	return m.current
}

// Pending returns the queued target, if any.
func (m *Machine[S]) Pending() (S, bool) {
	return m.next, m.queued
}

// OnEnter registers fn to run every time the machine enters s.
func (m *Machine[S]) OnEnter(s S, fn func()) {
	m.enter[s] = append(m.enter[s], fn)
}

// OnExit registers fn to run every time the machine leaves s.
func (m *Machine[S]) OnExit(s S, fn func()) {
	m.exit[s] = append(m.exit[s], fn)
}

// RequestTransition queues target. The last request before Apply wins;
// repeated requests for the same target are harmless.
func (m *Machine[S]) RequestTransition(target S) {
	m.next = target
	m.queued = true
}

// Start runs the enter hooks of the initial state once.
func (m *Machine[S]) Start() {
	if m.started {
		return
	}
	m.started = true
	m.runHooks(m.enter[m.current])
	if m.bus != nil {
		event.Emit(m.bus, event.StateEntered[S]{State: m.current})
	}
}

// Apply performs the queued transition, if any, and reports whether the
// state changed. A request for the current state is dropped.
func (m *Machine[S]) Apply() bool {
	if !m.queued {
		return false
	}
	target := m.next
	m.queued = false
	if target == m.current {
		return false
	}

	from := m.current
	m.runHooks(m.exit[from])
	if m.bus != nil {
		event.Emit(m.bus, event.StateExited[S]{State: from})
	}
	m.current = target
	m.runHooks(m.enter[target])
	if m.bus != nil {
		event.Emit(m.bus, event.StateEntered[S]{State: target})
	}
	m.log.Info("state transition",
		zap.String("from", fmt.Sprint(from)),
		zap.String("to", fmt.Sprint(target)),
	)
	return true
}

func (m *Machine[S]) runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
