package statemachine

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Machine is a thread-safe in-memory finite state machine.
// Transitions are indexed as [from][event] so several guarded transitions can
// share the same trigger; the first one whose guards pass wins.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[State]map[Event][]Transition
	listeners   []Listener
}

func newMachine(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[State]map[Event][]Transition),
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is currently in any of the given states.
func (m *Machine) Is(states ...State) bool {
	return slices.Contains(states, m.Current())
}

// AddTransition registers a transition.
func (m *Machine) AddTransition(t Transition) error {
	if t.From == "" || t.To == "" || t.Event == "" {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byEvent, ok := m.transitions[t.From]
	if !ok {
		byEvent = make(map[Event][]Transition)
		m.transitions[t.From] = byEvent
	}
	byEvent[t.Event] = append(byEvent[t.Event], t)
	return nil
}

// OnTransition registers a listener for completed transitions.
func (m *Machine) OnTransition(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Fire applies event to the current state.
func (m *Machine) Fire(ctx context.Context, event Event) error {
	if event == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.current
	t, err := m.lookup(ctx, from, event)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("statemachine: action failed: %w", err)
		}
	}

	m.current = t.To
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire(event) would currently succeed, ignoring actions.
func (m *Machine) CanFire(ctx context.Context, event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.lookup(ctx, m.current, event)
	return err == nil
}

// Reset returns the machine to its initial state without notifying listeners.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}

// Must be called with lock held.
func (m *Machine) lookup(ctx context.Context, from State, event Event) (Transition, error) {
	candidates := m.transitions[from][event]
	if len(candidates) == 0 {
		return Transition{}, &NoTransitionError{State: from, Event: event}
	}

	for _, t := range candidates {
		if allow(ctx, t.Guards, from, event) {
			return t, nil
		}
	}
	return Transition{}, &RejectedError{State: from, Event: event}
}

func allow(ctx context.Context, guards []Guard, from State, event Event) bool {
	for _, g := range guards {
		if !g(ctx, from, event) {
			return false
		}
	}
	return true
}
