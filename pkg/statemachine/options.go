package statemachine

import (
	"errors"
	"fmt"
)

// Option configures a machine during construction.
type Option func(*Machine) error

// TransitionOption attaches guards or actions to a transition.
type TransitionOption func(*Transition)

// New creates a machine starting in initial.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == "" {
		return nil, errors.New("statemachine: initial state cannot be empty")
	}

	m := newMachine(initial)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on a configuration error.
func MustNew(initial State, opts ...Option) *Machine {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// WithTransition adds a transition from one state.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		if err := m.AddTransition(t); err != nil {
			return fmt.Errorf("%s -[%s]-> %s: %w", from, event, to, err)
		}
		return nil
	}
}

// WithTransitionFrom adds the same transition from each of several states.
func WithTransitionFrom(from []State, to State, event Event, opts ...TransitionOption) Option {
	return func(m *Machine) error {
		for _, f := range from {
			if err := WithTransition(f, to, event, opts...)(m); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithListener registers a transition listener at construction time.
func WithListener(l Listener) Option {
	return func(m *Machine) error {
		m.OnTransition(l)
		return nil
	}
}

// WithGuards attaches guards to a transition. Nil guards are ignored.
func WithGuards(guards ...Guard) TransitionOption {
	return func(t *Transition) {
		for _, g := range guards {
			if g != nil {
				t.Guards = append(t.Guards, g)
			}
		}
	}
}

// WithActions attaches actions to a transition. Nil actions are ignored.
func WithActions(actions ...Action) TransitionOption {
	return func(t *Transition) {
		for _, a := range actions {
			if a != nil {
				t.Actions = append(t.Actions, a)
			}
		}
	}
}
