package statemachine

import "context"

// State is a named machine state.
type State string

// Event is a named trigger that may move the machine to another state.
type Event string

// Action runs during a transition, after guards pass and before the state
// changes. Returning an error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event) error

// Guard vetoes a transition when it returns false.
type Guard func(ctx context.Context, from State, event Event) bool

// Listener observes a completed transition. Listeners run after the state has
// changed and outside the machine's lock, so they may call back into it.
type Listener func(from, to State, event Event)

// Transition moves the machine from From to To when Event fires.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // all must pass
	Actions []Action // run in order
}
