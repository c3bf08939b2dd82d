// Package statemachine is a small finite state machine with guards, actions
// and transition listeners.
//
// The socket client models its connection lifecycle with it:
//
//	m := statemachine.MustNew("idle",
//	    statemachine.WithTransitionFrom([]statemachine.State{"idle", "disconnected"}, "connecting", "dial"),
//	    statemachine.WithTransition("connecting", "connected", "established"),
//	)
//	m.OnTransition(func(from, to statemachine.State, ev statemachine.Event) {
//	    log.Printf("%s -> %s (%s)", from, to, ev)
//	})
//	_ = m.Fire(ctx, "dial")
//
// Fire returns a *NoTransitionError when nothing is registered for the current
// state and event, and a *RejectedError when every candidate was vetoed by a
// guard. Use IsNoTransition and IsRejected to tell them apart.
package statemachine
