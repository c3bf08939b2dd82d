// Package surface turns store and preference state into view-models for the
// bell panel, the toast stack and the preferences panel, and turns user
// gestures back into store and preference calls.
//
// Surfaces hold no notification state of their own beyond presentation
// concerns (open/closed, filter criteria, queued toasts, a preferences
// draft), so any number of them can share one session.
package surface
