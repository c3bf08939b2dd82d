package notifications

import "errors"

var (
	ErrNoScope             = errors.New("notifications: session identity is not set")
	ErrInvalidScope        = errors.New("notifications: invalid scope")
	ErrInvalidTimeOfDay    = errors.New("notifications: time of day must be HH:MM")
	ErrInvalidNotification = errors.New("notifications: invalid notification")
	ErrSnapshotNotFound    = errors.New("notifications: snapshot not found")
)
