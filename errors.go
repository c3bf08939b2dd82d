package tenderbell

import "errors"

var (
	ErrNoDialer       = errors.New("tenderbell: dialer is required")
	ErrNoAPI          = errors.New("tenderbell: marketplace API is not configured")
	ErrSessionClosed  = errors.New("tenderbell: session is closed")
	ErrAlreadyRunning = errors.New("tenderbell: session is already running")
)
