package socket

import "errors"

var (
	ErrClosed         = errors.New("socket: client closed")
	ErrAlreadyRunning = errors.New("socket: client already running")
	ErrHandshake      = errors.New("socket: handshake failed")
)
