package httpserver

import "errors"

var (
	ErrStart       = errors.New("httpserver: start local API")
	ErrShutdown    = errors.New("httpserver: graceful shutdown")
	ErrNotLoopback = errors.New("httpserver: address is not on the loopback interface")
)
