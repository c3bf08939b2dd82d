package redis

import (
	"errors"
	"time"
)

const (
	defaultRetryInterval = time.Second
	probeTimeout         = 2 * time.Second
)

var (
	ErrEmptyConnectionURL           = errors.New("redis: snapshot store URL is not set")
	ErrFailedToParseRedisConnString = errors.New("redis: invalid connection URL")
	ErrRedisNotReady                = errors.New("redis: server not ready")
	ErrHealthcheckFailed            = errors.New("redis: snapshot store unreachable")
)
