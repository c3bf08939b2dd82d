package logger

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records a notification identifier under "notification_id".
func NotificationID(id int64) slog.Attr {
	return slog.Int64("notification_id", id)
}

// Scope records the session identity under "scope". Any value implementing
// fmt.Stringer is rendered through String; nil yields an empty Attr.
func Scope(scope any) slog.Attr {
	if scope == nil {
		return slog.Attr{}
	}
	if s, ok := scope.(fmt.Stringer); ok {
		return slog.String("scope", s.String())
	}
	return slog.Any("scope", scope)
}

// CorrelationID records a mutation correlation id under "cid".
// Empty ids yield an empty Attr.
func CorrelationID(cid string) slog.Attr {
	if cid == "" {
		return slog.Attr{}
	}
	return slog.String("cid", cid)
}

// State records a lifecycle state name under "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
