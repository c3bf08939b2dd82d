// Package sanitizer cleans server-supplied text before it reaches a terminal
// or a log line, and normalizes the string sets stored in preferences.
//
// Text helpers strip ANSI escape sequences and other control characters,
// drop HTML markup, fold line breaks and truncate by rune:
//
//	line := sanitizer.Display(n.Message, 120)
//
// Apply and Compose chain single-value transforms into pipelines; CleanSet
// is one such pipeline for []string.
package sanitizer
