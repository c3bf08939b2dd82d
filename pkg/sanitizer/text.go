package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	// CSI sequences (colors, cursor movement) and OSC sequences (titles,
	// hyperlinks) terminated by BEL or ST.
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// RemoveControlSequences drops ANSI escape sequences and control characters,
// keeping newlines and tabs.
func RemoveControlSequences(s string) string {
	s = ansiRegex.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// StripHTML removes tags and unescapes entities.
func StripHTML(s string) string {
	return html.UnescapeString(htmlTagRegex.ReplaceAllString(s, ""))
}

// SingleLine folds every whitespace run, line breaks included, into one space.
func SingleLine(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most maxLen runes, ending with "…" when shortened.
// A non-positive maxLen leaves s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return "…"
	}
	return strings.TrimRightFunc(string(runes[:maxLen-1]), unicode.IsSpace) + "…"
}

var displayLine = Compose(RemoveControlSequences, StripHTML, RemoveControlSequences, SingleLine)

// Display makes s safe to print on one terminal line of at most maxLen runes.
// Control sequences are removed again after unescaping so that an entity like
// &#27; cannot smuggle one in.
func Display(s string, maxLen int) string {
	return Truncate(displayLine(s), maxLen)
}
