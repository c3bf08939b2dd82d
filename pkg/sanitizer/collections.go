package sanitizer

import "strings"

// TrimAll trims every element.
func TrimAll(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// FilterEmpty drops blank elements.
func FilterEmpty(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// DeduplicateIgnoreCase keeps the first spelling of every case-insensitive
// duplicate, preserving order.
func DeduplicateIgnoreCase(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CleanSet trims, drops blanks and removes case-insensitive duplicates.
// The result is never nil.
var CleanSet = Compose(TrimAll, FilterEmpty, DeduplicateIgnoreCase)
