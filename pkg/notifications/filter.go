package notifications

import (
	"strings"

	"golang.org/x/text/cases"
)

// ReadState selects entries by read status.
type ReadState string

const (
	ReadAll    ReadState = "all"
	ReadOnly   ReadState = "read"
	UnreadOnly ReadState = "unread"
)

// ParseReadState maps s to a ReadState, defaulting to ReadAll.
func ParseReadState(s string) ReadState {
	switch rs := ReadState(strings.ToLower(strings.TrimSpace(s))); rs {
	case ReadOnly, UnreadOnly:
		return rs
	default:
		return ReadAll
	}
}

// Next cycles all → unread → read → all.
func (r ReadState) Next() ReadState {
	switch r {
	case UnreadOnly:
		return ReadOnly
	case ReadOnly:
		return ReadAll
	default:
		return UnreadOnly
	}
}

// Filter is the set of criteria the bell panel applies to the feed.
// Empty criteria match everything; set criteria are combined with AND.
type Filter struct {
	ReadState ReadState `json:"read,omitempty"`
	Type      Type      `json:"type,omitempty"`
	Category  string    `json:"category,omitempty"`
	Search    string    `json:"q,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return (f.ReadState == "" || f.ReadState == ReadAll) &&
		f.Type == "" && f.Category == "" && strings.TrimSpace(f.Search) == ""
}

// Apply returns the entries matching f, preserving order. Search compares
// message and tender title with Unicode case folding.
func (f Filter) Apply(list []Notification) []Notification {
	m := f.matcher()
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if m.match(n) {
			out = append(out, n)
		}
	}
	return out
}

type matcher struct {
	f        Filter
	fold     cases.Caser
	needle   string
	category string
}

func (f Filter) matcher() *matcher {
	m := &matcher{f: f, fold: cases.Fold()}
	if s := strings.TrimSpace(f.Search); s != "" {
		m.needle = m.fold.String(s)
	}
	if f.Category != "" {
		m.category = m.fold.String(f.Category)
	}
	return m
}

func (m *matcher) match(n Notification) bool {
	switch m.f.ReadState {
	case ReadOnly:
		if !n.IsRead {
			return false
		}
	case UnreadOnly:
		if n.IsRead {
			return false
		}
	}

	if m.f.Type != "" && ParseType(string(n.Type)) != ParseType(string(m.f.Type)) {
		return false
	}

	if m.category != "" && m.fold.String(n.Tender.CategoryName()) != m.category {
		return false
	}

	if m.needle != "" {
		return strings.Contains(m.fold.String(n.Message), m.needle) ||
			strings.Contains(m.fold.String(n.Tender.TitleOr("")), m.needle)
	}
	return true
}

// Categories returns the distinct tender categories in list, in first-seen order.
func Categories(list []Notification) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range list {
		c := n.Tender.CategoryName()
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
