package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeTender  Type = "tender"
	TypePayment Type = "payment"
	TypeSystem  Type = "system"
	TypeOther   Type = "other"
)

// Types lists every known type in display order.
func Types() []Type {
	return []Type{TypeTender, TypePayment, TypeSystem, TypeOther}
}

// ParseType maps s to a known type. Anything unrecognized is TypeOther.
func ParseType(s string) Type {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeTender, TypePayment, TypeSystem:
		return t
	default:
		return TypeOther
	}
}

func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}

// TenderSummary is a denormalized, read-only snapshot of the tender a
// notification refers to.
type TenderSummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// UnmarshalJSON accepts the category either as a plain name or as an
// object with a name field.
func (t *TenderSummary) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       int64           `json:"id"`
		Title    string          `json:"title"`
		Category json.RawMessage `json:"category"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.ID, t.Title, t.Category = raw.ID, raw.Title, ""

	c := bytes.TrimSpace(raw.Category)
	switch {
	case len(c) == 0 || bytes.Equal(c, []byte("null")):
	case c[0] == '"':
		return json.Unmarshal(c, &t.Category)
	case c[0] == '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(c, &obj); err != nil {
			return err
		}
		t.Category = obj.Name
	default:
		return fmt.Errorf("tender category: unexpected JSON %s", c)
	}
	return nil
}

// TitleOr returns the tender title, or fallback when there is no tender or
// it has no title.
func (t *TenderSummary) TitleOr(fallback string) string {
	if t == nil || t.Title == "" {
		return fallback
	}
	return t.Title
}

// CategoryName returns the category or "" when there is no tender.
func (t *TenderSummary) CategoryName() string {
	if t == nil {
		return ""
	}
	return t.Category
}

// Notification is a single entry in the feed.
type Notification struct {
	ID         int64          `json:"id"`
	Message    string         `json:"message"`
	Type       Type           `json:"type"`
	IsRead     bool           `json:"isRead"`
	CreatedAt  time.Time      `json:"createdAt"`
	Tender     *TenderSummary `json:"tender,omitempty"`
	UserID     int64          `json:"userId,omitempty"`
	CustomerID int64          `json:"customerId,omitempty"`
}

// Owner returns the identity the notification belongs to, or the zero Scope
// if the server did not say.
func (n Notification) Owner() Scope {
	switch {
	case n.UserID != 0:
		return UserScope(n.UserID)
	case n.CustomerID != 0:
		return CustomerScope(n.CustomerID)
	default:
		return Scope{}
	}
}

// Validate checks the identity invariants of a notification.
func (n Notification) Validate() error {
	if n.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidNotification)
	}
	if n.UserID != 0 && n.CustomerID != 0 {
		return fmt.Errorf("%w: %d has both user and customer owner", ErrInvalidNotification, n.ID)
	}
	return nil
}

// VisibleTo reports whether the notification may be shown to scope.
// Notifications without an owner are assumed to be addressed to the session.
func (n Notification) VisibleTo(scope Scope) bool {
	owner := n.Owner()
	return owner.IsZero() || owner == scope
}

func (n Notification) normalized() Notification {
	n.Type = ParseType(string(n.Type))
	if n.Tender != nil {
		t := *n.Tender
		n.Tender = &t
	}
	return n
}

// PendingNotification is a scheduled notification that has not fired yet.
type PendingNotification struct {
	ID       int64          `json:"id"`
	Message  string         `json:"message"`
	Type     Type           `json:"type"`
	NotifyAt time.Time      `json:"notifyAt"`
	Tender   *TenderSummary `json:"tender,omitempty"`
}
