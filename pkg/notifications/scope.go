package notifications

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind tells whether the session belongs to a user or a customer.
type ScopeKind string

const (
	ScopeUser     ScopeKind = "user"
	ScopeCustomer ScopeKind = "customer"
)

// Scope identifies the signed-in identity a session acts for.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int64     `json:"id"`
}

func UserScope(id int64) Scope     { return Scope{Kind: ScopeUser, ID: id} }
func CustomerScope(id int64) Scope { return Scope{Kind: ScopeCustomer, ID: id} }

// ParseScope builds a scope from a kind name and id.
func ParseScope(kind string, id int64) (Scope, error) {
	s := Scope{Kind: ScopeKind(strings.ToLower(strings.TrimSpace(kind))), ID: id}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// IsZero reports whether no identity is set.
func (s Scope) IsZero() bool {
	return s == Scope{}
}

func (s Scope) Validate() error {
	if s.Kind != ScopeUser && s.Kind != ScopeCustomer {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScope, s.Kind)
	}
	if s.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidScope)
	}
	return nil
}

func (s Scope) String() string {
	if s.IsZero() {
		return "anonymous"
	}
	return string(s.Kind) + ":" + strconv.FormatInt(s.ID, 10)
}

// Payload renders the identity as sent on scoped events:
// {"userId": id} or {"customerId": id}.
func (s Scope) Payload() map[string]any {
	return map[string]any{s.key(): s.ID}
}

func (s Scope) key() string {
	if s.Kind == ScopeCustomer {
		return "customerId"
	}
	return "userId"
}

// RoomPayload is the join-room request body.
type RoomPayload struct {
	UserType ScopeKind `json:"userType"`
	ID       int64     `json:"id"`
}

func (s Scope) RoomPayload() RoomPayload {
	return RoomPayload{UserType: s.Kind, ID: s.ID}
}
