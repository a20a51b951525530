package models

import "strings"

type ScopeKind string

const (
	ScopeRoom    ScopeKind = "room"
	ScopePrivate ScopeKind = "private"
)

// Scope is the addressing context of a message or typing signal: a named
// room, or an unordered pair of identity IDs for a private conversation.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	Room string    `json:"room,omitempty"`
	A    string    `json:"a,omitempty"`
	B    string    `json:"b,omitempty"`
}

func RoomScope(name string) Scope {
	return Scope{Kind: ScopeRoom, Room: name}
}

// PrivateScope normalizes the pair so that PrivateScope(x, y) and
// PrivateScope(y, x) compare equal and share a key.
func PrivateScope(a, b string) Scope {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return Scope{Kind: ScopePrivate, A: a, B: b}
}

// Key returns a stable map key for the scope.
func (s Scope) Key() string {
	if s.Kind == ScopeRoom {
		return "room:" + s.Room
	}
	return "dm:" + s.A + "|" + s.B
}

// Participants returns the identity IDs of a private scope.
func (s Scope) Participants() (string, string) {
	return s.A, s.B
}
