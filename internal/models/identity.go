package models

import "time"

// Identity binds a live connection to a claimed username. The ID is
// connection-scoped: a user opening two tabs gets two identities, and two
// users may claim the same username (they are told apart by ID only).
type Identity struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}
