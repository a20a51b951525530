package chat

import (
	"sync"
	"time"

	"realtime-chat/internal/models"

	"github.com/google/uuid"
)

// Registry is the source of truth for who is online. Registration never
// fails and never checks username collisions: two connections claiming
// "alice" both succeed and are distinguished by connection ID alone.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*models.Identity
	order []string // registration order, IDs of still-live identities
}

func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*models.Identity),
	}
}

// Register creates a fresh identity for a connection.
func (r *Registry) Register(username string) *models.Identity {
	id := &models.Identity{
		ID:       uuid.NewString(),
		Username: username,
		JoinedAt: time.Now(),
	}

	r.mu.Lock()
	r.byID[id.ID] = id
	r.order = append(r.order, id.ID)
	r.mu.Unlock()

	return id
}

// Unregister removes the identity from presence. Unknown or already
// removed IDs are a no-op; it reports whether anything changed.
func (r *Registry) Unregister(identityID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[identityID]; !ok {
		return false
	}
	delete(r.byID, identityID)
	for i, id := range r.order {
		if id == identityID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get looks up a live identity by connection ID.
func (r *Registry) Get(identityID string) (*models.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byID[identityID]
	return id, ok
}

// Online returns a snapshot of all live identities in registration order.
func (r *Registry) Online() []*models.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Identity, 0, len(r.order))
	for _, id := range r.order {
		if ident, ok := r.byID[id]; ok {
			out = append(out, ident)
		}
	}
	return out
}
