package chat

import (
	"strings"
	"sync"
	"time"
)

// Room is a named broadcast scope with its current member set. Rooms are
// never deleted: an empty room stays listed for the process lifetime.
type Room struct {
	Name      string
	CreatedAt time.Time

	mu      sync.Mutex
	members map[string]struct{} // identity IDs
}

func newRoom(name string) *Room {
	return &Room{
		Name:      name,
		CreatedAt: time.Now(),
		members:   make(map[string]struct{}),
	}
}

func (r *Room) add(identityID string) {
	r.mu.Lock()
	r.members[identityID] = struct{}{}
	r.mu.Unlock()
}

func (r *Room) remove(identityID string) {
	r.mu.Lock()
	delete(r.members, identityID)
	r.mu.Unlock()
}

// Members returns a snapshot of the room's member identity IDs.
func (r *Room) Members() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

// Directory is the set of known rooms and an index of which room each
// identity currently occupies. A session is in at most one room at a
// time: joining a room replaces any prior membership.
type Directory struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	order    []string          // room names, creation order
	memberOf map[string]string // identity ID -> room name
}

func NewDirectory(seed ...string) *Directory {
	d := &Directory{
		rooms:    make(map[string]*Room),
		memberOf: make(map[string]string),
	}
	for _, name := range seed {
		d.EnsureRoom(name)
	}
	return d
}

// EnsureRoom returns the room with the given name, creating it with an
// empty member set if absent. Name comparison is exact and case-sensitive.
func (d *Directory) EnsureRoom(name string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureLocked(name)
}

func (d *Directory) ensureLocked(name string) *Room {
	if room, ok := d.rooms[name]; ok {
		return room
	}
	room := newRoom(name)
	d.rooms[name] = room
	d.order = append(d.order, name)
	return room
}

// CreateRoom is the explicit creation path used by the REST surface and
// the in-band create intent. An empty name after trimming is rejected as
// a silent no-op; the creator is not auto-joined. It reports whether a
// new room came into existence.
func (d *Directory) CreateRoom(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[name]; ok {
		return false
	}
	d.ensureLocked(name)
	return true
}

// Join moves the identity into roomName, creating the room if absent and
// removing the identity from whatever room it was in. It returns the
// vacated room name ("" if none) and whether membership changed; joining
// the room the identity already occupies is a no-op.
func (d *Directory) Join(identityID, roomName string) (previous string, changed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	previous = d.memberOf[identityID]
	if previous == roomName {
		return previous, false
	}

	if previous != "" {
		if prev, ok := d.rooms[previous]; ok {
			prev.remove(identityID)
		}
	}
	room := d.ensureLocked(roomName)
	room.add(identityID)
	d.memberOf[identityID] = roomName
	return previous, true
}

// Leave removes the identity from its current room, if any, and returns
// the vacated room name. Idempotent.
func (d *Directory) Leave(identityID string) (vacated string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vacated = d.memberOf[identityID]
	if vacated == "" {
		return ""
	}
	if room, ok := d.rooms[vacated]; ok {
		room.remove(identityID)
	}
	delete(d.memberOf, identityID)
	return vacated
}

// RoomOf returns the identity's current room, "" when it is in none.
func (d *Directory) RoomOf(identityID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.memberOf[identityID]
}

// Room looks up a room by name without creating it.
func (d *Directory) Room(name string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	return room, ok
}

// Members returns the member snapshot of the named room, nil if the room
// does not exist.
func (d *Directory) Members(name string) []string {
	room, ok := d.Room(name)
	if !ok {
		return nil
	}
	return room.Members()
}

// ListRooms returns all known room names in creation order.
func (d *Directory) ListRooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}
