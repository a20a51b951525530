package websocket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/history"
	"realtime-chat/internal/models"
	"realtime-chat/pkg/logger"
)

const recordTimeout = 5 * time.Second

// Hub routes every inbound intent into the shared chat state and fans the
// resulting events out to the right connections. It holds no chat state
// of its own beyond the connection maps: presence, rooms, messages and
// typing live in the components it is handed.
type Hub struct {
	registry *chat.Registry
	rooms    *chat.Directory
	store    *chat.Store
	typing   *chat.TypingTracker
	recorder history.Recorder

	historyLimit int

	mu         sync.RWMutex
	byIdentity map[string]*Client

	deliveryMu sync.Mutex
	delivery   map[string]*sync.Mutex // scope key -> fan-out order lock
}

func NewHub(registry *chat.Registry, rooms *chat.Directory, store *chat.Store, typing *chat.TypingTracker, recorder history.Recorder, historyLimit int) *Hub {
	h := &Hub{
		registry:     registry,
		rooms:        rooms,
		store:        store,
		typing:       typing,
		recorder:     recorder,
		historyLimit: historyLimit,
		byIdentity:   make(map[string]*Client),
	}
	// Entries the sweep expires must reach their audience without any
	// further signal from the typist.
	typing.OnChange(h.broadcastTyping)
	return h
}

// Dispatch applies one intent from one connection. It returns an error
// only for validation failures, which the caller reports to the origin
// connection and nobody else; everything questionable but expected
// (unknown message IDs, vanished recipients, duplicates) is a soft no-op.
func (h *Hub) Dispatch(c *Client, in Intent) error {
	if in.Type == IntentRegister {
		return h.register(c, in.Username)
	}

	if c.identity == nil {
		return errors.New("not identified")
	}

	switch in.Type {
	case IntentJoinRoom:
		return h.joinRoom(c, in.Room)
	case IntentCreateRoom:
		return h.createRoom(in.Room)
	case IntentSendMessage:
		return h.sendRoomMessage(c, in)
	case IntentSendPrivate:
		return h.sendPrivateMessage(c, in)
	case IntentSetTyping:
		return h.setTyping(c, in)
	case IntentMarkRead:
		return h.markRead(c, in.MessageID)
	case IntentAddReaction:
		return h.addReaction(c, in)
	default:
		return fmt.Errorf("unknown intent type %q", in.Type)
	}
}

func (h *Hub) register(c *Client, username string) error {
	if c.identity != nil {
		// Re-registering while identified is a no-op, not an error.
		return nil
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}

	ident := h.registry.Register(username)
	c.identity = ident

	h.mu.Lock()
	h.byIdentity[ident.ID] = c
	h.mu.Unlock()

	c.deliver(&models.Event{Type: models.EventIdentified, Identity: ident, Timestamp: time.Now()})
	h.broadcastRoster()
	logger.Info("Identity %s registered as %q", ident.ID, username)
	return nil
}

func (h *Hub) joinRoom(c *Client, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("room name is required")
	}
	ident := c.identity

	previous, changed := h.rooms.Join(ident.ID, name)
	if !changed {
		// Already there; no duplicate events.
		return nil
	}

	now := time.Now()
	c.deliver(&models.Event{Type: models.EventJoinedRoom, Room: name, Timestamp: now})
	if msgs := h.store.Recent(models.RoomScope(name), h.historyLimit); len(msgs) > 0 {
		c.deliver(&models.Event{Type: models.EventHistory, Room: name, Messages: msgs, Timestamp: now})
	}

	if previous != "" {
		h.roomNotice(previous, ident.Username+" left "+previous, "")
		h.broadcastRoomRoster(previous)
	}
	h.roomNotice(name, ident.Username+" joined "+name, ident.ID)
	h.broadcastRoomRoster(name)

	logger.Info("User %q joined room %q", ident.Username, name)
	return nil
}

// createRoom handles the explicit creation path. An empty name is a
// silent no-op, and the creator is not auto-joined.
func (h *Hub) createRoom(name string) error {
	if h.rooms.CreateRoom(name) {
		h.broadcastAll(&models.Event{Type: models.EventRoomCreated, Room: strings.TrimSpace(name), Timestamp: time.Now()})
	}
	return nil
}

func (h *Hub) sendRoomMessage(c *Client, in Intent) error {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.File == nil {
		return errors.New("message text or file is required")
	}
	room := strings.TrimSpace(in.Room)
	if room == "" {
		room = h.rooms.RoomOf(c.identity.ID)
	}
	if room == "" {
		return errors.New("no room to send to")
	}

	scope := models.RoomScope(room)

	// Append and fan-out happen under the scope's delivery lock so the
	// order every member sees matches append order.
	lock := h.scopeLock(scope.Key())
	lock.Lock()
	msg := h.store.AppendRoom(c.identity.ID, c.identity.Username, room, text, in.File)
	ev := &models.Event{Type: models.EventNewMessage, Message: msg, Timestamp: msg.Timestamp}
	for _, member := range h.roomClients(room) {
		member.deliver(ev)
	}
	lock.Unlock()

	h.record(msg)
	return nil
}

func (h *Hub) sendPrivateMessage(c *Client, in Intent) error {
	if in.To == "" {
		return errors.New("recipient is required")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && in.File == nil {
		return errors.New("message text or file is required")
	}

	scope := models.PrivateScope(c.identity.ID, in.To)

	lock := h.scopeLock(scope.Key())
	lock.Lock()
	msg := h.store.AppendPrivate(c.identity.ID, c.identity.Username, in.To, text, in.File)
	ev := &models.Event{Type: models.EventNewMessage, Message: msg, Timestamp: msg.Timestamp}
	c.deliver(ev)
	if in.To != c.identity.ID {
		if recipient, ok := h.clientByIdentity(in.To); ok {
			recipient.deliver(ev)
		} else {
			// Recorded but undelivered: no queue, no retry.
			logger.Debug("Private message %d to disconnected identity %s", msg.ID, in.To)
		}
	}
	lock.Unlock()

	h.record(msg)
	return nil
}

func (h *Hub) setTyping(c *Client, in Intent) error {
	var scope models.Scope
	if in.To != "" {
		scope = models.PrivateScope(c.identity.ID, in.To)
	} else {
		room := h.rooms.RoomOf(c.identity.ID)
		if room == "" {
			return nil
		}
		scope = models.RoomScope(room)
	}

	if h.typing.Set(scope, c.identity.Username, in.Typing) {
		h.broadcastTyping(scope)
	}
	return nil
}

func (h *Hub) markRead(c *Client, messageID int64) error {
	msg, changed := h.store.MarkRead(messageID, c.identity.Username)
	if msg == nil {
		logger.Debug("mark_read for unknown message %d", messageID)
		return nil
	}
	if changed {
		h.broadcastUpdate(msg)
	}
	return nil
}

func (h *Hub) addReaction(c *Client, in Intent) error {
	if strings.TrimSpace(in.Emoji) == "" {
		return errors.New("emoji is required")
	}
	msg, changed := h.store.AddReaction(in.MessageID, in.Emoji, c.identity.Username)
	if msg == nil {
		logger.Debug("add_reaction for unknown message %d", in.MessageID)
		return nil
	}
	if changed {
		h.broadcastUpdate(msg)
	}
	return nil
}

// Disconnect tears a connection down exactly once, however many signals
// race to trigger it: presence, room membership and typing entries all go,
// each removal broadcast to its audience.
func (h *Hub) Disconnect(c *Client) {
	c.teardown.Do(func() {
		close(c.done)

		ident := c.identity
		if ident != nil {
			h.mu.Lock()
			delete(h.byIdentity, ident.ID)
			h.mu.Unlock()
		}

		if ident == nil {
			return
		}

		vacated := h.rooms.Leave(ident.ID)
		scopes := h.typing.Remove(ident.Username)
		h.registry.Unregister(ident.ID)

		if vacated != "" {
			h.roomNotice(vacated, ident.Username+" left "+vacated, "")
			h.broadcastRoomRoster(vacated)
		}
		for _, scope := range scopes {
			h.broadcastTyping(scope)
		}
		h.broadcastRoster()

		logger.Info("Identity %s (%q) disconnected", ident.ID, ident.Username)
	})
}

// audienceOf resolves a message's scope to the connections that should
// see it now: current room members, or the private pair.
func (h *Hub) audienceOf(scope models.Scope) []*Client {
	if scope.Kind == models.ScopeRoom {
		return h.roomClients(scope.Room)
	}
	a, b := scope.Participants()
	var out []*Client
	if ca, ok := h.clientByIdentity(a); ok {
		out = append(out, ca)
	}
	if b != a {
		if cb, ok := h.clientByIdentity(b); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (h *Hub) broadcastUpdate(msg *models.Message) {
	ev := &models.Event{Type: models.EventMessageUpdated, Message: msg, Timestamp: time.Now()}
	for _, member := range h.audienceOf(msg.Scope) {
		member.deliver(ev)
	}
}

// broadcastTyping pushes the scope's typist set to its audience. The set
// each recipient gets excludes their own username: self is never shown as
// typing to itself.
func (h *Hub) broadcastTyping(scope models.Scope) {
	typists := h.typing.Typists(scope)
	now := time.Now()
	for _, member := range h.audienceOf(scope) {
		names := typists
		if member.identity != nil {
			names = excludeString(typists, member.identity.Username)
		}
		member.deliver(&models.Event{
			Type:      models.EventTypingUpdate,
			Scope:     &scope,
			Room:      scope.Room,
			Typists:   names,
			Timestamp: now,
		})
	}
}

// broadcastRoster pushes the full online roster to every identified
// connection. A full push, not a diff: simpler, and immune to missed
// increments.
func (h *Hub) broadcastRoster() {
	roster := h.registry.Online()
	h.broadcastAll(&models.Event{Type: models.EventRosterUpdate, Roster: roster, Timestamp: time.Now()})
}

func (h *Hub) broadcastRoomRoster(room string) {
	memberIDs := h.rooms.Members(room)
	names := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if ident, ok := h.registry.Get(id); ok {
			names = append(names, ident.Username)
		}
	}
	ev := &models.Event{
		Type:      models.EventRoomRoster,
		Room:      room,
		Members:   names,
		Count:     len(names),
		Timestamp: time.Now(),
	}
	for _, member := range h.roomClients(room) {
		member.deliver(ev)
	}
}

func (h *Hub) roomNotice(room, text, exceptID string) {
	ev := &models.Event{Type: models.EventSystem, Room: room, Text: text, Timestamp: time.Now()}
	for _, member := range h.roomClients(room) {
		if exceptID != "" && member.identity != nil && member.identity.ID == exceptID {
			continue
		}
		member.deliver(ev)
	}
}

func (h *Hub) broadcastAll(ev *models.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byIdentity))
	for _, c := range h.byIdentity {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.deliver(ev)
	}
}

func (h *Hub) roomClients(room string) []*Client {
	memberIDs := h.rooms.Members(room)

	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(memberIDs))
	for _, id := range memberIDs {
		if c, ok := h.byIdentity[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) clientByIdentity(identityID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byIdentity[identityID]
	return c, ok
}

func (h *Hub) scopeLock(key string) *sync.Mutex {
	h.deliveryMu.Lock()
	defer h.deliveryMu.Unlock()
	if h.delivery == nil {
		h.delivery = make(map[string]*sync.Mutex)
	}
	lock, ok := h.delivery[key]
	if !ok {
		lock = &sync.Mutex{}
		h.delivery[key] = lock
	}
	return lock
}

// record hands an immutable copy to the persistence collaborator off the
// hot path. Failures are logged and swallowed: the engine's correctness
// never depends on history being present or fast.
func (h *Hub) record(msg *models.Message) {
	if h.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := h.recorder.Record(ctx, msg); err != nil {
			logger.Error("Error recording message %d: %v", msg.ID, err)
		}
	}()
}

func excludeString(set []string, s string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
