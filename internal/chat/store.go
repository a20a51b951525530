package chat

import (
	"sort"
	"sync"
	"time"

	"realtime-chat/internal/models"
)

// record pairs a stored message with its own lock. The store lock covers
// the tables and ID assignment; receipt and reaction updates on a single
// message serialize on the record lock so unrelated messages never block
// each other.
type record struct {
	mu  sync.Mutex
	msg models.Message
}

func (rec *record) snapshot() *models.Message {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.msg.Clone()
}

// Store is the append-only in-memory message log, per room and per
// private pair. Append is the single ordering point: concurrent senders
// into the same scope are linearized by the sequence ID it assigns.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*record
	byScope map[string][]*record // scope key -> records in append order
}

func NewStore() *Store {
	return &Store{
		nextID:  1,
		byID:    make(map[int64]*record),
		byScope: make(map[string][]*record),
	}
}

// AppendRoom appends a message addressed to a room. Membership of the
// sender is deliberately not checked here; audience computation is the
// hub's concern.
func (s *Store) AppendRoom(senderID, senderName, roomName, text string, file *models.FileInfo) *models.Message {
	return s.append(senderID, senderName, models.RoomScope(roomName), text, file)
}

// AppendPrivate appends a message addressed to the pair (sender,
// recipient). The message is recorded even when the recipient has
// disconnected; delivery is best-effort and not the store's problem.
func (s *Store) AppendPrivate(senderID, senderName, recipientID, text string, file *models.FileInfo) *models.Message {
	return s.append(senderID, senderName, models.PrivateScope(senderID, recipientID), text, file)
}

func (s *Store) append(senderID, senderName string, scope models.Scope, text string, file *models.FileInfo) *models.Message {
	s.mu.Lock()
	rec := &record{msg: models.Message{
		ID:        s.nextID,
		SenderID:  senderID,
		Sender:    senderName,
		Scope:     scope,
		Text:      text,
		File:      file,
		Timestamp: time.Now(),
		ReadBy:    []string{},
	}}
	s.nextID++
	s.byID[rec.msg.ID] = rec
	key := scope.Key()
	s.byScope[key] = append(s.byScope[key], rec)
	s.mu.Unlock()

	return rec.snapshot()
}

func (s *Store) lookup(messageID int64) (*record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[messageID]
	return rec, ok
}

// MarkRead adds the reader's username to the message's read set. The set
// only ever grows. Unknown message IDs return (nil, false): late or
// duplicate read signals are expected under concurrent delivery and must
// not fail loudly. The returned flag is true only when state changed.
func (s *Store) MarkRead(messageID int64, username string) (*models.Message, bool) {
	rec, ok := s.lookup(messageID)
	if !ok {
		return nil, false
	}

	rec.mu.Lock()
	changed := !containsString(rec.msg.ReadBy, username)
	if changed {
		rec.msg.ReadBy = append(rec.msg.ReadBy, username)
	}
	snap := rec.msg.Clone()
	rec.mu.Unlock()

	return snap, changed
}

// AddReaction adds username under the emoji's user set, creating the
// entry if absent. Idempotent per (message, emoji, username): re-adding
// is a no-op, never a duplicate. Unknown message IDs return (nil, false).
func (s *Store) AddReaction(messageID int64, emoji, username string) (*models.Message, bool) {
	rec, ok := s.lookup(messageID)
	if !ok {
		return nil, false
	}

	rec.mu.Lock()
	if rec.msg.Reactions == nil {
		rec.msg.Reactions = make(map[string][]string)
	}
	changed := !containsString(rec.msg.Reactions[emoji], username)
	if changed {
		rec.msg.Reactions[emoji] = append(rec.msg.Reactions[emoji], username)
	}
	snap := rec.msg.Clone()
	rec.mu.Unlock()

	return snap, changed
}

// Get returns a snapshot of one message.
func (s *Store) Get(messageID int64) (*models.Message, bool) {
	rec, ok := s.lookup(messageID)
	if !ok {
		return nil, false
	}
	return rec.snapshot(), true
}

// Recent returns snapshots of the last limit messages in the scope, in
// append order. limit <= 0 means all of them.
func (s *Store) Recent(scope models.Scope, limit int) []*models.Message {
	s.mu.Lock()
	recs := s.byScope[scope.Key()]
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	recs = append([]*record(nil), recs...)
	s.mu.Unlock()

	out := make([]*models.Message, len(recs))
	for i, rec := range recs {
		out[i] = rec.snapshot()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
