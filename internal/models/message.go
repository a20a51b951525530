package models

import "time"

// FileInfo describes an uploaded file. The chat engine only relays this
// descriptor; the bytes live with the file-storage service behind the URL.
type FileInfo struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Message is one entry in the append-only log. ID is a process-wide
// sequence number assigned at append time; delivery order within a scope
// follows ID order. Sender and the payload fields are immutable after
// creation; only ReadBy and Reactions change, and the store hands out
// snapshot copies so callers never see a half-applied update.
type Message struct {
	ID        int64               `json:"id"`
	SenderID  string              `json:"sender_id"`
	Sender    string              `json:"sender"` // username snapshot at send time
	Scope     Scope               `json:"scope"`
	Text      string              `json:"text,omitempty"`
	File      *FileInfo           `json:"file,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
	ReadBy    []string            `json:"read_by"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// IsPrivate reports whether the message belongs to a private pair.
func (m *Message) IsPrivate() bool {
	return m.Scope.Kind == ScopePrivate
}

// Clone returns a deep copy safe to hand across goroutines.
func (m *Message) Clone() *Message {
	cp := *m
	cp.ReadBy = append([]string(nil), m.ReadBy...)
	if m.Reactions != nil {
		cp.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			cp.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	if m.File != nil {
		f := *m.File
		cp.File = &f
	}
	return &cp
}
