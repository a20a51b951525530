package models

import "time"

type EventType string

const (
	EventIdentified     EventType = "identified"
	EventJoinedRoom     EventType = "joined_room"
	EventRosterUpdate   EventType = "roster_update"
	EventRoomRoster     EventType = "room_roster"
	EventRoomCreated    EventType = "room_created"
	EventNewMessage     EventType = "new_message"
	EventMessageUpdated EventType = "message_updated"
	EventTypingUpdate   EventType = "typing_update"
	EventHistory        EventType = "history"
	EventSystem         EventType = "system"
	EventError          EventType = "error"
)

// Event is the single wire envelope pushed to connections. Type selects
// which of the optional fields are populated.
type Event struct {
	Type      EventType   `json:"type"`
	Identity  *Identity   `json:"identity,omitempty"`
	Room      string      `json:"room,omitempty"`
	Roster    []*Identity `json:"roster,omitempty"`
	Members   []string    `json:"members,omitempty"`
	Count     int         `json:"count,omitempty"`
	Message   *Message    `json:"message,omitempty"`
	Messages  []*Message  `json:"messages,omitempty"`
	Scope     *Scope      `json:"scope,omitempty"`
	Typists   []string    `json:"typists,omitempty"`
	Text      string      `json:"text,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
