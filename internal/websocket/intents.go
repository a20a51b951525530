package websocket

import "realtime-chat/internal/models"

type IntentType string

// The closed set of intents a connection may send. Dispatch rejects
// anything outside it.
const (
	IntentRegister    IntentType = "register_identity"
	IntentJoinRoom    IntentType = "join_room"
	IntentCreateRoom  IntentType = "create_room"
	IntentSendMessage IntentType = "send_message"
	IntentSendPrivate IntentType = "send_private_message"
	IntentSetTyping   IntentType = "set_typing"
	IntentMarkRead    IntentType = "mark_read"
	IntentAddReaction IntentType = "add_reaction"
)

// Intent is one inbound client frame. Type selects which fields matter;
// unknown fields are ignored.
type Intent struct {
	Type     IntentType       `json:"type"`
	Username string           `json:"username,omitempty"`
	Room     string           `json:"room,omitempty"`
	Text     string           `json:"text,omitempty"`
	File     *models.FileInfo `json:"file,omitempty"`

	// To addresses private sends and private typing signals by the
	// recipient's identity ID.
	To string `json:"to,omitempty"`

	Typing    bool   `json:"typing,omitempty"`
	MessageID int64  `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
}
