package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/history"
	"realtime-chat/internal/models"
)

// Tests drive the hub through Dispatch directly and read fan-out off the
// clients' send queues; no pumps, no sockets.

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	registry := chat.NewRegistry()
	rooms := chat.NewDirectory("General")
	store := chat.NewStore()
	typing := chat.NewTypingTracker(time.Second)
	t.Cleanup(typing.Stop)
	return NewHub(registry, rooms, store, typing, history.Nop{}, 50)
}

func connect(t *testing.T, h *Hub, username string) *Client {
	t.Helper()
	c := NewClient(h, nil)
	if err := h.Dispatch(c, Intent{Type: IntentRegister, Username: username}); err != nil {
		t.Fatalf("register %q: %v", username, err)
	}
	return c
}

func pending(t *testing.T, c *Client) []models.Event {
	t.Helper()
	var out []models.Event
	for {
		select {
		case data := <-c.send:
			var ev models.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("undecodable event: %v", err)
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfType(events []models.Event, typ models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func drain(t *testing.T, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		pending(t, c)
	}
}

func TestRegisterAssignsIdentity(t *testing.T) {
	h := newTestHub(t)
	c := connect(t, h, "alice")

	events := pending(t, c)
	identified := eventsOfType(events, models.EventIdentified)
	if len(identified) != 1 {
		t.Fatalf("expected one identified event, got %d", len(identified))
	}
	if identified[0].Identity.Username != "alice" || identified[0].Identity.ID == "" {
		t.Fatalf("bad identity: %+v", identified[0].Identity)
	}
	if len(eventsOfType(events, models.EventRosterUpdate)) != 1 {
		t.Fatal("registration should push the roster")
	}
}

func TestRegisterDuplicateUsernames(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "alice")

	if a.identity.ID == b.identity.ID {
		t.Fatal("two connections claiming the same username must get distinct IDs")
	}
}

func TestRegisterTwiceIsNoOp(t *testing.T) {
	h := newTestHub(t)
	c := connect(t, h, "alice")
	ident := c.identity
	drain(t, c)

	if err := h.Dispatch(c, Intent{Type: IntentRegister, Username: "other"}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if c.identity != ident {
		t.Fatal("re-registering must not replace the identity")
	}
	if events := pending(t, c); len(events) != 0 {
		t.Fatalf("re-registering must not emit events, got %d", len(events))
	}
}

func TestDispatchRequiresIdentity(t *testing.T) {
	h := newTestHub(t)
	c := NewClient(h, nil)

	for _, typ := range []IntentType{IntentJoinRoom, IntentSendMessage, IntentSendPrivate, IntentSetTyping, IntentMarkRead, IntentAddReaction} {
		if err := h.Dispatch(c, Intent{Type: typ, Room: "General", Text: "x"}); err == nil {
			t.Fatalf("%s before registration should fail", typ)
		}
	}
}

func TestDispatchRejectsUnknownIntent(t *testing.T) {
	h := newTestHub(t)
	c := connect(t, h, "alice")
	if err := h.Dispatch(c, Intent{Type: "self_destruct"}); err == nil {
		t.Fatal("unknown intent type should be rejected")
	}
}

func TestRoomMessageScenario(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")

	if err := h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	drain(t, a, b)

	if err := h.Dispatch(a, Intent{Type: IntentSendMessage, Room: "General", Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, c := range []*Client{a, b} {
		got := eventsOfType(pending(t, c), models.EventNewMessage)
		if len(got) != 1 {
			t.Fatalf("%s expected one new_message, got %d", c.identity.Username, len(got))
		}
		msg := got[0].Message
		if msg.Sender != "alice" || msg.Text != "hi" || msg.Scope.Room != "General" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
}

func TestMarkReadScenario(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a, b)

	h.Dispatch(a, Intent{Type: IntentSendMessage, Room: "General", Text: "hi"})
	aEvents := pending(t, a)
	msgID := eventsOfType(aEvents, models.EventNewMessage)[0].Message.ID
	drain(t, b)

	if err := h.Dispatch(b, Intent{Type: IntentMarkRead, MessageID: msgID}); err != nil {
		t.Fatalf("mark_read: %v", err)
	}

	for _, c := range []*Client{a, b} {
		updates := eventsOfType(pending(t, c), models.EventMessageUpdated)
		if len(updates) != 1 {
			t.Fatalf("%s expected one message_updated, got %d", c.identity.Username, len(updates))
		}
		readBy := updates[0].Message.ReadBy
		if len(readBy) != 1 || readBy[0] != "bob" {
			t.Fatalf("expected readBy=[bob], got %v", readBy)
		}
	}

	// A second identical receipt changes nothing and emits nothing.
	h.Dispatch(b, Intent{Type: IntentMarkRead, MessageID: msgID})
	if got := eventsOfType(pending(t, a), models.EventMessageUpdated); len(got) != 0 {
		t.Fatalf("duplicate receipt must not rebroadcast, got %d events", len(got))
	}
}

func TestMarkReadUnknownMessageIsSoft(t *testing.T) {
	h := newTestHub(t)
	c := connect(t, h, "alice")
	drain(t, c)

	if err := h.Dispatch(c, Intent{Type: IntentMarkRead, MessageID: 9999}); err != nil {
		t.Fatalf("unknown message must not error: %v", err)
	}
	if events := pending(t, c); len(events) != 0 {
		t.Fatalf("unknown message must not emit events, got %d", len(events))
	}
}

func TestReactionIdempotentAtFanOut(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a)

	h.Dispatch(a, Intent{Type: IntentSendMessage, Room: "General", Text: "hi"})
	msgID := eventsOfType(pending(t, a), models.EventNewMessage)[0].Message.ID

	h.Dispatch(a, Intent{Type: IntentAddReaction, MessageID: msgID, Emoji: "🎉"})
	first := eventsOfType(pending(t, a), models.EventMessageUpdated)
	if len(first) != 1 {
		t.Fatalf("expected one update, got %d", len(first))
	}
	if got := first[0].Message.Reactions["🎉"]; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected reactions: %v", first[0].Message.Reactions)
	}

	h.Dispatch(a, Intent{Type: IntentAddReaction, MessageID: msgID, Emoji: "🎉"})
	if again := eventsOfType(pending(t, a), models.EventMessageUpdated); len(again) != 0 {
		t.Fatal("re-adding the same reaction must not rebroadcast")
	}
}

func TestPrivateMessageDelivery(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	drain(t, a, b)

	if err := h.Dispatch(a, Intent{Type: IntentSendPrivate, To: b.identity.ID, Text: "psst"}); err != nil {
		t.Fatalf("private send: %v", err)
	}

	for _, c := range []*Client{a, b} {
		got := eventsOfType(pending(t, c), models.EventNewMessage)
		if len(got) != 1 {
			t.Fatalf("%s expected echo/delivery, got %d events", c.identity.Username, len(got))
		}
		if !got[0].Message.IsPrivate() {
			t.Fatal("message should carry the private scope")
		}
	}
}

func TestPrivateMessageToDisconnectedRecipient(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	bID := b.identity.ID
	h.Disconnect(b)
	drain(t, a)

	if err := h.Dispatch(a, Intent{Type: IntentSendPrivate, To: bID, Text: "you there?"}); err != nil {
		t.Fatalf("send to disconnected: %v", err)
	}

	// Sender still gets the echo; the message is recorded for history.
	if got := eventsOfType(pending(t, a), models.EventNewMessage); len(got) != 1 {
		t.Fatalf("sender echo missing, got %d events", len(got))
	}
	recorded := h.store.Recent(models.PrivateScope(a.identity.ID, bID), 0)
	if len(recorded) != 1 || recorded[0].Text != "you there?" {
		t.Fatal("message to a disconnected recipient must still be recorded")
	}
}

func TestRoomMessageDeliversToMembersAtAppendTime(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "Games"})
	drain(t, a, b)

	h.Dispatch(a, Intent{Type: IntentSendMessage, Room: "General", Text: "before"})
	if got := eventsOfType(pending(t, b), models.EventNewMessage); len(got) != 0 {
		t.Fatal("non-member must not receive room messages")
	}

	// Joining later brings the message via history, never as new_message.
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"})
	events := pending(t, b)
	if got := eventsOfType(events, models.EventNewMessage); len(got) != 0 {
		t.Fatal("late joiner must not get a new_message for old traffic")
	}
	hist := eventsOfType(events, models.EventHistory)
	if len(hist) != 1 || len(hist[0].Messages) != 1 || hist[0].Messages[0].Text != "before" {
		t.Fatalf("expected history replay with the old message, got %+v", hist)
	}
}

func TestJoinSameRoomIsNoOp(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a)

	if err := h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if events := pending(t, a); len(events) != 0 {
		t.Fatalf("rejoining the same room must emit nothing, got %d events", len(events))
	}
}

func TestJoinSwitchesRoomAndNotifiesVacated(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a, b)

	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "Games"})

	if room := h.rooms.RoomOf(a.identity.ID); room != "Games" {
		t.Fatalf("expected alice in Games, got %q", room)
	}
	bEvents := pending(t, b)
	rosters := eventsOfType(bEvents, models.EventRoomRoster)
	if len(rosters) != 1 || rosters[0].Count != 1 {
		t.Fatalf("vacated room should see a shrunken roster, got %+v", rosters)
	}
	if len(eventsOfType(bEvents, models.EventSystem)) != 1 {
		t.Fatal("vacated room should see a leave notice")
	}
}

func TestTypingFanOutExcludesSelf(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a, b)

	h.Dispatch(a, Intent{Type: IntentSetTyping, Typing: true})

	aTyping := eventsOfType(pending(t, a), models.EventTypingUpdate)
	if len(aTyping) != 1 || len(aTyping[0].Typists) != 0 {
		t.Fatalf("typist must not see themselves, got %+v", aTyping)
	}
	bTyping := eventsOfType(pending(t, b), models.EventTypingUpdate)
	if len(bTyping) != 1 || len(bTyping[0].Typists) != 1 || bTyping[0].Typists[0] != "alice" {
		t.Fatalf("expected bob to see [alice], got %+v", bTyping)
	}
}

func TestValidationFailuresStayLocal(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	b := connect(t, h, "bob")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(b, Intent{Type: IntentJoinRoom, Room: "General"})
	drain(t, a, b)

	tests := []struct {
		name   string
		intent Intent
	}{
		{"empty message", Intent{Type: IntentSendMessage, Room: "General", Text: "   "}},
		{"empty room name", Intent{Type: IntentJoinRoom, Room: "  "}},
		{"private without recipient", Intent{Type: IntentSendPrivate, Text: "hi"}},
		{"reaction without emoji", Intent{Type: IntentAddReaction, MessageID: 1, Emoji: " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.Dispatch(a, tt.intent); err == nil {
				t.Fatal("expected a validation error")
			}
			if events := pending(t, b); len(events) != 0 {
				t.Fatalf("validation failure leaked %d events to another connection", len(events))
			}
		})
	}
}

func TestCreateRoomEmptyNameIsNoOp(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	drain(t, a)

	if err := h.Dispatch(a, Intent{Type: IntentCreateRoom, Room: "   "}); err != nil {
		t.Fatalf("empty create must be a silent no-op, got %v", err)
	}
	if got := len(h.rooms.ListRooms()); got != 1 {
		t.Fatalf("expected only the seeded room, got %d", got)
	}
	if events := pending(t, a); len(events) != 0 {
		t.Fatal("no-op create must not broadcast")
	}

	if err := h.Dispatch(a, Intent{Type: IntentCreateRoom, Room: "Lounge"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	created := eventsOfType(pending(t, a), models.EventRoomCreated)
	if len(created) != 1 || created[0].Room != "Lounge" {
		t.Fatalf("expected room_created for Lounge, got %+v", created)
	}
	if members := h.rooms.Members("Lounge"); len(members) != 0 {
		t.Fatal("create must not auto-join the creator")
	}
}

func TestDisconnectCleanupExactlyOnce(t *testing.T) {
	h := newTestHub(t)
	a := connect(t, h, "alice")
	observer := connect(t, h, "olga")
	h.Dispatch(a, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(observer, Intent{Type: IntentJoinRoom, Room: "General"})
	h.Dispatch(a, Intent{Type: IntentSetTyping, Typing: true})
	aID := a.identity.ID
	drain(t, a, observer)

	// Teardown raced from several signals must run once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Disconnect(a)
		}()
	}
	wg.Wait()

	if _, ok := h.registry.Get(aID); ok {
		t.Fatal("identity still registered after disconnect")
	}
	if room := h.rooms.RoomOf(aID); room != "" {
		t.Fatalf("identity still in room %q", room)
	}
	if typists := h.typing.Typists(models.RoomScope("General")); len(typists) != 0 {
		t.Fatalf("typing entry survived disconnect: %v", typists)
	}

	events := pending(t, observer)
	if got := eventsOfType(events, models.EventRosterUpdate); len(got) != 1 {
		t.Fatalf("expected exactly one roster update, got %d", len(got))
	}
	if got := eventsOfType(events, models.EventRoomRoster); len(got) != 1 {
		t.Fatalf("expected exactly one room roster update, got %d", len(got))
	}
	if got := eventsOfType(events, models.EventTypingUpdate); len(got) != 1 {
		t.Fatalf("expected exactly one typing update, got %d", len(got))
	}
}
