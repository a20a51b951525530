package chat

import "testing"

func TestDirectorySingleRoomMembership(t *testing.T) {
	d := NewDirectory("General")

	rooms := []string{"General", "Games", "Music", "Games"}
	for _, room := range rooms {
		d.Join("conn-1", room)

		occupied := 0
		for _, name := range d.ListRooms() {
			for _, member := range d.Members(name) {
				if member == "conn-1" {
					occupied++
				}
			}
		}
		if occupied != 1 {
			t.Fatalf("after joining %q identity is member of %d rooms", room, occupied)
		}
	}

	if got := d.RoomOf("conn-1"); got != "Games" {
		t.Fatalf("expected final room Games, got %q", got)
	}
}

func TestDirectoryRejoinSameRoomNoOp(t *testing.T) {
	d := NewDirectory()
	if _, changed := d.Join("conn-1", "General"); !changed {
		t.Fatal("first join should change membership")
	}
	prev, changed := d.Join("conn-1", "General")
	if changed {
		t.Fatal("rejoining the same room should be a no-op")
	}
	if prev != "General" {
		t.Fatalf("expected previous room General, got %q", prev)
	}
}

func TestDirectoryJoinReturnsVacatedRoom(t *testing.T) {
	d := NewDirectory()
	d.Join("conn-1", "General")
	prev, changed := d.Join("conn-1", "Games")
	if !changed || prev != "General" {
		t.Fatalf("Join = (%q, %v), want (General, true)", prev, changed)
	}
	if members := d.Members("General"); len(members) != 0 {
		t.Fatalf("vacated room still has members: %v", members)
	}
}

func TestDirectoryCreateRoom(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		created bool
	}{
		{"valid name", "Lounge", true},
		{"duplicate name", "Lounge", false},
		{"empty name", "", false},
		{"whitespace only", "   ", false},
		{"trimmed", "  Arcade  ", true},
	}

	d := NewDirectory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.CreateRoom(tt.input); got != tt.created {
				t.Fatalf("CreateRoom(%q) = %v, want %v", tt.input, got, tt.created)
			}
		})
	}

	names := d.ListRooms()
	if len(names) != 2 || names[0] != "Lounge" || names[1] != "Arcade" {
		t.Fatalf("unexpected room list: %v", names)
	}
}

func TestDirectoryCreateRoomDoesNotJoinCreator(t *testing.T) {
	d := NewDirectory()
	d.CreateRoom("Lounge")
	if members := d.Members("Lounge"); len(members) != 0 {
		t.Fatalf("created room should be empty, has %v", members)
	}
}

func TestDirectoryRoomsNeverDeleted(t *testing.T) {
	d := NewDirectory("General")
	d.Join("conn-1", "Fleeting")
	d.Leave("conn-1")

	if _, ok := d.Room("Fleeting"); !ok {
		t.Fatal("empty room should remain in the directory")
	}
	if got := len(d.ListRooms()); got != 2 {
		t.Fatalf("expected 2 rooms, got %d", got)
	}
}

func TestDirectoryLeaveIdempotent(t *testing.T) {
	d := NewDirectory()
	d.Join("conn-1", "General")

	if vacated := d.Leave("conn-1"); vacated != "General" {
		t.Fatalf("first leave vacated %q, want General", vacated)
	}
	if vacated := d.Leave("conn-1"); vacated != "" {
		t.Fatalf("second leave vacated %q, want empty", vacated)
	}
	if vacated := d.Leave("unknown"); vacated != "" {
		t.Fatalf("leave for unknown identity vacated %q", vacated)
	}
}

func TestDirectoryCaseSensitiveNames(t *testing.T) {
	d := NewDirectory()
	d.CreateRoom("general")
	d.CreateRoom("General")
	if got := len(d.ListRooms()); got != 2 {
		t.Fatalf("expected case-sensitive names to create 2 rooms, got %d", got)
	}
}
