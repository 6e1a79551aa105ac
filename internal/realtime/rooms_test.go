package realtime

import "testing"

func TestRoomTopicConstructors(t *testing.T) {
	if got := WishRoom("42"); got != "wish:42" {
		t.Errorf("expected wish:42, got %s", got)
	}
	if got := UserRoom("u7"); got != "user:u7" {
		t.Errorf("expected user:u7, got %s", got)
	}

	id, ok := WishRoom("42").WishID()
	if !ok || id != "42" {
		t.Errorf("expected wish id 42, got %q (ok=%v)", id, ok)
	}
	if _, ok := UserRoom("u7").WishID(); ok {
		t.Error("user room must not parse as a wish room")
	}
}

func TestRoomRouterJoinLeave(t *testing.T) {
	rr := NewRoomRouter()

	rr.Join("wish:1", "c1")
	rr.Join("wish:1", "c1") // idempotent
	rr.Join("wish:1", "c2")

	if got := len(rr.Members("wish:1")); got != 2 {
		t.Errorf("expected 2 members, got %d", got)
	}

	rr.Leave("wish:1", "c1")
	if rr.Contains("wish:1", "c1") {
		t.Error("c1 should be gone after leave")
	}
	if !rr.Contains("wish:1", "c2") {
		t.Error("c2 should remain after c1 leaves")
	}

	// Leaving an unknown room or connection is a no-op.
	rr.Leave("wish:404", "c2")
	rr.Leave("wish:1", "never-joined")
	if !rr.Contains("wish:1", "c2") {
		t.Error("no-op leaves must not disturb membership")
	}
}

func TestRoomRouterLeaveAll(t *testing.T) {
	rr := NewRoomRouter()

	rr.Join("wish:1", "c1")
	rr.Join("wish:2", "c1")
	rr.Join("user:u1", "c1")
	rr.Join("wish:1", "c2")

	rr.LeaveAll("c1")

	for _, room := range []RoomTopic{"wish:1", "wish:2", "user:u1"} {
		if rr.Contains(room, "c1") {
			t.Errorf("c1 should have left %s", room)
		}
	}
	if !rr.Contains("wish:1", "c2") {
		t.Error("LeaveAll for c1 must not evict c2")
	}

	// Drained rooms are removed, and the reverse index is cleared.
	if _, exists := rr.rooms["wish:2"]; exists {
		t.Error("empty room entry should be deleted")
	}
	if _, exists := rr.joined["c1"]; exists {
		t.Error("reverse index entry should be deleted")
	}
}

func TestRoomRouterMembersSnapshot(t *testing.T) {
	rr := NewRoomRouter()
	rr.Join("wish:1", "c1")

	members := rr.Members("wish:1")
	members[0] = "tampered"

	if !rr.Contains("wish:1", "c1") {
		t.Error("mutating the members snapshot must not affect the router")
	}
}
