package realtime

import "testing"

func TestRegistryRegisterAndQuery(t *testing.T) {
	r := NewRegistry()

	if r.IsOnline("u1") {
		t.Error("user should not be online before any registration")
	}

	r.Register("u1", "c1")

	if !r.IsOnline("u1") {
		t.Error("user should be online after registering a connection")
	}

	conns := r.ConnectionsOf("u1")
	if len(conns) != 1 {
		t.Errorf("expected 1 connection, got %d", len(conns))
	}
	if _, ok := conns["c1"]; !ok {
		t.Error("expected connection c1 to be present")
	}
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "c1")
	r.Register("u1", "c1")

	if got := len(r.ConnectionsOf("u1")); got != 1 {
		t.Errorf("duplicate registration should not grow the set, got %d connections", got)
	}
}

func TestRegistryUnregisterRemovesEmptyEntry(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "c1")
	r.Register("u1", "c2")

	r.Unregister("u1", "c1")
	if !r.IsOnline("u1") {
		t.Error("user should stay online while another connection remains")
	}

	r.Unregister("u1", "c2")
	if r.IsOnline("u1") {
		t.Error("user should be offline after the last connection is removed")
	}

	// The drained entry must be gone entirely, not left as an empty set.
	if _, exists := r.users["u1"]; exists {
		t.Error("drained user entry should be deleted from the map")
	}
}

func TestRegistryUnregisterUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()

	r.Unregister("ghost", "c1")

	r.Register("u1", "c1")
	r.Unregister("u1", "never-registered")
	if !r.IsOnline("u1") {
		t.Error("unregistering an unknown connection must not affect the user")
	}
}

func TestRegistryConnectionsOfReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")

	snapshot := r.ConnectionsOf("u1")
	delete(snapshot, "c1")
	snapshot["intruder"] = struct{}{}

	conns := r.ConnectionsOf("u1")
	if _, ok := conns["c1"]; !ok {
		t.Error("mutating a snapshot must not remove registry state")
	}
	if _, ok := conns["intruder"]; ok {
		t.Error("mutating a snapshot must not add registry state")
	}
}

func TestRegistryOnlineUsers(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")
	r.Register("u2", "c2")
	r.Unregister("u2", "c2")

	users := r.OnlineUsers()
	if len(users) != 1 || users[0] != "u1" {
		t.Errorf("expected only u1 online, got %v", users)
	}
}
