package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// Scenario: user connects with two devices; presence events must fire only
// on the true 0→1 and N→0 transitions, never on intermediate ones.
func TestPresenceTransitionsMultiDevice(t *testing.T) {
	core := createTestCore()

	observer := newFakeConn("observer")
	core.OnConnect("watcher", observer)
	baseOnline := observer.countByName(EventUserOnline)

	c1 := newFakeConn("c1")
	core.OnConnect("u1", c1)
	if got := observer.countByName(EventUserOnline) - baseOnline; got != 1 {
		t.Errorf("expected exactly one user_online after first connection, got %d", got)
	}

	c2 := newFakeConn("c2")
	core.OnConnect("u1", c2)
	if got := observer.countByName(EventUserOnline) - baseOnline; got != 1 {
		t.Errorf("second device must not re-announce online, got %d events", got)
	}

	core.OnDisconnect("u1", c1.ID())
	if got := observer.countByName(EventUserOffline); got != 0 {
		t.Errorf("user still has a live device, got %d user_offline events", got)
	}
	if !core.IsOnline("u1") {
		t.Error("user should still be online with one device remaining")
	}

	core.OnDisconnect("u1", c2.ID())
	if got := observer.countByName(EventUserOffline); got != 1 {
		t.Errorf("expected exactly one user_offline after last disconnect, got %d", got)
	}
	if core.IsOnline("u1") {
		t.Error("user should be offline after last disconnect")
	}
}

func TestPresenceEventPayload(t *testing.T) {
	core := createTestCore()

	observer := newFakeConn("observer")
	core.OnConnect("watcher", observer)
	before := len(observer.received())

	core.OnConnect("u1", newFakeConn("c1"))

	var found bool
	for _, e := range observer.received()[before:] {
		if on, ok := e.(UserOnline); ok {
			found = true
			if on.UserID != "u1" {
				t.Errorf("expected userId u1, got %s", on.UserID)
			}
			if on.Timestamp.IsZero() {
				t.Error("presence event must carry a timestamp")
			}
		}
	}
	if !found {
		t.Fatal("observer never received user_online")
	}
}

// Scenario: wish updates reach exactly the subscribers of that wish's room.
func TestBroadcastWishUpdateRoomScoped(t *testing.T) {
	core := createTestCore()

	subscriber := newFakeConn("sub")
	bystander := newFakeConn("other")
	core.OnConnect("u1", subscriber)
	core.OnConnect("u2", bystander)

	core.JoinWishRoom(subscriber.ID(), "42")

	core.BroadcastWishUpdate("42", WishUpdate{Energy: 5})
	core.BroadcastWishUpdate("99", WishUpdate{Energy: 1})

	if got := subscriber.countByName(EventWishUpdated); got != 1 {
		t.Fatalf("subscriber should receive exactly the wish:42 update, got %d", got)
	}
	if got := bystander.countByName(EventWishUpdated); got != 0 {
		t.Errorf("bystander is in no wish room, got %d updates", got)
	}

	for _, e := range subscriber.received() {
		if up, ok := e.(WishUpdate); ok {
			if up.WishID != "42" {
				t.Errorf("expected wishId 42 in payload, got %s", up.WishID)
			}
			if up.Energy != 5 {
				t.Errorf("expected energy 5 in payload, got %d", up.Energy)
			}
		}
	}
}

// Scenario: a transport-level disconnect must tear down room membership by
// itself; no explicit leave call arrives from the client.
func TestDisconnectLeavesAllRooms(t *testing.T) {
	core := createTestCore()

	conn := newFakeConn("c1")
	core.OnConnect("u1", conn)
	core.JoinWishRoom(conn.ID(), "42")
	core.JoinWishRoom(conn.ID(), "43")
	before := len(conn.received())

	core.OnDisconnect("u1", conn.ID())

	core.BroadcastWishUpdate("42", WishUpdate{Energy: 1})
	core.BroadcastWishUpdate("43", WishUpdate{Energy: 1})
	core.SendDirectMessage("u1", SystemNotification{Message: "hello"})

	if got := len(conn.received()) - before; got != 0 {
		t.Errorf("disconnected connection must receive nothing after teardown, got %d events", got)
	}
}

func TestLeaveWishRoomStopsDelivery(t *testing.T) {
	core := createTestCore()

	conn := newFakeConn("c1")
	core.OnConnect("u1", conn)
	core.JoinWishRoom(conn.ID(), "42")
	core.LeaveWishRoom(conn.ID(), "42")

	core.BroadcastWishUpdate("42", WishUpdate{Energy: 5})

	if got := conn.countByName(EventWishUpdated); got != 0 {
		t.Errorf("connection left the room, got %d updates", got)
	}
}

func TestSendDirectMessageReachesAllUserConnections(t *testing.T) {
	core := createTestCore()

	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	other := newFakeConn("c3")
	core.OnConnect("u1", c1)
	core.OnConnect("u1", c2)
	core.OnConnect("u2", other)

	core.SendDirectMessage("u1", EnergyReceived{From: "u2", Amount: 10})

	if got := c1.countByName(EventEnergyReceived); got != 1 {
		t.Errorf("first device should receive the direct message, got %d", got)
	}
	if got := c2.countByName(EventEnergyReceived); got != 1 {
		t.Errorf("second device should receive the direct message, got %d", got)
	}
	if got := other.countByName(EventEnergyReceived); got != 0 {
		t.Errorf("direct message leaked to another user, got %d", got)
	}
}

// A dead connection in a room must not block or fail delivery to the rest.
func TestDeadConnectionDoesNotBlockFanout(t *testing.T) {
	core := createTestCore()

	dead := newFakeConn("dead")
	dead.failing = true
	alive := newFakeConn("alive")
	core.OnConnect("u1", dead)
	core.OnConnect("u2", alive)
	core.JoinWishRoom(dead.ID(), "42")
	core.JoinWishRoom(alive.ID(), "42")

	core.BroadcastWishUpdate("42", WishUpdate{Energy: 5})

	if got := alive.countByName(EventWishUpdated); got != 1 {
		t.Errorf("healthy connection should still receive the update, got %d", got)
	}
}

func TestBroadcastToAll(t *testing.T) {
	core := createTestCore()

	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	core.OnConnect("u1", c1)
	core.OnConnect("u2", c2)

	core.BroadcastToAll(SystemNotification{Message: "maintenance at midnight"})

	for _, conn := range []*fakeConn{c1, c2} {
		if got := conn.countByName(EventSystemNotification); got != 1 {
			t.Errorf("connection %s expected 1 notification, got %d", conn.ID(), got)
		}
	}
}

func TestNotifyWishInteraction(t *testing.T) {
	core := createTestCore()

	conn := newFakeConn("c1")
	core.OnConnect("u1", conn)
	core.JoinWishRoom(conn.ID(), "42")

	core.NotifyWishInteraction("42", Interaction{Type: "like", UserID: "u2", Value: 1})

	events := conn.received()
	var got *WishInteractionEvent
	for _, e := range events {
		if ev, ok := e.(WishInteractionEvent); ok {
			got = &ev
		}
	}
	if got == nil {
		t.Fatal("subscriber never received wish_interaction")
	}
	if got.WishID != "42" || got.Interaction.Type != "like" || got.Interaction.UserID != "u2" {
		t.Errorf("unexpected interaction payload: %+v", got)
	}
}

func TestClientEventWishSubscribeFlow(t *testing.T) {
	core := createTestCore()
	ctx := context.Background()

	conn := newFakeConn("c1")
	core.OnConnect("u1", conn)

	raw := json.RawMessage(`{"wishId":"42"}`)
	if err := core.HandleClientEvent(ctx, conn, "u1", ClientEventWishSubscribe, raw); err != nil {
		t.Fatalf("wish_subscribe failed: %v", err)
	}

	core.BroadcastWishUpdate("42", WishUpdate{Energy: 3})
	if got := conn.countByName(EventWishUpdated); got != 1 {
		t.Errorf("expected update after subscribing, got %d", got)
	}

	if err := core.HandleClientEvent(ctx, conn, "u1", ClientEventWishUnsubscribe, raw); err != nil {
		t.Fatalf("wish_unsubscribe failed: %v", err)
	}
	core.BroadcastWishUpdate("42", WishUpdate{Energy: 4})
	if got := conn.countByName(EventWishUpdated); got != 1 {
		t.Errorf("expected no further updates after unsubscribing, got %d", got)
	}
}

func TestClientEventWishInteractionRelaysToRoom(t *testing.T) {
	core := createTestCore()
	ctx := context.Background()

	sender := newFakeConn("sender")
	listener := newFakeConn("listener")
	core.OnConnect("u1", sender)
	core.OnConnect("u2", listener)
	core.JoinWishRoom(listener.ID(), "42")

	raw := json.RawMessage(`{"wishId":"42","interaction":{"type":"support","userId":"spoofed","value":2}}`)
	if err := core.HandleClientEvent(ctx, sender, "u1", ClientEventWishInteraction, raw); err != nil {
		t.Fatalf("wish_interaction failed: %v", err)
	}

	var relayed []WishInteractionEvent
	for _, e := range listener.received() {
		if ev, ok := e.(WishInteractionEvent); ok {
			relayed = append(relayed, ev)
		}
	}
	if len(relayed) != 1 {
		t.Fatalf("expected 1 wish_interaction at listener, got %d", len(relayed))
	}
	ev := relayed[0]
	// The interaction is attributed to the authenticated sender, never to
	// whatever user id the payload claims.
	if ev.Interaction.UserID != "u1" {
		t.Errorf("expected interaction attributed to u1, got %s", ev.Interaction.UserID)
	}
	if ev.Interaction.Timestamp.IsZero() {
		t.Error("relay must stamp the interaction")
	}
}

func TestHandleClientEventRejections(t *testing.T) {
	core := createTestCore()
	ctx := context.Background()
	conn := newFakeConn("c1")
	core.OnConnect("u1", conn)

	if err := core.HandleClientEvent(ctx, conn, "u1", "no_such_event", nil); err == nil {
		t.Error("unknown client event should be rejected")
	}
	if err := core.HandleClientEvent(ctx, conn, "u1", ClientEventWishSubscribe, json.RawMessage(`{}`)); err == nil {
		t.Error("wish_subscribe without a wishId should be rejected")
	}
	if err := core.HandleClientEvent(ctx, conn, "u1", ClientEventWishSubscribe, json.RawMessage(`not json`)); err == nil {
		t.Error("malformed payload should be rejected")
	}
}

type recordingPresenceSink struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (s *recordingPresenceSink) SetUserOnline(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = append(s.online, userID)
	return nil
}

func (s *recordingPresenceSink) SetUserOffline(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = append(s.offline, userID)
	return nil
}

func TestPresenceSinkSeesOnlyTransitions(t *testing.T) {
	sink := &recordingPresenceSink{}
	core := NewCore(WithPresenceSink(sink), WithLogger(discardLogger()))

	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	core.OnConnect("u1", c1)
	core.OnConnect("u1", c2)
	core.OnDisconnect("u1", c1.ID())
	core.OnDisconnect("u1", c2.ID())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.online) != 1 || sink.online[0] != "u1" {
		t.Errorf("sink should see one online transition, got %v", sink.online)
	}
	if len(sink.offline) != 1 || sink.offline[0] != "u1" {
		t.Errorf("sink should see one offline transition, got %v", sink.offline)
	}
}
