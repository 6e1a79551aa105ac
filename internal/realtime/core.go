package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

// Conn is the transport-facing side of one realtime connection. Send must
// never block: implementations queue into a buffered channel (or record in
// memory, for tests) and report an error only when the connection is dead.
type Conn interface {
	ID() ConnectionID
	Send(e Event) error
}

// ClientEventHandler processes one inbound client event. Raw payload bytes
// are passed through; each handler owns its own decoding.
type ClientEventHandler func(ctx context.Context, conn Conn, user UserID, raw json.RawMessage) error

// PresenceSink mirrors confirmed presence transitions into an external
// store (the Redis online set). Best-effort: failures are logged, never
// escalated, and the sink is never read back by the Core.
type PresenceSink interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// RemotePublisher forwards an emitted event to other service instances.
// Wired by the bridge; nil in a single-instance deployment.
type RemotePublisher interface {
	PublishRemote(room RoomTopic, e Event)
	PublishRemoteAll(e Event)
}

// Core owns all realtime state: the connection registry, the room tables
// and the delivery table. One mutex guards all three, because presence
// computation and disconnect cleanup span them. Nothing here is package
// level; tests build as many independent Cores as they need.
type Core struct {
	mu       sync.Mutex
	registry *Registry
	rooms    *RoomRouter
	conns    map[ConnectionID]Conn

	handlerMu sync.RWMutex
	handlers  map[string]ClientEventHandler

	presence PresenceSink
	remote   RemotePublisher
	now      func() time.Time
	logger   *slog.Logger
}

// CoreOption configures a Core at construction.
type CoreOption func(*Core)

// WithPresenceSink mirrors presence transitions into an external store.
func WithPresenceSink(sink PresenceSink) CoreOption {
	return func(c *Core) { c.presence = sink }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) CoreOption {
	return func(c *Core) { c.now = now }
}

func WithLogger(logger *slog.Logger) CoreOption {
	return func(c *Core) { c.logger = logger }
}

func NewCore(opts ...CoreOption) *Core {
	c := &Core{
		registry: NewRegistry(),
		rooms:    NewRoomRouter(),
		conns:    make(map[ConnectionID]Conn),
		handlers: make(map[string]ClientEventHandler),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registerBuiltinHandlers()
	return c
}

// SetRemote attaches the cross-instance publisher. Called once during
// startup, before any connection is accepted.
func (c *Core) SetRemote(r RemotePublisher) {
	c.remote = r
}

// OnConnect registers a new connection, joins the user's inbox room and
// broadcasts user_online when this is the user's first live connection.
//
// The online check runs before registration: registering first would make
// the user look already-online and the transition would never fire.
func (c *Core) OnConnect(user UserID, conn Conn) {
	online, first := c.attach(user, conn)

	c.logger.Info("realtime connection opened",
		"userID", user, "connID", conn.ID(), "firstConnection", first)

	if first {
		if c.remote != nil {
			c.remote.PublishRemoteAll(online)
		}
		c.mirrorPresence(user, true)
	}
}

func (c *Core) attach(user UserID, conn Conn) (UserOnline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasOnline := c.registry.IsOnline(user)
	c.registry.Register(user, conn.ID())
	c.conns[conn.ID()] = conn
	c.rooms.Join(UserRoom(user), conn.ID())
	if wasOnline {
		return UserOnline{}, false
	}
	online := UserOnline{UserID: string(user), Timestamp: c.now()}
	c.emitLocalAllLocked(online)
	return online, true
}

// OnDisconnect tears down a connection: every room membership goes first,
// then the registry entry, then the delivery table slot. user_offline is
// broadcast only when the user's last connection is gone — a user with a
// second device open stays online.
func (c *Core) OnDisconnect(user UserID, connID ConnectionID) {
	offline, last := c.detach(user, connID)

	c.logger.Info("realtime connection closed",
		"userID", user, "connID", connID, "lastConnection", last)

	if last {
		if c.remote != nil {
			c.remote.PublishRemoteAll(offline)
		}
		c.mirrorPresence(user, false)
	}
}

func (c *Core) detach(user UserID, connID ConnectionID) (UserOffline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.LeaveAll(connID)
	c.registry.Unregister(user, connID)
	delete(c.conns, connID)
	if c.registry.IsOnline(user) {
		return UserOffline{}, false
	}
	offline := UserOffline{UserID: string(user), Timestamp: c.now()}
	c.emitLocalAllLocked(offline)
	return offline, true
}

// RegisterHandler installs a handler for an inbound client event name,
// replacing any previous one.
func (c *Core) RegisterHandler(name string, h ClientEventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handlers[name] = h
}

// HandleClientEvent dispatches one inbound client event. Unknown names and
// handler failures are reported back to the caller (the transport layer
// replies with an error frame); neither disturbs connection state.
func (c *Core) HandleClientEvent(ctx context.Context, conn Conn, user UserID, name string, raw json.RawMessage) error {
	c.handlerMu.RLock()
	h, ok := c.handlers[name]
	c.handlerMu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler for client event %q", name)
	}
	return h(ctx, conn, user, raw)
}

// BroadcastWishUpdate delivers a wish_updated event to every connection
// subscribed to the wish's room. Called by the wish service after a
// successful mutation.
func (c *Core) BroadcastWishUpdate(wishID string, update WishUpdate) {
	update.WishID = wishID
	c.emitToRoom(WishRoom(wishID), update)
}

// BroadcastWishDeleted tells the wish's subscribers the wish is gone.
func (c *Core) BroadcastWishDeleted(wishID string) {
	c.emitToRoom(WishRoom(wishID), WishDeleted{WishID: wishID})
}

// NotifyWishInteraction delivers a wish_interaction event to the wish's room.
func (c *Core) NotifyWishInteraction(wishID string, interaction Interaction) {
	c.emitToRoom(WishRoom(wishID), WishInteractionEvent{
		WishID:      wishID,
		Interaction: interaction,
	})
}

// SendDirectMessage delivers an event to every connection the user holds,
// via their inbox room.
func (c *Core) SendDirectMessage(user UserID, e Event) {
	c.emitToRoom(UserRoom(user), e)
}

// BroadcastToAll delivers an event to every registered connection.
func (c *Core) BroadcastToAll(e Event) {
	c.broadcastLocalAll(e)
	if c.remote != nil {
		c.remote.PublishRemoteAll(e)
	}
}

// JoinWishRoom subscribes a connection to a wish's update stream.
func (c *Core) JoinWishRoom(connID ConnectionID, wishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.Join(WishRoom(wishID), connID)
}

// LeaveWishRoom unsubscribes a connection from a wish's update stream.
func (c *Core) LeaveWishRoom(connID ConnectionID, wishID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.Leave(WishRoom(wishID), connID)
}

// IsOnline reports whether the user holds at least one live connection.
func (c *Core) IsOnline(user UserID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.IsOnline(user)
}

// OnlineUsers returns a snapshot of every currently-online user.
func (c *Core) OnlineUsers() []UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.OnlineUsers()
}

// ConnectionCount returns the number of live connections.
func (c *Core) ConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// deliverRemote fans out an event received from another instance to local
// rooms only. It must never republish, or two instances would bounce the
// same event between each other forever.
func (c *Core) deliverRemote(room RoomTopic, e Event) {
	c.emitLocalRoom(room, e)
}

func (c *Core) deliverRemoteAll(e Event) {
	c.broadcastLocalAll(e)
}

// emitToRoom fans an event out to the room's current members. Delivery is
// fire-and-forget per connection: a dead peer is logged and skipped, and
// never blocks or fails delivery to the rest.
func (c *Core) emitToRoom(room RoomTopic, e Event) {
	c.emitLocalRoom(room, e)
	if c.remote != nil {
		c.remote.PublishRemote(room, e)
	}
}

func (c *Core) emitLocalRoom(room RoomTopic, e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendToLocked(c.rooms.Members(room), e)
}

func (c *Core) broadcastLocalAll(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocalAllLocked(e)
}

func (c *Core) emitLocalAllLocked(e Event) {
	for _, conn := range c.conns {
		if err := conn.Send(e); err != nil {
			c.logger.Debug("dropping event for dead connection",
				"connID", conn.ID(), "event", e.EventName(), "error", err)
		}
	}
}

func (c *Core) sendToLocked(members []ConnectionID, e Event) {
	for _, id := range members {
		conn, ok := c.conns[id]
		if !ok {
			continue
		}
		if err := conn.Send(e); err != nil {
			c.logger.Debug("dropping event for dead connection",
				"connID", id, "event", e.EventName(), "error", err)
		}
	}
}

func (c *Core) mirrorPresence(user UserID, online bool) {
	if c.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var err error
	if online {
		err = c.presence.SetUserOnline(ctx, string(user))
	} else {
		err = c.presence.SetUserOffline(ctx, string(user))
	}
	if err != nil {
		c.logger.Error("failed to mirror presence", "userID", user, "online", online, "error", err)
	}
}

// registerBuiltinHandlers wires the client events the core understands out
// of the box: wish room subscription management and interaction relay.
func (c *Core) registerBuiltinHandlers() {
	c.RegisterHandler(ClientEventWishSubscribe, func(ctx context.Context, conn Conn, user UserID, raw json.RawMessage) error {
		var req struct {
			WishID string `json:"wishId"`
		}
		if err := json.Unmarshal(raw, &req); err != nil || req.WishID == "" {
			return fmt.Errorf("wish_subscribe requires a wishId")
		}
		c.JoinWishRoom(conn.ID(), req.WishID)
		return nil
	})

	c.RegisterHandler(ClientEventWishUnsubscribe, func(ctx context.Context, conn Conn, user UserID, raw json.RawMessage) error {
		var req struct {
			WishID string `json:"wishId"`
		}
		if err := json.Unmarshal(raw, &req); err != nil || req.WishID == "" {
			return fmt.Errorf("wish_unsubscribe requires a wishId")
		}
		c.LeaveWishRoom(conn.ID(), req.WishID)
		return nil
	})

	c.RegisterHandler(ClientEventWishInteraction, func(ctx context.Context, conn Conn, user UserID, raw json.RawMessage) error {
		var req struct {
			WishID      string      `json:"wishId"`
			Interaction Interaction `json:"interaction"`
		}
		if err := json.Unmarshal(raw, &req); err != nil || req.WishID == "" {
			return fmt.Errorf("wish_interaction requires a wishId and interaction")
		}
		// The sender identity comes from the authenticated connection, not
		// from the payload.
		req.Interaction.UserID = string(user)
		if req.Interaction.Timestamp.IsZero() {
			req.Interaction.Timestamp = c.now()
		}
		c.NotifyWishInteraction(req.WishID, req.Interaction)
		return nil
	})
}
