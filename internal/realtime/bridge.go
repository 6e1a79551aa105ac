package realtime

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// bridgeChannel is the Redis pub/sub channel every instance shares.
const bridgeChannel = "realtime:events"

// bridgeMessage is the cross-instance wire format. Origin carries the
// publishing instance's id so an instance can skip its own messages: the
// publisher has already delivered locally, and redelivering would bounce
// events between instances forever.
type bridgeMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"` // empty means broadcast-to-all
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Bridge fans emitted events out to other service instances over Redis
// pub/sub, so a client connected to instance A still receives a wish
// update triggered on instance B. Optional; a single-instance deployment
// runs without one.
type Bridge struct {
	core       *Core
	rdb        *redis.Client
	instanceID string
	logger     *slog.Logger
}

func NewBridge(core *Core, rdb *redis.Client, logger *slog.Logger) *Bridge {
	b := &Bridge{
		core:       core,
		rdb:        rdb,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
	core.SetRemote(b)
	return b
}

// Run subscribes to the shared channel and replays remote events into the
// local Core until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	b.logger.Info("realtime bridge started", "instanceID", b.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				b.logger.Info("realtime bridge channel closed")
				return
			}
			b.handleMessage(msg.Payload)
		case <-ctx.Done():
			b.logger.Info("realtime bridge shutting down")
			return
		}
	}
}

func (b *Bridge) handleMessage(payload string) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Error("failed to unmarshal bridge message", "error", err)
		return
	}
	if msg.Origin == b.instanceID {
		return
	}

	e, err := DecodeEvent(msg.Event, msg.Data)
	if err != nil {
		b.logger.Error("failed to decode bridge event", "event", msg.Event, "error", err)
		return
	}

	if msg.Room == "" {
		b.core.deliverRemoteAll(e)
		return
	}
	b.core.deliverRemote(RoomTopic(msg.Room), e)
}

// PublishRemote implements RemotePublisher. Best-effort: a publish failure
// is logged and local delivery stands.
func (b *Bridge) PublishRemote(room RoomTopic, e Event) {
	b.publish(string(room), e)
}

// PublishRemoteAll implements RemotePublisher for global broadcasts.
func (b *Bridge) PublishRemoteAll(e Event) {
	b.publish("", e)
}

func (b *Bridge) publish(room string, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("failed to marshal bridge event", "event", e.EventName(), "error", err)
		return
	}
	msg := bridgeMessage{
		Origin: b.instanceID,
		Room:   room,
		Event:  e.EventName(),
		Data:   data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal bridge message", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := b.rdb.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		b.logger.Error("failed to publish bridge message", "event", e.EventName(), "error", err)
	}
}
