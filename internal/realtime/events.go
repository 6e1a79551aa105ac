package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire event names. These are part of the protocol shared with every
// connected client and with other service instances over the bridge,
// so they are a fixed enumeration, never free text.
const (
	EventWishUpdated         = "wish_updated"
	EventWishInteraction     = "wish_interaction"
	EventWishCreated         = "wish_created"
	EventWishDeleted         = "wish_deleted"
	EventUserOnline          = "user_online"
	EventUserOffline         = "user_offline"
	EventEnergyReceived      = "energy_received"
	EventAchievementUnlocked = "achievement_unlocked"
	EventSystemNotification  = "system_notification"
)

// Client-to-server event names handled by the Core's dispatch map.
const (
	ClientEventWishInteraction = "wish_interaction"
	ClientEventWishSubscribe   = "wish_subscribe"
	ClientEventWishUnsubscribe = "wish_unsubscribe"
)

// Event is one outbound realtime payload. The set of implementations is
// closed: one struct per wire event name, so a shape mismatch is a compile
// error rather than a runtime surprise.
type Event interface {
	EventName() string
}

// Interaction mirrors a single interaction on a wish.
type Interaction struct {
	Type      string    `json:"type"` // like, support or energy
	UserID    string    `json:"userId"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// WishUpdate is broadcast to the wish room after a successful mutation.
// WishID is always set by the Core; the remaining fields carry whatever
// changed.
type WishUpdate struct {
	WishID  string `json:"wishId"`
	Content string `json:"content,omitempty"`
	Status  string `json:"status,omitempty"`
	Energy  int    `json:"energy,omitempty"`
}

func (WishUpdate) EventName() string { return EventWishUpdated }

type WishInteractionEvent struct {
	WishID      string      `json:"wishId"`
	Interaction Interaction `json:"interaction"`
}

func (WishInteractionEvent) EventName() string { return EventWishInteraction }

type WishCreated struct {
	WishID     string `json:"wishId"`
	UserID     string `json:"userId"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	Visibility string `json:"visibility"`
}

func (WishCreated) EventName() string { return EventWishCreated }

type WishDeleted struct {
	WishID string `json:"wishId"`
}

func (WishDeleted) EventName() string { return EventWishDeleted }

type UserOnline struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserOnline) EventName() string { return EventUserOnline }

type UserOffline struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserOffline) EventName() string { return EventUserOffline }

type EnergyReceived struct {
	WishID string `json:"wishId,omitempty"`
	From   string `json:"from"`
	Amount int    `json:"amount"`
}

func (EnergyReceived) EventName() string { return EventEnergyReceived }

type AchievementUnlocked struct {
	AchievementID string `json:"achievementId"`
	Name          string `json:"name"`
	Icon          string `json:"icon,omitempty"`
}

func (AchievementUnlocked) EventName() string { return EventAchievementUnlocked }

type SystemNotification struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

func (SystemNotification) EventName() string { return EventSystemNotification }

// Envelope is the frame written to a client connection.
type Envelope struct {
	Event     string `json:"event"`
	Data      Event  `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// DecodeEvent reconstructs a typed event from its wire name and raw JSON
// payload. Used by the bridge when replaying events published by another
// instance. Unknown names are rejected.
func DecodeEvent(name string, raw json.RawMessage) (Event, error) {
	var e Event
	switch name {
	case EventWishUpdated:
		e = &WishUpdate{}
	case EventWishInteraction:
		e = &WishInteractionEvent{}
	case EventWishCreated:
		e = &WishCreated{}
	case EventWishDeleted:
		e = &WishDeleted{}
	case EventUserOnline:
		e = &UserOnline{}
	case EventUserOffline:
		e = &UserOffline{}
	case EventEnergyReceived:
		e = &EnergyReceived{}
	case EventAchievementUnlocked:
		e = &AchievementUnlocked{}
	case EventSystemNotification:
		e = &SystemNotification{}
	default:
		return nil, fmt.Errorf("unknown event name: %s", name)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", name, err)
	}
	return e, nil
}
