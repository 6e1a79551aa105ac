package realtime

import (
	"encoding/json"
	"testing"
)

func TestDecodeEventRoundTrip(t *testing.T) {
	names := []string{
		EventWishUpdated,
		EventWishInteraction,
		EventWishCreated,
		EventWishDeleted,
		EventUserOnline,
		EventUserOffline,
		EventEnergyReceived,
		EventAchievementUnlocked,
		EventSystemNotification,
	}

	for _, name := range names {
		e, err := DecodeEvent(name, json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("DecodeEvent(%q) failed: %v", name, err)
		}
		if e.EventName() != name {
			t.Errorf("DecodeEvent(%q) produced event named %q", name, e.EventName())
		}
	}
}

func TestDecodeEventPayloadFields(t *testing.T) {
	raw := json.RawMessage(`{"wishId":"42","energy":150,"status":"active"}`)
	e, err := DecodeEvent(EventWishUpdated, raw)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	update, ok := e.(*WishUpdate)
	if !ok {
		t.Fatalf("expected *WishUpdate, got %T", e)
	}
	if update.WishID != "42" || update.Energy != 150 || update.Status != "active" {
		t.Errorf("unexpected payload: %+v", update)
	}
}

func TestDecodeEventRejectsUnknownName(t *testing.T) {
	if _, err := DecodeEvent("made_up_event", json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for unknown event name")
	}
}

func TestDecodeEventRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeEvent(EventWishUpdated, json.RawMessage(`{not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
