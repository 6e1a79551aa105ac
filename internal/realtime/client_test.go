package realtime

import (
	"errors"
	"testing"
)

// A peer that stops draining its send buffer must be torn down without
// disturbing fan-out to anyone else: once the buffer overflows, every
// further Send fails with ErrClientDisconnected instead of panicking.
func TestSendOverflowFailsCleanly(t *testing.T) {
	core := createTestCore()
	client := NewClient(core, nil, "u1", discardLogger())

	var overflowErr error
	for i := 0; i < cap(client.send)+1; i++ {
		overflowErr = client.Send(SystemNotification{Message: "fill"})
	}
	if !errors.Is(overflowErr, ErrClientDisconnected) {
		t.Fatalf("expected ErrClientDisconnected on overflow, got %v", overflowErr)
	}

	for i := 0; i < 3; i++ {
		if err := client.Send(SystemNotification{Message: "late"}); !errors.Is(err, ErrClientDisconnected) {
			t.Fatalf("send after overflow must fail cleanly, got %v", err)
		}
	}

	select {
	case <-client.ctx.Done():
	default:
		t.Error("overflow must cancel the client context so the pumps exit")
	}
}

func TestSendStampsEnvelopeWithCoreClock(t *testing.T) {
	core := createTestCore()
	client := NewClient(core, nil, "u1", discardLogger())

	if err := client.Send(SystemNotification{Message: "hello"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	env := <-client.send
	if want := core.now().Unix(); env.Timestamp != want {
		t.Errorf("expected envelope timestamp %d, got %d", want, env.Timestamp)
	}
}
