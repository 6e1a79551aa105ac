package realtime

import (
	"io"
	"sync"
	"time"

	"log/slog"
)

// fakeConn implements the Conn interface for testing. It records every
// event delivered to it; failing=true makes Send fail, standing in for a
// dead transport.
type fakeConn struct {
	id      ConnectionID
	mu      sync.Mutex
	events  []Event
	failing bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: ConnectionID(id)}
}

func (f *fakeConn) ID() ConnectionID { return f.id }

func (f *fakeConn) Send(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return ErrClientDisconnected
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeConn) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeConn) countByName(name string) int {
	n := 0
	for _, e := range f.received() {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestCore() *Core {
	return NewCore(
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)
}
