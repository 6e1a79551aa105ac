package services

import (
	"errors"
	"io"
	"sync"
	"testing"

	"log/slog"

	"wish-service/internal/models"
	"wish-service/internal/realtime"
	"wish-service/internal/repositories/postgres"
)

// fakeWishStore implements WishStore in memory. interactionErr forces the
// transfer transaction to fail, standing in for a rolled-back commit.
type fakeWishStore struct {
	wishes         map[uint]*models.Wish
	interactions   []models.WishInteraction
	interactionErr error
}

func newFakeWishStore() *fakeWishStore {
	return &fakeWishStore{wishes: make(map[uint]*models.Wish)}
}

func (f *fakeWishStore) Create(wish *models.Wish) error {
	f.wishes[wish.ID] = wish
	return nil
}

func (f *fakeWishStore) FindByID(id uint) (*models.Wish, error) {
	wish, ok := f.wishes[id]
	if !ok {
		return nil, ErrWishNotFound
	}
	return wish, nil
}

func (f *fakeWishStore) List(filters models.WishFilters) ([]models.Wish, error) {
	return nil, nil
}

func (f *fakeWishStore) Update(wish *models.Wish) error {
	f.wishes[wish.ID] = wish
	return nil
}

func (f *fakeWishStore) Delete(id uint) error {
	delete(f.wishes, id)
	return nil
}

func (f *fakeWishStore) AddInteraction(interaction *models.WishInteraction, ownerID uint) error {
	if f.interactionErr != nil {
		return f.interactionErr
	}
	f.interactions = append(f.interactions, *interaction)
	return nil
}

func (f *fakeWishStore) Stats(wishID uint) (*models.WishStatsResponse, error) {
	return &models.WishStatsResponse{WishID: wishID}, nil
}

type recordingConn struct {
	id     realtime.ConnectionID
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingConn) ID() realtime.ConnectionID { return r.id }

func (r *recordingConn) Send(e realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingConn) countByName(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func newTestRealtimeCore() *realtime.Core {
	return realtime.NewCore(
		realtime.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestAddInteractionEnergySuccess(t *testing.T) {
	store := newFakeWishStore()
	store.wishes[7] = &models.Wish{Content: "learn the violin", UserID: 2}

	core := newTestRealtimeCore()
	owner := &recordingConn{id: "owner-conn"}
	core.OnConnect("2", owner)
	core.JoinWishRoom(owner.ID(), "7")

	svc := NewWishService(store, core, nil)

	err := svc.AddInteraction(1, 7, &models.InteractionRequest{Type: models.InteractionEnergy, Value: 10})
	if err != nil {
		t.Fatalf("AddInteraction failed: %v", err)
	}

	if len(store.interactions) != 1 {
		t.Fatalf("expected one recorded interaction, got %d", len(store.interactions))
	}
	if got := store.interactions[0]; got.UserID != 1 || got.Value != 10 {
		t.Errorf("unexpected interaction record: %+v", got)
	}
	if got := owner.countByName(realtime.EventWishInteraction); got != 1 {
		t.Errorf("expected one wish_interaction at the owner, got %d", got)
	}
	if got := owner.countByName(realtime.EventEnergyReceived); got != 1 {
		t.Errorf("expected one energy_received at the owner, got %d", got)
	}
}

// A failed transfer must surface the insufficient-energy sentinel and leave
// no trace: no recorded interaction and no realtime events.
func TestAddInteractionInsufficientEnergy(t *testing.T) {
	store := newFakeWishStore()
	store.wishes[7] = &models.Wish{Content: "learn the violin", UserID: 2}
	store.interactionErr = postgres.ErrInsufficientEnergy

	core := newTestRealtimeCore()
	owner := &recordingConn{id: "owner-conn"}
	core.OnConnect("2", owner)
	core.JoinWishRoom(owner.ID(), "7")

	svc := NewWishService(store, core, nil)

	err := svc.AddInteraction(1, 7, &models.InteractionRequest{Type: models.InteractionEnergy, Value: 10})
	if !errors.Is(err, ErrInsufficientEnergy) {
		t.Fatalf("expected ErrInsufficientEnergy, got %v", err)
	}

	if len(store.interactions) != 0 {
		t.Errorf("failed transfer must record nothing, got %d interactions", len(store.interactions))
	}
	if got := owner.countByName(realtime.EventWishInteraction); got != 0 {
		t.Errorf("failed transfer must not notify the room, got %d events", got)
	}
	if got := owner.countByName(realtime.EventEnergyReceived); got != 0 {
		t.Errorf("failed transfer must not send energy_received, got %d events", got)
	}
}

func TestAddInteractionRejectsNonPositiveEnergy(t *testing.T) {
	store := newFakeWishStore()
	store.wishes[7] = &models.Wish{Content: "learn the violin", UserID: 2}

	svc := NewWishService(store, newTestRealtimeCore(), nil)

	err := svc.AddInteraction(1, 7, &models.InteractionRequest{Type: models.InteractionEnergy, Value: 0})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(store.interactions) != 0 {
		t.Errorf("rejected request must record nothing, got %d interactions", len(store.interactions))
	}
}
