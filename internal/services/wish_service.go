package services

import (
	"errors"
	"strconv"
	"time"

	"log/slog"

	"wish-service/internal/adapters/kafka"
	"wish-service/internal/models"
	"wish-service/internal/realtime"
	"wish-service/internal/repositories/postgres"

	"gorm.io/gorm"
)

var (
	ErrWishNotFound       = errors.New("wish not found")
	ErrNotWishOwner       = errors.New("not the wish owner")
	ErrInsufficientEnergy = errors.New("insufficient wish energy")
)

// WishStore is the persistence surface the wish service needs. Satisfied by
// *postgres.WishRepository.
type WishStore interface {
	Create(wish *models.Wish) error
	FindByID(id uint) (*models.Wish, error)
	List(filters models.WishFilters) ([]models.Wish, error)
	Update(wish *models.Wish) error
	Delete(id uint) error
	AddInteraction(interaction *models.WishInteraction, ownerID uint) error
	Stats(wishID uint) (*models.WishStatsResponse, error)
}

type WishService struct {
	repo      WishStore
	realtime  *realtime.Core
	publisher *kafka.EventPublisher // nil when Kafka is disabled
}

func NewWishService(repo WishStore, rt *realtime.Core, publisher *kafka.EventPublisher) *WishService {
	return &WishService{
		repo:      repo,
		realtime:  rt,
		publisher: publisher,
	}
}

func (s *WishService) Create(userID uint, req *models.CreateWishRequest) (*models.Wish, error) {
	wish := models.Wish{
		UserID:     userID,
		Content:    req.Content,
		Type:       req.Type,
		Status:     models.WishStatusActive,
		Visibility: req.Visibility,
		ExpiresAt:  req.ExpiresAt,
	}
	if wish.Type == "" {
		wish.Type = models.WishTypePersonal
	}
	if wish.Visibility == "" {
		wish.Visibility = models.WishVisibilityPublic
	}
	if req.Position != nil {
		wish.Position = *req.Position
	}
	if req.Appearance != nil {
		wish.Appearance = *req.Appearance
	}

	if err := s.repo.Create(&wish); err != nil {
		return nil, err
	}

	s.realtime.BroadcastToAll(realtime.WishCreated{
		WishID:     wishIDString(wish.ID),
		UserID:     strconv.FormatUint(uint64(userID), 10),
		Content:    wish.Content,
		Type:       wish.Type,
		Visibility: wish.Visibility,
	})
	s.publishEvent("created", wish.ID, userID)

	return &wish, nil
}

func (s *WishService) GetByID(id uint) (*models.Wish, error) {
	wish, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWishNotFound
		}
		return nil, err
	}
	return wish, nil
}

func (s *WishService) List(filters models.WishFilters) ([]models.Wish, error) {
	return s.repo.List(filters)
}

// Update applies the change, then broadcasts the new state to the wish's
// subscribers. Only the owner may update a wish.
func (s *WishService) Update(userID, wishID uint, req *models.UpdateWishRequest) (*models.Wish, error) {
	wish, err := s.GetByID(wishID)
	if err != nil {
		return nil, err
	}
	if wish.UserID != userID {
		return nil, ErrNotWishOwner
	}

	if req.Content != nil {
		wish.Content = *req.Content
	}
	if req.Status != nil {
		wish.Status = *req.Status
	}
	if req.Visibility != nil {
		wish.Visibility = *req.Visibility
	}
	if req.ExpiresAt != nil {
		wish.ExpiresAt = req.ExpiresAt
	}
	if req.Position != nil {
		wish.Position = *req.Position
	}
	if req.Appearance != nil {
		wish.Appearance = *req.Appearance
	}

	if err := s.repo.Update(wish); err != nil {
		return nil, err
	}

	s.realtime.BroadcastWishUpdate(wishIDString(wish.ID), realtime.WishUpdate{
		Content: wish.Content,
		Status:  wish.Status,
		Energy:  wish.Energy,
	})
	s.publishEvent("updated", wish.ID, userID)

	return wish, nil
}

func (s *WishService) Delete(userID, wishID uint) error {
	wish, err := s.GetByID(wishID)
	if err != nil {
		return err
	}
	if wish.UserID != userID {
		return ErrNotWishOwner
	}

	if err := s.repo.Delete(wishID); err != nil {
		return err
	}

	s.realtime.BroadcastWishDeleted(wishIDString(wishID))
	s.publishEvent("deleted", wishID, userID)
	return nil
}

// AddInteraction records a like/support/energy action. Energy interactions
// move energy from the sender to the wish owner; the transfer and the
// interaction record commit or roll back together, so a failure partway
// through never destroys or mints energy.
func (s *WishService) AddInteraction(userID, wishID uint, req *models.InteractionRequest) error {
	wish, err := s.GetByID(wishID)
	if err != nil {
		return err
	}

	value := 0
	if req.Type == models.InteractionEnergy {
		if req.Value <= 0 {
			return ErrInvalidRequest
		}
		value = req.Value
	}

	interaction := models.WishInteraction{
		WishID: wishID,
		UserID: userID,
		Type:   req.Type,
		Value:  value,
	}
	if err := s.repo.AddInteraction(&interaction, wish.UserID); err != nil {
		if errors.Is(err, postgres.ErrInsufficientEnergy) {
			return ErrInsufficientEnergy
		}
		return err
	}

	s.realtime.NotifyWishInteraction(wishIDString(wishID), realtime.Interaction{
		Type:      req.Type,
		UserID:    strconv.FormatUint(uint64(userID), 10),
		Value:     value,
		Timestamp: time.Now(),
	})
	if value > 0 {
		s.realtime.SendDirectMessage(userIDString(wish.UserID), realtime.EnergyReceived{
			WishID: wishIDString(wishID),
			From:   strconv.FormatUint(uint64(userID), 10),
			Amount: value,
		})
	}
	s.publishEvent("interaction", wishID, userID)
	return nil
}

func (s *WishService) Stats(wishID uint) (*models.WishStatsResponse, error) {
	stats, err := s.repo.Stats(wishID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWishNotFound
		}
		return nil, err
	}
	return stats, nil
}

// ExpireOverdue sweeps active wishes past their expiry and announces each
// transition to subscribers.
func (s *WishService) ExpireOverdue() error {
	overdue, err := s.repo.List(models.WishFilters{Status: models.WishStatusActive})
	if err != nil {
		return err
	}
	now := time.Now()
	for i := range overdue {
		w := &overdue[i]
		if w.ExpiresAt == nil || w.ExpiresAt.After(now) {
			continue
		}
		w.Status = models.WishStatusExpired
		if err := s.repo.Update(w); err != nil {
			slog.Error("failed to expire wish", "wishID", w.ID, "error", err)
			continue
		}
		s.realtime.BroadcastWishUpdate(wishIDString(w.ID), realtime.WishUpdate{
			Status: models.WishStatusExpired,
		})
	}
	return nil
}

func (s *WishService) publishEvent(action string, wishID, userID uint) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(action, wishID, userID); err != nil {
		slog.Error("failed to publish wish event", "action", action, "wishID", wishID, "error", err)
	}
}

func wishIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
