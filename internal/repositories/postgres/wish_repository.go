package postgres

import (
	"errors"
	"fmt"

	"wish-service/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientEnergy = errors.New("insufficient wish energy")

type WishRepository struct {
	db *gorm.DB
}

func NewWishRepository(db *gorm.DB) *WishRepository {
	return &WishRepository{db: db}
}

func (r *WishRepository) Create(wish *models.Wish) error {
	if err := r.db.Create(wish).Error; err != nil {
		return fmt.Errorf("failed to create wish: %w", err)
	}
	return nil
}

func (r *WishRepository) FindByID(id uint) (*models.Wish, error) {
	var wish models.Wish
	if err := r.db.Preload("Interactions").First(&wish, id).Error; err != nil {
		return nil, err
	}
	return &wish, nil
}

func (r *WishRepository) List(filters models.WishFilters) ([]models.Wish, error) {
	q := r.db.Model(&models.Wish{})
	if filters.UserID != 0 {
		q = q.Where("user_id = ?", filters.UserID)
	}
	if filters.Type != "" {
		q = q.Where("type = ?", filters.Type)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Visibility != "" {
		q = q.Where("visibility = ?", filters.Visibility)
	}

	var wishes []models.Wish
	if err := q.Order("created_at DESC").Find(&wishes).Error; err != nil {
		return nil, fmt.Errorf("failed to list wishes: %w", err)
	}
	return wishes, nil
}

func (r *WishRepository) Update(wish *models.Wish) error {
	if err := r.db.Save(wish).Error; err != nil {
		return fmt.Errorf("failed to update wish: %w", err)
	}
	return nil
}

func (r *WishRepository) Delete(id uint) error {
	return r.db.Delete(&models.Wish{}, id).Error
}

// AddInteraction records the interaction and, for energy interactions,
// moves the energy inside the same transaction: the sender is debited with
// a balance guard, the wish owner is credited, and the wish's energy grows
// by the same value. A failure at any step rolls the whole transfer back.
func (r *WishRepository) AddInteraction(interaction *models.WishInteraction, ownerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if interaction.Value != 0 {
			debit := tx.Model(&models.User{}).
				Where("id = ? AND wish_energy >= ?", interaction.UserID, interaction.Value).
				UpdateColumn("wish_energy", gorm.Expr("wish_energy - ?", interaction.Value))
			if debit.Error != nil {
				return fmt.Errorf("failed to debit sender: %w", debit.Error)
			}
			if debit.RowsAffected == 0 {
				return ErrInsufficientEnergy
			}

			credit := tx.Model(&models.User{}).
				Where("id = ?", ownerID).
				UpdateColumn("wish_energy", gorm.Expr("wish_energy + ?", interaction.Value))
			if credit.Error != nil {
				return fmt.Errorf("failed to credit owner: %w", credit.Error)
			}
			if credit.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}

			if err := tx.Model(&models.Wish{}).
				Where("id = ?", interaction.WishID).
				UpdateColumn("energy", gorm.Expr("energy + ?", interaction.Value)).Error; err != nil {
				return fmt.Errorf("failed to apply interaction energy: %w", err)
			}
		}

		if err := tx.Create(interaction).Error; err != nil {
			return fmt.Errorf("failed to record interaction: %w", err)
		}
		return nil
	})
}

func (r *WishRepository) Stats(wishID uint) (*models.WishStatsResponse, error) {
	var wish models.Wish
	if err := r.db.Select("id", "energy").First(&wish, wishID).Error; err != nil {
		return nil, err
	}

	var interactions int64
	if err := r.db.Model(&models.WishInteraction{}).
		Where("wish_id = ?", wishID).Count(&interactions).Error; err != nil {
		return nil, err
	}

	var supporters int64
	if err := r.db.Model(&models.WishInteraction{}).
		Where("wish_id = ?", wishID).
		Distinct("user_id").Count(&supporters).Error; err != nil {
		return nil, err
	}

	return &models.WishStatsResponse{
		WishID:       wishID,
		Interactions: int(interactions),
		Energy:       wish.Energy,
		Supporters:   int(supporters),
	}, nil
}
