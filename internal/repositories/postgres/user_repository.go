package postgres

import (
	"errors"
	"fmt"

	"wish-service/internal/models"

	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already exists")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", user.Email).First(&existing).Error
		if err == nil {
			return ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email existence: %w", err)
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Achievements").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// AddEnergy atomically adjusts a user's wish energy balance.
func (r *UserRepository) AddEnergy(userID uint, amount int) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("wish_energy", gorm.Expr("wish_energy + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust energy: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) SetLevel(userID uint, level int) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("level", level).Error
}

// AddAchievement is idempotent on (user, name): unlocking the same
// achievement twice keeps the first record.
func (r *UserRepository) AddAchievement(a *models.Achievement) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Achievement
		err := tx.Where("user_id = ? AND name = ?", a.UserID, a.Name).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(a).Error
	})
}

func (r *UserRepository) SearchByUsername(query string, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Where("username ILIKE ?", "%"+query+"%").Limit(limit).Find(&users).Error
	return users, err
}
