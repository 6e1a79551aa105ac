package models

import (
	"time"

	"gorm.io/gorm"
)

/** --------------------ENTITIES-------------------- */

// User represents the user entity
type User struct {
	gorm.Model
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Password   string `json:"-"`
	Avatar     string `json:"avatar"`
	Nickname   string `json:"nickname"`
	Bio        string `json:"bio"`
	WishEnergy int    `gorm:"not null;default:100" json:"wishEnergy"`
	Level      int    `gorm:"not null;default:1" json:"level"`

	Achievements []Achievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
}

// Achievement represents an unlocked achievement on a user
type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"unlockedAt"`
}

/** -------------------- DTOs -------------------- */

// Request
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type GrantEnergyRequest struct {
	UserID uint `json:"userId" binding:"required"`
	Amount int  `json:"amount" binding:"required,gt=0"`
}

// Response
type UserResponse struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar"`
	Nickname   string    `json:"nickname"`
	Bio        string    `json:"bio"`
	WishEnergy int       `json:"wishEnergy"`
	Level      int       `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      UserResponse `json:"user"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Avatar:     u.Avatar,
		Nickname:   u.Nickname,
		Bio:        u.Bio,
		WishEnergy: u.WishEnergy,
		Level:      u.Level,
		CreatedAt:  u.CreatedAt,
	}
}
