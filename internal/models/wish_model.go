package models

import (
	"time"

	"gorm.io/gorm"
)

// Wish type, status and visibility enumerations. Stored as plain strings;
// validation happens at the handler boundary.
const (
	WishTypePersonal  = "personal"
	WishTypeShared    = "shared"
	WishTypeCommunity = "community"

	WishStatusPending   = "pending"
	WishStatusActive    = "active"
	WishStatusCompleted = "completed"
	WishStatusExpired   = "expired"

	WishVisibilityPrivate = "private"
	WishVisibilityFriends = "friends"
	WishVisibilityPublic  = "public"

	InteractionLike    = "like"
	InteractionSupport = "support"
	InteractionEnergy  = "energy"
)

/** --------------------ENTITIES-------------------- */

// Position is where the wish star sits in the client's scene. Persisted
// passthrough for the renderer; the server never interprets it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Appearance describes how the wish star is drawn.
type Appearance struct {
	Color         string  `json:"color"`
	Size          float64 `json:"size"`
	GlowIntensity float64 `json:"glowIntensity"`
}

// Wish represents a single wish star
type Wish struct {
	gorm.Model
	UserID     uint       `gorm:"not null;index" json:"userId"`
	Content    string     `gorm:"not null" json:"content"`
	Type       string     `gorm:"not null;default:personal" json:"type"`
	Status     string     `gorm:"not null;default:active;index" json:"status"`
	Visibility string     `gorm:"not null;default:public" json:"visibility"`
	Energy     int        `gorm:"not null;default:0" json:"energy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`

	Position   Position   `gorm:"embedded;embeddedPrefix:pos_" json:"position"`
	Appearance Appearance `gorm:"embedded;embeddedPrefix:look_" json:"appearance"`

	Interactions []WishInteraction `gorm:"foreignKey:WishID" json:"interactions,omitempty"`
}

// WishInteraction records one like/support/energy action on a wish
type WishInteraction struct {
	gorm.Model
	WishID uint   `gorm:"not null;index" json:"wishId"`
	UserID uint   `gorm:"not null;index" json:"userId"`
	Type   string `gorm:"not null" json:"type"`
	Value  int    `gorm:"not null;default:0" json:"value"`
}

/** -------------------- DTOs -------------------- */

// Request
type CreateWishRequest struct {
	Content    string      `json:"content" binding:"required"`
	Type       string      `json:"type"`
	Visibility string      `json:"visibility"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`
	Position   *Position   `json:"position,omitempty"`
	Appearance *Appearance `json:"appearance,omitempty"`
}

type UpdateWishRequest struct {
	Content    *string     `json:"content,omitempty"`
	Status     *string     `json:"status,omitempty"`
	Visibility *string     `json:"visibility,omitempty"`
	ExpiresAt  *time.Time  `json:"expiresAt,omitempty"`
	Position   *Position   `json:"position,omitempty"`
	Appearance *Appearance `json:"appearance,omitempty"`
}

type InteractionRequest struct {
	Type  string `json:"type" binding:"required,oneof=like support energy"`
	Value int    `json:"value"`
}

// WishFilters narrows List queries; zero values mean "any".
type WishFilters struct {
	UserID     uint
	Type       string
	Status     string
	Visibility string
}

// Response
type WishStatsResponse struct {
	WishID       uint `json:"wishId"`
	Interactions int  `json:"interactions"`
	Energy       int  `json:"energy"`
	Supporters   int  `json:"supporters"`
}
