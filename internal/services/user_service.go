package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"log/slog"

	"wish-service/internal/models"
	"wish-service/internal/realtime"
	"wish-service/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Custom errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRequest     = errors.New("invalid request")
)

const initialWishEnergy = 100

type UserService struct {
	repo      *postgres.UserRepository
	realtime  *realtime.Core
	jwtSecret string
	jwtExpire time.Duration
}

func NewUserService(repo *postgres.UserRepository, rt *realtime.Core, jwtSecret string, jwtExpire time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		realtime:  rt,
		jwtSecret: jwtSecret,
		jwtExpire: jwtExpire,
	}
}

func (s *UserService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"exp":      time.Now().Add(s.jwtExpire).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *UserService) Register(req *models.RegisterRequest) (*models.UserResponse, error) {
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return nil, ErrInvalidRequest
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:   req.Username,
		Email:      req.Email,
		Password:   string(hashedPassword),
		WishEnergy: initialWishEnergy,
		Level:      1,
	}

	if err := s.repo.Create(&user); err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	slog.Info("user registered", "userID", user.ID, "username", user.Username)
	resp := user.ToResponse()
	return &resp, nil
}

func (s *UserService) Login(req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.FindByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtExpire.Seconds()),
		User:      user.ToResponse(),
	}, nil
}

func (s *UserService) GetProfile(userID uint) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *UserService) UpdateProfile(userID uint, req *models.UpdateProfileRequest) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Nickname != nil {
		user.Nickname = *req.Nickname
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *UserService) GetWishEnergy(userID uint) (int, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.WishEnergy, nil
}

// AddWishEnergy credits energy to a user, recomputes their level and
// notifies every device they hold.
func (s *UserService) AddWishEnergy(fromUserID, toUserID uint, amount int) error {
	if amount <= 0 {
		return ErrInvalidRequest
	}
	if err := s.repo.AddEnergy(toUserID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.UpdateLevel(toUserID); err != nil {
		slog.Error("failed to recompute level", "userID", toUserID, "error", err)
	}

	s.realtime.SendDirectMessage(userIDString(toUserID), realtime.EnergyReceived{
		From:   strconv.FormatUint(uint64(fromUserID), 10),
		Amount: amount,
	})
	return nil
}

// CalculateLevel derives a user's level from accumulated wish energy:
// level = floor(log2(energy/100 + 1)) + 1.
func CalculateLevel(wishEnergy int) int {
	if wishEnergy < 0 {
		wishEnergy = 0
	}
	wishCount := float64(wishEnergy) / 100
	return int(math.Floor(math.Log2(wishCount+1))) + 1
}

// UpdateLevel recomputes the level from current energy; levels never go down.
func (s *UserService) UpdateLevel(userID uint) error {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return err
	}
	newLevel := CalculateLevel(user.WishEnergy)
	if newLevel > user.Level {
		return s.repo.SetLevel(userID, newLevel)
	}
	return nil
}

// AddAchievement records the achievement and pushes an unlock notification
// to the user's devices.
func (s *UserService) AddAchievement(userID uint, name, description, icon string) error {
	achievement := models.Achievement{
		UserID:      userID,
		Name:        name,
		Description: description,
		Icon:        icon,
		UnlockedAt:  time.Now(),
	}
	if err := s.repo.AddAchievement(&achievement); err != nil {
		return err
	}

	s.realtime.SendDirectMessage(userIDString(userID), realtime.AchievementUnlocked{
		AchievementID: strconv.FormatUint(uint64(achievement.ID), 10),
		Name:          name,
		Icon:          icon,
	})
	return nil
}

func (s *UserService) SearchUsers(query string) ([]models.UserResponse, error) {
	users, err := s.repo.SearchByUsername(query, 20)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToResponse())
	}
	return out, nil
}

func userIDString(id uint) realtime.UserID {
	return realtime.UserID(strconv.FormatUint(uint64(id), 10))
}
