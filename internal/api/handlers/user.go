package handlers

import (
	"errors"
	"net/http"

	"wish-service/internal/database"
	"wish-service/internal/models"
	"wish-service/internal/realtime"
	"wish-service/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	realtime    *realtime.Core
	storage     *database.MinIOClient // nil when MinIO is disabled
}

func NewUserHandler(userService *services.UserService, rt *realtime.Core, storage *database.MinIOClient) *UserHandler {
	return &UserHandler{
		userService: userService,
		realtime:    rt,
		storage:     storage,
	}
}

// GetProfile godoc
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} map[string]interface{} "User not found"
// @Router /users/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	user, err := h.userService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields to change"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar godoc
// @Summary Upload an avatar image
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} map[string]interface{} "Bad request - missing file"
// @Failure 503 {object} map[string]interface{} "Avatar storage not configured"
// @Router /users/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}

	userID := c.MustGet("user_id").(uint)
	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	url, err := h.storage.UploadAvatar(c.Request.Context(), file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload avatar"})
		return
	}

	user, err := h.userService.UpdateProfile(userID, &models.UpdateProfileRequest{Avatar: &url})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save avatar"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetOnlineUsers godoc
// @Summary List currently online users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Online user ids"
// @Router /users/online [get]
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	users := h.realtime.OnlineUsers()
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, string(u))
	}
	c.JSON(http.StatusOK, gin.H{"online": ids, "count": len(ids)})
}

// GetWishEnergy godoc
// @Summary Get own wish energy balance
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Energy balance"
// @Router /users/energy [get]
func (h *UserHandler) GetWishEnergy(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	energy, err := h.userService.GetWishEnergy(userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to get energy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishEnergy": energy})
}

// GrantEnergy godoc
// @Summary Send wish energy to another user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.GrantEnergyRequest true "Recipient and amount"
// @Success 200 {object} map[string]string "Energy granted"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Recipient not found"
// @Router /users/energy [post]
func (h *UserHandler) GrantEnergy(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	var req models.GrantEnergyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.AddWishEnergy(userID, req.UserID, req.Amount); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant energy"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

// SearchUsers godoc
// @Summary Search users by username
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param q query string true "Username fragment"
// @Success 200 {array} models.UserResponse
// @Router /users/search [get]
func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}
	users, err := h.userService.SearchUsers(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, users)
}
