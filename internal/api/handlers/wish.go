package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"wish-service/internal/models"
	"wish-service/internal/services"

	"github.com/gin-gonic/gin"
)

type WishHandler struct {
	wishService *services.WishService
}

func NewWishHandler(wishService *services.WishService) *WishHandler {
	return &WishHandler{wishService: wishService}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wish id"})
		return 0, false
	}
	return uint(id), true
}

// CreateWish godoc
// @Summary Create a wish
// @Tags wishes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateWishRequest true "Wish data"
// @Success 201 {object} models.Wish
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Router /wishes [post]
func (h *WishHandler) CreateWish(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	var req models.CreateWishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wish, err := h.wishService.Create(userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create wish"})
		return
	}
	c.JSON(http.StatusCreated, wish)
}

// GetWishes godoc
// @Summary List wishes
// @Tags wishes
// @Produce json
// @Security BearerAuth
// @Param type query string false "Filter by type"
// @Param status query string false "Filter by status"
// @Param visibility query string false "Filter by visibility"
// @Param userId query int false "Filter by owner"
// @Success 200 {array} models.Wish
// @Router /wishes [get]
func (h *WishHandler) GetWishes(c *gin.Context) {
	filters := models.WishFilters{
		Type:       c.Query("type"),
		Status:     c.Query("status"),
		Visibility: c.Query("visibility"),
	}
	if userIDStr := c.Query("userId"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId filter"})
			return
		}
		filters.UserID = uint(userID)
	}

	wishes, err := h.wishService.List(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list wishes"})
		return
	}
	c.JSON(http.StatusOK, wishes)
}

// GetWishByID godoc
// @Summary Get one wish
// @Tags wishes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Wish ID"
// @Success 200 {object} models.Wish
// @Failure 404 {object} map[string]interface{} "Wish not found"
// @Router /wishes/{id} [get]
func (h *WishHandler) GetWishByID(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	wish, err := h.wishService.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrWishNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wish not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get wish"})
		return
	}
	c.JSON(http.StatusOK, wish)
}

// UpdateWish godoc
// @Summary Update a wish
// @Tags wishes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Wish ID"
// @Param request body models.UpdateWishRequest true "Fields to change"
// @Success 200 {object} models.Wish
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 404 {object} map[string]interface{} "Wish not found"
// @Router /wishes/{id} [put]
func (h *WishHandler) UpdateWish(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req models.UpdateWishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wish, err := h.wishService.Update(userID, id, &req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, wish)
}

// DeleteWish godoc
// @Summary Delete a wish
// @Tags wishes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Wish ID"
// @Success 200 {object} map[string]string "Deleted"
// @Failure 403 {object} map[string]interface{} "Not the owner"
// @Failure 404 {object} map[string]interface{} "Wish not found"
// @Router /wishes/{id} [delete]
func (h *WishHandler) DeleteWish(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.wishService.Delete(userID, id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AddInteraction godoc
// @Summary Interact with a wish
// @Description Record a like, support or energy interaction
// @Tags wishes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Wish ID"
// @Param request body models.InteractionRequest true "Interaction"
// @Success 200 {object} map[string]string "Recorded"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Wish not found"
// @Router /wishes/{id}/interactions [post]
func (h *WishHandler) AddInteraction(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req models.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.wishService.AddInteraction(userID, id, &req); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "energy interactions need a positive value"})
		case errors.Is(err, services.ErrInsufficientEnergy):
			c.JSON(http.StatusBadRequest, gin.H{"error": "not enough wish energy"})
		default:
			h.respondServiceError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// GetWishStats godoc
// @Summary Get wish statistics
// @Tags wishes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Wish ID"
// @Success 200 {object} models.WishStatsResponse
// @Failure 404 {object} map[string]interface{} "Wish not found"
// @Router /wishes/{id}/stats [get]
func (h *WishHandler) GetWishStats(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	stats, err := h.wishService.Stats(id)
	if err != nil {
		if errors.Is(err, services.ErrWishNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wish not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WishHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWishNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "wish not found"})
	case errors.Is(err, services.ErrNotWishOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not the wish owner"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
