package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserHandler struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	dev    bool
}

func NewUserHandler(db *gorm.DB, logger *zap.SugaredLogger, dev bool) *UserHandler {
	return &UserHandler{db: db, logger: logger, dev: dev}
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var user model.User
	if err := h.db.First(&user, principal.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe changes name and/or email; absent fields keep their value.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		var existing model.User
		err := h.db.Where("email = ? AND id <> ?", *req.Email, principal.UserID).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "email", Message: "is already registered"}}})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondInternal(c, h.logger, h.dev, "failed to update user", err)
			return
		}
		updates["email"] = *req.Email
	}

	var user model.User
	if err := h.db.First(&user, principal.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "user")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to update user", err)
		return
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			respondInternal(c, h.logger, h.dev, "failed to update user", err)
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

type UserStats struct {
	Drawings     int64 `json:"drawings"`
	ChatSessions int64 `json:"chatSessions"`
	AIProcesses  int64 `json:"aiProcesses"`
}

// Stats counts the user's drawings, chat sessions, and AI processes.
func (h *UserHandler) Stats(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var stats UserStats
	if err := h.db.Model(&model.Drawing{}).
		Where("owner_user_id = ?", principal.UserID).
		Count(&stats.Drawings).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}
	if err := h.db.Model(&model.ChatSession{}).
		Where("owner_user_id = ?", principal.UserID).
		Count(&stats.ChatSessions).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}
	if err := h.db.Model(&model.AIProcess{}).
		Joins("JOIN drawings ON drawings.id = ai_processes.drawing_id").
		Where("drawings.owner_user_id = ?", principal.UserID).
		Count(&stats.AIProcesses).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
