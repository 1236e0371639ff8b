package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler serves the admin-only routes behind the role gate.
type AdminHandler struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	dev    bool
}

func NewAdminHandler(db *gorm.DB, logger *zap.SugaredLogger, dev bool) *AdminHandler {
	return &AdminHandler{db: db, logger: logger, dev: dev}
}

// ListUsers returns all accounts, newest first.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users := make([]model.User, 0)
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

type PlatformStats struct {
	Users            int64            `json:"users"`
	Drawings         int64            `json:"drawings"`
	ChatSessions     int64            `json:"chatSessions"`
	ProcessesByState map[string]int64 `json:"processesByState"`
}

// Stats returns platform-wide counts for the admin dashboard.
func (h *AdminHandler) Stats(c *gin.Context) {
	var stats PlatformStats
	stats.ProcessesByState = make(map[string]int64)

	if err := h.db.Model(&model.User{}).Count(&stats.Users).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}
	if err := h.db.Model(&model.Drawing{}).Count(&stats.Drawings).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}
	if err := h.db.Model(&model.ChatSession{}).Count(&stats.ChatSessions).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := h.db.Model(&model.AIProcess{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load stats", err)
		return
	}
	for _, row := range rows {
		stats.ProcessesByState[row.Status] = row.Count
	}

	c.JSON(http.StatusOK, stats)
}
