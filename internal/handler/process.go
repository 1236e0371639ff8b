package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/cache"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"github.com/kidcanvas/api/internal/ownership"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProcessHandler struct {
	db     *gorm.DB
	cache  *cache.RedisCache
	logger *zap.SugaredLogger
	dev    bool
}

func NewProcessHandler(db *gorm.DB, redisCache *cache.RedisCache, logger *zap.SugaredLogger, dev bool) *ProcessHandler {
	return &ProcessHandler{db: db, cache: redisCache, logger: logger, dev: dev}
}

type CreateProcessRequest struct {
	DrawingID     int64           `json:"drawingId" binding:"required"`
	ProcessTypeID int64           `json:"processTypeId" binding:"required"`
	Parameters    json.RawMessage `json:"parameters"`
}

// ProcessView is a process row joined with its drawing and type for list
// and detail responses.
type ProcessView struct {
	ID            int64          `json:"id"`
	DrawingID     int64          `json:"drawingId"`
	ProcessTypeID int64          `json:"processTypeId"`
	Parameters    datatypes.JSON `json:"parameters"`
	Status        string         `json:"status"`
	StartedAt     time.Time      `json:"startedAt"`
	FilePath      string         `json:"filePath"`
	TypeName      string         `json:"typeName"`
}

// Types returns the process-type catalog. Public and read-mostly, so it is
// served from Redis when possible; the cache failing is never fatal.
func (h *ProcessHandler) Types(c *gin.Context) {
	if h.cache != nil {
		if raw, err := h.cache.Get(c.Request.Context(), cache.ProcessTypesKey); err == nil {
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
	}

	types := make([]model.ProcessType, 0)
	if err := h.db.Order("id").Find(&types).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load process types", err)
		return
	}

	if h.cache != nil {
		if raw, err := json.Marshal(types); err == nil {
			if err := h.cache.Set(c.Request.Context(), cache.ProcessTypesKey, raw, cache.ProcessTypesTTL); err != nil {
				h.logger.Warnw("failed to cache process types", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, types)
}

// Create inserts a PENDING process against one of the caller's drawings.
// Drawing ownership is verified inside the insert transaction, so the
// drawing cannot be deleted between check and insert.
func (h *ProcessHandler) Create(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	params := req.Parameters
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	var processType model.ProcessType
	if err := h.db.First(&processType, req.ProcessTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "processTypeId", Message: "unknown process type"}}})
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to create process", err)
		return
	}

	process := model.AIProcess{
		DrawingID:     req.DrawingID,
		ProcessTypeID: req.ProcessTypeID,
		Parameters:    datatypes.JSON(params),
		Status:        model.StatusPending,
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := ownership.Verify(tx, ownership.Drawing, req.DrawingID, principal); err != nil {
			return err
		}
		return tx.Create(&process).Error
	})
	if err != nil {
		if errors.Is(err, ownership.ErrNotFound) {
			middleware.RecordOwnershipDenial("drawing")
			respondNotFound(c, "drawing")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to create process", err)
		return
	}

	middleware.RecordProcessCreation()
	c.JSON(http.StatusCreated, process)
}

const processViewSelect = "ai_processes.id, ai_processes.drawing_id, ai_processes.process_type_id, " +
	"ai_processes.parameters, ai_processes.status, ai_processes.started_at, " +
	"drawings.file_path AS file_path, process_types.name AS type_name"

// List returns the caller's processes joined with drawing and type info.
func (h *ProcessHandler) List(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	views := make([]ProcessView, 0)
	err := h.db.Model(&model.AIProcess{}).
		Select(processViewSelect).
		Joins("JOIN drawings ON drawings.id = ai_processes.drawing_id").
		Joins("JOIN process_types ON process_types.id = ai_processes.process_type_id").
		Where("drawings.owner_user_id = ?", principal.UserID).
		Order("ai_processes.started_at DESC").
		Scan(&views).Error
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load processes", err)
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *ProcessHandler) Get(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "id", Message: "must be an integer"}}})
		return
	}

	if err := ownership.Verify(h.db, ownership.Process, id, principal); err != nil {
		if errors.Is(err, ownership.ErrNotFound) {
			middleware.RecordOwnershipDenial("process")
			respondNotFound(c, "process")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load process", err)
		return
	}

	var view ProcessView
	err = h.db.Model(&model.AIProcess{}).
		Select(processViewSelect).
		Joins("JOIN drawings ON drawings.id = ai_processes.drawing_id").
		Joins("JOIN process_types ON process_types.id = ai_processes.process_type_id").
		Where("ai_processes.id = ?", id).
		Scan(&view).Error
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load process", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Results returns the append-only result rows for one of the caller's
// processes.
func (h *ProcessHandler) Results(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "id", Message: "must be an integer"}}})
		return
	}

	if err := ownership.Verify(h.db, ownership.Process, id, principal); err != nil {
		if errors.Is(err, ownership.ErrNotFound) {
			middleware.RecordOwnershipDenial("process")
			respondNotFound(c, "process")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load results", err)
		return
	}

	results := make([]model.ProcessResult, 0)
	if err := h.db.Where("process_id = ?", id).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load results", err)
		return
	}

	c.JSON(http.StatusOK, results)
}
