package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"github.com/kidcanvas/api/internal/ownership"
	"github.com/kidcanvas/api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DrawingHandler struct {
	db     *gorm.DB
	store  storage.FileStore
	logger *zap.SugaredLogger
	dev    bool
}

func NewDrawingHandler(db *gorm.DB, store storage.FileStore, logger *zap.SugaredLogger, dev bool) *DrawingHandler {
	return &DrawingHandler{db: db, store: store, logger: logger, dev: dev}
}

// Upload stores the image and inserts the drawing row for the caller.
func (h *DrawingHandler) Upload(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	// Bound the whole request body before touching the multipart form.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxUploadBytes+1<<20)

	fileHeader, err := c.FormFile("drawing")
	if err != nil {
		middleware.RecordUpload(false)
		// A body past the reader bound never parses; that is still a
		// size problem, not a missing field.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.HasSuffix(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10 MiB limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "drawing", Message: "file is required"}}})
		return
	}

	if fileHeader.Size > storage.MaxUploadBytes {
		middleware.RecordUpload(false)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10 MiB limit"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if _, ok := storage.AllowedContentTypes[contentType]; !ok {
		middleware.RecordUpload(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "only JPEG, PNG and GIF images are accepted"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.RecordUpload(false)
		respondInternal(c, h.logger, h.dev, "failed to upload drawing", err)
		return
	}
	defer file.Close()

	path, err := h.store.Store(c.Request.Context(), file, fileHeader.Size, contentType)
	if err != nil {
		middleware.RecordUpload(false)
		respondInternal(c, h.logger, h.dev, "failed to upload drawing", err)
		return
	}

	var description *string
	if d := c.PostForm("description"); d != "" {
		description = &d
	}

	drawing := model.Drawing{
		OwnerUserID: principal.UserID,
		FilePath:    path,
		Description: description,
	}
	if err := h.db.Create(&drawing).Error; err != nil {
		middleware.RecordUpload(false)
		// Best effort: don't leave the stored file orphaned. The
		// janitor sweeps anything this misses.
		if derr := h.store.Delete(c.Request.Context(), path); derr != nil {
			h.logger.Warnw("failed to remove file after insert failure", "path", path, "error", derr)
		}
		respondInternal(c, h.logger, h.dev, "failed to upload drawing", err)
		return
	}

	middleware.RecordUpload(true)
	c.JSON(http.StatusCreated, drawing)
}

// List returns the caller's drawings, newest first.
func (h *DrawingHandler) List(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	drawings := make([]model.Drawing, 0)
	if err := h.db.Where("owner_user_id = ?", principal.UserID).
		Order("uploaded_at DESC").
		Find(&drawings).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load drawings", err)
		return
	}

	c.JSON(http.StatusOK, drawings)
}

func (h *DrawingHandler) Get(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "id", Message: "must be an integer"}}})
		return
	}

	if err := ownership.Verify(h.db, ownership.Drawing, id, principal); err != nil {
		if errors.Is(err, ownership.ErrNotFound) {
			middleware.RecordOwnershipDenial("drawing")
			respondNotFound(c, "drawing")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load drawing", err)
		return
	}

	var drawing model.Drawing
	if err := h.db.First(&drawing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "drawing")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load drawing", err)
		return
	}

	c.JSON(http.StatusOK, drawing)
}

// Delete removes the row and releases the backing file. The ownership check
// and the row delete share one transaction so the row cannot change owner
// or vanish between check and act.
func (h *DrawingHandler) Delete(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "id", Message: "must be an integer"}}})
		return
	}

	var filePath string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := ownership.Verify(tx, ownership.Drawing, id, principal); err != nil {
			return err
		}
		var drawing model.Drawing
		if err := tx.First(&drawing, id).Error; err != nil {
			return err
		}
		filePath = drawing.FilePath
		return tx.Delete(&drawing).Error
	})
	if err != nil {
		if errors.Is(err, ownership.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.RecordOwnershipDenial("drawing")
			respondNotFound(c, "drawing")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to delete drawing", err)
		return
	}

	// File release failure is logged, not surfaced: the row is gone and
	// the janitor will collect the stray file.
	if err := h.store.Delete(c.Request.Context(), filePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Warnw("failed to delete drawing file", "path", filePath, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "drawing deleted"})
}
