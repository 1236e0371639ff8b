package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"github.com/kidcanvas/api/internal/ownership"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSessionTitle = "New conversation"

type ChatHandler struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	dev    bool
}

func NewChatHandler(db *gorm.DB, logger *zap.SugaredLogger, dev bool) *ChatHandler {
	return &ChatHandler{db: db, logger: logger, dev: dev}
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Text            string `json:"text" binding:"required,min=1"`
	LinkedDrawingID *int64 `json:"linkedDrawingId"`
	LinkedResultID  *int64 `json:"linkedResultId"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var req CreateSessionRequest
	_ = c.ShouldBindJSON(&req)

	title := req.Title
	if title == "" {
		title = defaultSessionTitle
	}

	session := model.ChatSession{
		OwnerUserID: principal.UserID,
		Title:       title,
	}
	if err := h.db.Create(&session).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to create session", err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	sessions := make([]model.ChatSession, 0)
	if err := h.db.Where("owner_user_id = ?", principal.UserID).
		Order("started_at DESC").
		Find(&sessions).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load sessions", err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// Messages returns a session's messages oldest first.
func (h *ChatHandler) Messages(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	sessionID, err := strconv.ParseInt(c.Param("sessionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "sessionId", Message: "must be an integer"}}})
		return
	}

	if err := ownership.Verify(h.db, ownership.ChatSession, sessionID, principal); err != nil {
		if errors.Is(err, ownership.ErrNotFound) {
			middleware.RecordOwnershipDenial("chat_session")
			respondNotFound(c, "session")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to load messages", err)
		return
	}

	messages := make([]model.ChatMessage, 0)
	if err := h.db.Where("session_id = ?", sessionID).
		Order("sent_at ASC").
		Find(&messages).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to load messages", err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

var errSessionClosed = errors.New("session closed")

// SendMessage appends a USER message. Ownership of the session and of any
// linked drawing or result is verified inside the insert transaction, and a
// closed session rejects new messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	sessionID, err := strconv.ParseInt(c.Param("sessionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "sessionId", Message: "must be an integer"}}})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	message := model.ChatMessage{
		SessionID:       sessionID,
		Author:          model.AuthorUser,
		Text:            req.Text,
		LinkedDrawingID: req.LinkedDrawingID,
		LinkedResultID:  req.LinkedResultID,
	}
	// Which verification failed decides the noun in the 404 body; the
	// status stays the same either way.
	denied, noun := "chat_session", "session"
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := ownership.Verify(tx, ownership.ChatSession, sessionID, principal); err != nil {
			return err
		}

		var session model.ChatSession
		if err := tx.First(&session, sessionID).Error; err != nil {
			return err
		}
		if session.Closed() {
			return errSessionClosed
		}

		if req.LinkedDrawingID != nil {
			if err := ownership.Verify(tx, ownership.Drawing, *req.LinkedDrawingID, principal); err != nil {
				denied, noun = "drawing", "drawing"
				return err
			}
		}
		if req.LinkedResultID != nil {
			if err := ownership.Verify(tx, ownership.Result, *req.LinkedResultID, principal); err != nil {
				denied, noun = "result", "result"
				return err
			}
		}

		return tx.Create(&message).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ownership.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
			middleware.RecordOwnershipDenial(denied)
			respondNotFound(c, noun)
		case errors.Is(err, errSessionClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "session is closed"})
		default:
			respondInternal(c, h.logger, h.dev, "failed to send message", err)
		}
		return
	}

	c.JSON(http.StatusCreated, message)
}

// Close ends a session. Closing an already-closed session is a no-op that
// keeps the original endedAt (first-write-wins).
func (h *ChatHandler) Close(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	sessionID, err := strconv.ParseInt(c.Param("sessionId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "sessionId", Message: "must be an integer"}}})
		return
	}

	var session model.ChatSession
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := ownership.Verify(tx, ownership.ChatSession, sessionID, principal); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&model.ChatSession{}).
			Where("id = ? AND ended_at IS NULL", sessionID).
			Update("ended_at", now).Error; err != nil {
			return err
		}

		return tx.First(&session, sessionID).Error
	})
	if err != nil {
		if errors.Is(err, ownership.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.RecordOwnershipDenial("chat_session")
			respondNotFound(c, "session")
			return
		}
		respondInternal(c, h.logger, h.dev, "failed to close session", err)
		return
	}

	c.JSON(http.StatusOK, session)
}
