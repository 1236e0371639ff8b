package model

import "time"

// Chat message authors.
const (
	AuthorUser = "USER"
	AuthorAI   = "AI"
)

type ChatSession struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID int64      `gorm:"not null;index" json:"ownerUserId"`
	Title       string     `gorm:"not null;size:255" json:"title"`
	StartedAt   time.Time  `gorm:"autoCreateTime" json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Owner       User       `gorm:"foreignKey:OwnerUserID" json:"-"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// Closed reports whether the session has reached its terminal state.
func (s *ChatSession) Closed() bool {
	return s.EndedAt != nil
}

type ChatMessage struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       int64       `gorm:"not null;index" json:"sessionId"`
	Author          string      `gorm:"not null;size:10" json:"author"`
	Text            string      `gorm:"not null" json:"text"`
	LinkedDrawingID *int64      `json:"linkedDrawingId,omitempty"`
	LinkedResultID  *int64      `json:"linkedResultId,omitempty"`
	SentAt          time.Time   `gorm:"autoCreateTime" json:"sentAt"`
	Session         ChatSession `gorm:"foreignKey:SessionID" json:"-"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
