package model

import (
	"time"

	"gorm.io/datatypes"
)

// AIProcess status values. This server only ever writes StatusPending; the
// external worker drives the remaining transitions.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

// ProcessType is the catalog of things the AI worker can do with a drawing
// (story, animation, coloring). Seeded, not user-managed.
type ProcessType struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"not null;size:100;uniqueIndex" json:"name"`
	Description string `gorm:"size:512" json:"description"`
}

func (ProcessType) TableName() string {
	return "process_types"
}

type AIProcess struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DrawingID     int64          `gorm:"not null;index" json:"drawingId"`
	ProcessTypeID int64          `gorm:"not null" json:"processTypeId"`
	Parameters    datatypes.JSON `json:"parameters"`
	Status        string         `gorm:"not null;size:20;default:PENDING" json:"status"`
	StartedAt     time.Time      `gorm:"autoCreateTime" json:"startedAt"`
	Drawing       Drawing        `gorm:"foreignKey:DrawingID" json:"-"`
	ProcessType   ProcessType    `gorm:"foreignKey:ProcessTypeID" json:"-"`
}

func (AIProcess) TableName() string {
	return "ai_processes"
}

// ProcessResult rows are append-only; the worker inserts them, this server
// only reads.
type ProcessResult struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProcessID int64          `gorm:"not null;index" json:"processId"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	Process   AIProcess      `gorm:"foreignKey:ProcessID" json:"-"`
}

func (ProcessResult) TableName() string {
	return "process_results"
}
