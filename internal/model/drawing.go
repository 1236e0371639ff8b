package model

import "time"

type Drawing struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID int64     `gorm:"not null;index" json:"ownerUserId"`
	FilePath    string    `gorm:"not null;size:512" json:"filePath"`
	Description *string   `json:"description,omitempty"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploadedAt"`
	Owner       User      `gorm:"foreignKey:OwnerUserID" json:"-"`
}

func (Drawing) TableName() string {
	return "drawings"
}
