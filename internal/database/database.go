package database

import (
	"github.com/kidcanvas/api/internal/config"
	"github.com/kidcanvas/api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logMode := logger.Warn
	if cfg.Development() {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.ProcessType{},
		&model.Drawing{},
		&model.AIProcess{},
		&model.ProcessResult{},
		&model.ChatSession{},
		&model.ChatMessage{},
	)
}
