// Package scheduler runs the upload janitor: a crash between storing a file
// and inserting its drawing row leaks the file, so the janitor periodically
// sweeps the upload directory for files no row references.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kidcanvas/api/internal/model"
	"github.com/kidcanvas/api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Janitor struct {
	db       *gorm.DB
	dir      string
	interval time.Duration
	grace    time.Duration
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}

	lastRun     time.Time
	lastRemoved int
}

type JanitorConfig struct {
	UploadDir string
	Interval  time.Duration
	Grace     time.Duration
}

func NewJanitor(db *gorm.DB, logger *zap.SugaredLogger, cfg JanitorConfig) *Janitor {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Grace == 0 {
		cfg.Grace = 30 * time.Minute
	}

	return &Janitor{
		db:       db,
		dir:      cfg.UploadDir,
		interval: cfg.Interval,
		grace:    cfg.Grace,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	j.logger.Infow("janitor started", "interval", j.interval, "grace", j.grace)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopping: context cancelled")
			return
		case <-j.stopChan:
			j.logger.Info("janitor stopping: stop signal")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		close(j.stopChan)
		j.running = false
	}
}

// Status reports the last sweep for the health endpoint.
func (j *Janitor) Status() map[string]interface{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	return map[string]interface{}{
		"running":     j.running,
		"lastRun":     j.lastRun,
		"lastRemoved": j.lastRemoved,
	}
}

// sweep removes files older than the grace period that no drawing row
// references. Files younger than the grace period may belong to an upload
// still in flight and are left alone.
func (j *Janitor) sweep() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		j.logger.Warnw("janitor cannot read upload dir", "dir", j.dir, "error", err)
		return
	}

	cutoff := time.Now().Add(-j.grace)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		storedPath := storage.PublicPath(j.dir, entry.Name())

		var count int64
		if err := j.db.Model(&model.Drawing{}).
			Where("file_path = ?", storedPath).
			Count(&count).Error; err != nil {
			j.logger.Warnw("janitor reference check failed", "path", storedPath, "error", err)
			continue
		}
		if count > 0 {
			continue
		}

		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil {
			j.logger.Warnw("janitor failed to remove file", "path", storedPath, "error", err)
			continue
		}
		removed++
		j.logger.Infow("janitor removed orphaned file", "path", storedPath)
	}

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastRemoved = removed
	j.mu.Unlock()
}
