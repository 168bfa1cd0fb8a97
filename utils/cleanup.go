package utils

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/campushare/noteshelf/config"
	"github.com/campushare/noteshelf/models"
)

// orphanGracePeriod keeps the sweeper away from files that may belong to an
// upload whose metadata insert is still in flight.
const orphanGracePeriod = time.Hour

// StartOrphanSweeper launches a background goroutine that periodically
// removes files in the storage directory that no Note references. Such files
// can only appear when the process dies between the file write and the
// compensating delete; the sweep is best-effort and logs failures.
func StartOrphanSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			c := config.Get()
			if !c.OrphanSweepEnabled {
				continue
			}
			sweepOrphans(config.DB(), c.StorageDir)
		}
	}()
}

func sweepOrphans(db *gorm.DB, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		Sugar.Warnf("orphan sweep: read dir failed: %v", err)
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < orphanGracePeriod {
			continue
		}
		rel := filepath.Join(dir, entry.Name())
		var note models.Note
		err = db.Select("id").Where("file_path = ?", rel).First(&note).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			Sugar.Warnf("orphan sweep: lookup failed for %s: %v", rel, err)
			continue
		}
		if err := os.Remove(rel); err != nil {
			Sugar.Warnf("orphan sweep: remove failed for %s: %v", rel, err)
		} else {
			Sugar.Infof("orphan sweep: removed %s", rel)
		}
	}
}
