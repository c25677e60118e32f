package sweeper

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/screenq/screenq/internal/logger"
)

// Sweeper prunes old screenshots and session files on a schedule so the
// capture directories do not grow without bound.
type Sweeper struct {
	dirs      []string
	retention time.Duration
	cron      *cron.Cron
}

func New(retentionDays int, dirs ...string) *Sweeper {
	return &Sweeper{
		dirs:      dirs,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		cron:      cron.New(),
	}
}

// Start runs one sweep immediately, then hourly until Stop.
func (s *Sweeper) Start() error {
	s.Sweep()

	if _, err := s.cron.AddFunc("@hourly", s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep removes regular files older than the retention window. Failures are
// logged and skipped; a locked or vanished file must not stop the pass.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.retention)
	removed := 0

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("sweep: read dir failed", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				logger.Warn("sweep: remove failed", "path", path, "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		logger.Info("sweep complete", "removed", removed, "retention", s.retention)
	}
}
