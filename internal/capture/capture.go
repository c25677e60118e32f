package capture

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/screenq/screenq/internal/fallback"
	"github.com/screenq/screenq/internal/logger"
)

// Uploader publishes a local screenshot file and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, bool)
}

// Snapshot is the context captured once at startup. Immutable for the run;
// the server keeps its own mutable copy for /api/context merges.
type Snapshot struct {
	ID             string
	Text           string
	ScreenshotPath string
	ImageURL       string
	CapturedAt     time.Time
}

// ContextMap flattens the snapshot into the key/value form served to the
// chat page and persisted in the session record.
func (s Snapshot) ContextMap() map[string]any {
	return map[string]any{
		"selected_text":   s.Text,
		"screenshot_path": s.ScreenshotPath,
		"image_url":       s.ImageURL,
		"timestamp":       s.CapturedAt.Unix(),
	}
}

type Capturer struct {
	screenshots []fallback.Strategy[string]
	texts       []fallback.Strategy[string]
	uploader    Uploader
}

// New builds a capturer with the default strategy chains writing screenshots
// into dir. uploader may be nil, in which case no image URL is produced.
func New(dir string, uploader Uploader) *Capturer {
	return &Capturer{
		screenshots: screenshotStrategies(dir),
		texts:       textStrategies(),
		uploader:    uploader,
	}
}

// Capture runs the screenshot chain, the text chain, and (when a screenshot
// was produced) the upload chain. A sub-chain exhausting all its strategies
// only degrades the corresponding field; Capture itself never fails.
func (c *Capturer) Capture(ctx context.Context) Snapshot {
	snap := Snapshot{
		ID:         uuid.NewString(),
		CapturedAt: time.Now(),
	}

	if path, ok := fallback.First(ctx, "screenshot", c.screenshots); ok {
		snap.ScreenshotPath = path
		logger.Info("screenshot captured", "path", path)
	}

	// text context is optional: exhaustion degrades to the empty string
	snap.Text, _ = fallback.First(ctx, "text", c.texts)

	if snap.ScreenshotPath != "" && c.uploader != nil {
		if url, ok := c.uploader.Upload(ctx, snap.ScreenshotPath); ok {
			snap.ImageURL = url
			logger.Info("screenshot uploaded", "url", url)
		}
	}

	return snap
}
