package capture

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/screenq/screenq/internal/fallback"
)

const screenshotTimeout = 5 * time.Second

// screenshotStrategies builds the capture chain, fastest method first. Each
// strategy produces the path of a PNG written into dir or fails.
func screenshotStrategies(dir string) []fallback.Strategy[string] {
	target := func() string {
		return filepath.Join(dir, fmt.Sprintf("screenshot_%d.png", time.Now().Unix()))
	}

	return []fallback.Strategy[string]{
		{
			Name: "native",
			Run: func(ctx context.Context) (string, error) {
				return captureNative(target())
			},
		},
		{
			Name: "gnome-screenshot",
			Run: func(ctx context.Context) (string, error) {
				path := target()
				return path, captureCommand(ctx, path, "gnome-screenshot", "-f", path)
			},
		},
		{
			Name: "scrot",
			Run: func(ctx context.Context) (string, error) {
				path := target()
				return path, captureCommand(ctx, path, "scrot", path)
			},
		},
		{
			Name: "import",
			Run: func(ctx context.Context) (string, error) {
				path := target()
				return path, captureCommand(ctx, path, "import", "-window", "root", path)
			},
		},
	}
}

// captureNative grabs the primary display in-process.
func captureNative(path string) (string, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return "", fmt.Errorf("no active displays")
	}

	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		return "", fmt.Errorf("capture display: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}

	return path, nil
}

// captureCommand runs an external screenshot utility and verifies it wrote
// the target file.
func captureCommand(ctx context.Context, path, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, screenshotTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out after %s", name, screenshotTimeout)
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s produced no file: %w", name, err)
	}

	return nil
}
