// Package launcher opens the chat page in the user's browser. Launch
// problems are logged, never fatal: the URL is always printed so the page
// stays reachable by hand.
package launcher

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/browser"

	"github.com/screenq/screenq/internal/logger"
)

const launchTimeout = 10 * time.Second

// Open starts the configured browser with the URL, falling back to the
// platform default when the named binary is missing or fails to start.
func Open(ctx context.Context, browserCmd, url string) {
	if browserCmd != "" {
		ctx, cancel := context.WithTimeout(ctx, launchTimeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, browserCmd, url)
		err := cmd.Start()
		if err == nil {
			logger.Info("opened browser", "browser", browserCmd, "url", url)
			return
		}
		logger.Warn("configured browser failed, trying platform default", "browser", browserCmd, "error", err)
	}

	if err := browser.OpenURL(url); err != nil {
		logger.Warn("could not open a browser, open the page manually", "url", url, "error", err)
	}
}
