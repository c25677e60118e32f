package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/screenq/screenq/internal/fallback"
)

const textTimeout = 2 * time.Second

// textStrategies builds the text-capture chain: X primary selection first,
// then the clipboard. Whitespace-only output counts as a failure.
func textStrategies() []fallback.Strategy[string] {
	return []fallback.Strategy[string]{
		{
			Name: "xclip-primary",
			Run: func(ctx context.Context) (string, error) {
				return selectionCommand(ctx, "xclip", "-selection", "primary", "-o")
			},
		},
		{
			Name: "xsel-primary",
			Run: func(ctx context.Context) (string, error) {
				return selectionCommand(ctx, "xsel", "-p")
			},
		},
		{
			Name: "clipboard",
			Run: func(ctx context.Context) (string, error) {
				text, err := clipboard.ReadAll()
				if err != nil {
					return "", fmt.Errorf("read clipboard: %w", err)
				}
				return nonEmpty(text)
			},
		},
	}
}

func selectionCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, textTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%s timed out after %s", name, textTimeout)
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return nonEmpty(stdout.String())
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty selection")
	}
	return text, nil
}
