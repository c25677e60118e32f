package fallback

import (
	"context"
	"fmt"

	"github.com/screenq/screenq/internal/logger"
)

// Strategy is one ordered attempt at producing a value.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// First runs strategies in order and returns the first successful result.
// A failing or panicking strategy never aborts the chain; its failure is
// logged and the next strategy is tried. When every strategy fails, First
// returns the zero value and false.
func First[T any](ctx context.Context, chain string, strategies []Strategy[T]) (T, bool) {
	for _, s := range strategies {
		result, err := attempt(ctx, s)
		if err != nil {
			logger.Debug("strategy failed", "chain", chain, "strategy", s.Name, "error", err)
			continue
		}

		logger.Debug("strategy succeeded", "chain", chain, "strategy", s.Name)
		return result, true
	}

	logger.Warn("all strategies failed", "chain", chain, "attempted", len(strategies))

	var zero T
	return zero, false
}

func attempt[T any](ctx context.Context, s Strategy[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	return s.Run(ctx)
}
