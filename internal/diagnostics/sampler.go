package diagnostics

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Result is the outcome of sampling one metric. When the provider call fails,
// Value holds the fallback, Fallback is true and Err records why.
type Result[T any] struct {
	Value    T
	Err      error
	Fallback bool
}

// Sample invokes call once and converts any failure, including a panic, into
// the fallback value. It never propagates provider failures.
func Sample[T any](ctx context.Context, logger *zap.Logger, metric string, call func(context.Context) (T, error), fallback T) (res Result[T]) {
	defer func() {
		if v := recover(); v != nil {
			res = Result[T]{
				Value:    fallback,
				Err:      NewProviderError(metric, ErrUnavailable, fmt.Errorf("provider panicked: %v", v)),
				Fallback: true,
			}
			logger.Warn("metric provider panicked", zap.String("metric", metric), zap.Any("panic", v))
		}
	}()

	v, err := call(ctx)
	if err != nil {
		logger.Debug("metric unavailable, using fallback",
			zap.String("metric", metric),
			zap.Error(err),
		)
		return Result[T]{Value: fallback, Err: err, Fallback: true}
	}
	return Result[T]{Value: v}
}
