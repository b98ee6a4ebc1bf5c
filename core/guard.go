package core

import (
	"context"
	"log/slog"
)

type GuardFunc func(ctx context.Context, logger *slog.Logger, traceID string) error

// Guard serializes operations sharing a key within the process.
type Guard interface {
	// Key returns the lock key of an operation family for userID.
	Key(family string, userID int64) string
	Do(ctx context.Context, key string, fn GuardFunc) error
}
