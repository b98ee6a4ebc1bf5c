package core

import "context"

// PropertyStore keeps small json encoded worker checkpoints, such as the last vault NFT sync.
type PropertyStore interface {
	// Get leaves value untouched if key was never set.
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any) error
}
