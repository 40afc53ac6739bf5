package settings

import "context"

// Repository stores user-facing settings keyed by name. Settings are exempt
// from the synced-flag machinery; the sync engine pushes the whole map as a
// single remote document instead.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
