package metadata

import "context"

// Repository stores internal key-value metadata (offline auth cache, device
// identity). Unlike settings, metadata never leaves the device and is not
// part of snapshot exports.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
