package tokenstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store persists small string values such as the session access token
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}
