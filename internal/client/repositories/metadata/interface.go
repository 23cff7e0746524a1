// Package metadata keeps small key/value facts of the CLI session in the
// local cache: the tokens and the last known account.
package metadata

import (
	"context"
)

// Keys used by the client.
const (
	KeyProviderToken = "provider_token"
	KeySessionToken  = "session_token"
	KeyAccount       = "account"
	KeyLastSync      = "last_sync"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// GetJSON decodes the value of key into v and reports whether it existed.
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}
