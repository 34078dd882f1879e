// Package repository declares the blob storage contract shared by the
// persistence backends.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Read when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// Store persists opaque serialized collections by stable key.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}
