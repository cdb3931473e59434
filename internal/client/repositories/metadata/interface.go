// Package metadata is a small key/value store over the local "metadata"
// table. The session keeps its token and user record here.
package metadata

import (
	"context"
	"time"
)

// Entry is one stored key with its last write time.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Repository reads and writes metadata rows. A missing key reads as
// (nil, nil).
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}
