package cache

import (
	"context"
	"time"
)

// Entry is one serialized BatchResult and the instant it was stored.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
}

// Store is the persistence port behind ResultCache. Put must publish the
// entry atomically: a concurrent Get sees either the old entry or the new
// one, never a partial write. Concurrent Puts to one key are last-write-wins.
type Store interface {
	// Get returns ok=false, err=nil when there is no entry for key.
	Get(ctx context.Context, key string) (e Entry, ok bool, err error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
}
