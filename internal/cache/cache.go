// Package cache stores serialized batch results for a bounded time so
// repeated dashboard loads do not re-probe every mirror.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/domain"
)

const DefaultTTL = 300 * time.Second

// ResultCache serves BatchResults younger than its TTL. Store errors are
// logged and treated as a miss; the cache never fails a check.
type ResultCache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
	nowFn func() time.Time
}

func New(store Store, ttl time.Duration, log *zap.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ResultCache{store: store, ttl: ttl, log: log, nowFn: time.Now}
}

func (c *ResultCache) TTL() time.Duration { return c.ttl }

// record is the stored form of a BatchResult. The wire encoding leaves out
// each result's Reachable flag, so it is kept alongside in result order.
type record struct {
	Batch     domain.BatchResult `json:"batch"`
	Reachable []bool             `json:"reachable"`
}

func encode(br domain.BatchResult) ([]byte, error) {
	rec := record{Batch: br}
	if len(br.Results) > 0 {
		rec.Reachable = make([]bool, len(br.Results))
		for i, r := range br.Results {
			rec.Reachable[i] = r.Reachable
		}
	}
	return json.Marshal(rec)
}

func decode(b []byte) (domain.BatchResult, error) {
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.BatchResult{}, err
	}
	if len(rec.Reachable) != len(rec.Batch.Results) {
		return domain.BatchResult{}, fmt.Errorf("reachable flags: got %d for %d results", len(rec.Reachable), len(rec.Batch.Results))
	}
	for i := range rec.Batch.Results {
		rec.Batch.Results[i].Reachable = rec.Reachable[i]
	}
	return rec.Batch, nil
}

// Get returns the cached result for key if it exists and has not expired.
// Expired or unreadable entries are deleted.
func (c *ResultCache) Get(ctx context.Context, key string) (domain.BatchResult, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache_read_failed", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return domain.BatchResult{}, false
	}
	if !ok {
		return domain.BatchResult{}, false
	}
	age := c.nowFn().Sub(e.CreatedAt)
	if age < 0 || age >= c.ttl {
		c.log.Debug("cache_expired", zap.String("key", key), zap.Duration("age", age))
		c.evict(ctx, key)
		return domain.BatchResult{}, false
	}

	br, err := decode(e.Value)
	if err != nil {
		c.log.Warn("cache_decode_failed", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return domain.BatchResult{}, false
	}
	c.log.Debug("cache_hit", zap.String("key", key), zap.Duration("age", age))
	return br, true
}

// Set stores br under key. A failed write is logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key string, br domain.BatchResult) {
	b, err := encode(br)
	if err != nil {
		c.log.Warn("cache_encode_failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Put(ctx, Entry{Key: key, Value: b, CreatedAt: c.nowFn()}); err != nil {
		c.log.Warn("cache_write_failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ResultCache) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Warn("cache_evict_failed", zap.String("key", key), zap.Error(err))
	}
}

// Key derives the cache key for a check mode over an endpoint list. Any
// change to the list (order included) yields a different key.
func Key(mode string, endpoints []domain.Endpoint) string {
	h := sha256.New()
	for _, ep := range endpoints {
		h.Write([]byte(ep.Name))
		h.Write([]byte{0})
		h.Write([]byte(ep.URL))
		h.Write([]byte{0})
		h.Write([]byte(ep.Provider))
		h.Write([]byte{'\n'})
	}
	return mode + "_" + hex.EncodeToString(h.Sum(nil))[:16]
}
