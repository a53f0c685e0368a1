package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var resultsBucket = []byte("results")

// BoltStore keeps entries in a bbolt database; each Put is one transaction.
type BoltStore struct {
	db *bolt.DB
}

type boltEntry struct {
	CreatedAt time.Time `json:"created_at"`
	Value     []byte    `json:"value"`
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		be boltEntry
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(resultsBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		ok = true
		// raw is only valid inside the transaction; Unmarshal copies it out
		return json.Unmarshal(raw, &be)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("read bolt entry %s: %w", key, err)
	}
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{Key: key, Value: be.Value, CreatedAt: be.CreatedAt}, true, nil
}

func (s *BoltStore) Put(ctx context.Context, e Entry) error {
	b, err := json.Marshal(boltEntry{CreatedAt: e.CreatedAt, Value: e.Value})
	if err != nil {
		return fmt.Errorf("encode bolt entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(e.Key), b)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resultsBucket).Delete([]byte(key))
	})
}
