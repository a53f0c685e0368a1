package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FileStore keeps one JSON document per key in a directory. Writes go to a
// temp file in the same directory which is then renamed over the target.
type FileStore struct {
	fs  afero.Fs
	dir string
}

type fileEntry struct {
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	Value     json.RawMessage `json:"value"`
}

func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	b, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	var fe fileEntry
	if err := json.Unmarshal(b, &fe); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return Entry{Key: fe.Key, Value: []byte(fe.Value), CreatedAt: fe.CreatedAt}, true, nil
}

func (s *FileStore) Put(ctx context.Context, e Entry) error {
	if !json.Valid(e.Value) {
		return fmt.Errorf("cache value for %s is not valid JSON", e.Key)
	}
	b, err := json.Marshal(fileEntry{Key: e.Key, CreatedAt: e.CreatedAt, Value: e.Value})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = tmp.Close()
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path(e.Key)); err != nil {
		return fmt.Errorf("publish cache entry: %w", err)
	}
	published = true
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, safeName(key)+".json")
}

func safeName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}
