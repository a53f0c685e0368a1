package cache

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
)

// OpenStore builds the named backend rooted at dir. The returned close
// func is never nil. The bolt backend opens a real file and so requires fs
// to be the OS filesystem.
func OpenStore(fs afero.Fs, backend, dir string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	case BackendFile, "":
		s, err := NewFileStore(fs, dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendBolt:
		if _, ok := fs.(*afero.OsFs); !ok {
			return nil, noop, fmt.Errorf("cache backend %q needs the OS filesystem, got %s", backend, fs.Name())
		}
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("create cache dir: %w", err)
		}
		s, err := OpenBoltStore(filepath.Join(dir, "results.db"))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", backend)
}
