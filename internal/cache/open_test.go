package cache

import (
	"testing"

	"github.com/spf13/afero"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()

	for backend, want := range map[string]string{
		BackendMemory: "*cache.MemoryStore",
		BackendFile:   "*cache.FileStore",
		BackendBolt:   "*cache.BoltStore",
	} {
		s, closeFn, err := OpenStore(fs, backend, dir)
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if got := typeName(s); got != want {
			t.Fatalf("%s: got %s", backend, got)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("%s close: %v", backend, err)
		}
	}

	if _, closeFn, err := OpenStore(fs, "redis", dir); err == nil || closeFn == nil {
		t.Fatalf("unknown backend should fail with a usable close func")
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *MemoryStore:
		return "*cache.MemoryStore"
	case *FileStore:
		return "*cache.FileStore"
	case *BoltStore:
		return "*cache.BoltStore"
	}
	return "?"
}

func TestOpenStore_BoltRejectsVirtualFs(t *testing.T) {
	mem := afero.NewMemMapFs()
	if _, closeFn, err := OpenStore(mem, BackendBolt, "/var/cache/mirrormon"); err == nil || closeFn == nil {
		t.Fatalf("bolt on an in-memory fs should fail with a usable close func")
	}
	if ok, _ := afero.DirExists(mem, "/var/cache/mirrormon"); ok {
		t.Fatalf("rejected open should not create the directory")
	}
}
