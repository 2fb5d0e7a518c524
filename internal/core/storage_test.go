package core

import (
	"path/filepath"
	"testing"

	"gridcore/internal/infra/persistence/memory"
	"gridcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("GRIDCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("store is %T", store)
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("GRIDCORE_STORAGE_DRIVER", "")
	t.Setenv("GRIDCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "grid.db"))
	store, err := OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("store is %T", store)
	}
	_ = s.Close()
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("GRIDCORE_STORAGE_DRIVER", "cassandra")
	if _, err := OpenPersistentStore(nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
