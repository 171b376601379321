package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResultCache_Disabled(t *testing.T) {
	c := NewResultCache("", nil)
	if c.IsEnabled() {
		t.Fatal("cache with empty path must be disabled")
	}
	c.Set("k", Entry{Output: "x"})
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache must always miss")
	}
	if err := c.Load(); err != nil {
		t.Errorf("Load() on disabled cache failed: %v", err)
	}
	if err := c.Save(); err != nil {
		t.Errorf("Save() on disabled cache failed: %v", err)
	}
}

func TestResultCache_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c := NewResultCache(path, nil)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() of a missing file failed: %v", err)
	}
	want := Entry{Output: "# Classes\n", Errors: 1}
	c.Set("k1", want)
	if err := c.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded := NewResultCache(path, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got, ok := reloaded.Get("k1")
	if !ok {
		t.Fatal("entry lost across Save/Load")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestResultCache_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewResultCache(path, nil)
	if err := c.Load(); err != nil {
		t.Fatalf("Load() must tolerate a corrupted file, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("corrupted cache must start empty, got %d entries", c.Len())
	}
}

func TestResultCache_SaveSkipsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := NewResultCache(path, nil)
	if err := c.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Save() without changes must not create the file, stat err=%v", err)
	}
}

func TestKey(t *testing.T) {
	if Key([]byte("ab"), []byte("c")) == Key([]byte("a"), []byte("bc")) {
		t.Error("Key must separate parts")
	}
	if Key([]byte("a")) != Key([]byte("a")) {
		t.Error("Key must be deterministic")
	}
}
