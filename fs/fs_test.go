package fs

import (
	"errors"
	i_fs "io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryFS(t *testing.T) {
	m := NewMemoryFS(map[string]string{
		"b.yaml":       "b",
		"./dir/a.yaml": "a",
	})

	if diff := cmp.Diff([]string{"b.yaml", "dir/a.yaml"}, m.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	data, err := m.ReadFile("dir/../dir/a.yaml")
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "a" {
		t.Errorf("ReadFile() mismatch. want=%q, got=%q", "a", data)
	}

	m.WriteFile("b.yaml", []byte("bb"))
	info, err := m.Stat("b.yaml")
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if info.Size() != 2 || info.Name() != "b.yaml" || info.IsDir() {
		t.Errorf("unexpected file info: name=%q size=%d", info.Name(), info.Size())
	}

	if _, err := m.ReadFile("missing.yaml"); !errors.Is(err, i_fs.ErrNotExist) {
		t.Errorf("ReadFile() of a missing file must fail with ErrNotExist, got %v", err)
	}
	if _, err := m.Stat("missing.yaml"); !errors.Is(err, i_fs.ErrNotExist) {
		t.Errorf("Stat() of a missing file must fail with ErrNotExist, got %v", err)
	}
}

func TestOSFS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewOSFS()
	data, err := f.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("ReadFile() mismatch. want=%q, got=%q", "x", data)
	}
	if _, err := f.Stat(path); err != nil {
		t.Errorf("Stat() failed: %v", err)
	}
}
