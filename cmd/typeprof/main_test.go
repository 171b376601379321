package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const okBundle = `
format: v1
path: main.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putobject, 1]
      - [setglobal, "$foo"]
      - [putnil]
      - [leave]
`

const errBundle = `
format: v1
path: main.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putnil]
      - [send, {mid: foo, argc: 0}]
      - [leave]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", path, err)
	}
	return path
}

func stderrFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stderr.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yaml", okBundle)

	var stdout bytes.Buffer
	opts := options{paths: []string{path}, set: map[string]bool{}}
	if err := run(context.Background(), &stdout, stderrFile(t), opts); err != nil {
		t.Fatalf("run() failed: %+v", err)
	}
	want := "# Global variables\n$foo : Integer\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ErrorsFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yaml", errBundle)

	var stdout bytes.Buffer
	opts := options{paths: []string{path}, set: map[string]bool{}}
	err := run(context.Background(), &stdout, stderrFile(t), opts)
	if !errors.Is(err, errFound) {
		t.Fatalf("run() must return errFound, got %v", err)
	}
}

func TestRun_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yaml", okBundle)
	cachePath := filepath.Join(dir, "cache", "typeprof.json")

	opts := options{paths: []string{path}, cachePath: cachePath, set: map[string]bool{}}
	var first bytes.Buffer
	if err := run(context.Background(), &first, stderrFile(t), opts); err != nil {
		t.Fatalf("first run() failed: %+v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache file must be written: %v", err)
	}

	var second bytes.Buffer
	if err := run(context.Background(), &second, stderrFile(t), opts); err != nil {
		t.Fatalf("second run() failed: %+v", err)
	}
	if diff := cmp.Diff(first.String(), second.String()); diff != "" {
		t.Errorf("cached output mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "typeprof.yaml", "max_steps: 100\npedantic: true\n")

	opts := options{
		configPath: cfgPath,
		maxSteps:   5,
		set:        map[string]bool{"max-steps": true},
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("loadConfig() failed: %+v", err)
	}
	if cfg.MaxSteps != 5 {
		t.Errorf("MaxSteps mismatch. want=5, got=%d", cfg.MaxSteps)
	}
	if !cfg.Pedantic {
		t.Error("Pedantic from the config file must be kept")
	}

	opts.set["log-level"] = true
	opts.logLevel = "loud"
	if _, err := loadConfig(opts); err == nil {
		t.Error("loadConfig() with an invalid log level must fail")
	}
}
