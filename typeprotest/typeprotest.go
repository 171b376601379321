// Package typeprotest runs the analyzer over YAML bundles written into a
// temporary directory and offers assertions on the result.
package typeprotest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/typeprof"
)

// TestCase describes one analysis scenario.
type TestCase struct {
	// Files maps a path relative to the temporary directory to its content.
	// Every file ending in .yaml is loaded, in path order.
	Files map[string]string

	// Config overrides the default settings.
	Config *typeprof.Config

	// Setup runs after the analyzer is created and before Run, e.g. to
	// declare methods or register natives.
	Setup func(a *typeprof.Analyzer) error
}

// WriteFiles creates a temporary directory and populates it with files.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll(%q): %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%q): %v", path, err)
		}
	}
	return dir
}

// Run writes the files of tc, analyzes them and returns the result.
func Run(t *testing.T, tc TestCase) *typeprof.Result {
	t.Helper()
	ctx := context.Background()
	dir := WriteFiles(t, tc.Files)

	var names []string
	for name := range tc.Files {
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		t.Fatal("typeprotest.Run requires at least one .yaml bundle")
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	a, err := typeprof.New(typeprof.WithConfig(tc.Config), typeprof.WithLogger(NewLogger(t)))
	if err != nil {
		t.Fatalf("typeprof.New() failed: %+v", err)
	}
	if tc.Setup != nil {
		if err := tc.Setup(a); err != nil {
			t.Fatalf("setup failed: %+v", err)
		}
	}
	if err := a.Load(ctx, paths...); err != nil {
		t.Fatalf("Load() failed: %+v", err)
	}
	result, err := a.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %+v", err)
	}
	return result
}

// NewLogger returns a logger writing to t.Log, so that the analyzer log is
// shown for failed tests only.
func NewLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RunBundle analyzes a single bundle source.
func RunBundle(t *testing.T, src string) *typeprof.Result {
	t.Helper()
	return Run(t, TestCase{Files: map[string]string{"main.yaml": src}})
}

// AssertOutput compares the whole formatted output.
func AssertOutput(t *testing.T, r *typeprof.Result, want string) {
	t.Helper()
	if diff := cmp.Diff(strings.TrimLeft(want, "\n"), r.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// AssertNoErrors fails the test if any diagnostic was reported.
func AssertNoErrors(t *testing.T, r *typeprof.Result) {
	t.Helper()
	for _, d := range r.Diagnostics() {
		t.Errorf("unexpected diagnostic: %s", d)
	}
}

// AssertDiagnostics checks that the diagnostics messages contain each of the
// given fragments, in order, one fragment per diagnostic.
func AssertDiagnostics(t *testing.T, r *typeprof.Result, contains ...string) {
	t.Helper()
	diags := r.Diagnostics()
	if len(diags) != len(contains) {
		t.Fatalf("want %d diagnostics, got %d: %v", len(contains), len(diags), diags)
	}
	for i, c := range contains {
		if !strings.Contains(diags[i].String(), c) {
			t.Errorf("diagnostic %q does not contain %q", diags[i], c)
		}
	}
}

// AssertMethod checks the formatted signature of a method. The method is
// named "Class#name" or "Class.name" for a singleton method.
func AssertMethod(t *testing.T, r *typeprof.Result, method, want string) {
	t.Helper()
	class, name, singleton := splitMethod(method)
	got, ok := r.MethodSignature(class, name, singleton)
	if !ok {
		t.Fatalf("method %s not found", method)
	}
	if got != want {
		t.Errorf("signature of %s mismatch. want=%q, got=%q", method, want, got)
	}
}

// AssertRevealed checks the type revealed at a source location ("path:line").
func AssertRevealed(t *testing.T, r *typeprof.Result, location, want string) {
	t.Helper()
	for _, rv := range r.Evaluator().RevealedTypes() {
		if rv.Location == location {
			if got := r.TypeName(rv.Type); got != want {
				t.Errorf("revealed type at %s mismatch. want=%q, got=%q", location, want, got)
			}
			return
		}
	}
	t.Fatalf("nothing revealed at %s", location)
}

func splitMethod(method string) (class, name string, singleton bool) {
	if i := strings.LastIndex(method, "#"); i >= 0 {
		return method[:i], method[i+1:], false
	}
	if i := strings.LastIndex(method, "."); i >= 0 {
		return method[:i], method[i+1:], true
	}
	return "Object", method, false
}
