package typeprof

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/typeprof/fs"
	"github.com/stretchr/testify/require"
)

const block1 = `
format: v1
path: smoke/block1.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, definemethod, foo, foo]
      - [6, putself]
      - [putstring, str]
      - [send, {mid: foo, argc: 1, fcall: true, block: "block in <main>"}]
      - [pop]
      - [9, putself]
      - [putobject, ":sym"]
      - [send, {mid: foo, argc: 1, fcall: true, block: "block (2) in <main>"}]
      - [leave]
  - name: foo
    kind: method
    params: {lead: 1}
    locals: [x]
    insns:
      - [1, body_start]
      - [2, getlocal, 0, 0]
      - [invokeblock, 1]
      - [pop]
      - [3, putobject, 1]
      - [invokeblock, 1]
      - [leave]
  - name: "block in <main>"
    kind: block
    params: {lead: 1}
    locals: [x]
    insns:
      - [6, body_start]
      - [7, getlocal, 0, 0]
      - [leave]
  - name: "block (2) in <main>"
    kind: block
    params: {lead: 1}
    locals: [x]
    insns:
      - [9, body_start]
      - [10, putobject, 1]
      - [putobject, 1]
      - [send, {mid: "+", argc: 1}]
      - [branch, unless, 7]
      - [11, getlocal, 0, 0]
      - [leave]
      - [13, putobject, 1]
      - [leave]
`

const attrClass = `
format: v1
path: foo.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putspecialobject, 3]
      - [putnil]
      - [defineclass, Foo, "<class:Foo>", 0]
      - [pop]
      - [8, putnil]
      - [getconstant, Foo]
      - [putobject, 1]
      - [send, {mid: new, argc: 1}]
      - [leave]
  - name: "<class:Foo>"
    kind: class
    insns:
      - [2, putself]
      - [putobject, ":x"]
      - [send, {mid: attr_reader, argc: 1, fcall: true}]
      - [pop]
      - [3, definemethod, initialize, initialize]
      - [putnil]
      - [leave]
  - name: initialize
    kind: method
    params: {lead: 1}
    locals: [x]
    insns:
      - [3, body_start]
      - [4, getlocal, 0, 0]
      - [setinstancevariable, "@x"]
      - [putnil]
      - [leave]
`

const arityError = `
format: v1
path: err.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, definemethod, foo, foo]
      - [4, putself]
      - [send, {mid: foo, argc: 0, fcall: true}]
      - [leave]
  - name: foo
    kind: method
    params: {lead: 1}
    locals: [x]
    insns:
      - [1, body_start]
      - [2, getlocal, 0, 0]
      - [leave]
`

func analyze(t *testing.T, files map[string]string, options ...Option) *Result {
	t.Helper()
	ctx := context.Background()

	mfs := fs.NewMemoryFS(files)
	a, err := New(append([]Option{WithFS(mfs)}, options...)...)
	if err != nil {
		t.Fatalf("New() failed: %+v", err)
	}
	if err := a.Load(ctx, mfs.Names()...); err != nil {
		t.Fatalf("Load() failed: %+v", err)
	}
	result, err := a.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %+v", err)
	}
	return result
}

func TestAnalyzer_Block1(t *testing.T) {
	result := analyze(t, map[string]string{"block1.yaml": block1})

	want := strings.Join([]string{
		"# Classes",
		"class Object",
		"  foo : (:sym | String) { (:sym | Integer | String) -> (:sym | Integer | String) } -> (:sym | Integer | String)",
		"end",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, result.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, result.ErrorCount())
	require.False(t, result.Terminated())
}

func TestAnalyzer_ClassWithAttribute(t *testing.T) {
	result := analyze(t, map[string]string{"foo.yaml": attrClass})

	want := strings.Join([]string{
		"# Classes",
		"class Foo",
		"  attr_reader x : Integer",
		"  initialize : (Integer) -> nil",
		"end",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, result.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	sig, ok := result.MethodSignature("Foo", "initialize", false)
	require.True(t, ok)
	require.Equal(t, "(Integer) -> nil", sig)
}

func TestAnalyzer_ArityError(t *testing.T) {
	result := analyze(t, map[string]string{"err.yaml": arityError})

	want := strings.Join([]string{
		"# Errors",
		"# err.rb:4: [error] wrong number of arguments (given 0, expected 1)",
		"",
		"# Classes",
		"class Object",
		"  foo : (untyped) -> untyped",
		"end",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, result.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, result.ErrorCount())
}

func TestAnalyzer_StepBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 2
	result := analyze(t, map[string]string{"block1.yaml": block1}, WithConfig(cfg))

	require.True(t, result.Terminated())
	require.True(t, strings.HasPrefix(result.String(), "# Analysis terminated after 2 steps"))
}

func TestAnalyzer_RunTwice(t *testing.T) {
	ctx := context.Background()
	mfs := fs.NewMemoryFS(map[string]string{"block1.yaml": block1})
	a, err := New(WithFS(mfs))
	require.NoError(t, err)
	require.NoError(t, a.Load(ctx, "block1.yaml"))

	_, err = a.Run(ctx)
	require.NoError(t, err)
	_, err = a.Run(ctx)
	require.True(t, errors.Is(err, ErrAlreadyRun), "second Run must fail with ErrAlreadyRun, got %v", err)
}

func TestAnalyzer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		a, err := New(WithFS(fs.NewMemoryFS(nil)))
		require.NoError(t, err)
		require.Error(t, a.Load(ctx, "missing.yaml"))
	})
	t.Run("nothing loaded", func(t *testing.T) {
		a, err := New(WithFS(fs.NewMemoryFS(nil)))
		require.NoError(t, err)
		_, err = a.Run(ctx)
		require.Error(t, err)
	})
	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TypeDepthLimit = 0
		_, err := New(WithConfig(cfg))
		require.Error(t, err)
	})
}
