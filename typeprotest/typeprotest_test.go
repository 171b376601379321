package typeprotest

import (
	"context"
	"testing"

	"github.com/podhmo/typeprof"
	"github.com/podhmo/typeprof/evaluator"
)

func TestRun_SingletonMethod(t *testing.T) {
	r := RunBundle(t, `
format: v1
path: util.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putspecialobject, 3]
      - [putnil]
      - [defineclass, Util, "<class:Util>", 0]
      - [pop]
      - [6, putnil]
      - [getconstant, Util]
      - [putstring, a]
      - [send, {mid: twice, argc: 1}]
      - [leave]
  - name: "<class:Util>"
    kind: class
    insns:
      - [2, putself]
      - [definesmethod, twice, twice]
      - [putnil]
      - [leave]
  - name: twice
    kind: method
    params: {lead: 1}
    locals: [s]
    insns:
      - [2, body_start]
      - [3, getlocal, 0, 0]
      - [getlocal, 0, 0]
      - [send, {mid: "+", argc: 1}]
      - [leave]
`)

	AssertNoErrors(t, r)
	AssertMethod(t, r, "Util.twice", "(String) -> String")
	AssertOutput(t, r, `
# Classes
class Util
  self.twice : (String) -> String
end
`)
}

func TestRun_ModuleInclude(t *testing.T) {
	r := RunBundle(t, `
format: v1
path: mod.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putspecialobject, 3]
      - [putnil]
      - [defineclass, M, "<module:M>", 2]
      - [pop]
      - [4, putspecialobject, 3]
      - [putnil]
      - [defineclass, C, "<class:C>", 0]
      - [pop]
      - [7, putnil]
      - [getconstant, C]
      - [send, {mid: new, argc: 0}]
      - [send, {mid: hello, argc: 0}]
      - [leave]
  - name: "<module:M>"
    kind: class
    insns:
      - [2, definemethod, hello, hello]
      - [putnil]
      - [leave]
  - name: hello
    kind: method
    insns:
      - [2, putstring, hi]
      - [leave]
  - name: "<class:C>"
    kind: class
    insns:
      - [5, putself]
      - [putnil]
      - [getconstant, M]
      - [send, {mid: include, argc: 1, fcall: true}]
      - [leave]
`)

	AssertNoErrors(t, r)
	AssertOutput(t, r, `
# Classes
module M
  hello : -> String
end

class C
  include M
end
`)
}

func TestRun_GlobalVariableAndReveal(t *testing.T) {
	r := RunBundle(t, `
format: v1
path: main.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    locals: [a]
    insns:
      - [1, putobject, 1]
      - [setglobal, "$foo"]
      - [2, newarray, 0]
      - [setlocal, 0, 0]
      - [3, getlocal, 0, 0]
      - [getglobal, "$foo"]
      - [send, {mid: "<<", argc: 1}]
      - [pop]
      - [4, putself]
      - [getlocal, 0, 0]
      - [send, {mid: reveal_type, argc: 1, fcall: true}]
      - [leave]
`)

	AssertNoErrors(t, r)
	AssertRevealed(t, r, "main.rb:4", "[Integer]")
	AssertOutput(t, r, `
# Revealed types
#  main.rb:4 #=> [Integer]

# Global variables
$foo : Integer
`)
}

func TestRun_UndefinedMethod(t *testing.T) {
	r := RunBundle(t, `
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
`)

	AssertDiagnostics(t, r, "main.rb:1: [error] undefined method: NilClass#foo")
}

func TestRun_Setup(t *testing.T) {
	called := 0
	r := Run(t, TestCase{
		Files: map[string]string{"main.yaml": `
format: v1
path: main.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putself]
      - [putobject, 1]
      - [send, {mid: to_label, argc: 0}]
      - [send, {mid: reveal_type, argc: 1, fcall: true}]
      - [leave]
`},
		Setup: func(a *typeprof.Analyzer) error {
			return a.RegisterNative("Integer#to_label", func(ctx context.Context, e *evaluator.Evaluator, c *evaluator.NativeCall) {
				called++
				c.Return(c.Recv)
			})
		},
	})

	AssertNoErrors(t, r)
	AssertRevealed(t, r, "main.rb:1", "Integer")
	if called == 0 {
		t.Error("native method was not called")
	}
}

func TestRun_Config(t *testing.T) {
	cfg := typeprof.DefaultConfig()
	cfg.MaxSteps = 1
	r := Run(t, TestCase{
		Files: map[string]string{"main.yaml": `
format: v1
path: main.rb
main: "<main>"
bodies:
  - name: "<main>"
    kind: top
    insns:
      - [1, putnil]
      - [putnil]
      - [pop]
      - [leave]
`},
		Config: cfg,
	})
	if !r.Terminated() {
		t.Error("analysis must be terminated by the step budget")
	}
}

func TestSplitMethod(t *testing.T) {
	cases := []struct {
		in        string
		class     string
		name      string
		singleton bool
	}{
		{in: "Foo#bar", class: "Foo", name: "bar"},
		{in: "A::B.baz", class: "A::B", name: "baz", singleton: true},
		{in: "foo", class: "Object", name: "foo"},
	}
	for _, tc := range cases {
		class, name, singleton := splitMethod(tc.in)
		if class != tc.class || name != tc.name || singleton != tc.singleton {
			t.Errorf("splitMethod(%q) = %q, %q, %v", tc.in, class, name, singleton)
		}
	}
}
