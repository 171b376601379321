package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/stretchr/testify/require"
)

const testPath = "main.rb"

func newBody(name string, kind iseq.Kind, locals []string, lead int, insns ...iseq.Insn) *iseq.CodeBody {
	b := iseq.New(name, kind, testPath)
	b.Locals = locals
	b.Params.LeadNum = lead
	return b.Append(insns...)
}

func fcall(mid string, argc int, opts ...iseq.CallOption) *iseq.CallInfo {
	return iseq.Call(mid, argc, append(opts, iseq.WithFlags(iseq.FlagFCall))...)
}

func runMain(t *testing.T, main *iseq.CodeBody, opts ...Option) *Evaluator {
	t.Helper()
	e := New(opts...)
	if err := e.Run(context.Background(), main); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return e
}

func revealedStrings(e *Evaluator) []string {
	var out []string
	for _, r := range e.RevealedTypes() {
		out = append(out, r.Location+": "+r.Type.Inspect())
	}
	return out
}

func findMethod(t *testing.T, e *Evaluator, class, name string) MethodReport {
	t.Helper()
	for _, r := range e.MethodReports() {
		if r.Class.Name == class && r.Name == name {
			return r
		}
	}
	t.Fatalf("method %s#%s not reported", class, name)
	return MethodReport{}
}

func TestRun_MethodCall(t *testing.T) {
	foo := newBody("foo", iseq.KindMethod, []string{"x"}, 1,
		iseq.BodyStart(),
		iseq.GetLocal(0, 0),
		iseq.Leave(),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(2),
		iseq.PutSelf().At(2),
		iseq.PutObject(iseq.Int(1)).At(2),
		iseq.Send(fcall("foo", 1)).At(2),
		iseq.Send(fcall("reveal_type", 1)).At(2),
		iseq.Leave().At(2),
	)

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:2: Integer"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
	r := findMethod(t, e, "Object", "foo")
	require.NotNil(t, r.Sig)
	require.Len(t, r.Sig.Lead, 1)
	if got := r.Sig.Lead[0].Inspect(); got != "Integer" {
		t.Errorf("parameter type wrong. want=%q, got=%q", "Integer", got)
	}
	if got := r.Ret.Inspect(); got != "Integer" {
		t.Errorf("return type wrong. want=%q, got=%q", "Integer", got)
	}
	if len(e.Diagnostics()) != 0 {
		t.Errorf("unexpected diagnostics: %v", e.Diagnostics())
	}
	if e.Terminated() {
		t.Error("analysis must reach the fixed point")
	}
}

func TestRun_ArityError(t *testing.T) {
	foo := newBody("foo", iseq.KindMethod, []string{"x"}, 1,
		iseq.GetLocal(0, 0),
		iseq.Leave(),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(3),
		iseq.Send(fcall("foo", 0)).At(3),
		iseq.Leave().At(3),
	)

	e := runMain(t, main)

	want := []Diagnostic{
		{Location: "main.rb:3", Severity: SeverityError, Message: "wrong number of arguments (given 0, expected 1)"},
	}
	if diff := cmp.Diff(want, e.Diagnostics()); diff != "" {
		t.Errorf("Diagnostics() mismatch (-want +got):\n%s", diff)
	}

	// never called successfully, so analyzed with unknown arguments
	r := findMethod(t, e, "Object", "foo")
	if got := r.Ret.Inspect(); got != "untyped" {
		t.Errorf("return type wrong. want=%q, got=%q", "untyped", got)
	}
}

func TestRun_DispatchOnUnionReportsOnce(t *testing.T) {
	foo := newBody("foo", iseq.KindMethod, []string{"x"}, 1,
		iseq.GetLocal(0, 0).At(2),
		iseq.Send(iseq.Call("upcase", 0)).At(2),
		iseq.Leave().At(2),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(4),
		iseq.PutObject(iseq.Int(1)).At(4),
		iseq.Send(fcall("foo", 1)).At(4),
		iseq.Pop().At(4),
		iseq.PutSelf().At(5),
		iseq.PutString("s").At(5),
		iseq.Send(fcall("foo", 1)).At(5),
		iseq.Leave().At(5),
	)

	e := runMain(t, main)

	want := []Diagnostic{
		{Location: "main.rb:2", Severity: SeverityError, Message: "undefined method: Integer#upcase"},
	}
	if diff := cmp.Diff(want, e.Diagnostics()); diff != "" {
		t.Errorf("Diagnostics() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Block(t *testing.T) {
	blk := newBody("block in <main>", iseq.KindBlock, []string{"y"}, 1,
		iseq.GetLocal(0, 0),
		iseq.Leave(),
	)
	foo := newBody("foo", iseq.KindMethod, []string{"x"}, 1,
		iseq.BodyStart(),
		iseq.GetLocal(0, 0),
		iseq.InvokeBlock(1),
		iseq.Leave(),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(4),
		iseq.PutSelf().At(4),
		iseq.PutObject(iseq.Int(1)).At(4),
		iseq.Send(fcall("foo", 1, iseq.WithBlock(blk))).At(4),
		iseq.Send(fcall("reveal_type", 1)).At(4),
		iseq.Leave().At(4),
	)

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:4: Integer"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
	require.True(t, e.Executed(blk), "block body must be analyzed through the call")
	require.Empty(t, e.Diagnostics())
}

func TestRun_DeclaredMethodWithBlock(t *testing.T) {
	blk := newBody("block in <main>", iseq.KindBlock, []string{"i"}, 1,
		iseq.PutSelf().At(2),
		iseq.GetLocal(0, 0).At(2),
		iseq.Send(fcall("reveal_type", 1)).At(2),
		iseq.Leave().At(2),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.PutSelf().At(1),
		iseq.PutObject(iseq.Int(3)).At(1),
		iseq.Send(iseq.Call("times", 0, iseq.WithBlock(blk))).At(1),
		iseq.Send(fcall("reveal_type", 1)).At(3),
		iseq.Leave().At(3),
	)

	e := runMain(t, main)

	want := []string{
		"main.rb:2: Integer",
		"main.rb:3: Integer",
	}
	if diff := cmp.Diff(want, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_BranchNarrowing(t *testing.T) {
	foo := newBody("foo", iseq.KindMethod, []string{"x"}, 1,
		iseq.GetLocalBranch(0, 0, iseq.BranchUnless, 5).At(2),
		iseq.PutSelf().At(3),
		iseq.GetLocal(0, 0).At(3),
		iseq.Send(fcall("reveal_type", 1)).At(3),
		iseq.Leave().At(3),
		iseq.PutNil().At(5),
		iseq.Leave().At(5),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(7),
		iseq.PutNil().At(7),
		iseq.Send(fcall("foo", 1)).At(7),
		iseq.Pop().At(7),
		iseq.PutSelf().At(8),
		iseq.PutObject(iseq.Int(1)).At(8),
		iseq.Send(fcall("foo", 1)).At(8),
		iseq.Leave().At(8),
	)

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:3: Integer"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
	r := findMethod(t, e, "Object", "foo")
	if got := r.Sig.Lead[0].Inspect(); got != "Integer | nil" {
		t.Errorf("parameter type wrong. want=%q, got=%q", "Integer | nil", got)
	}
}

func TestRun_InstanceVariables(t *testing.T) {
	set := newBody("set", iseq.KindMethod, nil, 0,
		iseq.PutObject(iseq.Int(1)),
		iseq.SetIvar("@a"),
		iseq.GetIvar("@a"),
		iseq.Leave(),
	)
	classBody := newBody("<class:Foo>", iseq.KindClass, nil, 0,
		iseq.DefineMethod("set", set),
		iseq.PutNil(),
		iseq.Leave(),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.PutSpecialObject(iseq.SpecialCBase),
		iseq.PutNil(),
		iseq.DefineClassInsn("Foo", classBody, iseq.DefineClass),
		iseq.Pop(),
		iseq.PutNil(),
		iseq.GetConstant("Foo"),
		iseq.Send(iseq.Call("new", 0)),
		iseq.Send(iseq.Call("set", 0)),
		iseq.Leave(),
	)

	e := runMain(t, main)

	var got []string
	for _, iv := range e.InstanceVariables() {
		got = append(got, fmt.Sprintf("%s %s: %s", iv.Class.Name, iv.Name, iv.Type.Inspect()))
	}
	if diff := cmp.Diff([]string{"Foo @a: Integer"}, got); diff != "" {
		t.Errorf("InstanceVariables() mismatch (-want +got):\n%s", diff)
	}
	r := findMethod(t, e, "Foo", "set")
	if got := r.Ret.Inspect(); got != "Integer" {
		t.Errorf("return type wrong. want=%q, got=%q", "Integer", got)
	}
	require.Len(t, e.Classes(), 1)
	require.Equal(t, "Foo", e.Classes()[0].Class.Name)
}

func TestRun_RescueEdge(t *testing.T) {
	rescue := newBody("rescue in <main>", iseq.KindRescue, []string{"$!"}, 0,
		iseq.GetLocal(0, 0),
		iseq.Leave(),
	)
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.PutSelf().At(1),
		iseq.Send(fcall("raise", 0)).At(1),
		iseq.PutSelf().At(3),
		iseq.Swap().At(3),
		iseq.Send(fcall("reveal_type", 1)).At(3),
		iseq.Leave().At(3),
	)
	main.AddCatch(1, 2, iseq.CatchEntry{Kind: iseq.CatchRescue, Body: rescue, Cont: 2, StackDepth: 0})

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:3: StandardError"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ArrayContainer(t *testing.T) {
	main := newBody("<main>", iseq.KindTop, []string{"a"}, 0,
		iseq.NewArray(0),
		iseq.SetLocal(0, 0),
		iseq.GetLocal(0, 0),
		iseq.PutObject(iseq.Int(1)),
		iseq.Send(iseq.Call("<<", 1)),
		iseq.Pop(),
		iseq.PutSelf().At(2),
		iseq.GetLocal(0, 0).At(2),
		iseq.Send(fcall("reveal_type", 1)).At(2),
		iseq.Leave(),
	)

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:2: [Integer]"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StepBudget(t *testing.T) {
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.Nop(), iseq.Nop(), iseq.Nop(), iseq.Nop(), iseq.Nop(),
		iseq.PutNil(),
		iseq.Leave(),
	)

	e := runMain(t, main, WithMaxSteps(3))

	if !e.Terminated() {
		t.Error("Terminated() must be true when the step budget runs out")
	}
	if e.Steps() != 3 {
		t.Errorf("Steps() wrong. want=%d, got=%d", 3, e.Steps())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	main := newBody("<main>", iseq.KindTop, nil, 0, iseq.PutNil(), iseq.Leave())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	require.NoError(t, e.Run(ctx, main))
	require.True(t, e.Terminated())
	require.Zero(t, e.Steps())
}

func TestRun_InvariantViolation(t *testing.T) {
	main := newBody("<main>", iseq.KindTop, nil, 0, iseq.Leave())

	err := New().Run(context.Background(), main)

	var ie *object.InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("Run() must return an invariant error, got %v", err)
	}
}

func TestRun_RejectsNonTopLevelBody(t *testing.T) {
	body := newBody("foo", iseq.KindMethod, nil, 0, iseq.PutNil(), iseq.Leave())
	if err := New().Run(context.Background(), body); err == nil {
		t.Error("Run() must reject a method body as the main body")
	}
}

func TestMergeEnv_Monotonic(t *testing.T) {
	e := New()
	body := newBody("<main>", iseq.KindTop, []string{"x"}, 0, iseq.Nop(), iseq.Leave())
	ep := newExecPoint(newContext(body, e.rootScope, ""), 0, nil)
	static := object.StaticEnv{Recv: object.Any, Blk: e.nilType()}
	intEnv := object.NewEnv(static, []object.Type{e.instanceOf(e.builtin.Integer)}, nil, true)
	strEnv := object.NewEnv(static, []object.Type{e.instanceOf(e.builtin.String)}, nil, true)

	e.mergeEnv(ep, intEnv)
	require.Equal(t, 1, e.worklist.Len())
	e.worklist.Pop()

	e.mergeEnv(ep, intEnv)
	require.Equal(t, 0, e.worklist.Len(), "an unchanged state must not be queued again")

	e.mergeEnv(ep, strEnv)
	require.Equal(t, 1, e.worklist.Len())
	if got := e.ep2env[ep.Key()].Local(0).Inspect(); got != "Integer | String" {
		t.Errorf("merged local wrong. want=%q, got=%q", "Integer | String", got)
	}
}

func TestRegisterNative(t *testing.T) {
	e := New()
	called := 0
	err := e.RegisterNative("Integer#double", func(ctx context.Context, e *Evaluator, c *NativeCall) {
		called++
		c.Return(e.instanceOf(e.builtin.Integer))
	})
	require.NoError(t, err)
	require.Error(t, e.RegisterNative("broken", nil))
	require.Error(t, e.RegisterNative("NoSuchClass#x", nil))

	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.PutSelf().At(1),
		iseq.PutObject(iseq.Int(2)).At(1),
		iseq.Send(iseq.Call("double", 0)).At(1),
		iseq.Send(fcall("reveal_type", 1)).At(1),
		iseq.Leave().At(1),
	)
	require.NoError(t, e.Run(context.Background(), main))
	require.Equal(t, 1, called)
	if diff := cmp.Diff([]string{"main.rb:1: Integer"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_SignatureWithOptionalParameter(t *testing.T) {
	// def foo(x, y = "s") = y
	foo := newBody("foo", iseq.KindMethod, []string{"x", "y"}, 1,
		iseq.PutString("s").At(1),
		iseq.SetLocal(1, 0).At(1),
		iseq.GetLocal(1, 0).At(2),
		iseq.Leave().At(2),
	)
	foo.Params.OptPCs = []int{0, 2}
	main := newBody("<main>", iseq.KindTop, nil, 0,
		iseq.DefineMethod("foo", foo).At(1),
		iseq.PutSelf().At(4),
		iseq.PutObject(iseq.Int(1)).At(4),
		iseq.Send(fcall("foo", 1)).At(4),
		iseq.Pop().At(4),
		iseq.PutSelf().At(5),
		iseq.PutObject(iseq.Int(1)).At(5),
		iseq.PutObject(iseq.Int(2)).At(5),
		iseq.Send(fcall("foo", 2)).At(5),
		iseq.Leave().At(5),
	)

	e := runMain(t, main)

	require.Empty(t, e.Diagnostics())
	r := findMethod(t, e, "Object", "foo")
	require.NotNil(t, r.Sig, "signature must be recorded without a body_start instruction")
	require.Len(t, r.Sig.Lead, 1)
	require.Len(t, r.Sig.Opt, 1)
	if got := r.Sig.Opt[0].Inspect(); got != "Integer | String" {
		t.Errorf("optional parameter type wrong. want=%q, got=%q", "Integer | String", got)
	}
	if got := r.Ret.Inspect(); got != "Integer | String" {
		t.Errorf("return type wrong. want=%q, got=%q", "Integer | String", got)
	}
}

func TestRun_CheckMatchBranchOnOuterLocal(t *testing.T) {
	// x = 1; 3.times { p(x) if Integer === x }
	blk := newBody("block in <main>", iseq.KindBlock, nil, 0,
		iseq.PutNil().At(2),
		iseq.GetConstant("Integer").At(2),
		iseq.GetLocalCheckMatchBranch(0, 1, 0, iseq.BranchIf, 5).At(2),
		iseq.PutNil().At(2),
		iseq.Leave().At(2),
		iseq.PutSelf().At(3),
		iseq.GetLocal(0, 1).At(3),
		iseq.Send(fcall("reveal_type", 1)).At(3),
		iseq.Leave().At(3),
	)
	main := newBody("<main>", iseq.KindTop, []string{"x"}, 0,
		iseq.PutObject(iseq.Int(1)).At(1),
		iseq.SetLocal(0, 0).At(1),
		iseq.PutObject(iseq.Int(3)).At(2),
		iseq.Send(iseq.Call("times", 0, iseq.WithBlock(blk))).At(2),
		iseq.Leave().At(2),
	)

	e := runMain(t, main)

	if diff := cmp.Diff([]string{"main.rb:3: Integer"}, revealedStrings(e)); diff != "" {
		t.Errorf("RevealedTypes() mismatch (-want +got):\n%s", diff)
	}
}

func TestVarTable_DeclaredWrite(t *testing.T) {
	e := New()
	intT := e.instanceOf(e.builtin.Integer)

	vt := newVarTable()
	vt.Declare("$VERBOSE", e.optional(e.boolType()))

	require.True(t, vt.Write("$VERBOSE", e.boolType()), "a union of declared members is consistent")
	require.True(t, vt.Write("$VERBOSE", e.nilType()))
	require.False(t, vt.Write("$VERBOSE", intT))
	require.False(t, vt.Write("$VERBOSE", object.Union(e.trueType(), intT)))
	if got := vt.Type("$VERBOSE").Inspect(); got != "FalseClass | NilClass | TrueClass" {
		t.Errorf("declared type must not change, got %q", got)
	}
}

func TestBindArgs(t *testing.T) {
	e := New()
	var (
		intT = e.instanceOf(e.builtin.Integer)
		strT = e.instanceOf(e.builtin.String)
		symT = e.instanceOf(e.builtin.Symbol)
	)
	splat := func(elem object.Type) object.Type { return e.arrayOf(elem) }
	types := func(n int, ty object.Type) []object.Type {
		out := make([]object.Type, n)
		for i := range out {
			out[i] = ty
		}
		return out
	}

	// def foo(a)
	leadOnly := iseq.Params{LeadNum: 1}
	// def foo(a, b = 1)
	withOpt := iseq.Params{LeadNum: 1, OptPCs: []int{0, 3}}
	// def bar(x, *r, y)
	withRestPost := iseq.Params{LeadNum: 1, HasRest: true, RestStart: 1, PostNum: 1, PostStart: 2}
	// def baz(k:, o: 1)
	withKeywords := iseq.Params{
		Keywords: []iseq.Keyword{{Name: "k", Required: true}, {Name: "o", Default: iseq.Int(1)}},
		KwStart:  0,
	}
	// def qux(k: 1, **kw)
	withKwRest := iseq.Params{
		Keywords:  []iseq.Keyword{{Name: "k", Default: iseq.Int(1)}},
		KwStart:   0,
		HasKwRest: true,
		KwRest:    1,
	}

	cases := []struct {
		name       string
		params     iseq.Params
		locals     int
		args       *object.ActualArgs
		wantMsg    string
		wantPCs    []int
		wantLocals map[int]string
	}{
		{
			name: "lead", params: leadOnly, locals: 1,
			args:    &object.ActualArgs{Lead: []object.Type{intT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer"},
		},
		{
			name: "lead missing", params: leadOnly, locals: 1,
			args:    &object.ActualArgs{},
			wantMsg: "wrong number of arguments (given 0, expected 1)",
		},
		{
			name: "optional omitted", params: withOpt, locals: 2,
			args:    &object.ActualArgs{Lead: []object.Type{intT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer"},
		},
		{
			name: "optional given", params: withOpt, locals: 2,
			args:    &object.ActualArgs{Lead: []object.Type{intT, strT}},
			wantPCs: []int{3}, wantLocals: map[int]string{0: "Integer", 1: "String"},
		},
		{
			name: "optional too many", params: withOpt, locals: 2,
			args:    &object.ActualArgs{Lead: types(3, intT)},
			wantMsg: "wrong number of arguments (given 3, expected 1..2)",
		},
		{
			name: "optional with splat", params: withOpt, locals: 2,
			args:    &object.ActualArgs{Lead: []object.Type{intT}, Rest: splat(strT)},
			wantPCs: []int{0, 3}, wantLocals: map[int]string{0: "Integer", 1: "String"},
		},
		{
			name: "rest and post exact", params: withRestPost, locals: 3,
			args:    &object.ActualArgs{Lead: []object.Type{intT, strT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer", 1: "[]", 2: "String"},
		},
		{
			name: "rest and post many", params: withRestPost, locals: 3,
			args:    &object.ActualArgs{Lead: []object.Type{intT, symT, symT, strT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer", 1: "[Symbol, Symbol]", 2: "String"},
		},
		{
			name: "rest and post too few", params: withRestPost, locals: 3,
			args:    &object.ActualArgs{Lead: []object.Type{intT}},
			wantMsg: "wrong number of arguments (given 1, expected 2+)",
		},
		{
			name: "rest with splat never fails", params: withRestPost, locals: 3,
			args:    &object.ActualArgs{Rest: splat(intT)},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer", 2: "Integer"},
		},
		{
			name: "post reached by explicit actuals", params: withRestPost, locals: 3,
			args:    &object.ActualArgs{Lead: []object.Type{intT, strT}, Rest: splat(symT)},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "Integer", 2: "String | Symbol"},
		},
		{
			name: "keywords", params: withKeywords, locals: 2,
			args:    &object.ActualArgs{Keywords: map[string]object.Type{"k": strT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "String", 1: "1"},
		},
		{
			name: "required keyword missing", params: withKeywords, locals: 2,
			args:    &object.ActualArgs{Keywords: map[string]object.Type{"o": intT}},
			wantMsg: "missing keyword: :k",
		},
		{
			name: "unknown keyword", params: withKeywords, locals: 2,
			args:    &object.ActualArgs{Keywords: map[string]object.Type{"k": intT, "z": intT}},
			wantMsg: "unknown keyword: :z",
		},
		{
			name: "keyword rest absorbs unknown", params: withKwRest, locals: 2,
			args:    &object.ActualArgs{Keywords: map[string]object.Type{"z": strT}},
			wantPCs: []int{0}, wantLocals: map[int]string{0: "1", 1: "{:z=>String}"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := iseq.New("m", iseq.KindMethod, testPath)
			for i := 0; i < tc.locals; i++ {
				body.Locals = append(body.Locals, fmt.Sprintf("v%d", i))
			}
			body.Params = tc.params

			b, msg := e.bindArgs(body, tc.args, false)
			if tc.wantMsg != "" {
				if msg != tc.wantMsg {
					t.Errorf("message mismatch. want=%q, got=%q", tc.wantMsg, msg)
				}
				return
			}
			require.Empty(t, msg)
			if diff := cmp.Diff(tc.wantPCs, b.startPCs); diff != "" {
				t.Errorf("start pcs mismatch (-want +got):\n%s", diff)
			}
			for i, want := range tc.wantLocals {
				if got := b.locals[i].Inspect(); got != want {
					t.Errorf("local %d mismatch. want=%q, got=%q", i, want, got)
				}
			}
		})
	}
}

func TestStepExpandArray_GlobalContainer(t *testing.T) {
	e := New()
	body := newBody("<main>", iseq.KindTop, nil, 0, iseq.ExpandArray(1, 0), iseq.Leave())
	ep := newExecPoint(newContext(body, e.rootScope, ""), 0, nil)
	ary := e.arrayOf(e.instanceOf(e.builtin.Integer))
	env := object.NewEnv(object.StaticEnv{Recv: object.Any, Blk: e.nilType()}, nil, []object.Type{ary}, true)

	defer func() {
		r := recover()
		var ierr *object.InvariantError
		err, ok := r.(error)
		require.True(t, ok && errors.As(err, &ierr), "expandarray on a global container must panic with an InvariantError, got %v", r)
	}()
	e.stepExpandArray(context.Background(), ep, env, &body.Insns[0])
}
