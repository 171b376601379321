package object

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fixture struct {
	object, integer, str, sym, array, hash *Class
}

func newFixture() *fixture {
	object := NewClass(KindClass, 0, nil, nil, "Object")
	return &fixture{
		object:  object,
		integer: NewClass(KindClass, 1, nil, object, "Integer"),
		str:     NewClass(KindClass, 2, nil, object, "String"),
		sym:     NewClass(KindClass, 3, nil, object, "Symbol"),
		array:   NewClass(KindClass, 4, []string{"Elem"}, object, "Array"),
		hash:    NewClass(KindClass, 5, []string{"K", "V"}, object, "Hash"),
	}
}

func (f *fixture) samples() []Type {
	intTy := NewInstance(f.integer)
	strTy := NewInstance(f.str)
	return []Type{
		Bot,
		Any,
		intTy,
		strTy,
		NewLiteral("1", intTy),
		NewLiteral("2", intTy),
		NewLiteral(`"a"`, strTy),
		NewSymbol("sym", NewInstance(f.sym)),
		NewSymbol("other", NewInstance(f.sym)),
		f.integer,
		NewArray(NewArrayElems([]Type{intTy}, nil), NewInstance(f.array)),
		NewArray(NewArrayElems(nil, strTy), NewInstance(f.array)),
		NewHash(NewHashElems([]Type{NewSymbol("k", NewInstance(f.sym))}, []Type{intTy}), NewInstance(f.hash)),
	}
}

func TestUnion_Laws(t *testing.T) {
	f := newFixture()
	samples := f.samples()

	for _, a := range samples {
		if got := Union(a, a); !Equal(got, a) {
			t.Errorf("idempotence: %s | %s = %s", a.Inspect(), a.Inspect(), got.Inspect())
		}
		if got := Union(a, Bot); !Equal(got, a) {
			t.Errorf("identity: %s | bot = %s", a.Inspect(), got.Inspect())
		}
		for _, b := range samples {
			ab, ba := Union(a, b), Union(b, a)
			if !Equal(ab, ba) {
				t.Errorf("commutativity: %s | %s = %s, but reversed = %s", a.Inspect(), b.Inspect(), ab.Inspect(), ba.Inspect())
			}
			for _, c := range samples {
				left := Union(Union(a, b), c)
				right := Union(a, Union(b, c))
				if !Equal(left, right) {
					t.Errorf("associativity: (%s | %s) | %s = %s, but %s | (%s | %s) = %s",
						a.Inspect(), b.Inspect(), c.Inspect(), left.Inspect(),
						a.Inspect(), b.Inspect(), c.Inspect(), right.Inspect())
				}
			}
		}
	}
}

func TestUnion_LiteralWidening(t *testing.T) {
	f := newFixture()
	intTy := NewInstance(f.integer)
	one := NewLiteral("1", intTy)
	two := NewLiteral("2", intTy)

	cases := []struct {
		name string
		got  Type
		want Type
	}{
		{"same literal", Union(one, one), one},
		{"two literals", Union(one, two), intTy},
		{"literal and base", Union(one, intTy), intTy},
		{"symbols stay distinct", Union(NewSymbol("a", NewInstance(f.sym)), NewSymbol("b", NewInstance(f.sym))),
			UnionAll(NewSymbol("b", NewInstance(f.sym)), NewSymbol("a", NewInstance(f.sym)))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !Equal(tc.got, tc.want) {
				t.Errorf("want=%s, got=%s", tc.want.Inspect(), tc.got.Inspect())
			}
		})
	}

	if _, ok := Union(NewSymbol("a", NewInstance(f.sym)), NewSymbol("b", NewInstance(f.sym))).(*UnionType); !ok {
		t.Error("two symbols must form a union")
	}
}

func TestUnion_ContainersMerge(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	base := NewInstance(f.array)

	a := NewArray(NewArrayElems([]Type{intTy}, nil), base)
	b := NewArray(NewArrayElems([]Type{strTy, strTy}, nil), base)
	got := Union(a, b)

	arr, ok := got.(*Array)
	if !ok {
		t.Fatalf("want a single array, got %s", got.Inspect())
	}
	want := NewArrayElems([]Type{Union(intTy, strTy)}, strTy)
	if arr.Elems.Hash() != want.Hash() {
		t.Errorf("elements mismatch. want=%s, got=%s", want.Inspect(), arr.Elems.Inspect())
	}

	mixed := Union(got, intTy)
	if len(Children(mixed)) != 2 {
		t.Errorf("want 2 children, got %s", mixed.Inspect())
	}
}

func TestNormalization(t *testing.T) {
	f := newFixture()
	intTy := NewInstance(f.integer)
	if got := UnionAll(); !IsBot(got) {
		t.Errorf("empty union must be bot, got %s", got.Inspect())
	}
	if got := UnionAll(intTy); got != intTy {
		t.Errorf("singleton union must collapse, got %s", got.Inspect())
	}
	if got := Bot.Inspect(); got != "bot" {
		t.Errorf("Inspect() wrong. want=%q, got=%q", "bot", got)
	}
}

func TestLocalizeGlobalize_RoundTrip(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	inner := NewArray(NewArrayElems([]Type{strTy}, nil), NewInstance(f.array))
	outer := NewArray(NewArrayElems([]Type{intTy, inner}, intTy), NewInstance(f.array))
	h := NewHash(NewHashElems([]Type{NewSymbol("k", NewInstance(f.sym))}, []Type{inner}), NewInstance(f.hash))

	for _, ty := range []Type{intTy, inner, outer, h, Union(outer, strTy)} {
		env := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, nil, nil, true)
		env, local := Localize(ty, env, NewAllocSite("ep"), 5)
		for _, c := range Children(local) {
			switch c.(type) {
			case *Array, *Hash:
				t.Errorf("localized type still holds a global container: %s", local.Inspect())
			}
		}
		got := Globalize(local, env, 5)
		if !Equal(got, ty) {
			t.Errorf("round trip mismatch. want=%s, got=%s", ty.Inspect(), got.Inspect())
		}
	}
}

func TestLocalize_DeterministicIDs(t *testing.T) {
	f := newFixture()
	ty := NewArray(NewArrayElems([]Type{NewInstance(f.integer)}, nil), NewInstance(f.array))
	env := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, nil, nil, true)
	_, a := Localize(ty, env, NewAllocSite("ep").Add(0), 5)
	_, b := Localize(ty, env, NewAllocSite("ep").Add(0), 5)
	if !Equal(a, b) {
		t.Errorf("same site must yield the same id: %s vs %s", a.Inspect(), b.Inspect())
	}
	_, c := Localize(ty, env, NewAllocSite("ep").Add(1), 5)
	if Equal(a, c) {
		t.Errorf("different sites must yield different ids: %s", a.Inspect())
	}
}

func TestGlobalize_DepthLimit(t *testing.T) {
	f := newFixture()
	ty := NewArray(NewArrayElems([]Type{NewInstance(f.integer)}, nil), NewInstance(f.array))
	if got := Globalize(ty, nil, 0); !IsAny(got) {
		t.Errorf("depth 0 must yield Any, got %s", got.Inspect())
	}
	if got := NewLiteral("1", NewInstance(f.integer)); !Equal(Globalize(got, nil, 3), NewInstance(f.integer)) {
		t.Errorf("literal must globalize to its base")
	}
}

func TestEnv_PushRejectsGlobalContainers(t *testing.T) {
	f := newFixture()
	env := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, nil, nil, true)
	ty := NewArray(NewArrayElems(nil, Any), NewInstance(f.array))

	for _, bad := range []Type{ty, Union(ty, NewInstance(f.integer)), NewVar("X")} {
		func() {
			defer func() {
				r := recover()
				err, ok := r.(error)
				var inv *InvariantError
				if !ok || !errors.As(err, &inv) {
					t.Errorf("push(%s) must panic with an InvariantError, got %v", bad.Inspect(), r)
				}
			}()
			env.Push(bad)
		}()
	}
}

func TestEnv_StackOps(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	env := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, []Type{Bot}, nil, true)

	env = env.Push(intTy, strTy).TopN(1)
	got := inspectAll(env.Stack())
	if diff := cmp.Diff([]string{"Integer", "String", "Integer"}, got); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}

	env2, popped := env.Pop(2)
	if diff := cmp.Diff([]string{"String", "Integer"}, inspectAll(popped)); diff != "" {
		t.Errorf("popped mismatch (-want +got):\n%s", diff)
	}
	if env2.StackSize() != 1 || env.StackSize() != 3 {
		t.Errorf("pop must not modify the original env: %d %d", env2.StackSize(), env.StackSize())
	}

	env3 := env2.SetLocal(0, strTy)
	if !IsBot(env2.Local(0)) || !Equal(env3.Local(0), strTy) {
		t.Error("SetLocal must return a new env")
	}
}

func TestEnv_MergeAndEqual(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	a := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, []Type{intTy}, nil, true).Push(intTy)
	b := NewEnv(StaticEnv{Recv: Any, Blk: Bot}, []Type{strTy}, nil, true).Push(intTy)

	m := a.Merge(b)
	if !Equal(m.Local(0), Union(intTy, strTy)) {
		t.Errorf("merged local mismatch: %s", m.Local(0).Inspect())
	}
	if !m.Merge(a).Equal(m) {
		t.Error("merging a smaller env must not change the result")
	}
	if m.Equal(a) {
		t.Error("merged env must differ from a")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("merging envs of different stack depth must panic")
		}
	}()
	a.Merge(b.Push(intTy))
}

func TestMatch(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	x := NewVar("X")
	aryOf := func(ty Type) Type { return NewArray(NewArrayElems(nil, ty), NewInstance(f.array)) }

	cases := []struct {
		name     string
		concrete Type
		pattern  Type
		ok       bool
		binds    map[string]string
	}{
		{"var binds", intTy, x, true, map[string]string{"X": "Integer"}},
		{"any pattern", intTy, Any, true, map[string]string{}},
		{"subclass", intTy, NewInstance(f.object), true, map[string]string{}},
		{"mismatch", strTy, intTy, false, nil},
		{"union concrete", Union(intTy, strTy), intTy, true, map[string]string{}},
		{"container var", aryOf(intTy), aryOf(x), true, map[string]string{"X": "Integer"}},
		{"any concrete binds vars", Any, aryOf(x), true, map[string]string{"X": "untyped"}},
		{"union pattern", strTy, Union(intTy, x), true, map[string]string{"X": "String"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subst, ok := Match(tc.concrete, tc.pattern)
			if ok != tc.ok {
				t.Fatalf("Match() ok mismatch. want=%v, got=%v", tc.ok, ok)
			}
			if !ok {
				return
			}
			got := map[string]string{}
			for k, v := range subst {
				got[k] = v.Inspect()
			}
			if diff := cmp.Diff(tc.binds, got); diff != "" {
				t.Errorf("bindings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	f := newFixture()
	intTy := NewInstance(f.integer)
	ary := NewArray(NewArrayElems(nil, NewVar("X")), NewInstance(f.array))

	got := Substitute(ary, Substitution{"X": intTy}, 5)
	want := NewArray(NewArrayElems(nil, intTy), NewInstance(f.array))
	if !Equal(got, want) {
		t.Errorf("want=%s, got=%s", want.Inspect(), got.Inspect())
	}
	if got := RemoveTypeVars(ary); !Equal(got, NewArray(NewArrayElems(nil, Any), NewInstance(f.array))) {
		t.Errorf("RemoveTypeVars() left %s", got.Inspect())
	}
}

func TestArrayElems(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	nilTy := NewInstance(NewClass(KindClass, 9, nil, f.object, "NilClass"))
	e := NewArrayElems([]Type{intTy, strTy}, nil)

	if got := e.At(1, nilTy); !Equal(got, strTy) {
		t.Errorf("At(1) = %s", got.Inspect())
	}
	if got := e.At(5, nilTy); !Equal(got, nilTy) {
		t.Errorf("At(5) = %s", got.Inspect())
	}
	if got := e.At(-1, nilTy); !Equal(got, strTy) {
		t.Errorf("At(-1) = %s", got.Inspect())
	}

	lead, rest := e.TakeFirst(3, nilTy)
	if diff := cmp.Diff([]string{"Integer", "String", "NilClass"}, inspectAll(lead)); diff != "" {
		t.Errorf("TakeFirst mismatch (-want +got):\n%s", diff)
	}
	if !IsBot(rest.Squash()) {
		t.Errorf("rest must be empty, got %s", rest.Inspect())
	}

	init, last := e.TakeLast(1, nilTy)
	if len(init.Lead) != 1 || !Equal(last[0], strTy) {
		t.Errorf("TakeLast mismatch: %s %v", init.Inspect(), inspectAll(last))
	}

	grown := NewArrayElems(nil, nil)
	for i := 0; i < maxLeadElems+2; i++ {
		grown = grown.Append(intTy)
	}
	if len(grown.Lead) != maxLeadElems || !Equal(grown.Rest, intTy) {
		t.Errorf("Append must cap the tuple prefix, got %s", grown.Inspect())
	}
}

func TestHashElems_Lookup(t *testing.T) {
	f := newFixture()
	symBase := NewInstance(f.sym)
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)
	nilTy := NewInstance(NewClass(KindClass, 9, nil, f.object, "NilClass"))
	e := NewHashElems([]Type{NewSymbol("a", symBase), NewSymbol("b", symBase)}, []Type{intTy, strTy})

	if got := e.Lookup(NewSymbol("a", symBase), nilTy); !Equal(got, intTy) {
		t.Errorf("Lookup(:a) = %s", got.Inspect())
	}
	if got := e.Lookup(Any, nilTy); !Equal(got, Union(intTy, strTy)) {
		t.Errorf("Lookup(any) = %s", got.Inspect())
	}
	if got := e.Lookup(NewSymbol("c", symBase), nilTy); !Equal(got, nilTy) {
		t.Errorf("Lookup(:c) = %s", got.Inspect())
	}

	named, other := e.ToKeywords()
	if len(named) != 2 || !IsBot(other) {
		t.Errorf("ToKeywords() = %v, %s", named, other.Inspect())
	}
}

func TestSignature_Merge(t *testing.T) {
	f := newFixture()
	intTy, strTy := NewInstance(f.integer), NewInstance(f.str)

	m := (&MethodSignature{Lead: []Type{intTy}, Blk: Bot}).Merge(&MethodSignature{Lead: []Type{strTy}, Blk: Bot})
	if got := m.Inspect(); got != "(Integer | String)" {
		t.Errorf("method signature mismatch: %s", got)
	}

	b := (&BlockSignature{Lead: []Type{intTy}, Blk: Bot}).Merge(&BlockSignature{Lead: []Type{strTy, strTy}, Blk: Bot})
	if got := b.Inspect(); got != "(Integer | String, ?String)" {
		t.Errorf("block signature mismatch: %s", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("merging different lead counts must panic")
		}
	}()
	m.Merge(&MethodSignature{Blk: Bot})
}

func TestConsistent_Union(t *testing.T) {
	var (
		intC   = NewClass(KindClass, 2001, nil, nil, "Integer")
		strC   = NewClass(KindClass, 2002, nil, nil, "String")
		nilC   = NewClass(KindClass, 2003, nil, nil, "NilClass")
		intT   = NewInstance(intC)
		strT   = NewInstance(strC)
		nilT   = NewInstance(nilC)
		intStr = Union(intT, strT)
	)
	cases := []struct {
		name     string
		concrete Type
		pattern  Type
		want     bool
	}{
		{name: "member of pattern", concrete: intT, pattern: intStr, want: true},
		{name: "union within pattern", concrete: intStr, pattern: UnionAll(intT, strT, nilT), want: true},
		{name: "union partly outside", concrete: Union(intT, nilT), pattern: intStr, want: false},
		{name: "union against instance", concrete: intStr, pattern: intT, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Consistent(tc.concrete, tc.pattern); got != tc.want {
				t.Errorf("Consistent(%s, %s) mismatch. want=%v, got=%v", tc.concrete.Inspect(), tc.pattern.Inspect(), tc.want, got)
			}
		})
	}
}
