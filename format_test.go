package typeprof

import (
	"testing"

	"github.com/podhmo/typeprof/evaluator"
	"github.com/podhmo/typeprof/object"
)

func TestTypeName(t *testing.T) {
	var (
		nilC   = object.NewClass(object.KindClass, 1001, nil, nil, "NilClass")
		trueC  = object.NewClass(object.KindClass, 1002, nil, nil, "TrueClass")
		falseC = object.NewClass(object.KindClass, 1003, nil, nil, "FalseClass")
		intC   = object.NewClass(object.KindClass, 1004, nil, nil, "Integer")
		strC   = object.NewClass(object.KindClass, 1005, nil, nil, "String")
		aryC   = object.NewClass(object.KindClass, 1006, []string{"Elem"}, nil, "Array")
		hashC  = object.NewClass(object.KindClass, 1007, []string{"K", "V"}, nil, "Hash")
		symC   = object.NewClass(object.KindClass, 1008, nil, nil, "Symbol")

		nilT  = object.NewInstance(nilC)
		intT  = object.NewInstance(intC)
		strT  = object.NewInstance(strC)
		boolT = object.Union(object.NewInstance(trueC), object.NewInstance(falseC))
		symT  = object.NewInstance(symC)
	)
	ary := func(lead []object.Type, rest object.Type) object.Type {
		return object.NewArray(object.NewArrayElems(lead, rest), object.NewInstance(aryC))
	}
	hash := func(keys, vals []object.Type) object.Type {
		return object.NewHash(object.NewHashElems(keys, vals), object.NewInstance(hashC))
	}

	cases := []struct {
		name     string
		ty       object.Type
		pedantic bool
		want     string
	}{
		{name: "bot", ty: object.Bot, want: "bot"},
		{name: "any", ty: object.Any, want: "untyped"},
		{name: "instance", ty: intT, want: "Integer"},
		{name: "literal", ty: object.NewLiteral("1", intT), want: "Integer"},
		{name: "symbol", ty: object.NewSymbol("a", symT), want: ":a"},
		{name: "class", ty: intC, want: "singleton(Integer)"},
		{name: "sorted union", ty: object.Union(strT, intT), want: "Integer | String"},
		{name: "nil", ty: nilT, want: "nil"},
		{name: "optional", ty: object.Union(intT, nilT), want: "Integer?"},
		{name: "optional union", ty: object.UnionAll(intT, strT, nilT), want: "(Integer | String)?"},
		{name: "bool", ty: boolT, want: "bool"},
		{name: "true only", ty: object.NewInstance(trueC), want: "true"},
		{name: "any dropped", ty: object.Union(intT, object.Any), want: "Integer"},
		{name: "any kept", ty: object.Union(intT, object.Any), pedantic: true, want: "Integer | untyped"},
		{name: "tuple", ty: ary([]object.Type{intT, strT}, nil), want: "[Integer, String]"},
		{name: "array", ty: ary(nil, intT), want: "Array[Integer]"},
		{name: "mixed array", ty: ary([]object.Type{strT}, intT), want: "Array[Integer | String]"},
		{name: "empty array", ty: ary(nil, nil), want: "Array[bot]"},
		{name: "record", ty: hash([]object.Type{object.NewSymbol("a", symT)}, []object.Type{intT}), want: "{a: Integer}"},
		{name: "hash", ty: hash([]object.Type{strT}, []object.Type{intT}), want: "Hash[String, Integer]"},
		{name: "empty hash", ty: hash(nil, nil), want: "Hash[bot, bot]"},
	}

	e := evaluator.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newResult(e, tc.pedantic)
			if got := r.TypeName(tc.ty); got != tc.want {
				t.Errorf("TypeName(%s) mismatch. want=%q, got=%q", tc.ty.Inspect(), tc.want, got)
			}
		})
	}
}

func TestTopLevelUnion(t *testing.T) {
	cases := map[string]bool{
		"Integer":              false,
		"Integer | String":     true,
		"(Integer | String)?":  false,
		"Array[Integer | nil]": false,
		"{ (A | B) -> C } | D": true,
	}
	for in, want := range cases {
		if got := topLevelUnion(in); got != want {
			t.Errorf("topLevelUnion(%q) mismatch. want=%v, got=%v", in, want, got)
		}
	}
}

func TestMethodSignature_WithoutParameters(t *testing.T) {
	intC := object.NewClass(object.KindClass, 1004, nil, nil, "Integer")
	r := newResult(evaluator.New(), false)

	m := evaluator.MethodReport{Name: "foo", Ret: object.NewInstance(intC)}
	if got := r.methodSignature(m); got != "-> Integer" {
		t.Errorf("methodSignature() mismatch. want=%q, got=%q", "-> Integer", got)
	}
}
