package object

import "strings"

// KeywordParam is one keyword parameter of an inferred method signature.
type KeywordParam struct {
	Name     string
	Required bool
	Type     Type
}

// MethodSignature is the inferred parameter shape of a method.
// Rest and KwRest are nil when the method has no such parameter.
type MethodSignature struct {
	Lead     []Type
	Opt      []Type
	Rest     Type
	Post     []Type
	Keywords []KeywordParam
	KwRest   Type
	Blk      Type
}

// Merge joins two observations of one method's parameters. Both must have
// the same positional shape.
func (s *MethodSignature) Merge(o *MethodSignature) *MethodSignature {
	if len(s.Lead) != len(o.Lead) || len(s.Post) != len(o.Post) {
		panic(Invariant("merging method signatures of different shape: %d/%d lead, %d/%d post",
			len(s.Lead), len(o.Lead), len(s.Post), len(o.Post)))
	}
	out := &MethodSignature{
		Lead:   unionPairwise(s.Lead, o.Lead),
		Opt:    unionPadded(s.Opt, o.Opt),
		Rest:   unionOptional(s.Rest, o.Rest),
		Post:   unionPairwise(s.Post, o.Post),
		KwRest: unionOptional(s.KwRest, o.KwRest),
		Blk:    unionOptional(s.Blk, o.Blk),
	}

	index := map[string]int{}
	for _, kw := range s.Keywords {
		index[kw.Name] = len(out.Keywords)
		out.Keywords = append(out.Keywords, kw)
	}
	for _, kw := range o.Keywords {
		if i, ok := index[kw.Name]; ok {
			if out.Keywords[i].Required != kw.Required {
				panic(Invariant("keyword %s changes requiredness", kw.Name))
			}
			out.Keywords[i].Type = Union(out.Keywords[i].Type, kw.Type)
			continue
		}
		index[kw.Name] = len(out.Keywords)
		out.Keywords = append(out.Keywords, kw)
	}
	return out
}

// Inspect returns a debugging representation.
func (s *MethodSignature) Inspect() string {
	var parts []string
	for _, t := range s.Lead {
		parts = append(parts, t.Inspect())
	}
	for _, t := range s.Opt {
		parts = append(parts, "?"+t.Inspect())
	}
	if s.Rest != nil {
		parts = append(parts, "*"+s.Rest.Inspect())
	}
	for _, t := range s.Post {
		parts = append(parts, t.Inspect())
	}
	for _, kw := range s.Keywords {
		p := kw.Name + ": " + kw.Type.Inspect()
		if !kw.Required {
			p = "?" + p
		}
		parts = append(parts, p)
	}
	if s.KwRest != nil {
		parts = append(parts, "**"+s.KwRest.Inspect())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// BlockSignature is the observed argument shape passed to a block.
type BlockSignature struct {
	Lead []Type
	Opt  []Type
	Rest Type
	Blk  Type
}

// Merge joins two observations of a block's arguments.
func (s *BlockSignature) Merge(o *BlockSignature) *BlockSignature {
	n := min(len(s.Lead), len(o.Lead))
	lead := unionPairwise(s.Lead[:n], o.Lead[:n])
	blk := unionOptional(s.Blk, o.Blk)

	if s.Rest != nil || o.Rest != nil {
		rest := Bot
		for _, group := range [][]Type{s.Lead[n:], o.Lead[n:], s.Opt, o.Opt} {
			for _, t := range group {
				rest = Union(rest, t)
			}
		}
		if s.Rest != nil {
			rest = Union(rest, s.Rest)
		}
		if o.Rest != nil {
			rest = Union(rest, o.Rest)
		}
		return &BlockSignature{Lead: lead, Rest: rest, Blk: blk}
	}

	opt1 := append(append([]Type{}, s.Lead[n:]...), s.Opt...)
	opt2 := append(append([]Type{}, o.Lead[n:]...), o.Opt...)
	return &BlockSignature{Lead: lead, Opt: unionPadded(opt1, opt2), Blk: blk}
}

// Inspect returns a debugging representation.
func (s *BlockSignature) Inspect() string {
	parts := inspectAll(s.Lead)
	for _, t := range s.Opt {
		parts = append(parts, "?"+t.Inspect())
	}
	if s.Rest != nil {
		parts = append(parts, "*"+s.Rest.Inspect())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// DeclaredBlock is the block part of a declared signature.
type DeclaredBlock struct {
	Params []Type
	Ret    Type
}

// DeclaredSignature is one overload of a method whose behavior is given
// rather than inferred. Parameter and return types may contain type
// variables; "self" is bound to the receiver.
type DeclaredSignature struct {
	Lead []Type
	Opt  []Type
	Rest Type // nil if none
	Blk  *DeclaredBlock
	Ret  Type
}

func unionPairwise(a, b []Type) []Type {
	out := make([]Type, len(a))
	for i := range a {
		out[i] = Union(a[i], b[i])
	}
	return out
}

func unionPadded(a, b []Type) []Type {
	n := max(len(a), len(b))
	if n == 0 {
		return nil
	}
	out := make([]Type, n)
	for i := 0; i < n; i++ {
		switch {
		case i < len(a) && i < len(b):
			out[i] = Union(a[i], b[i])
		case i < len(a):
			out[i] = a[i]
		default:
			out[i] = b[i]
		}
	}
	return out
}

func unionOptional(a, b Type) Type {
	switch {
	case a != nil && b != nil:
		return Union(a, b)
	case a != nil:
		return a
	}
	return b
}
