package iseq

import (
	"strconv"
	"strings"
)

// LiteralKind is the runtime class of a literal operand.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitTrue
	LitFalse
	LitInteger
	LitFloat
	LitRational
	LitString
	LitSymbol
	LitRegexp
	LitRange
	LitArray
	LitHash
	// LitClass refers to a builtin class object by name (e.g. putobject Array).
	LitClass
)

// Literal is a compile-time constant operand.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string // string, symbol name, regexp source, rational text or class name

	Elems []*Literal // array elements, or range begin/end
	Pairs []LiteralPair
}

// LiteralPair is one key/value entry of a hash literal.
type LiteralPair struct {
	Key   *Literal
	Value *Literal
}

func Nil() *Literal { return &Literal{Kind: LitNil} }

func Bool(v bool) *Literal {
	if v {
		return &Literal{Kind: LitTrue}
	}
	return &Literal{Kind: LitFalse}
}

func Int(v int64) *Literal     { return &Literal{Kind: LitInteger, Int: v} }
func Float(v float64) *Literal { return &Literal{Kind: LitFloat, Float: v} }
func Str(v string) *Literal    { return &Literal{Kind: LitString, Str: v} }
func Sym(v string) *Literal    { return &Literal{Kind: LitSymbol, Str: v} }
func Class(name string) *Literal {
	return &Literal{Kind: LitClass, Str: name}
}

// Ary builds an array literal.
func Ary(elems ...*Literal) *Literal { return &Literal{Kind: LitArray, Elems: elems} }

// Range builds a range literal.
func Range(begin, end *Literal) *Literal {
	return &Literal{Kind: LitRange, Elems: []*Literal{begin, end}}
}

// String renders the literal the way it would appear in source.
func (l *Literal) String() string {
	if l == nil {
		return "<nil>"
	}
	switch l.Kind {
	case LitNil:
		return "nil"
	case LitTrue:
		return "true"
	case LitFalse:
		return "false"
	case LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LitRational:
		return l.Str + "r"
	case LitString:
		return strconv.Quote(l.Str)
	case LitSymbol:
		return ":" + l.Str
	case LitRegexp:
		return "/" + l.Str + "/"
	case LitRange:
		return l.Elems[0].String() + ".." + l.Elems[1].String()
	case LitArray:
		parts := make([]string, len(l.Elems))
		for i, e := range l.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case LitHash:
		parts := make([]string, len(l.Pairs))
		for i, p := range l.Pairs {
			parts[i] = p.Key.String() + " => " + p.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case LitClass:
		return l.Str
	}
	return "?"
}
