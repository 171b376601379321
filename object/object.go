// Package object defines the abstract values tracked by the analyzer: the type
// lattice, its union algebra, and the immutable execution environment.
package object

import (
	"fmt"
	"strconv"
)

// Type is an abstract value. Types are immutable; two types are equal iff
// their Hash values are equal.
type Type interface {
	// Hash returns a structural key. It also makes every Type a set.Hasher.
	Hash() string
	// Inspect returns a debugging representation.
	Inspect() string

	globalize(env *Env, visited map[string]bool, depth int) Type
	localize(env *Env, site AllocSite, depth int) (*Env, Type)
	substitute(subst Substitution, depth int) Type
	limitSize(limit int) Type
}

// Equal reports whether two types are structurally equal.
func Equal(a, b Type) bool {
	return a.Hash() == b.Hash()
}

type anyType struct{ void bool }

var (
	// Any is the top of the lattice: a value of unknown type.
	Any Type = &anyType{}
	// Void marks a value whose use is an error. It behaves like Any otherwise.
	Void Type = &anyType{void: true}
)

func (t *anyType) Hash() string {
	if t.void {
		return "void"
	}
	return "any"
}

func (t *anyType) Inspect() string {
	if t.void {
		return "void"
	}
	return "untyped"
}

func (t *anyType) globalize(*Env, map[string]bool, int) Type { return t }
func (t *anyType) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *anyType) substitute(Substitution, int) Type { return t }
func (t *anyType) limitSize(int) Type                { return t }

// IsAny reports whether t is Any or Void.
func IsAny(t Type) bool {
	_, ok := t.(*anyType)
	return ok
}

// IsVoid reports whether t is Void.
func IsVoid(t Type) bool {
	a, ok := t.(*anyType)
	return ok && a.void
}

// ClassKind distinguishes classes from modules.
type ClassKind int

const (
	KindClass ClassKind = iota
	KindModule
)

func (k ClassKind) String() string {
	if k == KindModule {
		return "module"
	}
	return "class"
}

// Class is a class or module object. It is an opaque handle: ID indexes the
// class definition held by the store.
type Class struct {
	Kind       ClassKind
	ID         int
	TypeParams []string
	Superclass *Class
	Name       string

	hash string
}

// NewClass creates a class handle.
func NewClass(kind ClassKind, id int, typeParams []string, superclass *Class, name string) *Class {
	return &Class{
		Kind:       kind,
		ID:         id,
		TypeParams: typeParams,
		Superclass: superclass,
		Name:       name,
		hash:       "C" + strconv.Itoa(id),
	}
}

func (c *Class) Hash() string    { return c.hash }
func (c *Class) Inspect() string { return "singleton(" + c.Name + ")" }

func (c *Class) globalize(*Env, map[string]bool, int) Type { return c }
func (c *Class) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, c
}
func (c *Class) substitute(Substitution, int) Type { return c }
func (c *Class) limitSize(int) Type                { return c }

// IsSubclassOf reports whether c is other or inherits from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Superclass {
		if k.ID == other.ID {
			return true
		}
	}
	return false
}

// Instance is an instance of a class.
type Instance struct {
	Class *Class
	hash  string
}

// NewInstance creates an instance type of c.
func NewInstance(c *Class) *Instance {
	if c == nil {
		panic(Invariant("instance of nil class"))
	}
	return &Instance{Class: c, hash: "I(" + c.hash + ")"}
}

func (t *Instance) Hash() string    { return t.hash }
func (t *Instance) Inspect() string { return t.Class.Name }

func (t *Instance) globalize(*Env, map[string]bool, int) Type { return t }
func (t *Instance) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *Instance) substitute(Substitution, int) Type { return t }
func (t *Instance) limitSize(int) Type                { return t }

// Literal is a constant value refined from its base instance type.
type Literal struct {
	Value string // source representation, e.g. `1` or `"str"`
	Base  Type
	hash  string
}

// NewLiteral creates a literal type.
func NewLiteral(value string, base Type) *Literal {
	return &Literal{Value: value, Base: base, hash: "L(" + strconv.Quote(value) + "," + base.Hash() + ")"}
}

func (t *Literal) Hash() string    { return t.hash }
func (t *Literal) Inspect() string { return t.Value }

func (t *Literal) globalize(env *Env, visited map[string]bool, depth int) Type {
	return t.Base.globalize(env, visited, depth)
}
func (t *Literal) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *Literal) substitute(Substitution, int) Type { return t }
func (t *Literal) limitSize(int) Type                { return t }

// Symbol is a symbol value. A dynamic symbol has no known name.
type Symbol struct {
	Name    string
	Dynamic bool
	Base    Type
	hash    string
}

// NewSymbol creates a symbol type with a known name.
func NewSymbol(name string, base Type) *Symbol {
	return &Symbol{Name: name, Base: base, hash: "S(" + strconv.Quote(name) + ")"}
}

// NewDynamicSymbol creates a symbol type of unknown name.
func NewDynamicSymbol(base Type) *Symbol {
	return &Symbol{Dynamic: true, Base: base, hash: "S(?)"}
}

func (t *Symbol) Hash() string { return t.hash }
func (t *Symbol) Inspect() string {
	if t.Dynamic {
		return "Symbol"
	}
	return ":" + t.Name
}

func (t *Symbol) globalize(*Env, map[string]bool, int) Type { return t }
func (t *Symbol) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *Symbol) substitute(Substitution, int) Type { return t }
func (t *Symbol) limitSize(int) Type                { return t }

// BlockBody is the callable behind a Proc type.
type BlockBody interface {
	Hash() string
	Inspect() string
}

// Proc is a closure value.
type Proc struct {
	Body BlockBody
	Base Type
	hash string
}

// NewProc wraps a block body.
func NewProc(body BlockBody, base Type) *Proc {
	return &Proc{Body: body, Base: base, hash: "P(" + body.Hash() + ")"}
}

func (t *Proc) Hash() string    { return t.hash }
func (t *Proc) Inspect() string { return "Proc<" + t.Body.Inspect() + ">" }

func (t *Proc) globalize(*Env, map[string]bool, int) Type { return t }
func (t *Proc) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *Proc) substitute(Substitution, int) Type { return t }
func (t *Proc) limitSize(int) Type                { return t }

// Var is a type variable of a declared signature.
type Var struct {
	Name string
	hash string
}

// NewVar creates a type variable.
func NewVar(name string) *Var {
	return &Var{Name: name, hash: "V(" + name + ")"}
}

func (t *Var) Hash() string    { return t.hash }
func (t *Var) Inspect() string { return t.Name }

func (t *Var) globalize(*Env, map[string]bool, int) Type { return t }
func (t *Var) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *Var) substitute(subst Substitution, depth int) Type {
	if ty, ok := subst[t.Name]; ok {
		return ty.limitSize(depth)
	}
	return t
}
func (t *Var) limitSize(int) Type { return t }

// BaseType strips literal, symbol, proc and local-container refinements.
func BaseType(t Type) Type {
	switch t := t.(type) {
	case *Literal:
		return BaseType(t.Base)
	case *Symbol:
		return BaseType(t.Base)
	case *Proc:
		return BaseType(t.Base)
	case *LocalArray:
		return BaseType(t.Base)
	case *LocalHash:
		return BaseType(t.Base)
	case *Array:
		return BaseType(t.Base)
	case *Hash:
		return BaseType(t.Base)
	}
	return t
}

// Globalize converts local container references into global element summaries.
func Globalize(t Type, env *Env, depth int) Type {
	return t.globalize(env, map[string]bool{}, depth)
}

// Localize converts global containers into local references, deploying their
// element summaries into env.
func Localize(t Type, env *Env, site AllocSite, depth int) (*Env, Type) {
	return t.localize(env, site, depth)
}

// Substitute replaces type variables bound in subst.
func Substitute(t Type, subst Substitution, depth int) Type {
	return t.substitute(subst, depth)
}

// LimitSize truncates t to the given nesting depth, replacing deeper parts with Any.
func LimitSize(t Type, limit int) Type {
	return t.limitSize(limit)
}

// RemoveTypeVars replaces every remaining type variable with Any.
func RemoveTypeVars(t Type) Type {
	vars := FreeVars(t)
	if len(vars) == 0 {
		return t
	}
	subst := Substitution{}
	for _, v := range vars {
		subst[v] = Any
	}
	return t.substitute(subst, maxDepth)
}

const maxDepth = 1 << 20

// FreeVars returns the names of the type variables occurring in t.
func FreeVars(t Type) []string {
	seen := map[string]bool{}
	var names []string
	var walk func(Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case *Var:
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		case *UnionType:
			for _, m := range t.types {
				walk(m)
			}
			for _, c := range t.containers {
				walk(c.toGlobal())
			}
		case *Array:
			for _, e := range t.Elems.Lead {
				walk(e)
			}
			walk(t.Elems.Rest)
		case *Hash:
			for i := range t.Elems.keys {
				walk(t.Elems.keys[i])
				walk(t.Elems.vals[i])
			}
		}
	}
	walk(t)
	return names
}

func inspectAll(ts []Type) []string {
	ss := make([]string, len(ts))
	for i, t := range ts {
		ss[i] = t.Inspect()
	}
	return ss
}

func hashAll(ts []Type) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ","
		}
		s += t.Hash()
	}
	return s
}

// AllocSite identifies where a container value was allocated. Sites are
// derived deterministically from an execution point key and a path of sub-ids.
type AllocSite struct {
	key string
}

// NewAllocSite creates a root allocation site.
func NewAllocSite(root string) AllocSite {
	return AllocSite{key: root}
}

// Add derives a child site.
func (s AllocSite) Add(id any) AllocSite {
	return AllocSite{key: s.key + "/" + fmt.Sprint(id)}
}

// Hash returns the site key.
func (s AllocSite) Hash() string { return s.key }

func (s AllocSite) String() string { return s.key }
