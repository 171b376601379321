// Package scope implements the lexical class reference chain used to resolve
// constants and to decide where definitions are placed.
package scope

import (
	"strconv"

	"github.com/podhmo/typeprof/object"
)

// Scope is one link of the chain: the class or module whose body encloses
// the code, and whether the code runs on its singleton side.
type Scope struct {
	Class     *object.Class
	Singleton bool
	outer     *Scope
	key       string
}

// NewScope creates a new, top-level scope.
func NewScope(cls *object.Class) *Scope {
	return &Scope{Class: cls, key: cls.Hash()}
}

// NewEnclosedScope creates a new scope that is enclosed by an outer one.
func NewEnclosedScope(outer *Scope, cls *object.Class, singleton bool) *Scope {
	return &Scope{
		Class:     cls,
		Singleton: singleton,
		outer:     outer,
		key:       outer.key + ">" + cls.Hash() + ":" + strconv.FormatBool(singleton),
	}
}

// Outer returns the enclosing scope, or nil at the top level.
func (s *Scope) Outer() *Scope {
	return s.outer
}

// Key identifies the whole chain. Two scopes with the same key are interchangeable.
func (s *Scope) Key() string {
	return s.key
}

// Depth returns the number of links in the chain.
func (s *Scope) Depth() int {
	n := 0
	for c := s; c != nil; c = c.outer {
		n++
	}
	return n
}

// Lookup walks from the innermost scope outwards and returns the first value
// get reports as found.
func Lookup[T any](s *Scope, get func(cls *object.Class) (T, bool)) (T, bool) {
	for c := s; c != nil; c = c.outer {
		if v, ok := get(c.Class); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
