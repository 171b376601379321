package object

import "fmt"

// InvariantError reports a violated internal invariant. It aborts the analysis.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "internal error: " + e.Message
}

// Invariant creates an InvariantError.
func Invariant(format string, args ...any) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// Substitution binds type variable names to types.
type Substitution map[string]Type

// MergeSubstitution joins two substitutions; variables bound in both get the union.
func MergeSubstitution(a, b Substitution) Substitution {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := make(Substitution, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if old, ok := out[k]; ok {
			out[k] = Union(old, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// Match checks a concrete, global type against a pattern that may contain
// type variables. On success it returns the bindings the pattern requires.
func Match(concrete, pattern Type) (Substitution, bool) {
	switch p := pattern.(type) {
	case *Var:
		return Substitution{p.Name: concrete}, true
	case *anyType:
		return Substitution{}, true
	case *UnionType:
		var subst Substitution
		matched := false
		for _, pc := range Children(p) {
			for _, cc := range Children(concrete) {
				s, ok := Match(cc, pc)
				if !ok {
					continue
				}
				matched = true
				subst = MergeSubstitution(subst, s)
			}
		}
		if !matched {
			return nil, false
		}
		if subst == nil {
			subst = Substitution{}
		}
		return subst, true
	}

	switch c := concrete.(type) {
	case *Var:
		panic(Invariant("type variable %s in a concrete type", c.Name))
	case *anyType:
		subst := Substitution{}
		for _, v := range FreeVars(pattern) {
			subst[v] = Any
		}
		return subst, true
	case *UnionType:
		var subst Substitution
		matched := false
		for _, cc := range Children(c) {
			s, ok := Match(cc, pattern)
			if !ok {
				continue
			}
			matched = true
			subst = MergeSubstitution(subst, s)
		}
		if !matched {
			return nil, false
		}
		if subst == nil {
			subst = Substitution{}
		}
		return subst, true
	}

	switch p := pattern.(type) {
	case *Array:
		c, ok := concrete.(*Array)
		if !ok || !Consistent(c.Base, p.Base) {
			return nil, false
		}
		return Match(c.Elems.Squash(), p.Elems.Squash())
	case *Hash:
		c, ok := concrete.(*Hash)
		if !ok || !Consistent(c.Base, p.Base) {
			return nil, false
		}
		ks, ok := Match(c.Elems.SquashKeys(), p.Elems.SquashKeys())
		if !ok {
			return nil, false
		}
		vs, ok := Match(c.Elems.Squash(), p.Elems.Squash())
		if !ok {
			return nil, false
		}
		return MergeSubstitution(ks, vs), true
	}
	switch concrete.(type) {
	case *Array, *Hash:
		if Consistent(concrete, pattern) {
			return Substitution{}, true
		}
		return nil, false
	}
	if Consistent(concrete, pattern) {
		return Substitution{}, true
	}
	return nil, false
}

// Consistent reports whether a concrete type conforms to a pattern. A union
// conforms when each of its members does.
func Consistent(concrete, pattern Type) bool {
	if IsAny(pattern) || IsAny(concrete) {
		return true
	}
	if concrete.Hash() == pattern.Hash() {
		return true
	}
	if u, ok := concrete.(*UnionType); ok {
		for _, c := range Children(u) {
			if !Consistent(c, pattern) {
				return false
			}
		}
		return true
	}
	if u, ok := pattern.(*UnionType); ok {
		for _, pc := range Children(u) {
			if Consistent(concrete, pc) {
				return true
			}
		}
		return false
	}

	switch c := concrete.(type) {
	case *Literal:
		return Consistent(c.Base, pattern)
	case *Symbol:
		if p, ok := pattern.(*Symbol); ok {
			return p.Dynamic
		}
		return Consistent(c.Base, pattern)
	case *Proc:
		if _, ok := pattern.(*Proc); ok {
			return true
		}
		return Consistent(c.Base, pattern)
	case *Array:
		return Consistent(c.Base, BaseType(pattern))
	case *Hash:
		return Consistent(c.Base, BaseType(pattern))
	case *LocalArray:
		return Consistent(c.Base, BaseType(pattern))
	case *LocalHash:
		return Consistent(c.Base, BaseType(pattern))
	case *Instance:
		if p, ok := pattern.(*Instance); ok {
			return c.Class.IsSubclassOf(p.Class)
		}
		return false
	case *Class:
		switch p := pattern.(type) {
		case *Class:
			return c.IsSubclassOf(p)
		case *Instance:
			switch p.Class.Name {
			case "Object", "BasicObject", "Module":
				return true
			case "Class":
				return c.Kind == KindClass
			}
		}
		return false
	}
	return false
}
