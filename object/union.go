package object

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

type containerKind int

const (
	arrayKind containerKind = iota
	hashKind
)

func (k containerKind) String() string {
	if k == hashKind {
		return "Hash"
	}
	return "Array"
}

// containerEntry is a global container folded into a union, keyed by kind and base type.
type containerEntry struct {
	kind  containerKind
	base  Type
	elems Elements
}

func (c containerEntry) key() string {
	return c.kind.String() + ":" + c.base.Hash()
}

func (c containerEntry) toGlobal() Type {
	return c.elems.toGlobal(c.base)
}

// UnionType is a finite join of types. The empty union is Bot.
type UnionType struct {
	types      []Type // sorted by hash; never unions or global containers
	containers []containerEntry
	hash       string
}

// Bot is the bottom of the lattice: no value.
var Bot Type = newUnionType(nil, nil)

func newUnionType(types []Type, containers []containerEntry) *UnionType {
	var sb strings.Builder
	sb.WriteString("U{")
	sb.WriteString(hashAll(types))
	for _, c := range containers {
		sb.WriteString(";")
		sb.WriteString(c.key())
		sb.WriteString("=")
		sb.WriteString(c.elems.Hash())
	}
	sb.WriteString("}")
	return &UnionType{types: types, containers: containers, hash: sb.String()}
}

// IsBot reports whether t is the empty union.
func IsBot(t Type) bool {
	u, ok := t.(*UnionType)
	return ok && len(u.types) == 0 && len(u.containers) == 0
}

func (u *UnionType) Hash() string { return u.hash }

func (u *UnionType) Inspect() string {
	if len(u.types) == 0 && len(u.containers) == 0 {
		return "bot"
	}
	parts := inspectAll(u.types)
	for _, c := range u.containers {
		parts = append(parts, c.toGlobal().Inspect())
	}
	sort.Strings(parts)
	return strings.Join(parts, " | ")
}

// Types returns the non-container members.
func (u *UnionType) Types() []Type {
	return u.types
}

// Children returns the members of t: the members of a union (containers
// included as global types), nothing for Bot, and t itself otherwise.
func Children(t Type) []Type {
	u, ok := t.(*UnionType)
	if !ok {
		return []Type{t}
	}
	children := make([]Type, 0, len(u.types)+len(u.containers))
	children = append(children, u.types...)
	for _, c := range u.containers {
		children = append(children, c.toGlobal())
	}
	return children
}

func (u *UnionType) globalize(env *Env, visited map[string]bool, depth int) Type {
	b := newUnionBuilder()
	for _, m := range u.types {
		b.add(m.globalize(env, visited, depth))
	}
	for _, c := range u.containers {
		b.add(c.toGlobal().globalize(env, visited, depth))
	}
	return b.build()
}

func (u *UnionType) localize(env *Env, site AllocSite, depth int) (*Env, Type) {
	b := newUnionBuilder()
	for _, m := range u.types {
		var ty Type
		env, ty = m.localize(env, site.Add(m.Hash()), depth)
		b.add(ty)
	}
	for _, c := range u.containers {
		var ty Type
		env, ty = c.toGlobal().localize(env, site.Add(c.key()), depth)
		b.add(ty)
	}
	return env, b.build()
}

func (u *UnionType) substitute(subst Substitution, depth int) Type {
	b := newUnionBuilder()
	for _, m := range u.types {
		b.add(m.substitute(subst, depth))
	}
	for _, c := range u.containers {
		b.add(c.toGlobal().substitute(subst, depth))
	}
	return b.build()
}

func (u *UnionType) limitSize(limit int) Type {
	if limit <= 0 {
		return Any
	}
	b := newUnionBuilder()
	for _, m := range u.types {
		b.add(m.limitSize(limit))
	}
	for _, c := range u.containers {
		b.add(c.toGlobal().limitSize(limit))
	}
	return b.build()
}

// Union joins two types. It is commutative, idempotent and associative.
//
// Identical literals are kept; distinct literals of one base, or a literal
// together with its base, widen to the base type. Global containers of the
// same kind and base merge their element summaries.
func Union(a, b Type) Type {
	if a.Hash() == b.Hash() {
		return a
	}
	if IsBot(a) {
		return b
	}
	if IsBot(b) {
		return a
	}
	ub := newUnionBuilder()
	ub.add(a)
	ub.add(b)
	return ub.build()
}

// UnionAll joins every type in ts. The union of nothing is Bot.
func UnionAll(ts ...Type) Type {
	ub := newUnionBuilder()
	for _, t := range ts {
		ub.add(t)
	}
	return ub.build()
}

type unionBuilder struct {
	members    *set.HashSet[Type, string]
	containers map[string]containerEntry
}

func newUnionBuilder() *unionBuilder {
	return &unionBuilder{
		members:    set.NewHashSet[Type, string](4),
		containers: map[string]containerEntry{},
	}
}

func (b *unionBuilder) add(t Type) {
	switch t := t.(type) {
	case *UnionType:
		for _, m := range t.types {
			b.members.Insert(m)
		}
		for _, c := range t.containers {
			b.addContainer(c)
		}
	case *Array:
		b.addContainer(containerEntry{kind: arrayKind, base: t.Base, elems: t.Elems})
	case *Hash:
		b.addContainer(containerEntry{kind: hashKind, base: t.Base, elems: t.Elems})
	default:
		b.members.Insert(t)
	}
}

func (b *unionBuilder) addContainer(c containerEntry) {
	k := c.key()
	if old, ok := b.containers[k]; ok {
		c.elems = old.elems.Union(c.elems)
	}
	b.containers[k] = c
}

func (b *unionBuilder) build() Type {
	literals := map[string][]*Literal{}
	var bases []string
	for _, m := range b.members.Slice() {
		if lit, ok := m.(*Literal); ok {
			k := lit.Base.Hash()
			if _, seen := literals[k]; !seen {
				bases = append(bases, k)
			}
			literals[k] = append(literals[k], lit)
		}
	}
	for _, k := range bases {
		lits := literals[k]
		base := lits[0].Base
		if len(lits) >= 2 || b.members.Contains(base) {
			for _, lit := range lits {
				b.members.Remove(lit)
			}
			b.members.Insert(base)
		}
	}

	types := b.members.Slice()
	sort.Slice(types, func(i, j int) bool { return types[i].Hash() < types[j].Hash() })

	containers := make([]containerEntry, 0, len(b.containers))
	for _, c := range b.containers {
		containers = append(containers, c)
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].key() < containers[j].key() })

	switch {
	case len(types) == 1 && len(containers) == 0:
		return types[0]
	case len(types) == 0 && len(containers) == 1:
		return containers[0].toGlobal()
	}
	return newUnionType(types, containers)
}
