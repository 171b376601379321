package object

import (
	"sort"
	"strconv"
	"strings"
)

// Elements summarizes the contents of a container.
type Elements interface {
	Hash() string
	Inspect() string
	Union(other Elements) Elements
	// Squash returns the union of all element types.
	Squash() Type

	globalize(env *Env, visited map[string]bool, depth int) Elements
	localize(env *Env, site AllocSite, depth int) (*Env, Elements)
	substitute(subst Substitution, depth int) Elements
	limitSize(limit int) Elements
	toGlobal(base Type) Type
	toLocal(id AllocSite, base Type) Type
}

// maxLeadElems bounds the number of positional element types tracked per array.
const maxLeadElems = 5

// ArrayElems is a tuple-like prefix followed by a homogeneous rest.
type ArrayElems struct {
	Lead []Type
	Rest Type
	hash string
}

// NewArrayElems creates an array summary. A nil rest means Bot.
func NewArrayElems(lead []Type, rest Type) *ArrayElems {
	if rest == nil {
		rest = Bot
	}
	return &ArrayElems{Lead: lead, Rest: rest, hash: "[" + hashAll(lead) + ";*" + rest.Hash() + "]"}
}

func (e *ArrayElems) Hash() string { return e.hash }

func (e *ArrayElems) Inspect() string {
	if IsBot(e.Rest) {
		return "[" + strings.Join(inspectAll(e.Lead), ", ") + "]"
	}
	if len(e.Lead) == 0 {
		return "Array[" + e.Rest.Inspect() + "]"
	}
	return "[" + strings.Join(inspectAll(e.Lead), ", ") + ", *" + e.Rest.Inspect() + "]"
}

func (e *ArrayElems) Squash() Type {
	return UnionAll(append(append([]Type{}, e.Lead...), e.Rest)...)
}

// SquashOrAny is Squash, but an empty array yields Any.
func (e *ArrayElems) SquashOrAny() Type {
	ty := e.Squash()
	if IsBot(ty) {
		return Any
	}
	return ty
}

// At returns the element type at index idx. nilTy is returned when the index
// is provably out of range.
func (e *ArrayElems) At(idx int, nilTy Type) Type {
	if idx >= 0 {
		switch {
		case idx < len(e.Lead):
			return e.Lead[idx]
		case IsBot(e.Rest):
			return nilTy
		default:
			return e.Rest
		}
	}
	i := max(len(e.Lead)+idx, 0)
	ty := e.Rest
	for _, t := range e.Lead[i:] {
		ty = Union(ty, t)
	}
	return ty
}

// UpdateAt returns a copy with the element at idx joined with or replaced by ty.
func (e *ArrayElems) UpdateAt(idx int, ty Type) *ArrayElems {
	if idx >= 0 {
		if idx < len(e.Lead) {
			return NewArrayElems(replaceAt(e.Lead, idx, ty), e.Rest)
		}
		return NewArrayElems(e.Lead, Union(e.Rest, ty))
	}
	i := len(e.Lead) + idx
	if IsBot(e.Rest) {
		if i >= 0 {
			return NewArrayElems(replaceAt(e.Lead, i, ty), Bot)
		}
		return e
	}
	i = max(i, 0)
	lead := append([]Type{}, e.Lead[:i]...)
	for _, t := range e.Lead[i:] {
		lead = append(lead, Union(t, ty))
	}
	return NewArrayElems(lead, Union(e.Rest, ty))
}

// UpdateAll joins ty into every element, for writes at an unknown index.
func (e *ArrayElems) UpdateAll(ty Type) *ArrayElems {
	lead := make([]Type, len(e.Lead))
	for i, t := range e.Lead {
		lead[i] = Union(t, ty)
	}
	return NewArrayElems(lead, Union(e.Rest, ty))
}

// Append adds ty at the end.
func (e *ArrayElems) Append(ty Type) *ArrayElems {
	if IsBot(e.Rest) {
		if len(e.Lead) < maxLeadElems {
			return NewArrayElems(append(append([]Type{}, e.Lead...), ty), Bot)
		}
		return NewArrayElems(e.Lead, ty)
	}
	return NewArrayElems(e.Lead, Union(e.Rest, ty))
}

// Concat appends every element of other.
func (e *ArrayElems) Concat(other *ArrayElems) *ArrayElems {
	if IsBot(e.Rest) && IsBot(other.Rest) && len(e.Lead)+len(other.Lead) <= maxLeadElems {
		return NewArrayElems(append(append([]Type{}, e.Lead...), other.Lead...), Bot)
	}
	if IsBot(e.Rest) && len(e.Lead)+len(other.Lead) <= maxLeadElems {
		return NewArrayElems(append(append([]Type{}, e.Lead...), other.Lead...), other.Rest)
	}
	return NewArrayElems(e.Lead, Union(e.Rest, other.Squash()))
}

// TakeFirst splits off n leading element types. Missing elements are nilTy
// joined with the rest type.
func (e *ArrayElems) TakeFirst(n int, nilTy Type) ([]Type, *ArrayElems) {
	if len(e.Lead) >= n {
		return append([]Type{}, e.Lead[:n]...), NewArrayElems(e.Lead[n:], e.Rest)
	}
	lead := append([]Type{}, e.Lead...)
	for len(lead) < n {
		lead = append(lead, Union(e.Rest, nilTy))
	}
	return lead, NewArrayElems(nil, e.Rest)
}

// TakeLast splits off n trailing element types.
func (e *ArrayElems) TakeLast(n int, nilTy Type) (*ArrayElems, []Type) {
	if IsBot(e.Rest) {
		if len(e.Lead) >= n {
			k := len(e.Lead) - n
			return NewArrayElems(e.Lead[:k], Bot), append([]Type{}, e.Lead[k:]...)
		}
		following := append([]Type{}, e.Lead...)
		for len(following) < n {
			following = append([]Type{nilTy}, following...)
		}
		return NewArrayElems(nil, Bot), following
	}
	lead := append([]Type{}, e.Lead...)
	last := e.Rest
	following := make([]Type, 0, n)
	for len(following) < n {
		if len(lead) > 0 {
			last = Union(last, lead[len(lead)-1])
			lead = lead[:len(lead)-1]
		}
		following = append([]Type{last}, following...)
	}
	return NewArrayElems(lead, last), following
}

// Union joins two array summaries: common prefixes are joined pointwise and
// the longer tail is squashed into the rest type.
func (e *ArrayElems) Union(other Elements) Elements {
	o, ok := other.(*ArrayElems)
	if !ok {
		panic(Invariant("merging array elements with %T", other))
	}
	if e.hash == o.hash {
		return e
	}
	n := min(len(e.Lead), len(o.Lead))
	rest := Union(e.Rest, o.Rest)
	for _, t := range e.Lead[n:] {
		rest = Union(rest, t)
	}
	for _, t := range o.Lead[n:] {
		rest = Union(rest, t)
	}
	lead := make([]Type, n)
	for i := 0; i < n; i++ {
		lead[i] = Union(e.Lead[i], o.Lead[i])
	}
	return NewArrayElems(lead, rest)
}

func (e *ArrayElems) globalize(env *Env, visited map[string]bool, depth int) Elements {
	lead := make([]Type, len(e.Lead))
	for i, t := range e.Lead {
		lead[i] = t.globalize(env, visited, depth)
	}
	return NewArrayElems(lead, e.Rest.globalize(env, visited, depth))
}

func (e *ArrayElems) localize(env *Env, site AllocSite, depth int) (*Env, Elements) {
	lead := make([]Type, len(e.Lead))
	for i, t := range e.Lead {
		env, lead[i] = t.localize(env, site.Add(i), depth)
	}
	env, rest := e.Rest.localize(env, site.Add("rest"), depth)
	return env, NewArrayElems(lead, rest)
}

func (e *ArrayElems) substitute(subst Substitution, depth int) Elements {
	lead := make([]Type, len(e.Lead))
	for i, t := range e.Lead {
		lead[i] = t.substitute(subst, depth)
	}
	return NewArrayElems(lead, e.Rest.substitute(subst, depth))
}

func (e *ArrayElems) limitSize(limit int) Elements {
	lead := make([]Type, len(e.Lead))
	for i, t := range e.Lead {
		lead[i] = t.limitSize(limit)
	}
	return NewArrayElems(lead, e.Rest.limitSize(limit))
}

func (e *ArrayElems) toGlobal(base Type) Type { return NewArray(e, base) }
func (e *ArrayElems) toLocal(id AllocSite, base Type) Type {
	return NewLocalArray(id, base)
}

func replaceAt(ts []Type, i int, t Type) []Type {
	out := append([]Type{}, ts...)
	out[i] = t
	return out
}

// HashElems maps key types to value types. Pairs are kept sorted by key hash.
type HashElems struct {
	keys []Type
	vals []Type
	hash string
}

// NewHashElems creates a hash summary from parallel key/value slices.
// Duplicate keys are joined.
func NewHashElems(keys, vals []Type) *HashElems {
	e := &HashElems{}
	for i := range keys {
		e = e.Update(keys[i], vals[i])
	}
	if e.hash == "" {
		e.rehash()
	}
	return e
}

func (e *HashElems) rehash() {
	var sb strings.Builder
	sb.WriteString("{")
	for i := range e.keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(e.keys[i].Hash())
		sb.WriteString("=>")
		sb.WriteString(e.vals[i].Hash())
	}
	sb.WriteString("}")
	e.hash = sb.String()
}

func (e *HashElems) Hash() string { return e.hash }

func (e *HashElems) Inspect() string {
	if len(e.keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(e.keys))
	for i := range e.keys {
		parts[i] = e.keys[i].Inspect() + "=>" + e.vals[i].Inspect()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Len returns the number of distinct key types.
func (e *HashElems) Len() int { return len(e.keys) }

// Each calls fn for every key/value pair in key order.
func (e *HashElems) Each(fn func(k, v Type)) {
	for i := range e.keys {
		fn(e.keys[i], e.vals[i])
	}
}

// Update returns a copy with v joined into the value of key k.
// Container keys are widened to Any.
func (e *HashElems) Update(k, v Type) *HashElems {
	switch k.(type) {
	case *Array, *Hash, *LocalArray, *LocalHash:
		k = Any
	}
	keys := append([]Type{}, e.keys...)
	vals := append([]Type{}, e.vals...)
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Hash() >= k.Hash() })
	if i < len(keys) && keys[i].Hash() == k.Hash() {
		vals[i] = Union(vals[i], v)
	} else {
		keys = append(keys[:i], append([]Type{k}, keys[i:]...)...)
		vals = append(vals[:i], append([]Type{v}, vals[i:]...)...)
	}
	out := &HashElems{keys: keys, vals: vals}
	out.rehash()
	return out
}

// Lookup joins the values of every key matching k. nilTy is returned when no key matches.
func (e *HashElems) Lookup(k Type, nilTy Type) Type {
	ty := Bot
	for i := range e.keys {
		if _, ok := Match(e.keys[i], k); ok {
			ty = Union(ty, e.vals[i])
		}
	}
	if IsBot(ty) {
		return nilTy
	}
	return ty
}

// Squash returns the union of all value types.
func (e *HashElems) Squash() Type {
	return UnionAll(e.vals...)
}

// SquashKeys returns the union of all key types.
func (e *HashElems) SquashKeys() Type {
	return UnionAll(e.keys...)
}

// ToKeywords splits the summary into named keyword types and the join of the
// values whose keys are not literal symbols.
func (e *HashElems) ToKeywords() (map[string]Type, Type) {
	named := map[string]Type{}
	other := Bot
	for i := range e.keys {
		if sym, ok := e.keys[i].(*Symbol); ok && !sym.Dynamic {
			named[sym.Name] = e.vals[i]
			continue
		}
		other = Union(other, e.vals[i])
	}
	return named, other
}

func (e *HashElems) Union(other Elements) Elements {
	o, ok := other.(*HashElems)
	if !ok {
		panic(Invariant("merging hash elements with %T", other))
	}
	if e.hash == o.hash {
		return e
	}
	out := e
	for i := range o.keys {
		out = out.Update(o.keys[i], o.vals[i])
	}
	return out
}

func (e *HashElems) globalize(env *Env, visited map[string]bool, depth int) Elements {
	out := &HashElems{}
	for i := range e.keys {
		out = out.Update(e.keys[i].globalize(env, visited, depth), e.vals[i].globalize(env, visited, depth))
	}
	if out.hash == "" {
		out.rehash()
	}
	return out
}

func (e *HashElems) localize(env *Env, site AllocSite, depth int) (*Env, Elements) {
	vals := make([]Type, len(e.vals))
	for i := range e.keys {
		env, vals[i] = e.vals[i].localize(env, site.Add(e.keys[i].Hash()), depth)
	}
	out := &HashElems{keys: e.keys, vals: vals}
	out.rehash()
	return env, out
}

func (e *HashElems) substitute(subst Substitution, depth int) Elements {
	out := &HashElems{}
	for i := range e.keys {
		out = out.Update(e.keys[i].substitute(subst, depth), e.vals[i].substitute(subst, depth))
	}
	if out.hash == "" {
		out.rehash()
	}
	return out
}

func (e *HashElems) limitSize(limit int) Elements {
	out := &HashElems{}
	for i := range e.keys {
		out = out.Update(e.keys[i].limitSize(limit), e.vals[i].limitSize(limit))
	}
	if out.hash == "" {
		out.rehash()
	}
	return out
}

func (e *HashElems) toGlobal(base Type) Type { return NewHash(e, base) }
func (e *HashElems) toLocal(id AllocSite, base Type) Type {
	return NewLocalHash(id, base)
}

// Array is a global (environment independent) array type.
type Array struct {
	Elems *ArrayElems
	Base  Type
	hash  string
}

// NewArray creates a global array type.
func NewArray(elems *ArrayElems, base Type) *Array {
	return &Array{Elems: elems, Base: base, hash: "A(" + elems.hash + "," + base.Hash() + ")"}
}

func (t *Array) Hash() string { return t.hash }

func (t *Array) Inspect() string {
	if inst, ok := t.Base.(*Instance); ok && inst.Class.Name == "Array" {
		return t.Elems.Inspect()
	}
	return t.Base.Inspect() + t.Elems.Inspect()
}

func (t *Array) globalize(env *Env, visited map[string]bool, depth int) Type {
	if depth <= 0 {
		return Any
	}
	return NewArray(t.Elems.globalize(env, visited, depth-1).(*ArrayElems), t.Base)
}

func (t *Array) localize(env *Env, site AllocSite, depth int) (*Env, Type) {
	if depth <= 0 {
		return env, Any
	}
	id := site.Add("ary").Add(t.Base.Hash())
	env, elems := t.Elems.localize(env, id, depth-1)
	return env.Deploy(id, elems), NewLocalArray(id, t.Base)
}

func (t *Array) substitute(subst Substitution, depth int) Type {
	return NewArray(t.Elems.substitute(subst, depth).(*ArrayElems), t.Base)
}

func (t *Array) limitSize(limit int) Type {
	if limit <= 0 {
		return Any
	}
	return NewArray(t.Elems.limitSize(limit-1).(*ArrayElems), t.Base)
}

// LocalArray refers to an array whose elements live in an environment.
type LocalArray struct {
	ID   AllocSite
	Base Type
	hash string
}

// NewLocalArray creates a local array reference.
func NewLocalArray(id AllocSite, base Type) *LocalArray {
	return &LocalArray{ID: id, Base: base, hash: "LA(" + strconv.Quote(id.key) + "," + base.Hash() + ")"}
}

func (t *LocalArray) Hash() string    { return t.hash }
func (t *LocalArray) Inspect() string { return "Array@" + t.ID.key }

func (t *LocalArray) globalize(env *Env, visited map[string]bool, depth int) Type {
	if depth <= 0 || visited[t.hash] {
		return Any
	}
	visited[t.hash] = true
	defer delete(visited, t.hash)

	var elems *ArrayElems
	if e, ok := env.ContainerElems(t.ID); ok {
		elems = e.globalize(env, visited, depth-1).(*ArrayElems)
	} else {
		elems = NewArrayElems(nil, Any)
	}
	return NewArray(elems, t.Base)
}

func (t *LocalArray) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *LocalArray) substitute(Substitution, int) Type { return t }
func (t *LocalArray) limitSize(int) Type                { return t }

// Hash is a global hash type.
type Hash struct {
	Elems *HashElems
	Base  Type
	hash  string
}

// NewHash creates a global hash type.
func NewHash(elems *HashElems, base Type) *Hash {
	return &Hash{Elems: elems, Base: base, hash: "H(" + elems.hash + "," + base.Hash() + ")"}
}

func (t *Hash) Hash() string { return t.hash }

func (t *Hash) Inspect() string {
	if inst, ok := t.Base.(*Instance); ok && inst.Class.Name == "Hash" {
		return t.Elems.Inspect()
	}
	return t.Base.Inspect() + t.Elems.Inspect()
}

func (t *Hash) globalize(env *Env, visited map[string]bool, depth int) Type {
	if depth <= 0 {
		return Any
	}
	return NewHash(t.Elems.globalize(env, visited, depth-1).(*HashElems), t.Base)
}

func (t *Hash) localize(env *Env, site AllocSite, depth int) (*Env, Type) {
	if depth <= 0 {
		return env, Any
	}
	id := site.Add("hash").Add(t.Base.Hash())
	env, elems := t.Elems.localize(env, id, depth-1)
	return env.Deploy(id, elems), NewLocalHash(id, t.Base)
}

func (t *Hash) substitute(subst Substitution, depth int) Type {
	return NewHash(t.Elems.substitute(subst, depth).(*HashElems), t.Base)
}

func (t *Hash) limitSize(limit int) Type {
	if limit <= 0 {
		return Any
	}
	return NewHash(t.Elems.limitSize(limit-1).(*HashElems), t.Base)
}

// LocalHash refers to a hash whose elements live in an environment.
type LocalHash struct {
	ID   AllocSite
	Base Type
	hash string
}

// NewLocalHash creates a local hash reference.
func NewLocalHash(id AllocSite, base Type) *LocalHash {
	return &LocalHash{ID: id, Base: base, hash: "LH(" + strconv.Quote(id.key) + "," + base.Hash() + ")"}
}

func (t *LocalHash) Hash() string    { return t.hash }
func (t *LocalHash) Inspect() string { return "Hash@" + t.ID.key }

func (t *LocalHash) globalize(env *Env, visited map[string]bool, depth int) Type {
	if depth <= 0 || visited[t.hash] {
		return Any
	}
	visited[t.hash] = true
	defer delete(visited, t.hash)

	var elems *HashElems
	if e, ok := env.ContainerElems(t.ID); ok {
		elems = e.globalize(env, visited, depth-1).(*HashElems)
	} else {
		elems = NewHashElems([]Type{Any}, []Type{Any})
	}
	return NewHash(elems, t.Base)
}

func (t *LocalHash) localize(env *Env, _ AllocSite, _ int) (*Env, Type) {
	return env, t
}
func (t *LocalHash) substitute(Substitution, int) Type { return t }
func (t *LocalHash) limitSize(int) Type                { return t }
