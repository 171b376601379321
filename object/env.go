package object

import (
	"sort"
	"strings"
)

// StaticEnv is the part of a frame that does not change while the frame runs.
type StaticEnv struct {
	Recv    Type
	Blk     Type
	ModFunc bool
}

// Merge joins two static environments.
func (s StaticEnv) Merge(o StaticEnv) StaticEnv {
	return StaticEnv{
		Recv:    Union(s.Recv, o.Recv),
		Blk:     Union(s.Blk, o.Blk),
		ModFunc: s.ModFunc && o.ModFunc,
	}
}

func (s StaticEnv) equal(o StaticEnv) bool {
	return s.Recv.Hash() == o.Recv.Hash() && s.Blk.Hash() == o.Blk.Hash() && s.ModFunc == o.ModFunc
}

// Env is the abstract state at a program point. It is immutable: every
// update returns a new Env.
//
// A frame that runs inside another frame (a block or a handler) has no
// container table of its own; its containers are kept in the outermost
// frame's table, and elems is nil.
type Env struct {
	Static StaticEnv
	locals []Type
	stack  []Type
	elems  map[string]containerSlot
}

type containerSlot struct {
	id    AllocSite
	elems Elements
}

// NewEnv creates an environment. Pass withElems=false for frames that borrow
// their container table from an outer frame.
func NewEnv(static StaticEnv, locals []Type, stack []Type, withElems bool) *Env {
	env := &Env{Static: static, locals: locals, stack: stack}
	if withElems {
		env.elems = map[string]containerSlot{}
	}
	return env
}

// Locals returns the local slots. The slice must not be modified.
func (e *Env) Locals() []Type { return e.locals }

// Stack returns the operand stack, bottom first. The slice must not be modified.
func (e *Env) Stack() []Type { return e.stack }

// StackSize returns the operand stack depth.
func (e *Env) StackSize() int { return len(e.stack) }

// HasElems reports whether the env owns a container table.
func (e *Env) HasElems() bool { return e.elems != nil }

func (e *Env) clone() *Env {
	c := *e
	return &c
}

// Local returns the type of local slot i.
func (e *Env) Local(i int) Type {
	if i < 0 || i >= len(e.locals) {
		panic(Invariant("local index %d out of range (%d locals)", i, len(e.locals)))
	}
	return e.locals[i]
}

// SetLocal returns an env with local slot i set to t.
func (e *Env) SetLocal(i int, t Type) *Env {
	if i < 0 || i >= len(e.locals) {
		panic(Invariant("local index %d out of range (%d locals)", i, len(e.locals)))
	}
	c := e.clone()
	c.locals = replaceAt(e.locals, i, t)
	return c
}

// Push returns an env with ts pushed in order. Every type must be localized.
func (e *Env) Push(ts ...Type) *Env {
	for _, t := range ts {
		checkPushable(t)
	}
	c := e.clone()
	c.stack = append(append(make([]Type, 0, len(e.stack)+len(ts)), e.stack...), ts...)
	return c
}

func checkPushable(t Type) {
	if t == nil {
		panic(Invariant("push of a nil type"))
	}
	for _, c := range Children(t) {
		switch c.(type) {
		case *Array, *Hash:
			panic(Invariant("push of an unlocalized container %s", c.Inspect()))
		case *Var:
			panic(Invariant("push of a type variable %s", c.Inspect()))
		}
	}
}

// Pop removes n values and returns them bottom first.
func (e *Env) Pop(n int) (*Env, []Type) {
	if n > len(e.stack) {
		panic(Invariant("stack underflow: pop %d of %d", n, len(e.stack)))
	}
	k := len(e.stack) - n
	c := e.clone()
	c.stack = e.stack[:k:k]
	return c, append([]Type{}, e.stack[k:]...)
}

// Peek returns the value n slots below the top (0 is the top).
func (e *Env) Peek(n int) Type {
	if n >= len(e.stack) {
		panic(Invariant("stack underflow: peek %d of %d", n, len(e.stack)))
	}
	return e.stack[len(e.stack)-1-n]
}

// TopN pushes a copy of the value n slots below the top.
func (e *Env) TopN(n int) *Env {
	return e.Push(e.Peek(n))
}

// SetN replaces the value n slots below the top.
func (e *Env) SetN(n int, t Type) *Env {
	if n >= len(e.stack) {
		panic(Invariant("stack underflow: setn %d of %d", n, len(e.stack)))
	}
	checkPushable(t)
	c := e.clone()
	c.stack = replaceAt(e.stack, len(e.stack)-1-n, t)
	return c
}

// ContainerElems returns the element summary of a local container.
func (e *Env) ContainerElems(id AllocSite) (Elements, bool) {
	slot, ok := e.elems[id.key]
	if !ok {
		return nil, false
	}
	return slot.elems, true
}

// Deploy returns an env with the element summary for id set to elems.
func (e *Env) Deploy(id AllocSite, elems Elements) *Env {
	c := e.clone()
	c.elems = make(map[string]containerSlot, len(e.elems)+1)
	for k, v := range e.elems {
		c.elems[k] = v
	}
	c.elems[id.key] = containerSlot{id: id, elems: elems}
	return c
}

// ContainerIDs returns the ids of every container in the table, sorted.
func (e *Env) ContainerIDs() []AllocSite {
	ids := make([]AllocSite, 0, len(e.elems))
	for _, slot := range e.elems {
		ids = append(ids, slot.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].key < ids[j].key })
	return ids
}

// EnableModuleFunction marks subsequent method definitions as module functions.
func (e *Env) EnableModuleFunction() *Env {
	c := e.clone()
	c.Static.ModFunc = true
	return c
}

// ReplaceRecv returns an env with a different receiver.
func (e *Env) ReplaceRecv(t Type) *Env {
	c := e.clone()
	c.Static.Recv = t
	return c
}

// ReplaceBlk returns an env with a different block type.
func (e *Env) ReplaceBlk(t Type) *Env {
	c := e.clone()
	c.Static.Blk = t
	return c
}

// Merge joins two envs of the same shape pointwise.
func (e *Env) Merge(o *Env) *Env {
	if len(e.locals) != len(o.locals) {
		panic(Invariant("local size mismatch on merge: %d vs %d", len(e.locals), len(o.locals)))
	}
	if len(e.stack) != len(o.stack) {
		panic(Invariant("stack inconsistency on merge: %d vs %d", len(e.stack), len(o.stack)))
	}
	locals := make([]Type, len(e.locals))
	for i := range e.locals {
		locals[i] = Union(e.locals[i], o.locals[i])
	}
	stack := make([]Type, len(e.stack))
	for i := range e.stack {
		stack[i] = Union(e.stack[i], o.stack[i])
	}
	merged := &Env{Static: e.Static.Merge(o.Static), locals: locals, stack: stack}
	if e.elems != nil || o.elems != nil {
		merged.elems = make(map[string]containerSlot, len(e.elems))
		for k, v := range e.elems {
			merged.elems[k] = v
		}
		for k, v := range o.elems {
			if old, ok := merged.elems[k]; ok {
				v.elems = old.elems.Union(v.elems)
			}
			merged.elems[k] = v
		}
	}
	return merged
}

// Equal reports whether two envs are identical.
func (e *Env) Equal(o *Env) bool {
	if e == o {
		return true
	}
	if !e.Static.equal(o.Static) || len(e.locals) != len(o.locals) || len(e.stack) != len(o.stack) {
		return false
	}
	for i := range e.locals {
		if e.locals[i].Hash() != o.locals[i].Hash() {
			return false
		}
	}
	for i := range e.stack {
		if e.stack[i].Hash() != o.stack[i].Hash() {
			return false
		}
	}
	if (e.elems == nil) != (o.elems == nil) || len(e.elems) != len(o.elems) {
		return false
	}
	for k, v := range e.elems {
		w, ok := o.elems[k]
		if !ok || v.elems.Hash() != w.elems.Hash() {
			return false
		}
	}
	return true
}

// Inspect returns a debugging representation.
func (e *Env) Inspect() string {
	var sb strings.Builder
	sb.WriteString("recv=")
	sb.WriteString(e.Static.Recv.Inspect())
	sb.WriteString(" blk=")
	sb.WriteString(e.Static.Blk.Inspect())
	sb.WriteString(" locals=[")
	sb.WriteString(strings.Join(inspectAll(e.locals), ", "))
	sb.WriteString("] stack=[")
	sb.WriteString(strings.Join(inspectAll(e.stack), ", "))
	sb.WriteString("]")
	return sb.String()
}
