package evaluator

import (
	"strconv"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

// Context identifies an analyzed activation: a code body under a class
// reference chain and a selector. Contexts are keyed by value, so one
// method body analyzed from many call sites shares a single context.
type Context struct {
	Body *iseq.CodeBody // nil for declared-signature contexts
	CRef *scope.Scope
	Mid  string
	key  string
}

func newContext(body *iseq.CodeBody, cref *scope.Scope, mid string) *Context {
	return &Context{
		Body: body,
		CRef: cref,
		Mid:  mid,
		key:  strconv.Itoa(body.ID) + "|" + cref.Key() + "|" + mid,
	}
}

// newTypedContext is the context of one call to a declared method.
func newTypedContext(caller *ExecPoint, mid string, recv object.Type) *Context {
	return &Context{Mid: mid, CRef: caller.Ctx.CRef, key: "typed|" + caller.key + "|" + mid + "|" + recv.Hash()}
}

// Key identifies the context.
func (c *Context) Key() string { return c.key }

// IsTyped reports whether the context stands for a declared method call.
func (c *Context) IsTyped() bool { return c.Body == nil }

func (c *Context) String() string {
	if c.Body == nil {
		return "typed:" + c.Mid
	}
	return c.Body.Name
}

// ExecPoint is a program point: a context, a pc, and for blocks and
// handlers the point of the enclosing frame.
type ExecPoint struct {
	Ctx   *Context
	PC    int
	Outer *ExecPoint
	key   string
}

func newExecPoint(ctx *Context, pc int, outer *ExecPoint) *ExecPoint {
	key := ctx.key + "@" + strconv.Itoa(pc)
	if outer != nil {
		key += "<" + outer.key
	}
	return &ExecPoint{Ctx: ctx, PC: pc, Outer: outer, key: key}
}

// Key identifies the point.
func (ep *ExecPoint) Key() string { return ep.key }

// Next returns the following point.
func (ep *ExecPoint) Next() *ExecPoint { return newExecPoint(ep.Ctx, ep.PC+1, ep.Outer) }

// Jump returns the point at pc in the same frame.
func (ep *ExecPoint) Jump(pc int) *ExecPoint { return newExecPoint(ep.Ctx, pc, ep.Outer) }

// Outermost follows Outer links to the method-level frame.
func (ep *ExecPoint) Outermost() *ExecPoint {
	p := ep
	for p.Outer != nil {
		p = p.Outer
	}
	return p
}

// OuterN follows n Outer links.
func (ep *ExecPoint) OuterN(n int) *ExecPoint {
	p := ep
	for i := 0; i < n && p != nil; i++ {
		p = p.Outer
	}
	return p
}

// SourceLocation returns "path:line" of the instruction at the point.
func (ep *ExecPoint) SourceLocation() string {
	if ep.Ctx.Body == nil {
		if ep.Outer != nil {
			return ep.Outer.SourceLocation()
		}
		return "(declared " + ep.Ctx.Mid + ")"
	}
	return ep.Ctx.Body.SourceLocation(ep.PC)
}

func (ep *ExecPoint) String() string {
	return ep.Ctx.String() + "@" + strconv.Itoa(ep.PC)
}

// Continuation receives a callee's return type together with the caller's
// point and its environment at the time of the call.
type Continuation func(ret object.Type, ep *ExecPoint, env *object.Env)
