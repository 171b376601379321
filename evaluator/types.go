package evaluator

import (
	"context"
	"strconv"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

func (e *Evaluator) instanceOf(cls *object.Class) object.Type { return object.NewInstance(cls) }

func (e *Evaluator) nilType() object.Type   { return object.NewInstance(e.builtin.NilClass) }
func (e *Evaluator) trueType() object.Type  { return object.NewInstance(e.builtin.TrueClass) }
func (e *Evaluator) falseType() object.Type { return object.NewInstance(e.builtin.FalseClass) }
func (e *Evaluator) boolType() object.Type  { return object.Union(e.trueType(), e.falseType()) }

func (e *Evaluator) optional(ty object.Type) object.Type { return object.Union(ty, e.nilType()) }

// arrayOf returns the global type Array[elem].
func (e *Evaluator) arrayOf(elem object.Type) *object.Array {
	return object.NewArray(object.NewArrayElems(nil, elem), e.instanceOf(e.builtin.Array))
}

// hashOf returns the global type Hash[key, val].
func (e *Evaluator) hashOf(key, val object.Type) *object.Hash {
	return object.NewHash(object.NewHashElems([]object.Type{key}, []object.Type{val}), e.instanceOf(e.builtin.Hash))
}

// literalType converts a literal operand into a global type.
func (e *Evaluator) literalType(lit *iseq.Literal) object.Type {
	switch lit.Kind {
	case iseq.LitNil:
		return e.nilType()
	case iseq.LitTrue:
		return e.trueType()
	case iseq.LitFalse:
		return e.falseType()
	case iseq.LitInteger:
		return object.NewLiteral(strconv.FormatInt(lit.Int, 10), e.instanceOf(e.builtin.Integer))
	case iseq.LitFloat:
		return object.NewLiteral(lit.String(), e.instanceOf(e.builtin.Float))
	case iseq.LitRational:
		return object.NewLiteral(lit.String(), e.instanceOf(e.builtin.Rational))
	case iseq.LitString:
		return object.NewLiteral(lit.String(), e.instanceOf(e.builtin.String))
	case iseq.LitSymbol:
		return object.NewSymbol(lit.Str, e.instanceOf(e.builtin.Symbol))
	case iseq.LitRegexp:
		return e.instanceOf(e.builtin.Regexp)
	case iseq.LitRange:
		return e.instanceOf(e.builtin.Range)
	case iseq.LitArray:
		lead := make([]object.Type, len(lit.Elems))
		for i, el := range lit.Elems {
			lead[i] = e.literalType(el)
		}
		return object.NewArray(object.NewArrayElems(lead, nil), e.instanceOf(e.builtin.Array))
	case iseq.LitHash:
		keys := make([]object.Type, len(lit.Pairs))
		vals := make([]object.Type, len(lit.Pairs))
		for i, p := range lit.Pairs {
			keys[i] = e.literalType(p.Key)
			vals[i] = e.literalType(p.Value)
		}
		return object.NewHash(object.NewHashElems(keys, vals), e.instanceOf(e.builtin.Hash))
	case iseq.LitClass:
		if def := e.lookupClassPath(lit.Str); def != nil {
			return def.Class
		}
		return object.Any
	}
	return object.Any
}

// tableEnv returns the env owning the container table for a frame at ep.
func (e *Evaluator) tableEnv(ep *ExecPoint, env *object.Env) (*object.Env, *ExecPoint) {
	if ep.Outer == nil {
		return env, nil
	}
	top := ep.Outermost()
	if tenv, ok := e.returnEnvs[top.key]; ok {
		return tenv, top
	}
	return env, nil
}

// globalizeType converts a type observed at ep into its global form.
func (e *Evaluator) globalizeType(ty object.Type, env *object.Env, ep *ExecPoint) object.Type {
	tenv, _ := e.tableEnv(ep, env)
	return object.Globalize(ty, tenv, e.typeDepthLimit)
}

func (e *Evaluator) globalizeArgs(args *object.ActualArgs, env *object.Env, ep *ExecPoint) *object.ActualArgs {
	tenv, _ := e.tableEnv(ep, env)
	return args.Globalize(tenv, e.typeDepthLimit)
}

// localizeType converts a global type arriving at ep into a local one. For a
// nested frame the containers are deployed into the outermost frame's table.
func (e *Evaluator) localizeType(ty object.Type, env *object.Env, ep *ExecPoint, site object.AllocSite) (*object.Env, object.Type) {
	ty = object.LimitSize(ty, e.typeDepthLimit)
	if ep.Outer == nil {
		return object.Localize(ty, env, site, e.typeDepthLimit)
	}
	top := ep.Outermost()
	tenv, ok := e.returnEnvs[top.key]
	if !ok {
		return env, object.Globalize(ty, env, e.typeDepthLimit)
	}
	tenv, lty := object.Localize(ty, tenv, site, e.typeDepthLimit)
	e.returnEnvs[top.key] = tenv
	return env, lty
}

func siteAt(ep *ExecPoint) object.AllocSite {
	return object.NewAllocSite(ep.key)
}

// containerElems returns the element summary of a local container.
func (e *Evaluator) containerElems(env *object.Env, ep *ExecPoint, id object.AllocSite) (object.Elements, bool) {
	tenv, _ := e.tableEnv(ep, env)
	return tenv.ContainerElems(id)
}

// updateContainerElems rewrites a local container's elements. Escaped
// containers are also written back to the instance variable holding them.
func (e *Evaluator) updateContainerElems(ctx context.Context, env *object.Env, ep *ExecPoint, id object.AllocSite, fn func(object.Elements) object.Elements) *object.Env {
	tenv, top := e.tableEnv(ep, env)
	old, _ := tenv.ContainerElems(id)
	tenv = tenv.Deploy(id, fn(old))
	if top != nil {
		e.returnEnvs[top.key] = tenv
	} else {
		env = tenv
	}
	if esc, ok := e.escapes[id.Hash()]; ok {
		ty := object.Globalize(esc.container, tenv, e.typeDepthLimit)
		e.addIvarWrite(ctx, esc.recv, esc.name, ty, ep)
	}
	return env
}

// ivarSite records that a local container was stored into an instance variable.
type ivarSite struct {
	recv      object.Type
	name      string
	container object.Type
}

// truthiness reports whether ty may be truthy and whether it may be falsy.
func (e *Evaluator) truthiness(ty object.Type) (truthy, falsy bool) {
	for _, c := range object.Children(ty) {
		t, f := e.memberTruthiness(c)
		truthy = truthy || t
		falsy = falsy || f
	}
	return truthy, falsy
}

func (e *Evaluator) memberTruthiness(ty object.Type) (truthy, falsy bool) {
	if object.IsAny(ty) {
		return true, true
	}
	if inst, ok := ty.(*object.Instance); ok {
		switch inst.Class {
		case e.builtin.NilClass, e.builtin.FalseClass:
			return false, true
		}
	}
	return true, false
}

func (e *Evaluator) isNil(ty object.Type) bool {
	inst, ok := ty.(*object.Instance)
	return ok && inst.Class == e.builtin.NilClass
}
