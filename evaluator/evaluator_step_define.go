package evaluator

import (
	"context"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

func (e *Evaluator) stepDefineMethod(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	location := insn.Body.SourceLocation(0)
	if insn.Op == iseq.OpDefineSMethod {
		env, vals := env.Pop(1)
		for _, c := range object.Children(vals[0]) {
			cls, ok := c.(*object.Class)
			if !ok {
				continue
			}
			cref := scope.NewEnclosedScope(ep.Ctx.CRef, cls, true)
			m := e.addISeqMethod(cls, insn.ID, true, insn.Body, cref, location)
			e.pendMethodExecution(m, cls)
		}
		return env
	}

	cref := ep.Ctx.CRef
	cls := cref.Class
	m := e.addISeqMethod(cls, insn.ID, cref.Singleton, insn.Body, cref, location)
	if env.Static.ModFunc {
		e.addISeqMethod(cls, insn.ID, true, insn.Body, cref, location)
	}
	var recv object.Type = e.instanceOf(cls)
	if cref.Singleton {
		recv = cls
	}
	e.pendMethodExecution(m, recv)
	return env
}

func (e *Evaluator) stepDefineClass(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	env, vals := env.Pop(2)
	cbaseTy, superTy := vals[0], vals[1]
	cbase, ok := cbaseTy.(*object.Class)
	if !ok {
		if !e.isNil(cbaseTy) {
			return env.Push(object.Any)
		}
		cbase = ep.Ctx.CRef.Class
	}

	var cls *object.Class
	singleton := false
	switch insn.N & 7 {
	case iseq.DefineClass, iseq.DefineModule:
		kind := object.KindClass
		if insn.N&7 == iseq.DefineModule {
			kind = object.KindModule
		}
		name := insn.ID
		if existing, ok := e.classDef(cbase).constant(name); ok {
			if c, ok := existing.(*object.Class); ok {
				cls = c
			} else {
				e.errorf(ctx, ep, "the class %q is %s", name, existing.Inspect())
				name += "(dummy)"
				if dummy, ok := e.classDef(cbase).constant(name); ok {
					cls, _ = dummy.(*object.Class)
				}
			}
		}
		if cls == nil {
			var super *object.Class
			if kind == object.KindClass {
				super = e.superclassOf(ctx, ep, superTy)
			}
			cls = e.newClass(cbase, name, kind, nil, super, insn.Body.Path)
		}
	case iseq.DefineSingletonClass:
		singleton = true
		c, ok := cbaseTy.(*object.Class)
		if !ok {
			e.warnf(ctx, ep, "a singleton class is open for %s; handled as any", cbaseTy.Inspect())
			return env.Push(object.Any)
		}
		cls = c
	default:
		panic(object.Invariant("unknown defineclass flag %d", insn.N))
	}

	ncref := scope.NewEnclosedScope(ep.Ctx.CRef, cls, singleton)
	var recv object.Type = cls
	if singleton {
		recv = object.Any
	}
	nctx := newContext(insn.Body, ncref, "")
	nep := newExecPoint(nctx, 0, nil)
	nenv := object.NewEnv(object.StaticEnv{Recv: recv, Blk: env.Static.Blk}, e.nilLocals(insn.Body.LocalSize()), nil, true)
	e.mergeEnv(nep, nenv)
	e.addCallsite(nctx, ep, env, func(ret object.Type, cep *ExecPoint, cenv *object.Env) {
		cenv, ret = e.localizeType(ret, cenv, cep, siteAt(cep))
		e.mergeEnv(cep.Next(), cenv.Push(ret))
	})
	return nil
}

func (e *Evaluator) superclassOf(ctx context.Context, ep *ExecPoint, ty object.Type) *object.Class {
	switch t := ty.(type) {
	case *object.Class:
		if t.Kind == object.KindClass {
			return t
		}
		e.warnf(ctx, ep, "superclass is a module; Object is used instead")
	case *object.Instance:
		if t.Class != e.builtin.NilClass {
			e.warnf(ctx, ep, "superclass is an instance; Object is used instead")
		}
	default:
		if object.IsAny(ty) {
			e.warnf(ctx, ep, "superclass is any; Object is used instead")
		} else {
			e.warnf(ctx, ep, "superclass is not a class; Object is used instead")
		}
	}
	return e.builtin.Object
}

func (e *Evaluator) stepOnce(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	octx := newContext(insn.Body, ep.Ctx.CRef, ep.Ctx.Mid)
	oep := newExecPoint(octx, 0, ep)
	oenv := object.NewEnv(env.Static, e.nilLocals(insn.Body.LocalSize()), nil, false)
	e.addCallsite(octx, ep, env, func(ret object.Type, cep *ExecPoint, cenv *object.Env) {
		cenv, ret = e.localizeType(ret, cenv, cep, siteAt(cep))
		e.mergeEnv(cep.Next(), cenv.Push(ret))
	})
	e.mergeEnv(oep, oenv)
}
