package evaluator

import (
	"context"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// outerFrame returns the point and saved state of the frame level steps out.
func (e *Evaluator) outerFrame(ep *ExecPoint, level int) (*ExecPoint, *object.Env, bool) {
	oep := ep.OuterN(level)
	if oep == nil {
		return nil, nil, false
	}
	oenv, ok := e.returnEnvs[oep.key]
	return oep, oenv, ok
}

// outerLocal reads a local of an enclosing frame; Any when the frame has no
// state yet.
func (e *Evaluator) outerLocal(ep *ExecPoint, ref iseq.LocalRef) object.Type {
	_, oenv, ok := e.outerFrame(ep, ref.Level)
	if !ok {
		return object.Any
	}
	return oenv.Local(ref.Idx)
}

func (e *Evaluator) stepGetLocal(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	ref := insn.Local
	if ref.Level == 0 {
		return env.Push(env.Local(ref.Idx))
	}
	return env.Push(e.outerLocal(ep, ref))
}

func (e *Evaluator) stepSetLocal(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	ref := insn.Local
	env, vals := env.Pop(1)
	if ref.Level == 0 {
		return env.SetLocal(ref.Idx, vals[0])
	}
	oep, oenv, ok := e.outerFrame(ep, ref.Level)
	if ok {
		e.mergeReturnEnv(oep, oenv.SetLocal(ref.Idx, object.Union(oenv.Local(ref.Idx), vals[0])))
	}
	return env
}

func (e *Evaluator) varTable(ep *ExecPoint, env *object.Env, insn *iseq.Insn) (*VarTable, string, bool) {
	switch insn.Op {
	case iseq.OpGetClassVariable, iseq.OpSetClassVariable:
		return e.classDef(ep.Ctx.CRef.Class).cvars, insn.ID, true
	case iseq.OpGetGlobal, iseq.OpSetGlobal:
		return e.gvars, insn.ID, true
	}
	return nil, "", false
}

func (e *Evaluator) stepGetVar(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	resume := func(ty object.Type, rep *ExecPoint) {
		nenv, lty := e.localizeType(ty, env, rep, siteAt(rep))
		e.mergeEnv(rep.Next(), nenv.Push(lty))
	}
	if insn.Op == iseq.OpGetInstanceVariable {
		e.addIvarRead(env.Static.Recv, insn.ID, ep, resume)
		return
	}
	vt, site, _ := e.varTable(ep, env, insn)
	vt.Read(site, ep, resume)
}

func (e *Evaluator) stepSetVar(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	env, vals := env.Pop(1)
	ty := e.globalizeType(vals[0], env, ep)
	if insn.Op == iseq.OpSetInstanceVariable {
		recv := env.Static.Recv
		e.addIvarWrite(ctx, recv, insn.ID, ty, ep)
		for _, c := range object.Children(vals[0]) {
			switch t := c.(type) {
			case *object.LocalArray:
				e.escapes[t.ID.Hash()] = ivarSite{recv: recv, name: insn.ID, container: t}
			case *object.LocalHash:
				e.escapes[t.ID.Hash()] = ivarSite{recv: recv, name: insn.ID, container: t}
			}
		}
		return env
	}
	vt, site, _ := e.varTable(ep, env, insn)
	if !vt.Write(site, ty) {
		e.warnf(ctx, ep, "inconsistent assignment to %s (declared %s, assigned %s)", site, vt.Type(site).Inspect(), ty.Inspect())
	}
	return env
}

func (e *Evaluator) stepGetConstant(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	env, vals := env.Pop(1)
	cbase := vals[0]
	var ty object.Type
	switch {
	case e.isNil(cbase):
		t, ok := e.searchConstant(ep.Ctx.CRef, insn.ID)
		if !ok {
			e.warnf(ctx, ep, "uninitialized constant %s", insn.ID)
			t = object.Any
		}
		ty = t
	default:
		cls, ok := cbase.(*object.Class)
		if !ok {
			ty = object.Any
			break
		}
		t, ok := e.getConstant(cls, insn.ID)
		if !ok {
			e.warnf(ctx, ep, "uninitialized constant %s", e.constPath(cls, insn.ID))
			t = object.Any
		}
		ty = t
	}
	env, ty = e.localizeType(ty, env, ep, siteAt(ep))
	return env.Push(ty)
}

func (e *Evaluator) stepSetConstant(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	env, vals := env.Pop(2)
	ty := e.globalizeType(vals[0], env, ep)
	switch cbase := vals[1].(type) {
	case *object.Class:
		e.addConstant(ctx, cbase, insn.ID, ty, ep)
	default:
		if e.isNil(cbase) {
			e.addConstant(ctx, ep.Ctx.CRef.Class, insn.ID, ty, ep)
		}
	}
	return env
}
