package evaluator

import (
	"context"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// resumeWithResult is the continuation of an ordinary call: the result is
// localized and pushed at the next pc.
func (e *Evaluator) resumeWithResult(ret object.Type, ep *ExecPoint, env *object.Env) {
	env, ret = e.localizeType(ret, env, ep, siteAt(ep))
	e.mergeEnv(ep.Next(), env.Push(ret))
}

func (e *Evaluator) stepSend(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	env, recv, args := e.setupActualArgs(ctx, callMethod, insn.Call, ep, env)
	ctn := Continuation(e.resumeWithResult)
	if insn.Op == iseq.OpSendBranch {
		kind, target := insn.Branch, insn.Target
		ctn = func(ret object.Type, cep *ExecPoint, cenv *object.Env) {
			cenv, ret = e.localizeType(ret, cenv, cep, siteAt(cep))
			e.branchOn(cep, cenv, ret, kind, target)
		}
	}
	e.doSend(ctx, recv, insn.Call.Mid, args, ep, env, ctn)
}

func (e *Evaluator) stepInvokeBlock(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	env, _, args := e.setupActualArgs(ctx, callBlock, insn.Call, ep, env)
	blk := env.Static.Blk
	hasProc := false
	for _, c := range object.Children(blk) {
		if _, ok := c.(*object.Proc); ok {
			hasProc = true
		}
	}
	if !hasProc {
		return env.Push(object.Any)
	}
	e.invokeBlock(ctx, blk, args, ep, env, e.resumeWithResult)
	return nil
}

func (e *Evaluator) stepInvokeSuper(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	env, _, args := e.setupActualArgs(ctx, callSuper, insn.Call, ep, env)
	if e.isNil(args.Blk) {
		args.Blk = env.Static.Blk
	}
	e.doSuper(ctx, args, ep, env, e.resumeWithResult)
}

func (e *Evaluator) stepThrow(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	env, vals := env.Pop(1)
	ty := vals[0]
	switch insn.N & 0xff {
	case 0:
		// rethrow from an ensure clause
	case iseq.ThrowReturn:
		e.addReturnValue(ep.Outermost().Ctx, e.globalizeType(ty, env, ep))
	case iseq.ThrowBreak:
		for tmp := ep; tmp != nil; tmp = tmp.Outer {
			if tmp.Ctx.Body.Kind == iseq.KindBlock {
				outer := tmp.Outer
				oenv, ok := e.returnEnvs[outer.key]
				if !ok {
					return
				}
				e.mergeEnv(outer.Next(), oenv.Push(ty))
				return
			}
			if entry, ok := findCatch(tmp, iseq.CatchBreak); ok {
				nenv := env
				if tmp != ep {
					if renv, ok := e.returnEnvs[tmp.key]; ok {
						nenv = renv
					}
				}
				nenv, _ = nenv.Pop(nenv.StackSize() - entry.StackDepth)
				e.mergeEnv(tmp.Jump(entry.Cont), nenv.Push(ty))
				return
			}
		}
		panic(object.Invariant("break without an enclosing block or loop"))
	case iseq.ThrowNext, iseq.ThrowRedo, iseq.ThrowRetry:
		kind := map[int]iseq.CatchKind{
			iseq.ThrowNext:  iseq.CatchNext,
			iseq.ThrowRedo:  iseq.CatchRedo,
			iseq.ThrowRetry: iseq.CatchRetry,
		}[insn.N&0xff]
		tmp := ep.Outer
		if tmp == nil {
			panic(object.Invariant("%s thrown outside of a nested frame", kind))
		}
		entry, ok := findCatch(tmp, kind)
		if !ok {
			panic(object.Invariant("no %s entry at %s", kind, tmp))
		}
		nenv, ok := e.returnEnvs[tmp.key]
		if !ok {
			return
		}
		nenv, _ = nenv.Pop(nenv.StackSize() - entry.StackDepth)
		if kind == iseq.CatchNext {
			nenv = nenv.Push(ty)
		}
		e.mergeEnv(tmp.Jump(entry.Cont), nenv)
	default:
		panic(object.Invariant("unknown throw type %d", insn.N))
	}
}

func findCatch(ep *ExecPoint, kind iseq.CatchKind) (iseq.CatchEntry, bool) {
	if ep.Ctx.Body == nil {
		return iseq.CatchEntry{}, false
	}
	for _, entry := range ep.Ctx.Body.Catch[ep.PC] {
		if entry.Kind == kind {
			return entry, true
		}
	}
	return iseq.CatchEntry{}, false
}

func (e *Evaluator) stepBranch(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	switch insn.Op {
	case iseq.OpBranch:
		env, vals := env.Pop(1)
		e.branchOn(ep, env, vals[0], insn.Branch, insn.Target)
	case iseq.OpDupBranch:
		_, vals := env.Pop(1)
		for _, c := range object.Children(vals[0]) {
			nenv, _ := env.Pop(1)
			e.branchOn(ep, nenv.Push(c), c, insn.Branch, insn.Target)
		}
	case iseq.OpGetLocalBranch, iseq.OpGetLocalDupBranch:
		ref := insn.Local
		dup := insn.Op == iseq.OpGetLocalDupBranch
		if ref.Level != 0 {
			ty := e.outerLocal(ep, ref)
			nenv := env
			if dup {
				nenv = nenv.Push(ty)
			}
			e.branchOn(ep, nenv, ty, insn.Branch, insn.Target)
			return
		}
		for _, c := range object.Children(env.Local(ref.Idx)) {
			nenv := env.SetLocal(ref.Idx, c)
			if dup {
				nenv = nenv.Push(c)
			}
			e.branchOn(ep, nenv, c, insn.Branch, insn.Target)
		}
	case iseq.OpGetLocalCheckMatchBranch:
		env, vals := env.Pop(1)
		pattern, _ := vals[0].(*object.Class)
		ref := insn.Local
		var ty object.Type
		if ref.Level == 0 {
			ty = env.Local(ref.Idx)
		} else {
			ty = e.outerLocal(ep, ref)
		}
		for _, c := range object.Children(ty) {
			nenv := env
			if ref.Level == 0 {
				nenv = env.SetLocal(ref.Idx, c)
			}
			inst, ok := object.BaseType(c).(*object.Instance)
			if pattern == nil || !ok {
				e.mergeEnv(ep.Next(), nenv)
				e.mergeEnv(ep.Jump(insn.Target), nenv)
				continue
			}
			matched := inst.Class.IsSubclassOf(pattern)
			if matched == (insn.Branch == iseq.BranchIf) {
				e.mergeEnv(ep.Jump(insn.Target), nenv)
			} else {
				e.mergeEnv(ep.Next(), nenv)
			}
		}
	}
}

// branchOn routes env to the jump target and/or the next pc depending on
// what cond may be.
func (e *Evaluator) branchOn(ep *ExecPoint, env *object.Env, cond object.Type, kind iseq.BranchKind, target int) {
	var jump, fall bool
	switch kind {
	case iseq.BranchIf:
		jump, fall = e.truthiness(cond)
	case iseq.BranchUnless:
		fall, jump = e.truthiness(cond)
	case iseq.BranchNil:
		for _, c := range object.Children(cond) {
			if object.IsAny(c) {
				jump, fall = true, true
			} else if e.isNil(c) {
				jump = true
			} else {
				fall = true
			}
		}
	}
	if jump {
		e.mergeEnv(ep.Jump(target), env)
	}
	if fall {
		e.mergeEnv(ep.Next(), env)
	}
}
