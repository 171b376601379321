package evaluator

import (
	"context"
	"log/slog"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// step interprets the instruction at ep against its merged state. Handlers
// that fall through return the env for the next pc; handlers that route
// control themselves return nil.
func (e *Evaluator) step(ctx context.Context, ep *ExecPoint) {
	env, ok := e.ep2env[ep.key]
	if !ok {
		panic(object.Invariant("no state at %s", ep))
	}
	body := ep.Ctx.Body
	if ep.PC < 0 || ep.PC >= len(body.Insns) {
		panic(object.Invariant("pc %d out of range in %s", ep.PC, body.Name))
	}
	e.current = ep
	insn := &body.Insns[ep.PC]
	e.logc(ctx, slog.LevelDebug, "step", "insn", insn.String(), "stack", env.StackSize())

	e.spawnHandlers(ctx, ep, env)
	if body.Kind == iseq.KindMethod && ep.PC == body.Params.BodyStartPC() {
		e.addMethodSignature(ep.Ctx, e.formalSignature(ep, env))
	}

	var next *object.Env
	switch insn.Op {
	case iseq.OpNop, iseq.OpBodyStart, iseq.OpFreezeString:
		next = env

	case iseq.OpPutNil, iseq.OpPutSelf, iseq.OpPutObject, iseq.OpPutString, iseq.OpPutSpecialObject,
		iseq.OpDupArray, iseq.OpDupHash:
		next = e.stepPut(ctx, ep, env, insn)

	case iseq.OpNewArray, iseq.OpNewHash, iseq.OpNewRange, iseq.OpConcatStrings, iseq.OpToString,
		iseq.OpToRegexp, iseq.OpIntern, iseq.OpSplatArray, iseq.OpConcatArray:
		next = e.stepBuild(ctx, ep, env, insn)
	case iseq.OpExpandArray:
		e.stepExpandArray(ctx, ep, env, insn)

	case iseq.OpCheckType, iseq.OpDefined, iseq.OpCheckMatch, iseq.OpCheckKeyword:
		next = e.stepCheck(ctx, ep, env, insn)

	case iseq.OpGetLocal, iseq.OpGetBlockParam, iseq.OpGetBlockParamProxy:
		next = e.stepGetLocal(ctx, ep, env, insn)
	case iseq.OpSetLocal, iseq.OpSetBlockParam:
		next = e.stepSetLocal(ctx, ep, env, insn)
	case iseq.OpGetInstanceVariable, iseq.OpGetClassVariable, iseq.OpGetGlobal:
		e.stepGetVar(ctx, ep, env, insn)
	case iseq.OpSetInstanceVariable, iseq.OpSetClassVariable, iseq.OpSetGlobal:
		next = e.stepSetVar(ctx, ep, env, insn)
	case iseq.OpGetConstant:
		next = e.stepGetConstant(ctx, ep, env, insn)
	case iseq.OpSetConstant:
		next = e.stepSetConstant(ctx, ep, env, insn)
	case iseq.OpGetSpecial:
		next = env.Push(object.Any)

	case iseq.OpDefineMethod, iseq.OpDefineSMethod:
		next = e.stepDefineMethod(ctx, ep, env, insn)
	case iseq.OpDefineClass:
		next = e.stepDefineClass(ctx, ep, env, insn)

	case iseq.OpSend, iseq.OpSendBranch:
		e.stepSend(ctx, ep, env, insn)
	case iseq.OpInvokeBlock:
		next = e.stepInvokeBlock(ctx, ep, env, insn)
	case iseq.OpInvokeSuper:
		e.stepInvokeSuper(ctx, ep, env, insn)

	case iseq.OpLeave:
		e.stepLeave(ctx, ep, env)
	case iseq.OpThrow:
		e.stepThrow(ctx, ep, env, insn)
	case iseq.OpOnce:
		e.stepOnce(ctx, ep, env, insn)
	case iseq.OpJump:
		e.mergeEnv(ep.Jump(insn.Target), env)
	case iseq.OpBranch, iseq.OpGetLocalBranch, iseq.OpDupBranch, iseq.OpGetLocalDupBranch, iseq.OpGetLocalCheckMatchBranch:
		e.stepBranch(ctx, ep, env, insn)

	case iseq.OpDup, iseq.OpDupN, iseq.OpPop, iseq.OpSwap, iseq.OpReverse, iseq.OpTopN, iseq.OpSetN, iseq.OpAdjustStack:
		next = e.stepStack(env, insn)

	default:
		panic(object.Invariant("unknown opcode %s", insn.Op))
	}

	if next != nil {
		e.mergeEnv(ep.Next(), next)
	}
}

// spawnHandlers propagates the state at ep into the rescue and ensure
// handlers covering it.
func (e *Evaluator) spawnHandlers(ctx context.Context, ep *ExecPoint, env *object.Env) {
	for _, entry := range ep.Ctx.Body.Catch[ep.PC] {
		if entry.Kind != iseq.CatchRescue && entry.Kind != iseq.CatchEnsure {
			continue
		}
		if entry.Body == nil || env.StackSize() < entry.StackDepth {
			continue
		}
		contEP := ep.Jump(entry.Cont)
		contEnv, _ := env.Pop(env.StackSize() - entry.StackDepth)

		hctx := newContext(entry.Body, ep.Ctx.CRef, ep.Ctx.Mid)
		hep := newExecPoint(hctx, 0, contEP)
		locals := e.nilLocals(entry.Body.LocalSize())
		if len(locals) > 0 {
			locals[0] = e.instanceOf(e.builtin.StandardError)
		}
		henv := object.NewEnv(contEnv.Static, locals, nil, false)

		e.addCallsite(hctx, contEP, contEnv, func(ret object.Type, cep *ExecPoint, cenv *object.Env) {
			cenv, ret = e.localizeType(ret, cenv, cep, siteAt(cep))
			e.mergeEnv(cep, cenv.Push(ret))
		})
		e.mergeEnv(hep, henv)
	}
}

func (e *Evaluator) stepLeave(ctx context.Context, ep *ExecPoint, env *object.Env) {
	if env.StackSize() != 1 {
		panic(object.Invariant("stack inconsistency at leave: %d values", env.StackSize()))
	}
	_, vals := env.Pop(1)
	ty := e.globalizeType(vals[0], env, ep)
	e.addReturnValue(ep.Ctx, ty)
}

func (e *Evaluator) stepStack(env *object.Env, insn *iseq.Insn) *object.Env {
	switch insn.Op {
	case iseq.OpDup:
		return env.Push(env.Peek(0))
	case iseq.OpDupN:
		_, vals := env.Pop(insn.N)
		return env.Push(vals...)
	case iseq.OpPop:
		env, _ = env.Pop(1)
		return env
	case iseq.OpSwap:
		env, vals := env.Pop(2)
		return env.Push(vals[1], vals[0])
	case iseq.OpReverse:
		env, vals := env.Pop(insn.N)
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
		return env.Push(vals...)
	case iseq.OpTopN:
		return env.TopN(insn.N)
	case iseq.OpSetN:
		if insn.N == 0 {
			return env
		}
		return env.SetN(insn.N, env.Peek(0))
	case iseq.OpAdjustStack:
		env, _ = env.Pop(insn.N)
		return env
	}
	panic(object.Invariant("not a stack instruction: %s", insn.Op))
}
