package evaluator

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-set/v3"
	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// callsiteSet keeps the continuations waiting on one callee context, in
// registration order.
type callsiteSet struct {
	eps   []*ExecPoint
	ctns  []Continuation
	index map[string]int
}

func (s *callsiteSet) put(ep *ExecPoint, ctn Continuation) {
	if s.index == nil {
		s.index = map[string]int{}
	}
	if i, ok := s.index[ep.key]; ok {
		s.ctns[i] = ctn
		return
	}
	s.index[ep.key] = len(s.eps)
	s.eps = append(s.eps, ep)
	s.ctns = append(s.ctns, ctn)
}

// mergeEnv joins env into the state at ep and queues ep when the state changed.
func (e *Evaluator) mergeEnv(ep *ExecPoint, env *object.Env) {
	if old, ok := e.ep2env[ep.key]; ok {
		merged := old.Merge(env)
		if merged.Equal(old) {
			return
		}
		env = merged
	}
	e.ep2env[ep.key] = env
	e.explored.Insert(ep.key)
	e.worklist.Insert(ep)
}

// mergeReturnEnv joins env into the saved caller state at ep.
func (e *Evaluator) mergeReturnEnv(ep *ExecPoint, env *object.Env) {
	if old, ok := e.returnEnvs[ep.key]; ok {
		env = old.Merge(env)
	}
	e.returnEnvs[ep.key] = env
}

// addCallsite registers ctn as waiting on calleeCtx from callerEP. If the
// callee already has a return type, ctn is called at once.
func (e *Evaluator) addCallsite(calleeCtx *Context, callerEP *ExecPoint, callerEnv *object.Env, ctn Continuation) {
	if calleeCtx.Body != nil {
		e.executed.Insert(calleeCtx.Body.ID)
	}
	cs, ok := e.callsites[calleeCtx.key]
	if !ok {
		cs = &callsiteSet{}
		e.callsites[calleeCtx.key] = cs
	}
	cs.put(callerEP, ctn)
	e.mergeReturnEnv(callerEP, callerEnv)

	if ret, ok := e.returnValues[calleeCtx.key]; ok && !object.IsBot(ret) {
		ctn(ret, callerEP, e.returnEnvs[callerEP.key])
	}
}

// addReturnValue joins ty into the return type of ctx and resumes every
// waiting caller when it grows.
func (e *Evaluator) addReturnValue(ctx *Context, ty object.Type) {
	old, ok := e.returnValues[ctx.key]
	if !ok {
		old = object.Bot
	}
	nty := object.Union(old, ty)
	if ok && nty.Hash() == old.Hash() {
		return
	}
	e.returnValues[ctx.key] = nty
	if object.IsBot(nty) {
		return
	}
	cs, ok := e.callsites[ctx.key]
	if !ok {
		return
	}
	eps := append([]*ExecPoint{}, cs.eps...)
	ctns := append([]Continuation{}, cs.ctns...)
	for i, ep := range eps {
		ctns[i](nty, ep, e.returnEnvs[ep.key])
	}
}

func (e *Evaluator) addMethodSignature(ctx *Context, sig *object.MethodSignature) {
	if old, ok := e.methodSigs[ctx.key]; ok {
		sig = old.Merge(sig)
	}
	e.methodSigs[ctx.key] = sig
}

func (e *Evaluator) addBlockSignature(blk object.BlockBody, sig *object.BlockSignature) {
	if old, ok := e.blockSigs[blk.Hash()]; ok {
		sig = old.Merge(sig)
	}
	e.blockSigs[blk.Hash()] = sig
}

func (e *Evaluator) addBlockContext(blk object.BlockBody, ctx *Context) {
	for _, c := range e.blockCtxs[blk.Hash()] {
		if c.key == ctx.key {
			return
		}
	}
	e.blockCtxs[blk.Hash()] = append(e.blockCtxs[blk.Hash()], ctx)
}

func (e *Evaluator) addMethodContext(m *MethodDef, ctx *Context) {
	keys, ok := e.methodCtxKeys[m]
	if !ok {
		keys = set.New[string](4)
		e.methodCtxKeys[m] = keys
	}
	if keys.Insert(ctx.key) {
		e.methodCtxs[m] = append(e.methodCtxs[m], ctx)
	}
}

// pendingExecution is an analysis of a body started with unknown inputs,
// used for code that is never reached from the main program.
type pendingExecution struct {
	body *iseq.CodeBody
	run  func()
}

func (e *Evaluator) pend(body *iseq.CodeBody, run func()) {
	if e.executed.Contains(body.ID) || !e.pendingBodies.Insert(body.ID) {
		return
	}
	e.pending = append(e.pending, pendingExecution{body: body, run: run})
}

// runPending starts the first pending body that has not been executed. It
// reports whether anything was started.
func (e *Evaluator) runPending(ctx context.Context) bool {
	for len(e.pending) > 0 {
		p := e.pending[0]
		e.pending = e.pending[1:]
		if e.executed.Contains(p.body.ID) {
			continue
		}
		e.logc(ctx, slog.LevelDebug, "start dummy execution", "body", p.body.Name)
		e.executed.Insert(p.body.ID)
		p.run()
		return true
	}
	return false
}

// pendMethodExecution arranges for a method body to be analyzed with Any
// parameters if no call reaches it.
func (e *Evaluator) pendMethodExecution(m *MethodDef, recv object.Type) {
	body := m.Body
	e.pend(body, func() {
		mctx := newContext(body, m.CRef, m.Name)
		ep := newExecPoint(mctx, 0, nil)
		locals := e.nilLocals(body.LocalSize())
		p := body.Params
		for i := 0; i < p.LeadNum+p.OptNum(); i++ {
			locals[i] = object.Any
		}
		for i := 0; i < p.PostNum; i++ {
			locals[p.PostStart+i] = object.Any
		}
		if p.HasRest {
			locals[p.RestStart] = object.Any
		}
		for i, kw := range p.Keywords {
			ty := object.Any
			if kw.Default != nil {
				ty = object.Union(object.BaseType(e.literalType(kw.Default)), object.Any)
			}
			locals[p.KwStart+i] = ty
		}
		if p.HasKwRest {
			locals[p.KwRest] = object.Any
		}
		static := object.StaticEnv{Recv: recv, Blk: e.nilType()}
		env := object.NewEnv(static, locals, nil, true)
		e.addMethodContext(m, mctx)
		e.mergeEnv(ep, env)
	})
}

// pendBlockExecution arranges for a block body to be analyzed with Any
// parameters if it is never called.
func (e *Evaluator) pendBlockExecution(body *iseq.CodeBody, ep *ExecPoint, env *object.Env) {
	e.pend(body, func() {
		bctx := newContext(body, ep.Ctx.CRef, ep.Ctx.Mid)
		bep := newExecPoint(bctx, 0, ep)
		static := object.StaticEnv{Recv: env.Static.Recv, Blk: object.Any, ModFunc: env.Static.ModFunc}
		benv := object.NewEnv(static, anyLocals(body.LocalSize()), nil, false)
		e.mergeEnv(bep, benv)
	})
}
