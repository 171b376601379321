package evaluator

import (
	"context"
	"log/slog"

	"github.com/podhmo/typeprof/object"
)

// NativeFunc implements a method in Go. It must eventually call c.Return (or
// c.Ctn) for every result it produces, or never call it for a method that
// does not return.
type NativeFunc func(ctx context.Context, e *Evaluator, c *NativeCall)

// NativeCall carries the operands of a native method call. Argument and
// receiver types are local to Env.
type NativeCall struct {
	Recv object.Type
	Mid  string
	Args *object.ActualArgs
	EP   *ExecPoint
	Env  *object.Env
	Ctn  Continuation
}

// Return resumes the caller with ty. ty may be global; it is localized by the caller.
func (c *NativeCall) Return(ty object.Type) {
	c.Ctn(ty, c.EP, c.Env)
}

// ReturnWith resumes the caller with a modified environment.
func (c *NativeCall) ReturnWith(ty object.Type, env *object.Env) {
	c.Ctn(ty, c.EP, env)
}

// Global returns the global form of a local type of the call.
func (c *NativeCall) Global(e *Evaluator, ty object.Type) object.Type {
	return e.globalizeType(ty, c.Env, c.EP)
}

// doSend dispatches mid on every member of recv. Each member resolves
// independently; an unresolved member is reported and yields Any.
func (e *Evaluator) doSend(ctx context.Context, recv object.Type, mid string, args *object.ActualArgs, ep *ExecPoint, env *object.Env, ctn Continuation) {
	if object.IsBot(recv) {
		recv = object.Any
	}
	for _, r := range object.Children(recv) {
		e.sendOne(ctx, r, mid, args, ep, env, ctn)
	}
}

func (e *Evaluator) sendOne(ctx context.Context, recv object.Type, mid string, args *object.ActualArgs, ep *ExecPoint, env *object.Env, ctn Continuation) {
	if object.IsVoid(recv) {
		e.errorf(ctx, ep, "void's method is called: %s", mid)
		ctn(object.Any, ep, env)
		return
	}
	if object.IsAny(recv) {
		ctn(object.Any, ep, env)
		return
	}
	cls, singleton, ok := e.receiverClass(recv)
	if !ok {
		ctn(object.Any, ep, env)
		return
	}
	m, ok := e.getMethod(cls, singleton, mid)
	if !ok {
		e.errorf(ctx, ep, "undefined method: %s", e.methodName(cls, singleton, mid))
		ctn(object.Any, ep, env)
		return
	}
	e.callMethod(ctx, m, recv, mid, args, ep, env, ctn)
}

func (e *Evaluator) callMethod(ctx context.Context, m *MethodDef, recv object.Type, mid string, args *object.ActualArgs, ep *ExecPoint, env *object.Env, ctn Continuation) {
	e.logc(ctx, slog.LevelDebug, "send", "mid", mid, "recv", recv.Inspect(), "kind", m.Kind.String())
	switch m.Kind {
	case ISeqMethod:
		e.sendISeq(ctx, m, recv, mid, args, ep, env, ctn)
	case TypedMethod:
		e.sendTyped(ctx, m, recv, mid, args, ep, env, ctn)
	case NativeMethod:
		m.Native(ctx, e, &NativeCall{Recv: recv, Mid: mid, Args: args, EP: ep, Env: env, Ctn: ctn})
	}
}

func (e *Evaluator) methodName(cls *object.Class, singleton bool, mid string) string {
	if singleton {
		return cls.Name + "." + mid
	}
	return cls.Name + "#" + mid
}

func (e *Evaluator) sendISeq(ctx context.Context, m *MethodDef, recv object.Type, mid string, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, ctn Continuation) {
	grecv := e.globalizeType(recv, callerEnv, callerEP)
	switch grecv.(type) {
	case *object.Array, *object.Hash, *object.Literal, *object.Symbol, *object.Proc:
		grecv = object.BaseType(grecv)
	}
	gargs := e.globalizeArgs(args, callerEnv, callerEP)
	b, msg := e.bindArgs(m.Body, gargs, false)
	if msg != "" {
		e.errorf(ctx, callerEP, "%s", msg)
		ctn(object.Any, callerEP, callerEnv)
		return
	}

	mctx := newContext(m.Body, m.CRef, mid)
	calleeEP := newExecPoint(mctx, 0, nil)
	blk := gargs.Blk
	if blk == nil {
		blk = e.nilType()
	}
	env := object.NewEnv(object.StaticEnv{Recv: grecv, Blk: blk}, b.locals, nil, true)
	site := siteAt(calleeEP)
	for i, ty := range b.locals {
		var lty object.Type
		env, lty = e.localizeType(ty, env, calleeEP, site.Add(i))
		env = env.SetLocal(i, lty)
	}
	for _, pc := range b.startPCs {
		e.mergeEnv(calleeEP.Jump(pc), env)
	}
	e.addMethodContext(m, mctx)
	e.addCallsite(mctx, callerEP, callerEnv, ctn)
}

func (e *Evaluator) sendTyped(ctx context.Context, m *MethodDef, recv object.Type, mid string, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, ctn Continuation) {
	grecv := e.globalizeType(recv, callerEnv, callerEP)
	gargs := e.globalizeArgs(args, callerEnv, callerEP)
	for _, sig := range m.Sigs {
		subst, ok := e.matchDeclared(sig, grecv, gargs)
		if !ok {
			continue
		}
		tctx := newTypedContext(callerEP, mid, grecv)
		e.addCallsite(tctx, callerEP, callerEnv, ctn)

		if sig.Blk != nil && !object.IsBot(gargs.Blk) {
			params := make([]object.Type, len(sig.Blk.Params))
			for i, p := range sig.Blk.Params {
				params[i] = object.RemoveTypeVars(object.Substitute(p, subst, e.typeDepthLimit))
			}
			dummyEP := newExecPoint(tctx, -1, nil)
			dummyEnv := object.NewEnv(object.StaticEnv{Recv: object.Any, Blk: object.Bot}, nil, nil, true)
			blkArgs := &object.ActualArgs{Blk: e.nilType()}
			for i, p := range params {
				var lp object.Type
				dummyEnv, lp = e.localizeType(p, dummyEnv, dummyEP, siteAt(dummyEP).Add(i))
				blkArgs.Lead = append(blkArgs.Lead, lp)
			}
			blkRet := sig.Blk.Ret
			ret := sig.Ret
			e.invokeBlock(ctx, gargs.Blk, blkArgs, dummyEP, dummyEnv, func(bret object.Type, _ *ExecPoint, benv *object.Env) {
				s := subst
				gret := object.Globalize(bret, benv, e.typeDepthLimit)
				if bs, ok := object.Match(gret, blkRet); ok {
					s = object.MergeSubstitution(subst, bs)
				}
				e.addReturnValue(tctx, object.RemoveTypeVars(object.Substitute(ret, s, e.typeDepthLimit)))
			})
			for _, c := range object.Children(gargs.Blk) {
				if _, isProc := c.(*object.Proc); !isProc {
					e.addReturnValue(tctx, object.RemoveTypeVars(object.Substitute(ret, subst, e.typeDepthLimit)))
					break
				}
			}
			return
		}
		e.addReturnValue(tctx, object.RemoveTypeVars(object.Substitute(sig.Ret, subst, e.typeDepthLimit)))
		return
	}
	cls, singleton, _ := e.receiverClass(recv)
	e.errorf(ctx, callerEP, "failed to resolve overload: %s", e.methodName(cls, singleton, mid))
	ctn(object.Any, callerEP, callerEnv)
}

// matchDeclared checks global arguments against one declared overload.
func (e *Evaluator) matchDeclared(sig object.DeclaredSignature, recv object.Type, args *object.ActualArgs) (object.Substitution, bool) {
	subst := e.receiverTypeArgs(recv)
	subst["self"] = recv
	n := len(args.Lead)
	if args.Rest == nil {
		if n < len(sig.Lead) || (sig.Rest == nil && n > len(sig.Lead)+len(sig.Opt)) {
			return nil, false
		}
	} else if sig.Rest == nil && n > len(sig.Lead)+len(sig.Opt) {
		return nil, false
	}
	param := func(i int) object.Type {
		switch {
		case i < len(sig.Lead):
			return sig.Lead[i]
		case i < len(sig.Lead)+len(sig.Opt):
			return sig.Opt[i-len(sig.Lead)]
		}
		return sig.Rest
	}
	for i, a := range args.Lead {
		s, ok := object.Match(a, param(i))
		if !ok {
			return nil, false
		}
		subst = object.MergeSubstitution(subst, s)
	}
	if args.Rest != nil {
		elem := e.splatElem(args.Rest)
		for i := n; i < len(sig.Lead)+len(sig.Opt); i++ {
			if s, ok := object.Match(elem, param(i)); ok {
				subst = object.MergeSubstitution(subst, s)
			}
		}
		if sig.Rest != nil {
			if s, ok := object.Match(elem, sig.Rest); ok {
				subst = object.MergeSubstitution(subst, s)
			}
		}
	}
	return subst, true
}

// receiverTypeArgs binds the type parameters of a generic receiver class to
// the element summaries of the receiver.
func (e *Evaluator) receiverTypeArgs(recv object.Type) object.Substitution {
	subst := object.Substitution{}
	switch t := recv.(type) {
	case *object.Array:
		subst["Elem"] = t.Elems.Squash()
	case *object.Hash:
		subst["K"] = t.Elems.SquashKeys()
		subst["V"] = t.Elems.Squash()
	}
	return subst
}

// doSuper calls the method the current method overrides.
func (e *Evaluator) doSuper(ctx context.Context, args *object.ActualArgs, ep *ExecPoint, env *object.Env, ctn Continuation) {
	mctx := ep.Outermost().Ctx
	cref := mctx.CRef
	recv := env.Static.Recv
	if mctx.Mid == "" {
		e.errorf(ctx, ep, "super called outside of method")
		ctn(object.Any, ep, env)
		return
	}
	m, ok := e.getSuperMethod(cref.Class, cref.Singleton, mctx.Mid)
	if !ok {
		e.errorf(ctx, ep, "no superclass method: %s", e.methodName(cref.Class, cref.Singleton, mctx.Mid))
		ctn(object.Any, ep, env)
		return
	}
	e.callMethod(ctx, m, recv, mctx.Mid, args, ep, env, ctn)
}
