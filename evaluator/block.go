package evaluator

import (
	"context"
	"strconv"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

// ISeqBlock is a literal block: a code body closed over the frame that created it.
type ISeqBlock struct {
	Body  *iseq.CodeBody
	Outer *ExecPoint
}

func (b *ISeqBlock) Hash() string {
	return "blk:" + strconv.Itoa(b.Body.ID) + "@" + b.Outer.key
}

func (b *ISeqBlock) Inspect() string { return b.Body.Name }

// SymbolBlock is the block made from a symbol (&:name).
type SymbolBlock struct {
	Mid string
}

func (b *SymbolBlock) Hash() string    { return "symblk:" + b.Mid }
func (b *SymbolBlock) Inspect() string { return "&:" + b.Mid }

// TypedBlock is a block known only by its declared signature.
type TypedBlock struct {
	Params []object.Type
	Ret    object.Type
}

func (b *TypedBlock) Hash() string {
	h := "typedblk:("
	for i, t := range b.Params {
		if i > 0 {
			h += ","
		}
		h += t.Hash()
	}
	return h + ")->" + b.Ret.Hash()
}

func (b *TypedBlock) Inspect() string {
	s := "{ ("
	for i, t := range b.Params {
		if i > 0 {
			s += ", "
		}
		s += t.Inspect()
	}
	return s + ") -> " + b.Ret.Inspect() + " }"
}

// blockOptions alter the frame a block runs in (instance_eval-like calls).
type blockOptions struct {
	recv object.Type
	cref *scope.Scope
}

// invokeBlock calls every proc in blk with args. Non-proc members are
// skipped, except Any which yields Any.
func (e *Evaluator) invokeBlock(ctx context.Context, blk object.Type, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, ctn Continuation) {
	e.invokeBlockWith(ctx, blk, args, callerEP, callerEnv, blockOptions{}, ctn)
}

func (e *Evaluator) invokeBlockWith(ctx context.Context, blk object.Type, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, opts blockOptions, ctn Continuation) {
	for _, c := range object.Children(blk) {
		switch t := c.(type) {
		case *object.Proc:
			switch body := t.Body.(type) {
			case *ISeqBlock:
				e.callISeqBlock(ctx, body, args, callerEP, callerEnv, opts, ctn)
			case *SymbolBlock:
				e.callSymbolBlock(ctx, body, args, callerEP, callerEnv, ctn)
			case *TypedBlock:
				ctn(body.Ret, callerEP, callerEnv)
			}
		default:
			if object.IsAny(c) {
				ctn(object.Any, callerEP, callerEnv)
			}
		}
	}
}

func (e *Evaluator) blockSignatureOf(args *object.ActualArgs) *object.BlockSignature {
	sig := &object.BlockSignature{Lead: append([]object.Type{}, args.Lead...), Blk: args.Blk}
	if args.Rest != nil {
		sig.Rest = e.splatElem(args.Rest)
	}
	return sig
}

func (e *Evaluator) callISeqBlock(ctx context.Context, blk *ISeqBlock, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, opts blockOptions, ctn Continuation) {
	outerEnv, ok := e.returnEnvs[blk.Outer.key]
	if !ok {
		ctn(object.Any, callerEP, callerEnv)
		return
	}
	if opts.recv != nil {
		outerEnv = outerEnv.ReplaceRecv(e.globalizeType(opts.recv, callerEnv, callerEP))
	}
	gargs := e.globalizeArgs(args, callerEnv, callerEP)
	e.addBlockSignature(blk, e.blockSignatureOf(gargs))

	b, msg := e.bindArgs(blk.Body, gargs, true)
	if msg != "" {
		e.errorf(ctx, callerEP, "%s", msg)
		ctn(object.Any, callerEP, callerEnv)
		return
	}

	cref := blk.Outer.Ctx.CRef
	if opts.cref != nil {
		cref = opts.cref
	}
	bctx := newContext(blk.Body, cref, blk.Outer.Ctx.Mid)
	calleeEP := newExecPoint(bctx, 0, blk.Outer)
	env := object.NewEnv(outerEnv.Static, b.locals, nil, false)
	site := siteAt(calleeEP)
	for i, ty := range b.locals {
		var lty object.Type
		env, lty = e.localizeType(ty, env, calleeEP, site.Add(i))
		env = env.SetLocal(i, lty)
	}
	for _, pc := range b.startPCs {
		e.mergeEnv(calleeEP.Jump(pc), env)
	}
	e.addBlockContext(blk, bctx)
	e.addCallsite(bctx, callerEP, callerEnv, ctn)
}

func (e *Evaluator) callSymbolBlock(ctx context.Context, blk *SymbolBlock, args *object.ActualArgs, callerEP *ExecPoint, callerEnv *object.Env, ctn Continuation) {
	var recv object.Type
	rest := *args
	switch {
	case len(args.Lead) >= 1:
		recv = args.Lead[0]
		rest.Lead = args.Lead[1:]
	case args.Rest != nil:
		recv = e.splatElem(e.globalizeType(args.Rest, callerEnv, callerEP))
		callerEnv, recv = e.localizeType(recv, callerEnv, callerEP, siteAt(callerEP).Add("symblk"))
	default:
		e.errorf(ctx, callerEP, "no receiver given to &:%s", blk.Mid)
		ctn(object.Any, callerEP, callerEnv)
		return
	}
	e.addBlockSignature(blk, e.blockSignatureOf(e.globalizeArgs(args, callerEnv, callerEP)))
	e.doSend(ctx, recv, blk.Mid, &rest, callerEP, callerEnv, ctn)
}
