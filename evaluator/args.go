package evaluator

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

type callKind int

const (
	callMethod callKind = iota
	callBlock
	callSuper
)

// setupActualArgs pops the operands of a call from env and builds the
// abstract argument list. For method calls the receiver is popped as well.
func (e *Evaluator) setupActualArgs(ctx context.Context, kind callKind, ci *iseq.CallInfo, ep *ExecPoint, env *object.Env) (*object.Env, object.Type, *object.ActualArgs) {
	argc := ci.Argc + len(ci.KwArgs)
	if kind == callMethod {
		argc++
	}
	if ci.Has(iseq.FlagArgsBlockArg) {
		argc++
	}
	env, operands := env.Pop(argc)

	var recv object.Type
	if kind == callMethod {
		recv = operands[0]
		operands = operands[1:]
	}

	var blk object.Type
	switch {
	case ci.Has(iseq.FlagArgsBlockArg):
		blk = operands[len(operands)-1]
		operands = operands[:len(operands)-1]
	case ci.Block != nil:
		blk = object.NewProc(&ISeqBlock{Body: ci.Block, Outer: ep}, e.instanceOf(e.builtin.Proc))
	default:
		blk = e.nilType()
	}
	blk = e.normalizeBlockArg(ctx, blk, ep)

	args := &object.ActualArgs{Blk: blk}
	switch {
	case ci.Has(iseq.FlagArgsSplat):
		args.Rest = operands[len(operands)-1]
		args.Lead = operands[:len(operands)-1]
		if ci.Has(iseq.FlagKwSplat) {
			args.KwAny = object.Any
		}
	case ci.Has(iseq.FlagKwSplat):
		last := operands[len(operands)-1]
		args.Lead = operands[:len(operands)-1]
		args.Keywords, args.KwAny = e.splatKeywords(ctx, e.globalizeType(last, env, ep), ep)
	case ci.Has(iseq.FlagKwArg) || len(ci.KwArgs) > 0:
		n := len(operands) - len(ci.KwArgs)
		args.Lead = operands[:n]
		args.Keywords = map[string]object.Type{}
		for i, name := range ci.KwArgs {
			args.Keywords[name] = operands[n+i]
		}
	default:
		args.Lead = operands
	}

	if ci.Block != nil {
		e.pendBlockExecution(ci.Block, ep, env)
		e.mergeReturnEnv(ep, env)
	}
	return env, recv, args
}

func (e *Evaluator) normalizeBlockArg(ctx context.Context, blk object.Type, ep *ExecPoint) object.Type {
	out := object.Bot
	for _, c := range object.Children(blk) {
		switch t := c.(type) {
		case *object.Proc:
		case *object.Symbol:
			if !t.Dynamic {
				c = object.NewProc(&SymbolBlock{Mid: t.Name}, e.instanceOf(e.builtin.Proc))
			} else {
				c = object.Any
			}
		default:
			if !e.isNil(c) && !object.IsAny(c) {
				e.errorf(ctx, ep, "wrong argument type %s (expected Proc)", c.Inspect())
				c = object.Any
			}
		}
		out = object.Union(out, c)
	}
	return out
}

func (e *Evaluator) splatKeywords(ctx context.Context, ty object.Type, ep *ExecPoint) (map[string]object.Type, object.Type) {
	var named map[string]object.Type
	var other object.Type
	found := false
	for _, c := range object.Children(ty) {
		h, ok := c.(*object.Hash)
		if !ok {
			if !object.IsAny(c) && !e.isNil(c) {
				e.warnf(ctx, ep, "non hash is passed to **kwarg?")
			}
			other = object.Any
			continue
		}
		found = true
		n, o := h.Elems.ToKeywords()
		if named == nil {
			named = n
		} else {
			for k, v := range n {
				if old, ok := named[k]; ok {
					named[k] = object.Union(old, v)
				} else {
					named[k] = v
				}
			}
		}
		if !object.IsBot(o) {
			other = unionOrSelf(other, o)
		}
	}
	if !found && other == nil {
		other = object.Any
	}
	return named, other
}

func unionOrSelf(a, b object.Type) object.Type {
	if a == nil {
		return b
	}
	return object.Union(a, b)
}

// binding is the result of matching actual arguments to formal parameters.
type binding struct {
	locals   []object.Type
	startPCs []int
}

// bindArgs matches globalized actual arguments to the parameters of body.
// Blocks bind leniently: missing arguments are nil, extra arguments are
// dropped, and a single array argument is spread over several parameters.
// A non-empty message is returned when a method call does not fit.
func (e *Evaluator) bindArgs(body *iseq.CodeBody, args *object.ActualArgs, forBlock bool) (*binding, string) {
	p := &body.Params
	locals := e.nilLocals(body.LocalSize())
	nilTy := e.nilType()

	lead := args.Lead
	var restElem object.Type
	if args.Rest != nil {
		restElem = e.splatElem(args.Rest)
	}

	if !forBlock && args.HasKeywords() && len(p.Keywords) == 0 && !p.HasKwRest {
		lead = append(append([]object.Type{}, lead...), e.keywordsAsHash(args))
	}

	positional := p.LeadNum + p.PostNum + p.OptNum()
	if forBlock && restElem == nil && len(lead) == 1 && (positional > 1 || (p.LeadNum >= 1 && p.HasRest)) {
		if ary, ok := lead[0].(*object.Array); ok {
			lead = ary.Elems.Lead
			if !object.IsBot(ary.Elems.Rest) {
				restElem = ary.Elems.Rest
			}
		}
	}

	req := p.LeadNum + p.PostNum
	opt := p.OptNum()
	n := len(lead)
	var startPCs []int

	if restElem == nil {
		if forBlock {
			for len(lead) < req {
				lead = append(lead, nilTy)
			}
			if !p.HasRest && len(lead) > req+opt {
				lead = lead[:req+opt]
			}
			n = len(lead)
		} else if n < req || (!p.HasRest && n > req+opt) {
			return nil, fmt.Sprintf("wrong number of arguments (given %d, expected %s)", n, arityString(req, opt, p.HasRest))
		}
		filled := min(n-req, opt)
		copy(locals, lead[:p.LeadNum])
		copy(locals[p.LeadNum:], lead[p.LeadNum:p.LeadNum+filled])
		if p.HasRest {
			extra := lead[p.LeadNum+filled : n-p.PostNum]
			locals[p.RestStart] = object.NewArray(object.NewArrayElems(append([]object.Type{}, extra...), nil), e.instanceOf(e.builtin.Array))
		}
		if p.PostNum > 0 {
			copy(locals[p.PostStart:], lead[n-p.PostNum:])
		}
		if opt > 0 {
			startPCs = []int{p.OptPCs[filled]}
		} else {
			startPCs = []int{0}
		}
	} else {
		if !forBlock && !p.HasRest && n > req+opt {
			return nil, fmt.Sprintf("wrong number of arguments (given %d+, expected %s)", n, arityString(req, opt, p.HasRest))
		}
		at := func(i int) object.Type {
			if i < n {
				return lead[i]
			}
			if forBlock {
				return object.Union(restElem, nilTy)
			}
			return restElem
		}
		for i := 0; i < p.LeadNum+opt; i++ {
			locals[i] = at(i)
		}
		if p.HasRest {
			rest := restElem
			for _, t := range lead[min(n, p.LeadNum+opt):] {
				rest = object.Union(rest, t)
			}
			locals[p.RestStart] = object.NewArray(object.NewArrayElems(nil, rest), e.instanceOf(e.builtin.Array))
		}
		post := restElem
		for _, t := range lead[min(n, p.LeadNum):] {
			post = object.Union(post, t)
		}
		for i := 0; i < p.PostNum; i++ {
			locals[p.PostStart+i] = post
		}
		if opt > 0 {
			from := max(min(n-p.LeadNum, opt), 0)
			for k := from; k <= opt; k++ {
				startPCs = append(startPCs, p.OptPCs[k])
			}
		} else {
			startPCs = []int{0}
		}
	}

	if len(p.Keywords) > 0 || p.HasKwRest {
		given := map[string]object.Type{}
		for k, v := range args.Keywords {
			given[k] = v
		}
		for i, kw := range p.Keywords {
			slot := p.KwStart + i
			switch ty, ok := given[kw.Name]; {
			case ok:
				locals[slot] = ty
				delete(given, kw.Name)
			case args.KwAny != nil:
				locals[slot] = args.KwAny
				if kw.Default != nil {
					locals[slot] = object.Union(args.KwAny, e.literalType(kw.Default))
				}
			case kw.Required:
				if !forBlock {
					return nil, "missing keyword: :" + kw.Name
				}
				locals[slot] = object.Any
			case kw.Default != nil:
				locals[slot] = e.literalType(kw.Default)
			default:
				locals[slot] = object.Bot
			}
		}
		if p.HasKwRest {
			var keys, vals []object.Type
			for _, name := range sortedKeys(given) {
				keys = append(keys, object.NewSymbol(name, e.instanceOf(e.builtin.Symbol)))
				vals = append(vals, given[name])
			}
			if args.KwAny != nil {
				keys = append(keys, e.instanceOf(e.builtin.Symbol))
				vals = append(vals, args.KwAny)
			}
			locals[p.KwRest] = object.NewHash(object.NewHashElems(keys, vals), e.instanceOf(e.builtin.Hash))
		} else if len(given) > 0 && !forBlock {
			return nil, "unknown keyword: :" + sortedKeys(given)[0]
		}
	}

	if p.HasBlock {
		locals[p.BlockStart] = args.Blk
	}
	return &binding{locals: locals, startPCs: startPCs}, ""
}

func arityString(req, opt int, rest bool) string {
	switch {
	case rest:
		return strconv.Itoa(req) + "+"
	case opt > 0:
		return strconv.Itoa(req) + ".." + strconv.Itoa(req+opt)
	}
	return strconv.Itoa(req)
}

// splatElem is the element type of a splatted argument.
func (e *Evaluator) splatElem(ty object.Type) object.Type {
	out := object.Bot
	for _, c := range object.Children(ty) {
		if ary, ok := c.(*object.Array); ok {
			out = object.Union(out, ary.Elems.Squash())
			continue
		}
		out = object.Union(out, object.Any)
	}
	if object.IsBot(out) {
		return object.Any
	}
	return out
}

func (e *Evaluator) keywordsAsHash(args *object.ActualArgs) object.Type {
	var keys, vals []object.Type
	for _, name := range args.KeywordNames() {
		keys = append(keys, object.NewSymbol(name, e.instanceOf(e.builtin.Symbol)))
		vals = append(vals, args.Keywords[name])
	}
	if args.KwAny != nil {
		keys = append(keys, e.instanceOf(e.builtin.Symbol))
		vals = append(vals, args.KwAny)
	}
	return object.NewHash(object.NewHashElems(keys, vals), e.instanceOf(e.builtin.Hash))
}

// formalSignature reads the parameter types of a method frame from its locals.
func (e *Evaluator) formalSignature(ep *ExecPoint, env *object.Env) *object.MethodSignature {
	body := ep.Ctx.Body
	p := &body.Params
	local := func(i int) object.Type { return e.globalizeType(env.Local(i), env, ep) }

	sig := &object.MethodSignature{}
	for i := 0; i < p.LeadNum; i++ {
		sig.Lead = append(sig.Lead, local(i))
	}
	for i := 0; i < p.OptNum(); i++ {
		sig.Opt = append(sig.Opt, local(p.LeadNum+i))
	}
	if p.HasRest {
		sig.Rest = e.splatElem(local(p.RestStart))
	}
	for i := 0; i < p.PostNum; i++ {
		sig.Post = append(sig.Post, local(p.PostStart+i))
	}
	for i, kw := range p.Keywords {
		sig.Keywords = append(sig.Keywords, object.KeywordParam{Name: kw.Name, Required: kw.Required, Type: local(p.KwStart + i)})
	}
	if p.HasKwRest {
		kwrest := object.Bot
		for _, c := range object.Children(local(p.KwRest)) {
			if h, ok := c.(*object.Hash); ok {
				kwrest = object.Union(kwrest, h.Elems.Squash())
			} else {
				kwrest = object.Union(kwrest, object.Any)
			}
		}
		sig.KwRest = kwrest
	}
	if p.HasBlock {
		sig.Blk = local(p.BlockStart)
	} else {
		sig.Blk = env.Static.Blk
	}
	return sig
}

func sortedKeys(m map[string]object.Type) []string {
	return slices.Sorted(maps.Keys(m))
}
