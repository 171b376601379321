package evaluator

import (
	"context"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

func (e *Evaluator) stepPut(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	switch insn.Op {
	case iseq.OpPutNil:
		return env.Push(e.nilType())
	case iseq.OpPutSelf:
		recv := env.Static.Recv
		if inst, ok := recv.(*object.Instance); ok && len(inst.Class.TypeParams) > 0 {
			var ty object.Type
			env, ty = e.localizeType(e.emptyContainer(inst.Class), env, ep, siteAt(ep))
			return env.Push(ty)
		}
		return env.Push(recv)
	case iseq.OpPutString:
		return env.Push(e.literalType(insn.Lit))
	case iseq.OpPutSpecialObject:
		switch insn.N {
		case iseq.SpecialVMCore:
			return env.Push(e.instanceOf(e.builtin.VMCore))
		case iseq.SpecialCBase, iseq.SpecialConstBase:
			return env.Push(ep.Ctx.CRef.Class)
		}
		panic(object.Invariant("unknown special object %d", insn.N))
	}
	// putobject, duparray, duphash
	var ty object.Type
	env, ty = e.localizeType(e.literalType(insn.Lit), env, ep, siteAt(ep))
	return env.Push(ty)
}

// emptyContainer returns a global, empty container instance of a class
// descending from Array or Hash, or a plain instance otherwise.
func (e *Evaluator) emptyContainer(cls *object.Class) object.Type {
	inst := e.instanceOf(cls)
	switch {
	case cls.IsSubclassOf(e.builtin.Array):
		return object.NewArray(object.NewArrayElems(nil, nil), inst)
	case cls.IsSubclassOf(e.builtin.Hash):
		return object.NewHash(object.NewHashElems(nil, nil), inst)
	}
	return inst
}

func (e *Evaluator) stepBuild(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	var ty object.Type
	switch insn.Op {
	case iseq.OpNewArray:
		var elems []object.Type
		env, elems = env.Pop(insn.N)
		env, ty = e.localizeType(object.NewArray(object.NewArrayElems(elems, nil), e.instanceOf(e.builtin.Array)), env, ep, siteAt(ep))
	case iseq.OpNewHash:
		var vals []object.Type
		env, vals = env.Pop(insn.N)
		var ks, vs []object.Type
		for i := 0; i+1 < len(vals); i += 2 {
			ks = append(ks, e.globalizeType(vals[i], env, ep))
			vs = append(vs, vals[i+1])
		}
		env, ty = e.localizeType(object.NewHash(object.NewHashElems(ks, vs), e.instanceOf(e.builtin.Hash)), env, ep, siteAt(ep))
	case iseq.OpNewRange:
		env, _ = env.Pop(2)
		ty = e.instanceOf(e.builtin.Range)
	case iseq.OpConcatStrings:
		env, _ = env.Pop(insn.N)
		ty = e.instanceOf(e.builtin.String)
	case iseq.OpToString:
		env, _ = env.Pop(2)
		ty = e.instanceOf(e.builtin.String)
	case iseq.OpToRegexp:
		env, _ = env.Pop(insn.M)
		ty = e.instanceOf(e.builtin.Regexp)
	case iseq.OpIntern:
		env, _ = env.Pop(1)
		ty = object.NewDynamicSymbol(e.instanceOf(e.builtin.Symbol))
	case iseq.OpSplatArray:
		return env
	case iseq.OpConcatArray:
		var vals []object.Type
		env, vals = env.Pop(2)
		return e.concatArray(ctx, ep, env, vals[0], vals[1])
	}
	return env.Push(ty)
}

func (e *Evaluator) concatArray(ctx context.Context, ep *ExecPoint, env *object.Env, ary1, ary2 object.Type) *object.Env {
	la1, ok := ary1.(*object.LocalArray)
	if !ok {
		var ty object.Type
		env, ty = e.localizeType(e.arrayOf(object.Any), env, ep, siteAt(ep))
		return env.Push(ty)
	}
	var other *object.ArrayElems
	if la2, ok := ary2.(*object.LocalArray); ok {
		if el, ok := e.containerElems(env, ep, la2.ID); ok {
			other = el.(*object.ArrayElems)
		}
	}
	if other == nil {
		other = object.NewArrayElems(nil, object.Any)
	}
	env = e.updateContainerElems(ctx, env, ep, la1.ID, func(old object.Elements) object.Elements {
		if old == nil {
			return object.NewArrayElems(nil, other.Squash())
		}
		return old.(*object.ArrayElems).Concat(other)
	})
	return env.Push(la1)
}

func (e *Evaluator) stepExpandArray(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) {
	num, flag := insn.N, insn.M
	splat := flag&1 == 1
	fromHead := flag&2 == 0
	env, vals := env.Pop(1)
	for _, c := range object.Children(vals[0]) {
		switch t := c.(type) {
		case *object.LocalArray:
			var elems *object.ArrayElems
			if el, ok := e.containerElems(env, ep, t.ID); ok {
				elems = el.(*object.ArrayElems)
			} else {
				elems = object.NewArrayElems(nil, object.Any)
			}
			e.expandArray(ep, env, elems, num, splat, fromHead)
		case *object.Array, *object.Hash:
			panic(object.Invariant("unlocalized container %s on the stack", t.Inspect()))
		default:
			if object.IsAny(c) {
				n := num
				if splat {
					n++
				}
				nenv := env
				for i := 0; i < n; i++ {
					nenv = nenv.Push(object.Any)
				}
				e.mergeEnv(ep.Next(), nenv)
				continue
			}
			e.expandArray(ep, env, object.NewArrayElems([]object.Type{c}, nil), num, splat, fromHead)
		}
	}
}

func (e *Evaluator) expandArray(ep *ExecPoint, env *object.Env, elems *object.ArrayElems, num int, splat, fromHead bool) {
	nilTy := e.nilType()
	site := siteAt(ep).Add("expand")
	push := func(env *object.Env, ty object.Type, id any) *object.Env {
		env, ty = e.localizeType(ty, env, ep, site.Add(id))
		return env.Push(ty)
	}
	if fromHead {
		lead, rest := elems.TakeFirst(num, nilTy)
		if splat {
			env = push(env, object.NewArray(rest, e.instanceOf(e.builtin.Array)), "rest")
		}
		for i := len(lead) - 1; i >= 0; i-- {
			env = push(env, lead[i], i)
		}
	} else {
		rest, following := elems.TakeLast(num, nilTy)
		for i, ty := range following {
			env = push(env, ty, i)
		}
		if splat {
			env = push(env, object.NewArray(rest, e.instanceOf(e.builtin.Array)), "rest")
		}
	}
	e.mergeEnv(ep.Next(), env)
}

func (e *Evaluator) stepCheck(ctx context.Context, ep *ExecPoint, env *object.Env, insn *iseq.Insn) *object.Env {
	switch insn.Op {
	case iseq.OpCheckType:
		env, _ = env.Pop(1)
		return env.Push(e.boolType())
	case iseq.OpDefined:
		env, _ = env.Pop(1)
		return env.Push(e.optional(e.instanceOf(e.builtin.String)))
	case iseq.OpCheckMatch:
		env, _ = env.Pop(2)
		return env.Push(e.boolType())
	case iseq.OpCheckKeyword:
		return env.Push(e.boolType())
	}
	panic(object.Invariant("not a check instruction: %s", insn.Op))
}
