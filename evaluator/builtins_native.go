package evaluator

import (
	"context"
	"strconv"

	"github.com/podhmo/typeprof/intrinsics"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

func (e *Evaluator) registerNatives(r *intrinsics.Registry[NativeFunc]) {
	for key, fn := range map[string]NativeFunc{
		"Class#new":               nativeClassNew,
		"Object#initialize":       nativeReturnNil,
		"Object#class":            nativeObjectClass,
		"Object#tap":              nativeObjectTap,
		"Object#instance_eval":    nativeInstanceEval,
		"Kernel#p":                nativeKernelP,
		"Kernel#puts":             nativeReturnNil,
		"Kernel#print":            nativeReturnNil,
		"Kernel#pp":               nativeKernelP,
		"Kernel#reveal_type":      nativeRevealType,
		"Kernel#require":          nativeReturnTrue,
		"Kernel#require_relative": nativeReturnTrue,
		"Kernel#proc":             nativeKernelProc,
		"Kernel#lambda":           nativeKernelProc,
		"Kernel#block_given?":     nativeBlockGiven,
		"Kernel#raise":            nativeKernelRaise,
		"Kernel#fail":             nativeKernelRaise,
		"Kernel#loop":             nativeKernelLoop,
		"Kernel#send":             nativeKernelSend,
		"Kernel#__send__":         nativeKernelSend,
		"Kernel#public_send":      nativeKernelSend,
		"Kernel#extend":           nativeKernelExtend,
		"Module#include":          nativeModuleInclude,
		"Module#module_function":  nativeModuleFunction,
		"Module#attr_accessor":    nativeAttr(true, true),
		"Module#attr_reader":      nativeAttr(true, false),
		"Module#attr_writer":      nativeAttr(false, true),
		"Module#private":          nativeVisibility,
		"Module#public":           nativeVisibility,
		"Module#protected":        nativeVisibility,
		"Module#class_eval":       nativeClassEval,
		"Module#module_eval":      nativeClassEval,
		"Proc#call":               nativeProcCall,
		"Proc#[]":                 nativeProcCall,
		"Proc#yield":              nativeProcCall,
		"Proc#===":                nativeProcCall,
		"Array#[]":                nativeArrayAref,
		"Array#[]=":               nativeArrayAset,
		"Array#<<":                nativeArrayPush,
		"Array#push":              nativeArrayPush,
		"Array#each":              nativeArrayEach,
		"Array#each_with_index":   nativeArrayEachWithIndex,
		"Array#map":               nativeArrayMap,
		"Array#collect":           nativeArrayMap,
		"Array#select":            nativeArrayFilter,
		"Array#filter":            nativeArrayFilter,
		"Array#reject":            nativeArrayFilter,
		"Array#first":             nativeArrayFirst,
		"Array#last":              nativeArrayLast,
		"Array#pop":               nativeArrayPop,
		"Array#shift":             nativeArrayPop,
		"Array#to_a":              nativeReturnSelf,
		"Hash#[]":                 nativeHashAref,
		"Hash#[]=":                nativeHashAset,
		"Hash#each":               nativeHashEach,
		"Hash#each_pair":          nativeHashEach,
		"Hash#map":                nativeHashMap,
		"Hash#fetch":              nativeHashFetch,
		"Hash#keys":               nativeHashKeys,
		"Hash#values":             nativeHashValues,
		"Hash#to_h":               nativeReturnSelf,
	} {
		r.Register(key, fn)
	}
}

// vmCoreNatives are the methods of the VM core object that the bytecode
// calls for alias, undef and keyword-hash merging.
func vmCoreNatives() map[string]NativeFunc {
	return map[string]NativeFunc{
		"core#set_method_alias":   nativeCoreMethodAlias,
		"core#set_variable_alias": nativeReturnNil,
		"core#undef_method":       nativeReturnNil,
		"core#hash_merge_kwd":     nativeCoreHashMerge,
		"core#hash_merge_ptr":     nativeCoreHashMerge,
		"core#lambda":             nativeKernelProc,
		"core#raise":              nativeKernelRaise,
	}
}

func nativeCoreMethodAlias(ctx context.Context, e *Evaluator, c *NativeCall) {
	cls, ok := c.Arg(0).(*object.Class)
	if !ok || len(c.Args.Lead) != 3 {
		c.Return(e.nilType())
		return
	}
	newName, ok1 := staticSymbol(c.Args.Lead[1])
	oldName, ok2 := staticSymbol(c.Args.Lead[2])
	if ok1 && ok2 {
		if m, ok := e.getMethod(cls, false, oldName); ok {
			e.classDef(cls).setMethod(newName, false, m)
		} else {
			e.warnf(ctx, c.EP, "undefined method for alias: %s", e.methodName(cls, false, oldName))
		}
	}
	c.Return(e.nilType())
}

func nativeCoreHashMerge(ctx context.Context, e *Evaluator, c *NativeCall) {
	ty := object.Bot
	for _, a := range c.Args.Lead {
		ty = object.Union(ty, c.Global(e, a))
	}
	if object.IsBot(ty) {
		ty = e.hashOf(object.Any, object.Any)
	}
	c.Return(ty)
}

// Arg returns the i-th positional argument, or nil if it was not passed.
func (c *NativeCall) Arg(i int) object.Type {
	if i < len(c.Args.Lead) {
		return c.Args.Lead[i]
	}
	return nil
}

func staticSymbol(ty object.Type) (string, bool) {
	sym, ok := ty.(*object.Symbol)
	if !ok || sym.Dynamic {
		return "", false
	}
	return sym.Name, true
}

func (e *Evaluator) intLiteral(ty object.Type) (int, bool) {
	lit, ok := ty.(*object.Literal)
	if !ok {
		return 0, false
	}
	inst, ok := lit.Base.(*object.Instance)
	if !ok || inst.Class != e.builtin.Integer {
		return 0, false
	}
	n, err := strconv.Atoi(lit.Value)
	return n, err == nil
}

// hasBlock reports whether a block may have been passed to c.
func (e *Evaluator) hasBlock(c *NativeCall) bool {
	if c.Args.Blk == nil {
		return false
	}
	for _, b := range object.Children(c.Args.Blk) {
		if !e.isNil(b) {
			return true
		}
	}
	return false
}

// yieldBlock calls the block of c with args. A nil member of the block
// resumes ctn with nil.
func (e *Evaluator) yieldBlock(ctx context.Context, c *NativeCall, args []object.Type, ctn Continuation) {
	if c.Args.Blk == nil {
		ctn(e.nilType(), c.EP, c.Env)
		return
	}
	for _, b := range object.Children(c.Args.Blk) {
		if e.isNil(b) {
			ctn(e.nilType(), c.EP, c.Env)
			break
		}
	}
	e.invokeBlock(ctx, c.Args.Blk, &object.ActualArgs{Lead: args, Blk: e.nilType()}, c.EP, c.Env, ctn)
}

func discard(object.Type, *ExecPoint, *object.Env) {}

func nativeReturnNil(ctx context.Context, e *Evaluator, c *NativeCall)  { c.Return(e.nilType()) }
func nativeReturnTrue(ctx context.Context, e *Evaluator, c *NativeCall) { c.Return(e.trueType()) }
func nativeReturnSelf(ctx context.Context, e *Evaluator, c *NativeCall) { c.Return(c.Recv) }

func nativeClassNew(ctx context.Context, e *Evaluator, c *NativeCall) {
	cls, ok := c.Recv.(*object.Class)
	if !ok || cls.Kind != object.KindClass {
		c.Return(object.Any)
		return
	}
	inst := e.emptyContainer(cls)
	e.doSend(ctx, inst, "initialize", c.Args, c.EP, c.Env, func(_ object.Type, ep *ExecPoint, env *object.Env) {
		c.Ctn(inst, ep, env)
	})
}

func nativeObjectClass(ctx context.Context, e *Evaluator, c *NativeCall) {
	switch t := object.BaseType(c.Recv).(type) {
	case *object.Instance:
		c.Return(t.Class)
	case *object.Class:
		if t.Kind == object.KindModule {
			c.Return(e.builtin.Module)
			return
		}
		c.Return(e.builtin.Class)
	default:
		c.Return(object.Any)
	}
}

func nativeObjectTap(ctx context.Context, e *Evaluator, c *NativeCall) {
	recv := c.Recv
	e.yieldBlock(ctx, c, []object.Type{recv}, func(_ object.Type, ep *ExecPoint, env *object.Env) {
		c.Ctn(recv, ep, env)
	})
}

func nativeInstanceEval(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	args := &object.ActualArgs{Lead: []object.Type{c.Recv}, Blk: e.nilType()}
	opts := blockOptions{recv: c.Recv}
	if cls, ok := c.Recv.(*object.Class); ok {
		opts.cref = scope.NewEnclosedScope(c.EP.Ctx.CRef, cls, true)
	}
	e.invokeBlockWith(ctx, c.Args.Blk, args, c.EP, c.Env, opts, c.Ctn)
}

func nativeClassEval(ctx context.Context, e *Evaluator, c *NativeCall) {
	cls, ok := c.Recv.(*object.Class)
	if !ok || !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	args := &object.ActualArgs{Lead: []object.Type{cls}, Blk: e.nilType()}
	opts := blockOptions{recv: cls, cref: scope.NewEnclosedScope(c.EP.Ctx.CRef, cls, false)}
	e.invokeBlockWith(ctx, c.Args.Blk, args, c.EP, c.Env, opts, c.Ctn)
}

func nativeKernelP(ctx context.Context, e *Evaluator, c *NativeCall) {
	switch len(c.Args.Lead) {
	case 0:
		c.Return(e.nilType())
	case 1:
		c.Return(c.Args.Lead[0])
	default:
		elems := make([]object.Type, len(c.Args.Lead))
		for i, a := range c.Args.Lead {
			elems[i] = c.Global(e, a)
		}
		c.Return(object.NewArray(object.NewArrayElems(elems, object.Bot), e.instanceOf(e.builtin.Array)))
	}
}

func nativeRevealType(ctx context.Context, e *Evaluator, c *NativeCall) {
	arg := c.Arg(0)
	if arg == nil {
		c.Return(e.nilType())
		return
	}
	e.recordRevealedType(c.EP, c.Global(e, arg))
	c.Return(arg)
}

func nativeKernelProc(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		e.errorf(ctx, c.EP, "tried to create Proc object without a block")
		c.Return(object.Any)
		return
	}
	c.Return(c.Args.Blk)
}

func nativeBlockGiven(ctx context.Context, e *Evaluator, c *NativeCall) {
	ty := object.Bot
	for _, b := range object.Children(c.Env.Static.Blk) {
		switch {
		case object.IsAny(b):
			ty = object.Union(ty, e.boolType())
		case e.isNil(b):
			ty = object.Union(ty, e.falseType())
		default:
			ty = object.Union(ty, e.trueType())
		}
	}
	if object.IsBot(ty) {
		ty = e.falseType()
	}
	c.Return(ty)
}

// nativeKernelRaise never resumes its caller; control continues only through
// the rescue edges of the enclosing frames.
func nativeKernelRaise(ctx context.Context, e *Evaluator, c *NativeCall) {
	e.gvars.Write("$!", e.instanceOf(e.builtin.StandardError))
}

func nativeKernelLoop(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	// the loop ends only by break, which resumes the caller directly
	e.invokeBlock(ctx, c.Args.Blk, &object.ActualArgs{Blk: e.nilType()}, c.EP, c.Env, discard)
}

func nativeKernelSend(ctx context.Context, e *Evaluator, c *NativeCall) {
	mid, ok := "", false
	if arg := c.Arg(0); arg != nil {
		mid, ok = staticSymbol(arg)
	}
	if !ok {
		c.Return(object.Any)
		return
	}
	rest := *c.Args
	rest.Lead = c.Args.Lead[1:]
	e.doSend(ctx, c.Recv, mid, &rest, c.EP, c.Env, c.Ctn)
}

func nativeModuleInclude(ctx context.Context, e *Evaluator, c *NativeCall) {
	e.includeArgs(ctx, c, false)
	c.Return(c.Recv)
}

func nativeKernelExtend(ctx context.Context, e *Evaluator, c *NativeCall) {
	e.includeArgs(ctx, c, true)
	c.Return(c.Recv)
}

func (e *Evaluator) includeArgs(ctx context.Context, c *NativeCall, singleton bool) {
	cls, ok := c.Recv.(*object.Class)
	if !ok {
		return
	}
	for _, a := range c.Args.Lead {
		for _, m := range object.Children(a) {
			mod, ok := m.(*object.Class)
			if !ok || mod.Kind != object.KindModule {
				if !object.IsAny(m) {
					e.warnf(ctx, c.EP, "attempted to include a non-module: %s", m.Inspect())
				}
				continue
			}
			e.classDef(cls).include(e.classDef(mod), singleton)
		}
	}
}

func nativeModuleFunction(ctx context.Context, e *Evaluator, c *NativeCall) {
	cls, ok := c.Recv.(*object.Class)
	if !ok {
		c.Return(e.nilType())
		return
	}
	if len(c.Args.Lead) == 0 {
		c.ReturnWith(e.nilType(), c.Env.EnableModuleFunction())
		return
	}
	def := e.classDef(cls)
	for _, a := range c.Args.Lead {
		name, ok := staticSymbol(a)
		if !ok {
			continue
		}
		if m, ok := def.method(name, false); ok {
			def.setMethod(name, true, m)
		}
	}
	c.Return(e.nilType())
}

func nativeAttr(reader, writer bool) NativeFunc {
	return func(ctx context.Context, e *Evaluator, c *NativeCall) {
		cls, ok := c.Recv.(*object.Class)
		if !ok {
			c.Return(e.nilType())
			return
		}
		def := e.classDef(cls)
		for _, a := range c.Args.Lead {
			name, ok := staticSymbol(a)
			if !ok {
				continue
			}
			def.addAttr(name, reader, writer)
			if reader {
				def.setMethod(name, false, &MethodDef{Kind: NativeMethod, Name: name, Native: ivarReader("@" + name)})
			}
			if writer {
				def.setMethod(name+"=", false, &MethodDef{Kind: NativeMethod, Name: name + "=", Native: ivarWriter("@" + name)})
			}
		}
		c.Return(e.nilType())
	}
}

func ivarReader(ivar string) NativeFunc {
	return func(ctx context.Context, e *Evaluator, c *NativeCall) {
		e.addIvarRead(c.Recv, ivar, c.EP, func(ty object.Type, ep *ExecPoint) {
			c.Ctn(ty, ep, c.Env)
		})
	}
}

func ivarWriter(ivar string) NativeFunc {
	return func(ctx context.Context, e *Evaluator, c *NativeCall) {
		arg := c.Arg(0)
		if arg == nil {
			c.Return(object.Any)
			return
		}
		e.addIvarWrite(ctx, c.Recv, ivar, c.Global(e, arg), c.EP)
		c.Return(arg)
	}
}

func nativeVisibility(ctx context.Context, e *Evaluator, c *NativeCall) {
	if arg := c.Arg(0); arg != nil {
		c.Return(arg)
		return
	}
	c.Return(e.nilType())
}

func nativeProcCall(ctx context.Context, e *Evaluator, c *NativeCall) {
	e.invokeBlock(ctx, c.Recv, c.Args, c.EP, c.Env, c.Ctn)
}

// arrayRecv returns the element summary of an array receiver and, when the
// receiver is a local container, its reference.
func (e *Evaluator) arrayRecv(c *NativeCall) (*object.ArrayElems, *object.LocalArray) {
	switch t := c.Recv.(type) {
	case *object.LocalArray:
		if el, ok := e.containerElems(c.Env, c.EP, t.ID); ok {
			if ae, ok := el.(*object.ArrayElems); ok {
				return ae, t
			}
		}
		return object.NewArrayElems(nil, object.Any), t
	case *object.Array:
		return t.Elems, nil
	}
	return object.NewArrayElems(nil, object.Any), nil
}

func (e *Evaluator) updateArray(ctx context.Context, c *NativeCall, la *object.LocalArray, fn func(*object.ArrayElems) *object.ArrayElems) *object.Env {
	if la == nil {
		return c.Env
	}
	return e.updateContainerElems(ctx, c.Env, c.EP, la.ID, func(old object.Elements) object.Elements {
		ae, ok := old.(*object.ArrayElems)
		if !ok {
			ae = object.NewArrayElems(nil, object.Any)
		}
		return fn(ae)
	})
}

func (e *Evaluator) isRange(ty object.Type) bool {
	inst, ok := object.BaseType(ty).(*object.Instance)
	return ok && inst.Class == e.builtin.Range
}

func nativeArrayAref(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.arrayRecv(c)
	switch len(c.Args.Lead) {
	case 1:
		idx := c.Args.Lead[0]
		if i, ok := e.intLiteral(idx); ok {
			c.Return(elems.At(i, e.nilType()))
			return
		}
		if e.isRange(idx) {
			c.Return(e.optional(e.arrayOf(elems.Squash())))
			return
		}
		c.Return(e.optional(elems.Squash()))
	case 2:
		c.Return(e.optional(e.arrayOf(elems.Squash())))
	default:
		e.errorf(ctx, c.EP, "wrong number of arguments (given %d, expected 1..2)", len(c.Args.Lead))
		c.Return(object.Any)
	}
}

func nativeArrayAset(ctx context.Context, e *Evaluator, c *NativeCall) {
	n := len(c.Args.Lead)
	if n != 2 && n != 3 {
		e.errorf(ctx, c.EP, "wrong number of arguments (given %d, expected 2..3)", n)
		c.Return(object.Any)
		return
	}
	val := c.Args.Lead[n-1]
	gval := c.Global(e, val)
	_, la := e.arrayRecv(c)
	env := e.updateArray(ctx, c, la, func(ae *object.ArrayElems) *object.ArrayElems {
		if i, ok := e.intLiteral(c.Args.Lead[0]); ok && n == 2 {
			return ae.UpdateAt(i, gval)
		}
		if n == 3 {
			if a, ok := gval.(*object.Array); ok {
				return ae.UpdateAll(a.Elems.Squash())
			}
		}
		return ae.UpdateAll(gval)
	})
	c.ReturnWith(val, env)
}

func nativeArrayPush(ctx context.Context, e *Evaluator, c *NativeCall) {
	_, la := e.arrayRecv(c)
	vals := make([]object.Type, len(c.Args.Lead))
	for i, a := range c.Args.Lead {
		vals[i] = c.Global(e, a)
	}
	env := e.updateArray(ctx, c, la, func(ae *object.ArrayElems) *object.ArrayElems {
		for _, v := range vals {
			ae = ae.Append(v)
		}
		return ae
	})
	c.ReturnWith(c.Recv, env)
}

func nativeArrayEach(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.arrayRecv(c)
	c.Return(c.Recv)
	e.yieldBlock(ctx, c, []object.Type{elems.SquashOrAny()}, discard)
}

func nativeArrayEachWithIndex(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.arrayRecv(c)
	c.Return(c.Recv)
	e.yieldBlock(ctx, c, []object.Type{elems.SquashOrAny(), e.instanceOf(e.builtin.Integer)}, discard)
}

func nativeArrayMap(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.arrayRecv(c)
	e.yieldBlock(ctx, c, []object.Type{elems.SquashOrAny()}, func(ret object.Type, ep *ExecPoint, env *object.Env) {
		c.Ctn(e.arrayOf(ret), ep, env)
	})
}

func nativeArrayFilter(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.arrayRecv(c)
	result := e.arrayOf(elems.Squash())
	e.yieldBlock(ctx, c, []object.Type{elems.SquashOrAny()}, func(_ object.Type, ep *ExecPoint, env *object.Env) {
		c.Ctn(result, ep, env)
	})
}

func nativeArrayFirst(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.arrayRecv(c)
	if len(c.Args.Lead) == 0 {
		c.Return(elems.At(0, e.nilType()))
		return
	}
	c.Return(e.arrayOf(elems.Squash()))
}

func nativeArrayLast(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.arrayRecv(c)
	if len(c.Args.Lead) == 0 {
		c.Return(elems.At(-1, e.nilType()))
		return
	}
	c.Return(e.arrayOf(elems.Squash()))
}

func nativeArrayPop(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.arrayRecv(c)
	if len(c.Args.Lead) == 0 {
		c.Return(e.optional(elems.Squash()))
		return
	}
	c.Return(e.arrayOf(elems.Squash()))
}

func (e *Evaluator) hashRecv(c *NativeCall) (*object.HashElems, *object.LocalHash) {
	switch t := c.Recv.(type) {
	case *object.LocalHash:
		if el, ok := e.containerElems(c.Env, c.EP, t.ID); ok {
			if he, ok := el.(*object.HashElems); ok {
				return he, t
			}
		}
		return object.NewHashElems([]object.Type{object.Any}, []object.Type{object.Any}), t
	case *object.Hash:
		return t.Elems, nil
	}
	return object.NewHashElems([]object.Type{object.Any}, []object.Type{object.Any}), nil
}

func nativeHashAref(ctx context.Context, e *Evaluator, c *NativeCall) {
	arg := c.Arg(0)
	if arg == nil {
		e.errorf(ctx, c.EP, "wrong number of arguments (given 0, expected 1)")
		c.Return(object.Any)
		return
	}
	elems, _ := e.hashRecv(c)
	c.Return(elems.Lookup(c.Global(e, arg), e.nilType()))
}

func nativeHashAset(ctx context.Context, e *Evaluator, c *NativeCall) {
	if len(c.Args.Lead) != 2 {
		e.errorf(ctx, c.EP, "wrong number of arguments (given %d, expected 2)", len(c.Args.Lead))
		c.Return(object.Any)
		return
	}
	k, v := c.Global(e, c.Args.Lead[0]), c.Args.Lead[1]
	gv := c.Global(e, v)
	_, lh := e.hashRecv(c)
	env := c.Env
	if lh != nil {
		env = e.updateContainerElems(ctx, c.Env, c.EP, lh.ID, func(old object.Elements) object.Elements {
			he, ok := old.(*object.HashElems)
			if !ok {
				he = object.NewHashElems(nil, nil)
			}
			return he.Update(k, gv)
		})
	}
	c.ReturnWith(v, env)
}

func (e *Evaluator) hashPair(elems *object.HashElems) []object.Type {
	k, v := elems.SquashKeys(), elems.Squash()
	if object.IsBot(k) {
		k = object.Any
	}
	if object.IsBot(v) {
		v = object.Any
	}
	return []object.Type{k, v}
}

func nativeHashEach(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.hashRecv(c)
	c.Return(c.Recv)
	e.yieldBlock(ctx, c, e.hashPair(elems), discard)
}

func nativeHashMap(ctx context.Context, e *Evaluator, c *NativeCall) {
	if !e.hasBlock(c) {
		c.Return(object.Any)
		return
	}
	elems, _ := e.hashRecv(c)
	e.yieldBlock(ctx, c, e.hashPair(elems), func(ret object.Type, ep *ExecPoint, env *object.Env) {
		c.Ctn(e.arrayOf(ret), ep, env)
	})
}

func nativeHashFetch(ctx context.Context, e *Evaluator, c *NativeCall) {
	arg := c.Arg(0)
	if arg == nil {
		e.errorf(ctx, c.EP, "wrong number of arguments (given 0, expected 1..2)")
		c.Return(object.Any)
		return
	}
	elems, _ := e.hashRecv(c)
	ty := elems.Lookup(c.Global(e, arg), object.Bot)
	if object.IsBot(ty) {
		ty = object.Any
	}
	if def := c.Arg(1); def != nil {
		ty = object.Union(ty, c.Global(e, def))
	}
	c.Return(ty)
}

func nativeHashKeys(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.hashRecv(c)
	c.Return(e.arrayOf(elems.SquashKeys()))
}

func nativeHashValues(ctx context.Context, e *Evaluator, c *NativeCall) {
	elems, _ := e.hashRecv(c)
	c.Return(e.arrayOf(elems.Squash()))
}
