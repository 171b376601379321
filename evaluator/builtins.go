package evaluator

import (
	"github.com/podhmo/typeprof/intrinsics"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

// builtinClasses are the classes every analysis starts with.
type builtinClasses struct {
	Object, Module, Class, Kernel, Comparable, Enumerable *object.Class

	NilClass, TrueClass, FalseClass   *object.Class
	Numeric, Integer, Float, Rational *object.Class
	String, Symbol, Regexp, MatchData *object.Class
	Array, Hash, Range, Proc          *object.Class
	Exception, StandardError          *object.Class
	RuntimeError, ArgumentError       *object.Class
	IO, File, VMCore                  *object.Class

	// count is the number of class definitions created by bootstrap.
	count int
}

const builtinPath = "<builtin>"

func (e *Evaluator) bootstrap() {
	b := &e.builtin

	b.Object = object.NewClass(object.KindClass, 0, nil, nil, "Object")
	e.classDefs = append(e.classDefs, newClassDef(b.Object, builtinPath))
	e.setConstant(b.Object, "Object", b.Object)
	e.rootScope = scope.NewScope(b.Object)

	class := func(name string, super *object.Class, params ...string) *object.Class {
		return e.newClass(b.Object, name, object.KindClass, params, super, builtinPath)
	}
	module := func(name string) *object.Class {
		return e.newClass(b.Object, name, object.KindModule, nil, nil, builtinPath)
	}

	b.Module = class("Module", b.Object)
	b.Class = class("Class", b.Module)
	b.Kernel = module("Kernel")
	b.Comparable = module("Comparable")
	b.Enumerable = module("Enumerable")
	b.NilClass = class("NilClass", b.Object)
	b.TrueClass = class("TrueClass", b.Object)
	b.FalseClass = class("FalseClass", b.Object)
	b.Numeric = class("Numeric", b.Object)
	b.Integer = class("Integer", b.Numeric)
	b.Float = class("Float", b.Numeric)
	b.Rational = class("Rational", b.Numeric)
	b.String = class("String", b.Object)
	b.Symbol = class("Symbol", b.Object)
	b.Regexp = class("Regexp", b.Object)
	b.MatchData = class("MatchData", b.Object)
	b.Array = class("Array", b.Object, "Elem")
	b.Hash = class("Hash", b.Object, "K", "V")
	b.Range = class("Range", b.Object, "Elem")
	b.Proc = class("Proc", b.Object)
	b.Exception = class("Exception", b.Object)
	b.StandardError = class("StandardError", b.Exception)
	b.RuntimeError = class("RuntimeError", b.StandardError)
	b.ArgumentError = class("ArgumentError", b.StandardError)
	b.IO = class("IO", b.Object)
	b.File = class("File", b.IO)
	b.VMCore = e.newClass(nil, "FrozenCore", object.KindClass, nil, b.Object, builtinPath)

	e.classDef(b.Object).include(e.classDef(b.Kernel), false)
	e.classDef(b.Numeric).include(e.classDef(b.Comparable), false)
	e.classDef(b.String).include(e.classDef(b.Comparable), false)
	e.classDef(b.Array).include(e.classDef(b.Enumerable), false)
	e.classDef(b.Hash).include(e.classDef(b.Enumerable), false)
	e.classDef(b.Range).include(e.classDef(b.Enumerable), false)
	b.count = len(e.classDefs)

	e.registerNatives(e.natives)
	for _, key := range e.natives.Keys() {
		fn, _ := e.natives.Get(key)
		cls, mid, singleton, _ := intrinsics.SplitKey(key)
		if def := e.lookupClassPath(cls); def != nil {
			def.setMethod(mid, singleton, &MethodDef{Kind: NativeMethod, Name: mid, Native: fn})
		}
	}
	core := e.classDef(b.VMCore)
	for mid, fn := range vmCoreNatives() {
		core.setMethod(mid, false, &MethodDef{Kind: NativeMethod, Name: mid, Native: fn})
	}
	for _, d := range e.declaredMethods() {
		def := e.lookupClassPath(d.class)
		def.setMethod(d.mid, d.singleton, &MethodDef{Kind: TypedMethod, Name: d.mid, Sigs: d.sigs})
	}
	e.declareGlobals()
}

func (e *Evaluator) declareGlobals() {
	b := &e.builtin
	str := e.instanceOf(b.String)
	io := e.instanceOf(b.IO)
	strs := e.arrayOf(str)
	for name, ty := range map[string]object.Type{
		"$0":               str,
		"$PROGRAM_NAME":    str,
		"$stdout":          io,
		"$stderr":          io,
		"$stdin":           io,
		"$,":               e.optional(str),
		"$/":               str,
		"$;":               e.optional(str),
		"$DEBUG":           e.boolType(),
		"$VERBOSE":         e.optional(e.boolType()),
		"$LOAD_PATH":       strs,
		"$:":               strs,
		"$LOADED_FEATURES": strs,
		"$\"":              strs,
		"$!":               e.optional(e.instanceOf(b.StandardError)),
		"$~":               e.optional(e.instanceOf(b.MatchData)),
	} {
		e.gvars.Declare(name, ty)
	}
}
