package evaluator

import "github.com/podhmo/typeprof/object"

type declaredMethod struct {
	class     string
	mid       string
	singleton bool
	sigs      []object.DeclaredSignature
}

// declaredMethods is the table of builtin methods known by signature only.
func (e *Evaluator) declaredMethods() []declaredMethod {
	b := &e.builtin
	var (
		self    = object.NewVar("self")
		elem    = object.NewVar("Elem")
		k       = object.NewVar("K")
		v       = object.NewVar("V")
		x       = object.NewVar("X")
		integer = e.instanceOf(b.Integer)
		float   = e.instanceOf(b.Float)
		str     = e.instanceOf(b.String)
		sym     = e.instanceOf(b.Symbol)
		boolean = e.boolType()
		nilT    = e.nilType()
		numeric = object.Union(integer, float)
		strs    = e.arrayOf(str)
	)
	sig := func(ret object.Type, lead ...object.Type) object.DeclaredSignature {
		return object.DeclaredSignature{Lead: lead, Ret: ret}
	}
	opt := func(ret object.Type, opts ...object.Type) object.DeclaredSignature {
		return object.DeclaredSignature{Opt: opts, Ret: ret}
	}
	rest := func(ret object.Type, lead []object.Type, r object.Type) object.DeclaredSignature {
		return object.DeclaredSignature{Lead: lead, Rest: r, Ret: ret}
	}
	withBlock := func(s object.DeclaredSignature, ret object.Type, params ...object.Type) object.DeclaredSignature {
		s.Blk = &object.DeclaredBlock{Params: params, Ret: ret}
		return s
	}
	m := func(class, mid string, sigs ...object.DeclaredSignature) declaredMethod {
		return declaredMethod{class: class, mid: mid, sigs: sigs}
	}
	sm := func(class, mid string, sigs ...object.DeclaredSignature) declaredMethod {
		return declaredMethod{class: class, mid: mid, singleton: true, sigs: sigs}
	}
	preds := func(class string, mids ...string) []declaredMethod {
		out := make([]declaredMethod, len(mids))
		for i, mid := range mids {
			out[i] = m(class, mid, opt(boolean, object.Any))
		}
		return out
	}

	table := []declaredMethod{
		m("Object", "==", sig(boolean, object.Any)),
		m("Object", "!=", sig(boolean, object.Any)),
		m("Object", "!", sig(boolean)),
		m("Object", "equal?", sig(boolean, object.Any)),
		m("Object", "nil?", sig(e.falseType())),
		m("Object", "is_a?", sig(boolean, object.Any)),
		m("Object", "kind_of?", sig(boolean, object.Any)),
		m("Object", "instance_of?", sig(boolean, object.Any)),
		m("Object", "respond_to?", sig(boolean, object.Any)),
		m("Object", "frozen?", sig(boolean)),
		m("Object", "freeze", sig(self)),
		m("Object", "dup", sig(self)),
		m("Object", "clone", sig(self)),
		m("Object", "itself", sig(self)),
		m("Object", "to_s", sig(str)),
		m("Object", "inspect", sig(str)),
		m("Object", "hash", sig(integer)),
		m("Object", "object_id", sig(integer)),

		m("Kernel", "Array",
			sig(e.arrayOf(x), e.arrayOf(x)),
			sig(e.arrayOf(object.Bot), nilT),
			sig(e.arrayOf(x), x)),
		m("Kernel", "Integer", opt(integer, object.Any, object.Any)),
		m("Kernel", "Float", sig(float, object.Any)),
		m("Kernel", "String", sig(str, object.Any)),
		m("Kernel", "rand",
			sig(float),
			sig(integer, integer),
			sig(float, float),
			sig(integer, e.instanceOf(b.Range))),
		m("Kernel", "format", rest(str, []object.Type{str}, object.Any)),
		m("Kernel", "sprintf", rest(str, []object.Type{str}, object.Any)),
		m("Kernel", "gets", sig(e.optional(str))),
		m("Kernel", "sleep", opt(integer, numeric)),
		m("Kernel", "exit", opt(object.Bot, object.Any)),
		m("Kernel", "abort", opt(object.Bot, str)),
		m("Kernel", "caller", sig(strs)),

		m("Module", "name", sig(e.optional(str))),
		m("Module", "to_s", sig(str)),
		m("Module", "===", sig(boolean, object.Any)),
		m("Module", "ancestors", sig(e.arrayOf(e.instanceOf(b.Module)))),
		m("Module", "private_constant", rest(nilT, nil, sym)),

		m("NilClass", "nil?", sig(e.trueType())),
		m("NilClass", "to_a", sig(e.arrayOf(object.Bot))),
		m("NilClass", "to_s", sig(str)),
		m("NilClass", "to_i", sig(integer)),

		m("Integer", "+", sig(integer, integer), sig(float, float)),
		m("Integer", "-", sig(integer, integer), sig(float, float)),
		m("Integer", "*", sig(integer, integer), sig(float, float)),
		m("Integer", "/", sig(integer, integer), sig(float, float)),
		m("Integer", "%", sig(integer, integer), sig(float, float)),
		m("Integer", "**", sig(integer, integer), sig(float, float)),
		m("Integer", "-@", sig(integer)),
		m("Integer", "<=>", sig(e.optional(integer), object.Any)),
		m("Integer", "to_s", opt(str, integer)),
		m("Integer", "to_i", sig(integer)),
		m("Integer", "to_f", sig(float)),
		m("Integer", "succ", sig(integer)),
		m("Integer", "pred", sig(integer)),
		m("Integer", "abs", sig(integer)),
		m("Integer", "times", withBlock(sig(self), object.Any, integer)),
		m("Integer", "upto", withBlock(sig(self, integer), object.Any, integer)),
		m("Integer", "downto", withBlock(sig(self, integer), object.Any, integer)),

		m("Float", "+", sig(float, numeric)),
		m("Float", "-", sig(float, numeric)),
		m("Float", "*", sig(float, numeric)),
		m("Float", "/", sig(float, numeric)),
		m("Float", "-@", sig(float)),
		m("Float", "to_s", sig(str)),
		m("Float", "to_i", sig(integer)),
		m("Float", "to_f", sig(float)),
		m("Float", "round", opt(integer, integer)),
		m("Float", "floor", sig(integer)),
		m("Float", "ceil", sig(integer)),

		m("String", "+", sig(str, str)),
		m("String", "*", sig(str, integer)),
		m("String", "%", sig(str, object.Any)),
		m("String", "<<", sig(self, object.Any)),
		m("String", "=~", sig(e.optional(integer), object.Any)),
		m("String", "<=>", sig(e.optional(integer), object.Any)),
		m("String", "to_s", sig(str)),
		m("String", "to_str", sig(str)),
		m("String", "to_sym", sig(sym)),
		m("String", "to_i", sig(integer)),
		m("String", "to_f", sig(float)),
		m("String", "size", sig(integer)),
		m("String", "length", sig(integer)),
		m("String", "upcase", sig(str)),
		m("String", "downcase", sig(str)),
		m("String", "capitalize", sig(str)),
		m("String", "strip", sig(str)),
		m("String", "chomp", opt(str, str)),
		m("String", "reverse", sig(str)),
		m("String", "sub", opt(str, object.Any, object.Any)),
		m("String", "gsub", opt(str, object.Any, object.Any)),
		m("String", "split", opt(strs, object.Any, integer)),
		m("String", "chars", sig(strs)),
		m("String", "lines", sig(strs)),
		m("String", "[]", opt(e.optional(str), object.Any, integer)),
		m("String", "each_char", withBlock(sig(self), object.Any, str)),

		m("Symbol", "to_s", sig(str)),
		m("Symbol", "to_sym", sig(self)),
		m("Symbol", "to_proc", sig(e.instanceOf(b.Proc))),
		m("Symbol", "size", sig(integer)),

		m("Array", "size", sig(integer)),
		m("Array", "length", sig(integer)),
		m("Array", "count", opt(integer, object.Any)),
		m("Array", "join", opt(str, str)),
		m("Array", "sort", sig(e.arrayOf(elem))),
		m("Array", "reverse", sig(e.arrayOf(elem))),
		m("Array", "uniq", sig(e.arrayOf(elem))),
		m("Array", "compact", sig(e.arrayOf(elem))),
		m("Array", "flatten", opt(e.arrayOf(object.Any), integer)),
		m("Array", "min", sig(e.optional(elem))),
		m("Array", "max", sig(e.optional(elem))),
		m("Array", "sum", sig(elem)),
		m("Array", "sample", sig(e.optional(elem))),
		m("Array", "index", sig(e.optional(integer), object.Any)),
		m("Array", "+", sig(e.arrayOf(object.Union(elem, x)), e.arrayOf(x))),
		m("Array", "-", sig(e.arrayOf(elem), e.arrayOf(object.Any))),
		m("Array", "concat", sig(self, e.arrayOf(object.Any))),
		m("Array", "inject", withBlock(opt(x, x), x, x, elem)),
		m("Array", "reduce", withBlock(opt(x, x), x, x, elem)),
		m("Array", "sort_by", withBlock(sig(e.arrayOf(elem)), object.Any, elem)),
		m("Array", "group_by", withBlock(sig(e.hashOf(x, e.arrayOf(elem))), x, elem)),
		m("Array", "find", withBlock(sig(e.optional(elem)), object.Any, elem)),
		m("Array", "each_slice", withBlock(sig(nilT, integer), object.Any, e.arrayOf(elem))),
		m("Array", "zip", rest(e.arrayOf(e.arrayOf(object.Any)), nil, object.Any)),

		m("Hash", "size", sig(integer)),
		m("Hash", "length", sig(integer)),
		m("Hash", "delete", sig(e.optional(v), object.Any)),
		m("Hash", "merge", sig(e.hashOf(object.Union(k, x), object.Union(v, object.NewVar("Y"))), e.hashOf(x, object.NewVar("Y")))),
		m("Hash", "to_a", sig(e.arrayOf(e.arrayOf(object.Union(k, v))))),
		m("Hash", "select", withBlock(sig(e.hashOf(k, v)), object.Any, k, v)),
		m("Hash", "filter", withBlock(sig(e.hashOf(k, v)), object.Any, k, v)),
		m("Hash", "transform_values", withBlock(sig(e.hashOf(k, x)), x, v)),

		m("Range", "each", withBlock(sig(self), object.Any, integer)),
		m("Range", "map", withBlock(sig(e.arrayOf(x)), x, integer)),
		m("Range", "to_a", sig(e.arrayOf(integer))),
		m("Range", "first", sig(integer)),
		m("Range", "last", sig(integer)),

		m("Regexp", "match", sig(e.optional(e.instanceOf(b.MatchData)), str)),
		m("Regexp", "=~", sig(e.optional(integer), object.Any)),
		m("MatchData", "[]", sig(e.optional(str), object.Any)),

		m("Exception", "message", sig(str)),
		m("Exception", "backtrace", sig(e.optional(strs))),
		m("IO", "puts", rest(nilT, nil, object.Any)),
		m("IO", "print", rest(nilT, nil, object.Any)),
		m("IO", "write", rest(integer, nil, object.Any)),

		sm("File", "read", sig(str, str)),
		sm("File", "exist?", sig(boolean, str)),
		sm("File", "basename", opt(str, str, str)),
		sm("File", "join", rest(str, nil, str)),
	}
	table = append(table, preds("Integer", "zero?", "even?", "odd?", "positive?", "negative?", "<", ">", "<=", ">=")...)
	table = append(table, preds("Float", "zero?", "nan?", "<", ">", "<=", ">=")...)
	table = append(table, preds("String", "empty?", "start_with?", "end_with?", "include?")...)
	table = append(table, preds("Array", "empty?", "include?", "any?", "all?", "none?")...)
	table = append(table, preds("Hash", "empty?", "key?", "has_key?", "include?", "value?")...)
	table = append(table, preds("Range", "include?", "cover?")...)
	return table
}
