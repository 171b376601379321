package typeprof

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/podhmo/typeprof/evaluator"
	"github.com/podhmo/typeprof/object"
)

// Result is the outcome of one analysis. Format renders it as signature
// declarations.
type Result struct {
	eval     *evaluator.Evaluator
	pedantic bool
}

func newResult(e *evaluator.Evaluator, pedantic bool) *Result {
	return &Result{eval: e, pedantic: pedantic}
}

// Evaluator returns the evaluator holding the raw results.
func (r *Result) Evaluator() *evaluator.Evaluator { return r.eval }

// Diagnostics returns the problems found, in the order found.
func (r *Result) Diagnostics() []evaluator.Diagnostic { return r.eval.Diagnostics() }

// Terminated reports whether the analysis stopped on a budget.
func (r *Result) Terminated() bool { return r.eval.Terminated() }

// ErrorCount returns the number of error diagnostics.
func (r *Result) ErrorCount() int {
	n := 0
	for _, d := range r.eval.Diagnostics() {
		if d.Severity == evaluator.SeverityError {
			n++
		}
	}
	return n
}

// String returns the formatted result.
func (r *Result) String() string {
	var buf bytes.Buffer
	_ = r.Format(&buf)
	return buf.String()
}

// Format writes the diagnostics, revealed types, global variables and the
// inferred class signatures.
func (r *Result) Format(w io.Writer) error {
	var sections [][]string
	if r.eval.Terminated() {
		sections = append(sections, []string{
			fmt.Sprintf("# Analysis terminated after %d steps; the result is partial", r.eval.Steps()),
		})
	}
	if diags := r.eval.Diagnostics(); len(diags) > 0 {
		lines := []string{"# Errors"}
		for _, d := range diags {
			lines = append(lines, "# "+d.String())
		}
		sections = append(sections, lines)
	}
	if revealed := r.eval.RevealedTypes(); len(revealed) > 0 {
		lines := []string{"# Revealed types"}
		for _, rv := range revealed {
			lines = append(lines, fmt.Sprintf("#  %s #=> %s", rv.Location, r.TypeName(rv.Type)))
		}
		sections = append(sections, lines)
	}
	if gvars := r.eval.GlobalVariables(); len(gvars) > 0 {
		lines := []string{"# Global variables"}
		for _, gv := range gvars {
			lines = append(lines, gv.Name+" : "+r.TypeName(gv.Type))
		}
		sections = append(sections, lines)
	}
	if classes := r.classLines(); len(classes) > 0 {
		sections = append(sections, append([]string{"# Classes"}, classes...))
	}

	for i, lines := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// MethodSignature returns the formatted signature of an interpreted method,
// e.g. "(Integer) -> String".
func (r *Result) MethodSignature(classPath, name string, singleton bool) (string, bool) {
	for _, m := range r.eval.MethodReports() {
		if m.Class.Name == classPath && m.Name == name && m.Singleton == singleton {
			return r.methodSignature(m), true
		}
	}
	return "", false
}

type classEntry struct {
	cls     *object.Class
	methods []evaluator.MethodReport
	ivars   []evaluator.InstanceVariable
}

func (r *Result) classLines() []string {
	entries := map[int]*classEntry{}
	entry := func(cls *object.Class) *classEntry {
		if ce, ok := entries[cls.ID]; ok {
			return ce
		}
		ce := &classEntry{cls: cls}
		entries[cls.ID] = ce
		return ce
	}
	for _, def := range r.eval.Classes() {
		entry(def.Class)
	}
	for _, m := range r.eval.MethodReports() {
		ce := entry(m.Class)
		ce.methods = append(ce.methods, m)
	}
	for _, iv := range r.eval.InstanceVariables() {
		ce := entry(iv.Class)
		ce.ivars = append(ce.ivars, iv)
	}

	ids := make([]int, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []string
	for _, id := range ids {
		body := r.classBody(entries[id])
		if len(body) == 0 && r.eval.IsBuiltin(entries[id].cls) {
			continue
		}
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, r.classHeader(entries[id].cls))
		for _, line := range body {
			out = append(out, "  "+line)
		}
		out = append(out, "end")
	}
	return out
}

func (r *Result) classHeader(cls *object.Class) string {
	if cls.Kind == object.KindModule {
		return "module " + r.eval.ClassPath(cls)
	}
	header := "class " + r.eval.ClassPath(cls)
	if sup := cls.Superclass; sup != nil && sup.Name != "Object" && !r.eval.IsBuiltin(cls) {
		header += " < " + r.eval.ClassPath(sup)
	}
	return header
}

func (r *Result) classBody(ce *classEntry) []string {
	def := r.eval.Definition(ce.cls)
	builtin := r.eval.IsBuiltin(ce.cls)
	var lines []string

	if !builtin {
		for _, mod := range def.IncludedModules(false) {
			lines = append(lines, "include "+r.eval.ClassPath(mod))
		}
		for _, mod := range def.IncludedModules(true) {
			lines = append(lines, "extend "+r.eval.ClassPath(mod))
		}
	}

	names, consts := def.Constants()
	for _, name := range names {
		if _, ok := consts[name].(*object.Class); ok {
			continue
		}
		lines = append(lines, name+" : "+r.TypeName(consts[name]))
	}

	covered := map[string]bool{}
	for _, attr := range def.Attributes() {
		kind := "attr_accessor"
		switch {
		case attr.Reader && !attr.Writer:
			kind = "attr_reader"
		case attr.Writer && !attr.Reader:
			kind = "attr_writer"
		}
		ivar := "@" + attr.Name
		covered[ivar] = true
		lines = append(lines, fmt.Sprintf("%s %s : %s", kind, attr.Name, r.TypeName(def.IvarType(ivar))))
	}

	for _, iv := range ce.ivars {
		if !iv.Singleton && covered[iv.Name] {
			continue
		}
		name := iv.Name
		if iv.Singleton {
			name = "self." + name
		}
		lines = append(lines, name+" : "+r.TypeName(iv.Type))
	}

	for _, m := range ce.methods {
		name := m.Name
		if m.Singleton {
			name = "self." + name
		}
		lines = append(lines, name+" : "+r.methodSignature(m))
	}
	return lines
}

func (r *Result) methodSignature(m evaluator.MethodReport) string {
	if m.Sig == nil {
		return "-> " + r.returnName(m.Ret)
	}
	var sb strings.Builder
	if params := r.params(m.Sig); params != "" {
		sb.WriteString(params)
		sb.WriteString(" ")
	}
	if blk := r.blockParam(m.Sig.Blk); blk != "" {
		sb.WriteString(blk)
		sb.WriteString(" ")
	}
	sb.WriteString("-> ")
	sb.WriteString(r.returnName(m.Ret))
	return sb.String()
}

func (r *Result) params(sig *object.MethodSignature) string {
	var parts []string
	for _, t := range sig.Lead {
		parts = append(parts, r.TypeName(t))
	}
	for _, t := range sig.Opt {
		parts = append(parts, "?"+r.TypeName(t))
	}
	if sig.Rest != nil {
		parts = append(parts, "*"+r.TypeName(sig.Rest))
	}
	for _, t := range sig.Post {
		parts = append(parts, r.TypeName(t))
	}
	for _, kw := range sig.Keywords {
		p := kw.Name + ": " + r.TypeName(kw.Type)
		if !kw.Required {
			p = "?" + p
		}
		parts = append(parts, p)
	}
	if sig.KwRest != nil {
		parts = append(parts, "**"+r.TypeName(sig.KwRest))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// blockParam renders the block a method receives; "" when it never gets one.
func (r *Result) blockParam(blk object.Type) string {
	if blk == nil {
		return ""
	}
	var procs []*object.Proc
	optional := false
	for _, c := range object.Children(blk) {
		switch c := c.(type) {
		case *object.Proc:
			procs = append(procs, c)
		case *object.Instance:
			if c.Class.Name == "NilClass" {
				optional = true
			}
		}
	}
	if len(procs) == 0 {
		return ""
	}
	args, ret := r.blockSignature(procs)
	s := "{ " + args + "-> " + r.returnName(ret) + " }"
	if optional {
		s = "?" + s
	}
	return s
}

func (r *Result) blockSignature(procs []*object.Proc) (string, object.Type) {
	var merged *object.BlockSignature
	ret := object.Bot
	for _, p := range procs {
		sig, rt, ok := r.eval.BlockSignature(p.Body)
		if !ok {
			continue
		}
		if merged == nil {
			merged = sig
		} else {
			merged = merged.Merge(sig)
		}
		ret = object.Union(ret, rt)
	}
	if merged == nil {
		return "", ret
	}
	var parts []string
	for _, t := range merged.Lead {
		parts = append(parts, r.TypeName(t))
	}
	for _, t := range merged.Opt {
		parts = append(parts, "?"+r.TypeName(t))
	}
	if merged.Rest != nil {
		parts = append(parts, "*"+r.TypeName(merged.Rest))
	}
	if len(parts) == 0 {
		return "", ret
	}
	return "(" + strings.Join(parts, ", ") + ") ", ret
}

func (r *Result) returnName(ty object.Type) string {
	name := r.TypeName(ty)
	if topLevelUnion(name) {
		return "(" + name + ")"
	}
	return name
}

// topLevelUnion reports whether s has a " | " outside any brackets.
func topLevelUnion(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// TypeName renders a type in signature syntax. nil members become a trailing
// "?", true and false become bool, and untyped members are dropped from
// unions unless the result is pedantic.
func (r *Result) TypeName(ty object.Type) string {
	children := object.Children(ty)
	if len(children) == 0 {
		return "bot"
	}

	var (
		names             []string
		procs             []*object.Proc
		optional, hasAny  bool
		hasTrue, hasFalse bool
	)
	for _, c := range children {
		switch c := c.(type) {
		case *object.Instance:
			switch c.Class.Name {
			case "NilClass":
				optional = true
				continue
			case "TrueClass":
				hasTrue = true
				continue
			case "FalseClass":
				hasFalse = true
				continue
			}
		case *object.Proc:
			procs = append(procs, c)
			continue
		}
		if object.IsAny(c) && !object.IsVoid(c) {
			hasAny = true
			continue
		}
		names = append(names, r.memberName(c))
	}

	if len(procs) > 0 {
		args, ret := r.blockSignature(procs)
		names = append(names, "^"+args+"-> "+r.returnName(ret))
	}
	switch {
	case hasTrue && hasFalse:
		names = append(names, "bool")
	case hasTrue:
		names = append(names, "true")
	case hasFalse:
		names = append(names, "false")
	}
	if hasAny && (r.pedantic || len(names) == 0) {
		names = append(names, "untyped")
	}
	sort.Strings(names)

	if !optional {
		return strings.Join(names, " | ")
	}
	switch len(names) {
	case 0:
		return "nil"
	case 1:
		return names[0] + "?"
	default:
		return "(" + strings.Join(names, " | ") + ")?"
	}
}

func (r *Result) memberName(ty object.Type) string {
	switch t := ty.(type) {
	case *object.Class:
		return "singleton(" + r.eval.ClassPath(t) + ")"
	case *object.Instance:
		return r.eval.ClassPath(t.Class)
	case *object.Literal:
		return r.TypeName(t.Base)
	case *object.Symbol:
		return t.Inspect()
	case *object.Array:
		return r.arrayName(t)
	case *object.Hash:
		return r.hashName(t)
	}
	return ty.Inspect()
}

func (r *Result) arrayName(t *object.Array) string {
	base := r.TypeName(t.Base)
	if base != "Array" {
		return base
	}
	elems := t.Elems
	if object.IsBot(elems.Rest) && len(elems.Lead) > 0 {
		parts := make([]string, len(elems.Lead))
		for i, e := range elems.Lead {
			parts[i] = r.TypeName(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "Array[" + r.TypeName(elems.Squash()) + "]"
}

func (r *Result) hashName(t *object.Hash) string {
	base := r.TypeName(t.Base)
	if base != "Hash" {
		return base
	}
	elems := t.Elems
	if elems.Len() == 0 {
		return "Hash[bot, bot]"
	}
	var fields []string
	record := true
	elems.Each(func(k, v object.Type) {
		sym, ok := k.(*object.Symbol)
		if !ok || sym.Dynamic {
			record = false
			return
		}
		fields = append(fields, sym.Name+": "+r.TypeName(v))
	})
	if record {
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return "Hash[" + r.TypeName(elems.SquashKeys()) + ", " + r.TypeName(elems.Squash()) + "]"
}
