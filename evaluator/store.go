package evaluator

import (
	"context"
	"sort"
	"strings"

	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
	"github.com/podhmo/typeprof/scope"
)

// MethodKind tells how a method's behavior is obtained.
type MethodKind int

const (
	// ISeqMethod is analyzed from its code body.
	ISeqMethod MethodKind = iota
	// TypedMethod is described by declared signatures.
	TypedMethod
	// NativeMethod is implemented by a Go function.
	NativeMethod
)

func (k MethodKind) String() string {
	switch k {
	case TypedMethod:
		return "typed"
	case NativeMethod:
		return "native"
	}
	return "iseq"
}

// MethodDef is one method table entry.
type MethodDef struct {
	Kind MethodKind
	Name string

	// ISeqMethod
	Body     *iseq.CodeBody
	CRef     *scope.Scope
	Location string

	// TypedMethod
	Sigs []object.DeclaredSignature

	// NativeMethod
	Native NativeFunc
}

type methodKey struct {
	mid       string
	singleton bool
}

// ClassDef is the store entry of one class or module.
type ClassDef struct {
	Class    *object.Class
	Location string

	// included modules, instance side and singleton side, in include order
	modules [2][]*ClassDef

	consts     map[string]object.Type
	constOrder []string

	methods     map[methodKey]*MethodDef
	methodOrder []methodKey

	ivars *VarTable
	cvars *VarTable

	attrs []Attribute
}

// Attribute is an accessor defined by attr_reader, attr_writer or attr_accessor.
type Attribute struct {
	Name   string
	Reader bool
	Writer bool
}

func newClassDef(cls *object.Class, location string) *ClassDef {
	return &ClassDef{
		Class:    cls,
		Location: location,
		consts:   map[string]object.Type{},
		methods:  map[methodKey]*MethodDef{},
		ivars:    newVarTable(),
		cvars:    newVarTable(),
	}
}

func (d *ClassDef) setMethod(mid string, singleton bool, m *MethodDef) {
	key := methodKey{mid: mid, singleton: singleton}
	if _, ok := d.methods[key]; !ok {
		d.methodOrder = append(d.methodOrder, key)
	}
	d.methods[key] = m
}

func (d *ClassDef) method(mid string, singleton bool) (*MethodDef, bool) {
	if m, ok := d.methods[methodKey{mid: mid, singleton: singleton}]; ok {
		return m, true
	}
	side := 0
	if singleton {
		side = 1
	}
	mods := d.modules[side]
	for i := len(mods) - 1; i >= 0; i-- {
		if m, ok := mods[i].method(mid, false); ok {
			return m, true
		}
	}
	return nil, false
}

func (d *ClassDef) addAttr(name string, reader, writer bool) {
	for i := range d.attrs {
		if d.attrs[i].Name == name {
			d.attrs[i].Reader = d.attrs[i].Reader || reader
			d.attrs[i].Writer = d.attrs[i].Writer || writer
			return
		}
	}
	d.attrs = append(d.attrs, Attribute{Name: name, Reader: reader, Writer: writer})
}

func (d *ClassDef) constant(name string) (object.Type, bool) {
	ty, ok := d.consts[name]
	return ty, ok
}

func (d *ClassDef) include(mod *ClassDef, singleton bool) {
	side := 0
	if singleton {
		side = 1
	}
	for _, m := range d.modules[side] {
		if m == mod {
			return
		}
	}
	d.modules[side] = append(d.modules[side], mod)
}

// newClass registers a class or module named name under cbase. A nil cbase
// creates a root class.
func (e *Evaluator) newClass(cbase *object.Class, name string, kind object.ClassKind, typeParams []string, superclass *object.Class, location string) *object.Class {
	fullName := name
	if cbase != nil && cbase != e.builtin.Object {
		fullName = cbase.Name + "::" + name
	}
	cls := object.NewClass(kind, len(e.classDefs), typeParams, superclass, fullName)
	e.classDefs = append(e.classDefs, newClassDef(cls, location))
	if cbase != nil {
		e.setConstant(cbase, name, cls)
	}
	return cls
}

func (e *Evaluator) classDef(cls *object.Class) *ClassDef {
	return e.classDefs[cls.ID]
}

// lookupClassPath finds a class by its "A::B" path.
func (e *Evaluator) lookupClassPath(path string) *ClassDef {
	cur := e.builtin.Object
	for _, name := range strings.Split(path, "::") {
		if name == "" {
			continue
		}
		ty, ok := e.classDef(cur).constant(name)
		if !ok {
			return nil
		}
		cls, ok := ty.(*object.Class)
		if !ok {
			return nil
		}
		cur = cls
	}
	return e.classDef(cur)
}

// ClassPath returns the display path of a class.
func (e *Evaluator) ClassPath(cls *object.Class) string {
	return cls.Name
}

func (e *Evaluator) setConstant(cbase *object.Class, name string, ty object.Type) {
	def := e.classDef(cbase)
	if _, ok := def.consts[name]; !ok {
		def.constOrder = append(def.constOrder, name)
	}
	def.consts[name] = ty
}

// addConstant binds a constant from a program assignment. Redefinition
// widens the type and is reported.
func (e *Evaluator) addConstant(ctx context.Context, cbase *object.Class, name string, ty object.Type, ep *ExecPoint) {
	def := e.classDef(cbase)
	if old, ok := def.consts[name]; ok {
		if old.Hash() != ty.Hash() {
			if _, isClass := old.(*object.Class); !isClass {
				e.warnf(ctx, ep, "already initialized constant %s", e.constPath(cbase, name))
			}
			ty = object.Union(old, ty)
		}
	}
	if cls, ok := ty.(*object.Class); ok && strings.HasPrefix(cls.Name, "#<") {
		cls.Name = e.constPath(cbase, name)
	}
	e.setConstant(cbase, name, ty)
}

func (e *Evaluator) constPath(cbase *object.Class, name string) string {
	if cbase == e.builtin.Object {
		return name
	}
	return cbase.Name + "::" + name
}

// getConstant looks a constant up in cls and its superclasses.
func (e *Evaluator) getConstant(cls *object.Class, name string) (object.Type, bool) {
	for c := cls; c != nil; c = c.Superclass {
		if ty, ok := e.classDef(c).constant(name); ok {
			return ty, true
		}
	}
	return nil, false
}

// searchConstant resolves a bare constant name lexically, then through the
// innermost class's ancestors, then at the top level.
func (e *Evaluator) searchConstant(cref *scope.Scope, name string) (object.Type, bool) {
	if ty, ok := scope.Lookup(cref, func(cls *object.Class) (object.Type, bool) {
		return e.classDef(cls).constant(name)
	}); ok {
		return ty, true
	}
	if ty, ok := e.getConstant(cref.Class, name); ok {
		return ty, true
	}
	return e.classDef(e.builtin.Object).constant(name)
}

func (e *Evaluator) addISeqMethod(cls *object.Class, mid string, singleton bool, body *iseq.CodeBody, cref *scope.Scope, location string) *MethodDef {
	m := &MethodDef{Kind: ISeqMethod, Name: mid, Body: body, CRef: cref, Location: location}
	e.classDef(cls).setMethod(mid, singleton, m)
	return m
}

// getMethod resolves mid on a class, walking superclasses. Singleton lookups
// that find nothing fall back to the instance methods of Class or Module.
func (e *Evaluator) getMethod(cls *object.Class, singleton bool, mid string) (*MethodDef, bool) {
	for c := cls; c != nil; c = c.Superclass {
		if m, ok := e.classDef(c).method(mid, singleton); ok {
			return m, true
		}
	}
	if singleton {
		meta := e.builtin.Class
		if cls.Kind == object.KindModule {
			meta = e.builtin.Module
		}
		return e.getMethod(meta, false, mid)
	}
	return nil, false
}

// getSuperMethod resolves mid starting above cls.
func (e *Evaluator) getSuperMethod(cls *object.Class, singleton bool, mid string) (*MethodDef, bool) {
	if cls.Superclass == nil {
		if singleton {
			return e.getMethod(e.builtin.Class, false, mid)
		}
		return nil, false
	}
	return e.getMethod(cls.Superclass, singleton, mid)
}

// receiverClass maps a receiver type to the class whose methods apply.
func (e *Evaluator) receiverClass(recv object.Type) (*object.Class, bool, bool) {
	switch t := object.BaseType(recv).(type) {
	case *object.Instance:
		return t.Class, false, true
	case *object.Class:
		return t, true, true
	}
	return nil, false, false
}

func (e *Evaluator) ivarSite(singleton bool, name string) string {
	if singleton {
		return "s:" + name
	}
	return "i:" + name
}

// ivarTable maps a receiver to the table holding its instance variables.
func (e *Evaluator) ivarTable(recv object.Type) (*VarTable, string, bool) {
	cls, singleton, ok := e.receiverClass(recv)
	if !ok {
		return nil, "", false
	}
	return e.classDef(cls).ivars, e.ivarSite(singleton, ""), true
}

func (e *Evaluator) addIvarRead(recv object.Type, name string, ep *ExecPoint, ctn func(object.Type, *ExecPoint)) {
	for _, r := range object.Children(recv) {
		vt, prefix, ok := e.ivarTable(r)
		if !ok {
			ctn(object.Any, ep)
			continue
		}
		vt.Read(prefix+name, ep, ctn)
	}
}

func (e *Evaluator) addIvarWrite(ctx context.Context, recv object.Type, name string, ty object.Type, ep *ExecPoint) {
	for _, r := range object.Children(recv) {
		vt, prefix, ok := e.ivarTable(r)
		if !ok {
			continue
		}
		if !vt.Write(prefix+name, ty) {
			e.warnf(ctx, ep, "inconsistent assignment to %s", name)
		}
	}
}

// InstanceVariable is one entry of the instance variable report.
type InstanceVariable struct {
	Class     *object.Class
	Singleton bool
	Name      string
	Type      object.Type
}

// InstanceVariables returns the inferred instance variables, grouped by class.
func (e *Evaluator) InstanceVariables() []InstanceVariable {
	var out []InstanceVariable
	for _, def := range e.classDefs {
		var ivars []InstanceVariable
		def.ivars.Each(func(site string, ty object.Type, _ bool) {
			singleton := strings.HasPrefix(site, "s:")
			ivars = append(ivars, InstanceVariable{Class: def.Class, Singleton: singleton, Name: site[2:], Type: ty})
		})
		sort.Slice(ivars, func(i, j int) bool {
			if ivars[i].Singleton != ivars[j].Singleton {
				return !ivars[i].Singleton
			}
			return ivars[i].Name < ivars[j].Name
		})
		out = append(out, ivars...)
	}
	return out
}

// GlobalVariable is one entry of the global variable report.
type GlobalVariable struct {
	Name string
	Type object.Type
}

// GlobalVariables returns the program-written global variables sorted by name.
// Variables only declared by the builtin environment are omitted.
func (e *Evaluator) GlobalVariables() []GlobalVariable {
	var out []GlobalVariable
	e.gvars.Each(func(site string, ty object.Type, declared bool) {
		if declared {
			return
		}
		out = append(out, GlobalVariable{Name: site, Type: ty})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Classes returns the classes defined by the analyzed program, in definition order.
func (e *Evaluator) Classes() []*ClassDef {
	return append([]*ClassDef{}, e.classDefs[e.builtin.count:]...)
}

// Superclass returns the superclass, or nil for modules.
func (d *ClassDef) Superclass() *object.Class {
	return d.Class.Superclass
}

// IncludedModules returns the modules included into the instance side (or
// extended onto the singleton side).
func (d *ClassDef) IncludedModules(singleton bool) []*object.Class {
	side := 0
	if singleton {
		side = 1
	}
	out := make([]*object.Class, len(d.modules[side]))
	for i, m := range d.modules[side] {
		out[i] = m.Class
	}
	return out
}

// Constants returns the constant names in definition order with their types.
func (d *ClassDef) Constants() ([]string, map[string]object.Type) {
	return append([]string{}, d.constOrder...), d.consts
}

// Attributes returns the accessors defined on the class in definition order.
func (d *ClassDef) Attributes() []Attribute {
	return append([]Attribute{}, d.attrs...)
}

// IvarType returns the inferred type of an instance-side instance variable.
func (d *ClassDef) IvarType(name string) object.Type {
	return d.ivars.Type("i:" + name)
}
