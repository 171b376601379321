// Package iseq defines code bodies, the unit of bytecode the analyzer interprets.
//
// A code body is produced by an external decoder (see Load) and is treated as
// immutable once built. Bodies reference each other for method definitions,
// blocks, class bodies and exception handlers.
package iseq

import (
	"fmt"
	"sync/atomic"
)

// Kind is the role of a code body.
type Kind int

const (
	KindTop Kind = iota
	KindMethod
	KindBlock
	KindClass
	KindRescue
	KindEnsure
	KindEval
)

var kindNames = map[Kind]string{
	KindTop:    "top",
	KindMethod: "method",
	KindBlock:  "block",
	KindClass:  "class",
	KindRescue: "rescue",
	KindEnsure: "ensure",
	KindEval:   "eval",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Keyword is a declared keyword parameter.
type Keyword struct {
	Name     string
	Required bool
	Default  *Literal // nil when the default is not a literal
}

// Params is the formal parameter shape of a code body.
// Slot fields are indexes into the local table.
type Params struct {
	LeadNum int
	// OptPCs holds the entry pc for each number of supplied optional
	// parameters, so len(OptPCs) == number of optionals + 1. Nil when the
	// body has no optional parameters.
	OptPCs []int

	HasRest   bool
	RestStart int

	PostNum   int
	PostStart int

	Keywords []Keyword
	KwStart  int

	HasKwRest bool
	KwRest    int

	HasBlock   bool
	BlockStart int
}

// OptNum returns the number of optional parameters.
func (p *Params) OptNum() int {
	if len(p.OptPCs) == 0 {
		return 0
	}
	return len(p.OptPCs) - 1
}

// BodyStartPC returns the pc where every parameter is bound, i.e. the entry
// pc when all optional parameters are supplied.
func (p *Params) BodyStartPC() int {
	if len(p.OptPCs) == 0 {
		return 0
	}
	return p.OptPCs[len(p.OptPCs)-1]
}

// RequiredNum returns the number of positional parameters that must be supplied.
func (p *Params) RequiredNum() int {
	return p.LeadNum + p.PostNum
}

// CatchKind is the kind of a catch-table entry.
type CatchKind int

const (
	CatchRescue CatchKind = iota
	CatchEnsure
	CatchRetry
	CatchBreak
	CatchRedo
	CatchNext
)

var catchNames = map[CatchKind]string{
	CatchRescue: "rescue",
	CatchEnsure: "ensure",
	CatchRetry:  "retry",
	CatchBreak:  "break",
	CatchRedo:   "redo",
	CatchNext:   "next",
}

func (k CatchKind) String() string {
	if s, ok := catchNames[k]; ok {
		return s
	}
	return fmt.Sprintf("CatchKind(%d)", int(k))
}

// CatchEntry is one entry of the static exception-handler table.
type CatchEntry struct {
	Kind       CatchKind
	Body       *CodeBody // handler body, nil for break/next/redo/retry entries
	Cont       int       // continuation pc in the owning body
	StackDepth int
}

// CodeBody is a compiled unit: a method, block, class body, top level or handler.
type CodeBody struct {
	ID     int
	Name   string
	Kind   Kind
	Path   string
	Params Params
	Locals []string
	Insns  []Insn

	// Catch maps a pc to the handler entries covering it.
	Catch map[int][]CatchEntry
}

var nextID atomic.Int64

// New creates an empty code body with a fresh id.
// Ids increase in creation order.
func New(name string, kind Kind, path string) *CodeBody {
	return &CodeBody{
		ID:    int(nextID.Add(1)),
		Name:  name,
		Kind:  kind,
		Path:  path,
		Catch: map[int][]CatchEntry{},
	}
}

// LocalSize returns the number of local slots.
func (b *CodeBody) LocalSize() int {
	return len(b.Locals)
}

// AddCatch registers a handler entry covering the pcs in [from, to).
func (b *CodeBody) AddCatch(from, to int, entry CatchEntry) {
	for pc := from; pc < to; pc++ {
		b.Catch[pc] = append(b.Catch[pc], entry)
	}
}

// SourceLocation returns "path:line" for the instruction at pc.
func (b *CodeBody) SourceLocation(pc int) string {
	line := 0
	if pc >= 0 && pc < len(b.Insns) {
		line = b.Insns[pc].Line
	}
	return fmt.Sprintf("%s:%d", b.Path, line)
}

func (b *CodeBody) String() string {
	return fmt.Sprintf("%s@%s#%d", b.Name, b.Path, b.ID)
}
