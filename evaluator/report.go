package evaluator

import (
	"github.com/podhmo/typeprof/iseq"
	"github.com/podhmo/typeprof/object"
)

// MethodReport is the inferred signature of one interpreted method.
type MethodReport struct {
	Class     *object.Class
	Singleton bool
	Name      string
	Location  string
	// Sig is nil when the body was never entered.
	Sig *object.MethodSignature
	Ret object.Type
}

// MethodReports returns the interpreted methods of every class with their
// signatures merged over all analyzed contexts, in definition order.
func (e *Evaluator) MethodReports() []MethodReport {
	var out []MethodReport
	for _, def := range e.classDefs {
		for _, key := range def.methodOrder {
			m := def.methods[key]
			if m.Kind != ISeqMethod {
				continue
			}
			r := MethodReport{Class: def.Class, Singleton: key.singleton, Name: key.mid, Location: m.Location, Ret: object.Bot}
			for _, ctx := range e.methodCtxs[m] {
				if sig, ok := e.methodSigs[ctx.key]; ok {
					if r.Sig == nil {
						r.Sig = sig
					} else {
						r.Sig = r.Sig.Merge(sig)
					}
				}
				if ret, ok := e.returnValues[ctx.key]; ok {
					r.Ret = object.Union(r.Ret, ret)
				}
			}
			out = append(out, r)
		}
	}
	return out
}

// BlockSignature returns the observed arguments and return type of a block.
// ok is false when the block was never called.
func (e *Evaluator) BlockSignature(blk object.BlockBody) (sig *object.BlockSignature, ret object.Type, ok bool) {
	switch b := blk.(type) {
	case *TypedBlock:
		return &object.BlockSignature{Lead: b.Params}, b.Ret, true
	case *SymbolBlock:
		sig, ok = e.blockSigs[b.Hash()]
		return sig, object.Any, ok
	}
	sig, ok = e.blockSigs[blk.Hash()]
	if !ok {
		return nil, object.Bot, false
	}
	ret = object.Bot
	for _, ctx := range e.blockCtxs[blk.Hash()] {
		if r, ok := e.returnValues[ctx.key]; ok {
			ret = object.Union(ret, r)
		}
	}
	return sig, ret, true
}

// RevealedType is the type of a reveal_type argument at one call site.
type RevealedType struct {
	Location string
	Type     object.Type
}

func (e *Evaluator) recordRevealedType(ep *ExecPoint, ty object.Type) {
	loc := ep.SourceLocation()
	if old, ok := e.revealed[loc]; ok {
		e.revealed[loc] = object.Union(old, ty)
		return
	}
	e.revealed[loc] = ty
	e.revealedOrder = append(e.revealedOrder, loc)
}

// RevealedTypes returns the reveal_type observations in first-seen order.
func (e *Evaluator) RevealedTypes() []RevealedType {
	out := make([]RevealedType, len(e.revealedOrder))
	for i, loc := range e.revealedOrder {
		out[i] = RevealedType{Location: loc, Type: e.revealed[loc]}
	}
	return out
}

// ExploredPoints returns the number of distinct program points reached.
func (e *Evaluator) ExploredPoints() int {
	return e.explored.Size()
}

// Executed reports whether body was entered during the run.
func (e *Evaluator) Executed(body *iseq.CodeBody) bool {
	return e.executed.Contains(body.ID)
}

// Definition returns the definition held for a class handle.
func (e *Evaluator) Definition(cls *object.Class) *ClassDef {
	return e.classDef(cls)
}

// IsBuiltin reports whether cls was created by the builtin environment.
func (e *Evaluator) IsBuiltin(cls *object.Class) bool {
	return cls.ID < e.builtin.count
}
