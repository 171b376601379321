package evaluator

import (
	"github.com/podhmo/typeprof/object"
)

// VarTable holds the flow-insensitive types of instance, class and global
// variables. Readers are remembered and notified when a write widens a type.
type VarTable struct {
	entries map[string]*varEntry
}

type varEntry struct {
	declared bool
	ty       object.Type
	readers  []varReader
	readKeys map[string]int
}

type varReader struct {
	ep  *ExecPoint
	ctn func(ty object.Type, ep *ExecPoint)
}

func newVarTable() *VarTable {
	return &VarTable{entries: map[string]*varEntry{}}
}

func (vt *VarTable) entry(site string) *varEntry {
	ent, ok := vt.entries[site]
	if !ok {
		ent = &varEntry{ty: object.Bot, readKeys: map[string]int{}}
		vt.entries[site] = ent
	}
	return ent
}

// Declare fixes the type of a variable. Later writes must be consistent with it.
func (vt *VarTable) Declare(site string, ty object.Type) {
	ent := vt.entry(site)
	ent.declared = true
	ent.ty = ty
}

// Read registers ctn as a reader at ep and calls it with the current type.
// A second read from the same point replaces the first.
func (vt *VarTable) Read(site string, ep *ExecPoint, ctn func(ty object.Type, ep *ExecPoint)) {
	ent := vt.entry(site)
	if i, ok := ent.readKeys[ep.key]; ok {
		ent.readers[i].ctn = ctn
	} else {
		ent.readKeys[ep.key] = len(ent.readers)
		ent.readers = append(ent.readers, varReader{ep: ep, ctn: ctn})
	}
	ctn(ent.ty, ep)
}

// Write joins ty into the variable and notifies readers when the type grows.
// For a declared variable the type never changes; ok is false when ty is
// inconsistent with the declaration.
func (vt *VarTable) Write(site string, ty object.Type) (ok bool) {
	ent := vt.entry(site)
	if ent.declared {
		return object.Consistent(ty, ent.ty)
	}
	nty := object.Union(ent.ty, ty)
	if nty.Hash() == ent.ty.Hash() {
		return true
	}
	ent.ty = nty
	readers := append([]varReader{}, ent.readers...)
	for _, r := range readers {
		r.ctn(nty, r.ep)
	}
	return true
}

// Type returns the current type of the variable, Bot if never written.
func (vt *VarTable) Type(site string) object.Type {
	if ent, ok := vt.entries[site]; ok {
		return ent.ty
	}
	return object.Bot
}

// Each calls fn for every written or declared variable.
func (vt *VarTable) Each(fn func(site string, ty object.Type, declared bool)) {
	for site, ent := range vt.entries {
		if ent.declared || !object.IsBot(ent.ty) {
			fn(site, ent.ty, ent.declared)
		}
	}
}
