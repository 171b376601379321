package object

import (
	"sort"
	"strings"
)

// ActualArgs is the abstract argument list of a call site.
type ActualArgs struct {
	Lead []Type
	// Rest is the splatted remainder, nil when the call has no splat.
	Rest Type
	// Keywords maps keyword names to types.
	Keywords map[string]Type
	// KwAny is non-nil when keywords of unknown names may be passed (a
	// double splat of a non-literal hash); it holds their value type.
	KwAny Type
	Blk   Type
}

// KeywordNames returns the keyword names in sorted order.
func (a *ActualArgs) KeywordNames() []string {
	names := make([]string, 0, len(a.Keywords))
	for k := range a.Keywords {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HasKeywords reports whether the call passes keywords.
func (a *ActualArgs) HasKeywords() bool {
	return len(a.Keywords) > 0 || a.KwAny != nil
}

// Globalize returns the arguments with every type globalized against env.
func (a *ActualArgs) Globalize(env *Env, depth int) *ActualArgs {
	out := &ActualArgs{Blk: a.Blk}
	out.Lead = make([]Type, len(a.Lead))
	for i, t := range a.Lead {
		out.Lead[i] = Globalize(t, env, depth)
	}
	if a.Rest != nil {
		out.Rest = Globalize(a.Rest, env, depth)
	}
	if a.Keywords != nil {
		out.Keywords = make(map[string]Type, len(a.Keywords))
		for k, t := range a.Keywords {
			out.Keywords[k] = Globalize(t, env, depth)
		}
	}
	if a.KwAny != nil {
		out.KwAny = Globalize(a.KwAny, env, depth)
	}
	return out
}

// Inspect returns a debugging representation.
func (a *ActualArgs) Inspect() string {
	parts := inspectAll(a.Lead)
	if a.Rest != nil {
		parts = append(parts, "*"+a.Rest.Inspect())
	}
	for _, k := range a.KeywordNames() {
		parts = append(parts, k+": "+a.Keywords[k].Inspect())
	}
	if a.KwAny != nil {
		parts = append(parts, "**"+a.KwAny.Inspect())
	}
	if a.Blk != nil && !IsBot(a.Blk) {
		parts = append(parts, "&"+a.Blk.Inspect())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
