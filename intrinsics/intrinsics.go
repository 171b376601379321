// Package intrinsics provides the layered table of native method
// implementations consulted when builtin classes are bootstrapped.
package intrinsics

import "sort"

// Registry holds registered implementations in a layered stack.
// This allows for temporary implementations to be pushed for a specific run
// and then popped, restoring the previous state.
type Registry[F any] struct {
	layers []map[string]F
}

// New creates a new, empty registry with a single base layer.
func New[F any]() *Registry[F] {
	return &Registry[F]{
		layers: []map[string]F{make(map[string]F)},
	}
}

// Register adds an implementation to the top-most layer of the registry.
// The key is "Class#method" for instance methods and "Class.method" for
// singleton methods (e.g. "Array#<<", "Class.new").
func (r *Registry[F]) Register(key string, fn F) {
	topLayer := r.layers[len(r.layers)-1]
	topLayer[key] = fn
}

// Get retrieves an implementation by its key, searching from the top-most
// layer down to the base layer.
func (r *Registry[F]) Get(key string) (F, bool) {
	for i := len(r.layers) - 1; i >= 0; i-- {
		if fn, ok := r.layers[i][key]; ok {
			return fn, true
		}
	}
	var zero F
	return zero, false
}

// Keys returns every visible key in sorted order.
func (r *Registry[F]) Keys() []string {
	seen := map[string]bool{}
	var keys []string
	for _, layer := range r.layers {
		for k := range layer {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Push adds a new, empty layer to the top of the registry stack.
func (r *Registry[F]) Push() {
	r.layers = append(r.layers, make(map[string]F))
}

// Pop removes the top-most layer from the registry stack.
// It does not remove the base layer.
func (r *Registry[F]) Pop() {
	if len(r.layers) > 1 {
		r.layers = r.layers[:len(r.layers)-1]
	}
}

// SplitKey splits a registry key into its class path, method name and side.
func SplitKey(key string) (class string, method string, singleton bool, ok bool) {
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '#':
			return key[:i], key[i+1:], false, i > 0 && i < len(key)-1
		case '.':
			return key[:i], key[i+1:], true, i > 0 && i < len(key)-1
		}
	}
	return "", "", false, false
}
