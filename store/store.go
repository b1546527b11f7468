// Package store holds the graph variables that sit next to the conversation:
// keys without a reducer, where a later write replaces the earlier value.
package store

import (
	"sync"
	"sync/atomic"
)

// vars may be shared between stores (a node update is merged into the run
// state), so IDs are allocated globally
var nextID int64

// Store is a heterogeneous key-value map with overwrite semantics.
type Store interface {
	// RO returns a read-only view of the Store.
	RO() StoreRO
	vars() *sync.Map
}

type store struct {
	varsMap *sync.Map
}

func (s *store) vars() *sync.Map {
	return s.varsMap
}

// NewStore creates an empty Store.
func NewStore() Store {
	return &store{varsMap: &sync.Map{}}
}

// Var is a typed handle for one value in a Store.
type Var[T any] struct {
	id   int64
	name string
}

// FreshVar creates a new Var with a unique ID. The name is only used for
// diagnostics.
func FreshVar[T any](name string) Var[T] {
	return Var[T]{id: atomic.AddInt64(&nextID, 1), name: name}
}

func (v Var[T]) Name() string {
	return v.name
}

// Get retrieves the value of a Var. The second return value reports whether
// the variable is bound.
func Get[T any](r Store, v Var[T]) (T, bool) {
	var valT T

	val, found := r.vars().Load(v.id)
	if !found {
		return valT, false
	}

	valT, ok := val.(T)
	if !ok {
		panic("Get: store type assertion failed for " + v.name)
	}

	return valT, true
}

// Set binds v to val, replacing any previous value.
func Set[T any](r Store, v Var[T], val T) {
	r.vars().Store(v.id, val)
}

// Merge copies every binding of src into dst, overwriting values dst already
// holds for the same Var. It returns the number of bindings copied.
func Merge(dst, src Store) int {
	if src == nil {
		return 0
	}

	n := 0
	src.vars().Range(func(k, v any) bool {
		dst.vars().Store(k, v)
		n++
		return true
	})

	return n
}

// StoreRO is a read-only view of a Store.
type StoreRO interface {
	store() Store
}

type storeRO struct {
	r Store
}

func (s *storeRO) store() Store {
	return s.r
}

func (r *store) RO() StoreRO {
	return &storeRO{r: r}
}

// GetRO retrieves the value of a Var through a read-only view.
func GetRO[T any](r StoreRO, v Var[T]) (T, bool) {
	return Get(r.store(), v)
}
