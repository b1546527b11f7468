package slicev

import "iter"

// RO provides read-only access to a slice of type T
type RO[T any] interface {
	// Len returns the number of elements in the slice
	Len() int
	// At returns the element at index i
	At(i int) T
	// Last returns the final element, if any
	Last() (T, bool)
	// CopyTo copies elements to the destination slice
	CopyTo(dst []T) int
	// Clone returns a fresh copy of the underlying elements
	Clone() []T
	// All iterates over index/element pairs in order
	All() iter.Seq2[int, T]
	seal()
}

type ro[T any] struct {
	slice []T
}

// NewRO creates a new read-only wrapper around a slice. The capacity is
// clipped so appends by the owner never alias elements seen through the view.
func NewRO[T any](slice []T) RO[T] {
	return &ro[T]{slice: slice[:len(slice):len(slice)]}
}

func (r *ro[T]) Len() int {
	return len(r.slice)
}

func (r *ro[T]) At(i int) T {
	return r.slice[i]
}

func (r *ro[T]) Last() (T, bool) {
	var zero T
	if len(r.slice) == 0 {
		return zero, false
	}
	return r.slice[len(r.slice)-1], true
}

func (r *ro[T]) CopyTo(dst []T) int {
	return copy(dst, r.slice)
}

func (r *ro[T]) Clone() []T {
	dst := make([]T, len(r.slice))
	copy(dst, r.slice)
	return dst
}

func (r *ro[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range r.slice {
			if !yield(i, v) {
				return
			}
		}
	}
}

func (r *ro[T]) seal() {}
