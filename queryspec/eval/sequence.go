// Package eval turns query specifications into transformations over
// deferred sequences. Each stage is a stateless evaluator over one aspect
// of a specification; composing the stages in their fixed order forms the
// full pipeline. Stages never materialize a sequence themselves, so a
// storage collaborator stays in charge of when elements are realized.
package eval

import (
	"errors"
)

// ErrNilSequence reports a stage invoked without a sequence. A nil
// specification is an identity transform, a nil sequence is a contract
// violation.
var ErrNilSequence = errors.New("nil sequence")

// Iterator walks a sequence one element at a time. After Next returns
// false, Err distinguishes a failure from plain exhaustion.
type Iterator[T any] interface {
	// Next advances to the next element
	Next() bool

	// Value returns the current element
	Value() T

	// Err returns the first failure encountered while iterating
	Err() error

	// Close releases any resources
	Close() error
}

// Sequence is a deferred collection handle: transformations stack up
// lazily and run only while an iterator is drained.
type Sequence[T any] interface {
	// Iterator starts a fresh pass over the sequence
	Iterator() Iterator[T]
}

// sliceSequence is the in-memory sequence backing FromSlice.
type sliceSequence[T any] struct {
	items []T
}

// FromSlice wraps a slice as a sequence. The slice is not copied; callers
// must not mutate it while iterating.
func FromSlice[T any](items []T) Sequence[T] {
	return &sliceSequence[T]{items: items}
}

func (s *sliceSequence[T]) Iterator() Iterator[T] {
	return &sliceIterator[T]{items: s.items, pos: -1}
}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

func (it *sliceIterator[T]) Next() bool {
	if it.pos+1 >= len(it.items) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator[T]) Value() T     { return it.items[it.pos] }
func (it *sliceIterator[T]) Err() error   { return nil }
func (it *sliceIterator[T]) Close() error { return nil }

// derived wraps an iterator factory as a sequence. Each Iterator call
// starts an independent pass over the underlying source.
type derived[T any] struct {
	iterate func() Iterator[T]
}

func (d *derived[T]) Iterator() Iterator[T] { return d.iterate() }

// Materialize drains a sequence into a slice.
func Materialize[T any](seq Sequence[T]) ([]T, error) {
	if seq == nil {
		return nil, ErrNilSequence
	}
	it := seq.Iterator()
	defer it.Close()

	var out []T
	for it.Next() {
		out = append(out, it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count drains a sequence and reports its length.
func Count[T any](seq Sequence[T]) (int, error) {
	if seq == nil {
		return 0, ErrNilSequence
	}
	it := seq.Iterator()
	defer it.Close()

	n := 0
	for it.Next() {
		n++
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
