package eval

import "sort"

// filterIterator yields only the elements its keep function accepts.
type filterIterator[T any] struct {
	source Iterator[T]
	keep   func(T) (bool, error)
	err    error
}

func newFilterIterator[T any](source Iterator[T], keep func(T) (bool, error)) *filterIterator[T] {
	return &filterIterator[T]{source: source, keep: keep}
}

// Next advances to the next element that passes the filter
func (it *filterIterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	for it.source.Next() {
		ok, err := it.keep(it.source.Value())
		if err != nil {
			it.err = err
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// Value returns the current element
func (it *filterIterator[T]) Value() T { return it.source.Value() }

// Err returns the first filter or source failure
func (it *filterIterator[T]) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.source.Err()
}

// Close releases the underlying iterator
func (it *filterIterator[T]) Close() error { return it.source.Close() }

// offsetIterator discards a fixed number of leading elements.
type offsetIterator[T any] struct {
	source  Iterator[T]
	skip    int
	skipped bool
}

func newOffsetIterator[T any](source Iterator[T], skip int) *offsetIterator[T] {
	return &offsetIterator[T]{source: source, skip: skip}
}

// Next advances past the offset and then one element at a time
func (it *offsetIterator[T]) Next() bool {
	if !it.skipped {
		it.skipped = true
		for i := 0; i < it.skip; i++ {
			if !it.source.Next() {
				return false
			}
		}
	}
	return it.source.Next()
}

func (it *offsetIterator[T]) Value() T     { return it.source.Value() }
func (it *offsetIterator[T]) Err() error   { return it.source.Err() }
func (it *offsetIterator[T]) Close() error { return it.source.Close() }

// limitIterator stops after yielding a fixed number of elements.
type limitIterator[T any] struct {
	source Iterator[T]
	left   int
}

func newLimitIterator[T any](source Iterator[T], limit int) *limitIterator[T] {
	return &limitIterator[T]{source: source, left: limit}
}

// Next advances until the limit is exhausted
func (it *limitIterator[T]) Next() bool {
	if it.left <= 0 {
		return false
	}
	if !it.source.Next() {
		it.left = 0
		return false
	}
	it.left--
	return true
}

func (it *limitIterator[T]) Value() T     { return it.source.Value() }
func (it *limitIterator[T]) Err() error   { return it.source.Err() }
func (it *limitIterator[T]) Close() error { return it.source.Close() }

// sortIterator materializes its source on first use and replays it in
// comparator order. Ties keep their source order so subordinate sort keys
// compose.
type sortIterator[T any] struct {
	source Iterator[T]
	less   func(a, b T) bool
	items  []T
	pos    int
	loaded bool
	err    error
}

func newSortIterator[T any](source Iterator[T], less func(a, b T) bool) *sortIterator[T] {
	return &sortIterator[T]{source: source, less: less, pos: -1}
}

// Next loads and sorts the source once, then advances through it
func (it *sortIterator[T]) Next() bool {
	if !it.loaded {
		it.loaded = true
		for it.source.Next() {
			it.items = append(it.items, it.source.Value())
		}
		if err := it.source.Err(); err != nil {
			it.err = err
			return false
		}
		sort.SliceStable(it.items, func(i, j int) bool {
			return it.less(it.items[i], it.items[j])
		})
	}
	if it.err != nil || it.pos+1 >= len(it.items) {
		return false
	}
	it.pos++
	return true
}

// Value returns the current element
func (it *sortIterator[T]) Value() T { return it.items[it.pos] }

// Err returns the first failure from loading the source
func (it *sortIterator[T]) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.source.Err()
}

// Close releases the underlying iterator
func (it *sortIterator[T]) Close() error { return it.source.Close() }
