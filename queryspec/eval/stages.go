package eval

import (
	"fmt"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// Stage transforms a sequence according to one aspect of a specification.
// Stages hold no state of their own: everything they need arrives with the
// call, so one stage value can serve any number of concurrent evaluations.
type Stage[T any] interface {
	// Name identifies the stage in traces and errors
	Name() string

	// Evaluate applies the stage's aspect of spec to seq. A nil spec is
	// the identity transform; a nil seq is an error.
	Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error)
}

// FilterEvaluator applies the specification's filter predicates. An element
// survives only when every predicate holds for it.
type FilterEvaluator[T any] struct{}

func (FilterEvaluator[T]) Name() string { return "filter" }

func (e FilterEvaluator[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	if seq == nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNilSequence)
	}
	if spec == nil {
		return seq, nil
	}
	filters := spec.Filters()
	if len(filters) == 0 {
		return seq, nil
	}
	schema := spec.Schema()
	keep := func(v T) (bool, error) {
		resolve := schema.Resolver(v)
		for _, f := range filters {
			ok, err := expr.EvalPredicate(f, resolve)
			if err != nil {
				return false, fmt.Errorf("filter: %w", err)
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	return &derived[T]{iterate: func() Iterator[T] {
		return newFilterIterator(seq.Iterator(), keep)
	}}, nil
}

// SearchEvaluator applies the specification's search criteria. Criteria in
// the same group alternate, distinct groups conjoin: an element survives
// when every group has at least one pattern matching it. Inert criteria do
// not take part, so a specification whose criteria are all inert passes the
// sequence through untouched.
type SearchEvaluator[T any] struct{}

func (SearchEvaluator[T]) Name() string { return "search" }

func (e SearchEvaluator[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	if seq == nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNilSequence)
	}
	if spec == nil {
		return seq, nil
	}
	groups := groupCriteria(spec.SearchCriteria())
	if len(groups) == 0 {
		return seq, nil
	}
	keep := func(v T) (bool, error) {
		for _, group := range groups {
			matched := false
			for _, c := range group {
				if c.Match(v) {
					matched = true
					break
				}
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}
	return &derived[T]{iterate: func() Iterator[T] {
		return newFilterIterator(seq.Iterator(), keep)
	}}, nil
}

// groupCriteria buckets live criteria by group key, keeping groups in the
// order their first member appeared.
func groupCriteria[T any](criteria []queryspec.SearchCriterion[T]) [][]queryspec.SearchCriterion[T] {
	var keys []int
	byGroup := make(map[int][]queryspec.SearchCriterion[T])
	for _, c := range criteria {
		if c.Inert() {
			continue
		}
		if _, ok := byGroup[c.Group]; !ok {
			keys = append(keys, c.Group)
		}
		byGroup[c.Group] = append(byGroup[c.Group], c)
	}
	groups := make([][]queryspec.SearchCriterion[T], 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byGroup[k])
	}
	return groups
}

// OrderEvaluator applies the specification's order chain. The primary key
// sorts the sequence and each subordinate key breaks the ties left by the
// keys before it.
type OrderEvaluator[T any] struct{}

func (OrderEvaluator[T]) Name() string { return "order" }

func (e OrderEvaluator[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	if seq == nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNilSequence)
	}
	if spec == nil {
		return seq, nil
	}
	chain := spec.OrderChain()
	if len(chain) == 0 {
		return seq, nil
	}
	less := func(a, b T) bool {
		for _, clause := range chain {
			cmp := expr.CompareValues(clause.Selector.Get(a), clause.Selector.Get(b))
			if cmp < 0 {
				return clause.Direction != queryspec.Desc
			} else if cmp > 0 {
				return clause.Direction == queryspec.Desc
			}
		}
		return false
	}
	return &derived[T]{iterate: func() Iterator[T] {
		return newSortIterator(seq.Iterator(), less)
	}}, nil
}

// PaginateEvaluator applies the specification's result window. An absent
// skip means start at the first element, an absent take means run to the
// end. A window past the end of the sequence yields an empty sequence, not
// an error.
type PaginateEvaluator[T any] struct{}

func (PaginateEvaluator[T]) Name() string { return "paginate" }

func (e PaginateEvaluator[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	if seq == nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNilSequence)
	}
	if spec == nil {
		return seq, nil
	}
	skip, hasSkip := spec.Skip()
	take, hasTake := spec.Take()
	if !hasSkip && !hasTake {
		return seq, nil
	}
	return &derived[T]{iterate: func() Iterator[T] {
		it := seq.Iterator()
		if hasSkip && skip > 0 {
			it = newOffsetIterator(it, skip)
		}
		if hasTake {
			it = newLimitIterator(it, take)
		}
		return it
	}}, nil
}

// ReadModeEvaluator accounts for the specification's read-only hint. The
// hint changes how a store hands elements out, not which elements appear,
// so the sequence itself passes through untouched.
type ReadModeEvaluator[T any] struct{}

func (ReadModeEvaluator[T]) Name() string { return "read-mode" }

func (e ReadModeEvaluator[T]) Evaluate(seq Sequence[T], spec *queryspec.Spec[T]) (Sequence[T], error) {
	if seq == nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), ErrNilSequence)
	}
	return seq, nil
}
