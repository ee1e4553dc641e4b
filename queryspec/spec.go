package queryspec

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// Spec describes which entities to select: conjoined filter predicates,
// grouped search criteria, an ordering chain, a result window, and a
// read-mode hint. A spec is assembled by a single caller, optionally
// serialized, then handed to the evaluator pipeline, which only reads it.
// Mutation is not synchronized; concurrent assembly needs external locking.
type Spec[T any] struct {
	schema   *Schema[T]
	filters  []*expr.Lambda
	orders   []OrderClause[T]
	search   *CriteriaBuilder[T]
	skip     *int
	take     *int
	readOnly bool
}

// New creates an empty specification over a schema.
func New[T any](schema *Schema[T]) *Spec[T] {
	return &Spec[T]{schema: schema, search: NewCriteriaBuilder(schema)}
}

// Schema returns the schema the spec was built against.
func (s *Spec[T]) Schema() *Schema[T] { return s.schema }

// Where appends a filter predicate. Filters combine conjunctively;
// insertion order is preserved for inspection and removal but does not
// change the result.
func (s *Spec[T]) Where(pred *expr.Lambda) error {
	if pred == nil {
		return fmt.Errorf("where: %w", ErrNilPredicate)
	}
	s.filters = append(s.filters, pred)
	return nil
}

// WhereFunc builds a predicate against a fresh parameter and appends it.
func (s *Spec[T]) WhereFunc(build func(x *expr.Param) expr.Node) error {
	return s.Where(s.schema.Predicate(build))
}

// Filters snapshots the filter list in insertion order.
func (s *Spec[T]) Filters() []*expr.Lambda {
	out := make([]*expr.Lambda, len(s.filters))
	copy(out, s.filters)
	return out
}

// RemoveWhere removes every filter operand equivalent to target. Filters
// whose last operand goes are dropped from the list entirely.
func (s *Spec[T]) RemoveWhere(target expr.Node) error {
	if target == nil {
		return fmt.Errorf("remove where: %w", ErrNilPredicate)
	}
	kept := s.filters[:0]
	for _, f := range s.filters {
		out, err := expr.RemoveCondition(f, target)
		if err != nil {
			return fmt.Errorf("remove where: %w", err)
		}
		if out == nil {
			continue
		}
		l, ok := out.(*expr.Lambda)
		if !ok {
			return fmt.Errorf("remove where: filter lost its binder")
		}
		kept = append(kept, l)
	}
	s.filters = kept
	return nil
}

// ReplaceWhere substitutes newCond for every filter operand equivalent to
// oldCond. Filters without a match are left alone.
func (s *Spec[T]) ReplaceWhere(oldCond, newCond expr.Node) error {
	if oldCond == nil || newCond == nil {
		return fmt.Errorf("replace where: %w", ErrNilPredicate)
	}
	for i, f := range s.filters {
		out, err := expr.ReplaceCondition(f, oldCond, newCond)
		if err != nil {
			return fmt.Errorf("replace where: %w", err)
		}
		l, ok := out.(*expr.Lambda)
		if !ok {
			return fmt.Errorf("replace where: filter lost its binder")
		}
		s.filters[i] = l
	}
	return nil
}

// OrderBy appends an ascending sort key. Each selector may appear once in
// the chain; a duplicate errors at insertion, not at evaluation.
func (s *Spec[T]) OrderBy(sel *Selector[T]) error { return s.addOrder(sel, Asc, false) }

// OrderByDescending appends a descending sort key.
func (s *Spec[T]) OrderByDescending(sel *Selector[T]) error { return s.addOrder(sel, Desc, false) }

// ThenBy appends a subordinate ascending key; the chain must already have
// a primary key.
func (s *Spec[T]) ThenBy(sel *Selector[T]) error { return s.addOrder(sel, Asc, true) }

// ThenByDescending appends a subordinate descending key.
func (s *Spec[T]) ThenByDescending(sel *Selector[T]) error { return s.addOrder(sel, Desc, true) }

func (s *Spec[T]) addOrder(sel *Selector[T], dir Direction, subordinate bool) error {
	if sel == nil {
		return fmt.Errorf("order by: %w", ErrNilSelector)
	}
	if subordinate && len(s.orders) == 0 {
		return fmt.Errorf("order by: then-by requires a primary sort key")
	}
	p := s.schema.Param()
	tree := sel.Tree(p)
	for _, o := range s.orders {
		if expr.Equal(o.Selector.Tree(p), tree) {
			return fmt.Errorf("order by: %w: %s", ErrDuplicateOrder, sel.Name())
		}
	}
	s.orders = append(s.orders, OrderClause[T]{Selector: sel, Direction: dir})
	return nil
}

// OrderChain snapshots the ordering chain, primary key first.
func (s *Spec[T]) OrderChain() []OrderClause[T] {
	out := make([]OrderClause[T], len(s.orders))
	copy(out, s.orders)
	return out
}

// Search adds a search criterion on a text member. Criteria in the same
// group are ORed; groups are ANDed together.
func (s *Spec[T]) Search(sel *Selector[T], pattern string, group int) error {
	return s.search.Add(sel, pattern, group)
}

// Criteria returns the spec's criteria builder for direct manipulation.
func (s *Spec[T]) Criteria() *CriteriaBuilder[T] { return s.search }

// SearchCriteria snapshots the criteria collection.
func (s *Spec[T]) SearchCriteria() []SearchCriterion[T] { return s.search.Criteria() }

// SetSkip sets how many leading elements the result window drops.
// Negative values are rejected.
func (s *Spec[T]) SetSkip(n int) error {
	if n < 0 {
		return fmt.Errorf("skip: %w: %d", ErrNegativeBound, n)
	}
	s.skip = &n
	return nil
}

// Skip reports the configured skip, if any.
func (s *Spec[T]) Skip() (int, bool) {
	if s.skip == nil {
		return 0, false
	}
	return *s.skip, true
}

// ClearSkip removes the skip bound.
func (s *Spec[T]) ClearSkip() { s.skip = nil }

// SetTake caps how many elements the result window keeps. Negative values
// are rejected.
func (s *Spec[T]) SetTake(n int) error {
	if n < 0 {
		return fmt.Errorf("take: %w: %d", ErrNegativeBound, n)
	}
	s.take = &n
	return nil
}

// Take reports the configured take, if any.
func (s *Spec[T]) Take() (int, bool) {
	if s.take == nil {
		return 0, false
	}
	return *s.take, true
}

// ClearTake removes the take bound.
func (s *Spec[T]) ClearTake() { s.take = nil }

// SetReadOnly marks results as exempt from mutation tracking. The hint
// passes through the pipeline untouched; only a storage collaborator acts
// on it.
func (s *Spec[T]) SetReadOnly(readOnly bool) { s.readOnly = readOnly }

// ReadOnly reports the read-mode hint.
func (s *Spec[T]) ReadOnly() bool { return s.readOnly }

// String renders a one-line description of the specification.
func (s *Spec[T]) String() string {
	var b strings.Builder
	b.WriteString(string(s.schema.Entity()))
	for _, f := range s.filters {
		b.WriteString(" where ")
		b.WriteString(f.Body.String())
	}
	for i, c := range s.search.Criteria() {
		if i == 0 {
			b.WriteString(" search")
		} else {
			b.WriteString(",")
		}
		b.WriteString(" ")
		b.WriteString(c.String())
	}
	for i, o := range s.orders {
		if i == 0 {
			b.WriteString(" order")
		} else {
			b.WriteString(",")
		}
		b.WriteString(" ")
		b.WriteString(o.String())
	}
	if s.skip != nil {
		fmt.Fprintf(&b, " skip %d", *s.skip)
	}
	if s.take != nil {
		fmt.Fprintf(&b, " take %d", *s.take)
	}
	if s.readOnly {
		b.WriteString(" read-only")
	}
	return b.String()
}
