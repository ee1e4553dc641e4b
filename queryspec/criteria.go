package queryspec

import (
	"fmt"

	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// SearchCriterion targets one text member with a SQL-LIKE pattern. The
// group tag controls combination during evaluation: criteria sharing a
// group are ORed together, distinct groups are ANDed. A criterion with no
// selector or an empty pattern is inert and never affects a result.
type SearchCriterion[T any] struct {
	Selector *Selector[T]
	Pattern  string
	Group    int
}

// Inert reports whether the criterion is skipped during evaluation.
func (c SearchCriterion[T]) Inert() bool {
	return c.Selector == nil || c.Pattern == ""
}

// Match reports whether the entity's member value matches the pattern.
// Inert criteria match nothing.
func (c SearchCriterion[T]) Match(v T) bool {
	if c.Inert() {
		return false
	}
	s, ok := c.Selector.Get(v).(string)
	if !ok {
		return false
	}
	return expr.LikeMatch(c.Pattern, s)
}

func (c SearchCriterion[T]) String() string {
	if c.Selector == nil {
		return fmt.Sprintf("<inert> (group %d)", c.Group)
	}
	return fmt.Sprintf("%s LIKE %q (group %d)", c.Selector.Name(), c.Pattern, c.Group)
}

// CriteriaBuilder assembles a search-criteria collection against one
// schema. It is not thread-safe; assemble from a single goroutine.
type CriteriaBuilder[T any] struct {
	schema   *Schema[T]
	criteria []SearchCriterion[T]
}

// NewCriteriaBuilder creates an empty builder over a schema.
func NewCriteriaBuilder[T any](schema *Schema[T]) *CriteriaBuilder[T] {
	return &CriteriaBuilder[T]{schema: schema}
}

// Add appends a criterion for a registered text selector.
func (b *CriteriaBuilder[T]) Add(sel *Selector[T], pattern string, group int) error {
	if sel == nil {
		return fmt.Errorf("add criterion: %w", ErrNilSelector)
	}
	if !sel.Text() {
		return fmt.Errorf("add criterion: %w: %s", ErrNotText, sel.Name())
	}
	b.criteria = append(b.criteria, SearchCriterion[T]{Selector: sel, Pattern: pattern, Group: group})
	return nil
}

// AddMember appends a criterion by member name.
func (b *CriteriaBuilder[T]) AddMember(name, pattern string, group int) error {
	sel, ok := b.schema.Selector(name)
	if !ok {
		return fmt.Errorf("add criterion: %w: %q", ErrUnknownMember, name)
	}
	return b.Add(sel, pattern, group)
}

// AddExpr appends a criterion by member-access lambda.
func (b *CriteriaBuilder[T]) AddExpr(l *expr.Lambda, pattern string, group int) error {
	sel, err := b.schema.SelectorFor(l)
	if err != nil {
		return fmt.Errorf("add criterion: %w", err)
	}
	return b.Add(sel, pattern, group)
}

// AddCriterion appends an explicit triple. Inert triples are kept and
// skipped at evaluation time, so deserialized collections survive intact.
func (b *CriteriaBuilder[T]) AddCriterion(c SearchCriterion[T]) error {
	if c.Selector != nil && !c.Selector.Text() {
		return fmt.Errorf("add criterion: %w: %s", ErrNotText, c.Selector.Name())
	}
	b.criteria = append(b.criteria, c)
	return nil
}

// Remove drops every criterion bound to the selector.
func (b *CriteriaBuilder[T]) Remove(sel *Selector[T]) {
	if sel == nil {
		return
	}
	kept := b.criteria[:0]
	for _, c := range b.criteria {
		if c.Selector == sel {
			continue
		}
		kept = append(kept, c)
	}
	b.criteria = kept
}

// RemoveMember drops every criterion on the named member. An unknown name
// removes nothing.
func (b *CriteriaBuilder[T]) RemoveMember(name string) {
	if sel, ok := b.schema.Selector(name); ok {
		b.Remove(sel)
	}
}

// RemoveExpr drops every criterion whose member the lambda selects.
func (b *CriteriaBuilder[T]) RemoveExpr(l *expr.Lambda) error {
	sel, err := b.schema.SelectorFor(l)
	if err != nil {
		return fmt.Errorf("remove criterion: %w", err)
	}
	b.Remove(sel)
	return nil
}

// RemoveCriterion drops criteria matching the exact triple.
func (b *CriteriaBuilder[T]) RemoveCriterion(c SearchCriterion[T]) {
	kept := b.criteria[:0]
	for _, existing := range b.criteria {
		if existing == c {
			continue
		}
		kept = append(kept, existing)
	}
	b.criteria = kept
}

// Clear empties the collection.
func (b *CriteriaBuilder[T]) Clear() { b.criteria = b.criteria[:0] }

// Criteria snapshots the collection in insertion order.
func (b *CriteriaBuilder[T]) Criteria() []SearchCriterion[T] {
	out := make([]SearchCriterion[T], len(b.criteria))
	copy(out, b.criteria)
	return out
}

// Len reports the number of criteria, inert entries included.
func (b *CriteriaBuilder[T]) Len() int { return len(b.criteria) }
