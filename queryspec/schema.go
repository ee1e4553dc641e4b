// Package queryspec models declarative query specifications: the filters,
// search criteria, ordering, and result window that describe which entities
// a caller wants. A specification is plain data; turning it into a result is
// the evaluator pipeline's job.
package queryspec

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// Selector reads one member off an entity and can replay that access as an
// expression tree. Selectors are interned by their schema, so two lookups
// of the same member return the same pointer and compare with ==.
type Selector[T any] struct {
	name   string
	entity expr.Type
	get    func(T) any
	text   bool
}

// Name returns the dotted member path the selector reads.
func (s *Selector[T]) Name() string { return s.name }

// Get extracts the member value from an entity.
func (s *Selector[T]) Get(v T) any { return s.get(v) }

// Text reports whether the member is a string, making it eligible for
// search criteria.
func (s *Selector[T]) Text() bool { return s.text }

// Tree replays the member access as an expression rooted at p.
func (s *Selector[T]) Tree(p *expr.Param) expr.Node { return expr.AccessPath(p, s.name) }

// Lambda wraps the member access in a fresh single-parameter lambda.
func (s *Selector[T]) Lambda() *expr.Lambda {
	p := expr.NewParam("x", s.entity)
	return expr.Bind(p, s.Tree(p))
}

func (s *Selector[T]) String() string { return string(s.entity) + "." + s.name }

// Schema declares the members of an entity type that specifications may
// reference. It doubles as the registry serialization uses to re-bind
// member names to selector trees, so no reflection is involved anywhere.
// Build a schema once at definition time; it is read-only afterwards.
type Schema[T any] struct {
	entity expr.Type
	fields map[string]*Selector[T]
	names  []string
}

// NewSchema creates an empty schema for the named entity type.
func NewSchema[T any](entity expr.Type) *Schema[T] {
	return &Schema[T]{entity: entity, fields: make(map[string]*Selector[T])}
}

// Entity returns the declared entity type name.
func (s *Schema[T]) Entity() expr.Type { return s.entity }

// Field registers a member under its dotted path and returns its selector.
// Registering a path twice is a programming error and panics.
func (s *Schema[T]) Field(name string, get func(T) any) *Selector[T] {
	return s.register(name, get, false)
}

// TextField registers a string member. Only text members may carry search
// patterns.
func (s *Schema[T]) TextField(name string, get func(T) string) *Selector[T] {
	return s.register(name, func(v T) any { return get(v) }, true)
}

func (s *Schema[T]) register(name string, get func(T) any, text bool) *Selector[T] {
	if name == "" {
		panic("queryspec: empty member name")
	}
	if _, ok := s.fields[name]; ok {
		panic(fmt.Sprintf("queryspec: member %q registered twice on %s", name, s.entity))
	}
	sel := &Selector[T]{name: name, entity: s.entity, get: get, text: text}
	s.fields[name] = sel
	s.names = append(s.names, name)
	return sel
}

// Selector looks up a registered member by its dotted path.
func (s *Schema[T]) Selector(name string) (*Selector[T], bool) {
	sel, ok := s.fields[name]
	return sel, ok
}

// Selectors lists registered selectors in registration order.
func (s *Schema[T]) Selectors() []*Selector[T] {
	out := make([]*Selector[T], 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.fields[n])
	}
	return out
}

// Param creates a fresh parameter of the entity type.
func (s *Schema[T]) Param() *expr.Param { return expr.NewParam("x", s.entity) }

// Predicate builds a single-parameter predicate lambda. The build function
// receives the bound parameter and returns the body.
func (s *Schema[T]) Predicate(build func(x *expr.Param) expr.Node) *expr.Lambda {
	p := s.Param()
	return expr.Bind(p, build(p))
}

// Resolver adapts an entity to the evaluator's member lookup. The empty
// member path resolves to the entity itself.
func (s *Schema[T]) Resolver(v T) expr.Resolver {
	return func(member string) (any, error) {
		if member == "" {
			return v, nil
		}
		sel, ok := s.fields[member]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", s.entity, ErrUnknownMember, member)
		}
		return sel.get(v), nil
	}
}

// SelectorFor maps a member-access lambda back to its registered selector.
// The lambda body must be a member chain rooted at the lambda's own
// parameter, the shape Selector.Lambda produces.
func (s *Schema[T]) SelectorFor(l *expr.Lambda) (*Selector[T], error) {
	if l == nil {
		return nil, fmt.Errorf("selector for: %w", ErrNilSelector)
	}
	var names []string
	n := l.Body
	for {
		switch v := n.(type) {
		case *expr.Member:
			names = append(names, v.Name)
			n = v.Target
		case *expr.Param:
			if v != l.Param {
				return nil, fmt.Errorf("selector for: member access is not rooted at the lambda parameter")
			}
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			name := strings.Join(names, ".")
			sel, ok := s.fields[name]
			if !ok {
				return nil, fmt.Errorf("%s: %w: %q", s.entity, ErrUnknownMember, name)
			}
			return sel, nil
		default:
			return nil, fmt.Errorf("selector for: expected a member access, found %T", n)
		}
	}
}
