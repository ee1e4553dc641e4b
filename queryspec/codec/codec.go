// Package codec round-trips search-criteria collections through JSON. The
// wire form carries member names instead of selector trees; decoding binds
// each name back to its selector through the schema registry, so a decoded
// collection holds the same interned selectors the encoder saw.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// ErrFormat reports a criteria document whose shape is not the expected
// JSON array of member/pattern/group objects.
var ErrFormat = errors.New("malformed criteria document")

// criterionJSON is the wire form of one criterion.
type criterionJSON struct {
	Member  string `json:"member"`
	Pattern string `json:"pattern"`
	Group   int    `json:"group"`
}

// EncodeCriteria serializes a criteria collection as a JSON array. An inert
// criterion with no selector is written with an empty member name so the
// collection survives a round trip unchanged.
func EncodeCriteria[T any](criteria []queryspec.SearchCriterion[T]) ([]byte, error) {
	out := make([]criterionJSON, 0, len(criteria))
	for _, c := range criteria {
		w := criterionJSON{Pattern: c.Pattern, Group: c.Group}
		if c.Selector != nil {
			w.Member = c.Selector.Name()
		}
		out = append(out, w)
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeCriteria parses a criteria document and binds each member name
// against the schema. A non-array top level or an object with unexpected
// fields is a format error; a member name the schema does not know, or one
// registered as non-text, is a binding error. An empty member name decodes
// to an inert criterion.
func DecodeCriteria[T any](schema *queryspec.Schema[T], data []byte) ([]queryspec.SearchCriterion[T], error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode criteria: %w: %v", ErrFormat, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("decode criteria: %w: top level is %v, want array", ErrFormat, tok)
	}

	b := queryspec.NewCriteriaBuilder(schema)
	for dec.More() {
		var w criterionJSON
		if err := dec.Decode(&w); err != nil {
			return nil, fmt.Errorf("decode criteria: %w: %v", ErrFormat, err)
		}

		var sel *queryspec.Selector[T]
		if w.Member != "" {
			s, ok := schema.Selector(w.Member)
			if !ok {
				return nil, fmt.Errorf("decode criteria: %w: %q", queryspec.ErrUnknownMember, w.Member)
			}
			sel = s
		}
		if err := b.AddCriterion(queryspec.SearchCriterion[T]{Selector: sel, Pattern: w.Pattern, Group: w.Group}); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode criteria: %w: %v", ErrFormat, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode criteria: %w: trailing data", ErrFormat)
	}

	return b.Criteria(), nil
}

// Equivalent reports whether two criteria collections agree pairwise:
// same length, same patterns and groups, and selectors whose access trees
// are semantically equal.
func Equivalent[T any](a, b []queryspec.SearchCriterion[T]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Pattern != b[i].Pattern || a[i].Group != b[i].Group {
			return false
		}
		as, bs := a[i].Selector, b[i].Selector
		if (as == nil) != (bs == nil) {
			return false
		}
		if as != nil && !expr.Equal(as.Lambda(), bs.Lambda()) {
			return false
		}
	}
	return true
}
