// Package sqlgen pushes query specifications down to SQL. The compiler
// emits one parameterized SELECT per specification, shaped so that a SQLite
// backend selects exactly the rows the in-memory pipeline would: LIKE
// carries the pattern search, instr/substr keep the case-sensitive string
// predicates case-sensitive, and the order chain becomes ORDER BY.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

// ErrUnsupported reports an expression with no SQL rendering.
var ErrUnsupported = errors.New("expression not expressible in SQL")

// Compiler compiles specifications over one entity to parameterized SQL.
// Values are always bound through placeholders, never interpolated.
type Compiler[T any] struct {
	schema  *queryspec.Schema[T]
	table   string
	columns map[string]string
}

// NewCompiler creates a compiler targeting a table. Columns default to the
// schema's member names; use MapColumn to rename.
func NewCompiler[T any](schema *queryspec.Schema[T], table string) *Compiler[T] {
	columns := make(map[string]string)
	for _, sel := range schema.Selectors() {
		columns[sel.Name()] = sel.Name()
	}
	return &Compiler[T]{schema: schema, table: table, columns: columns}
}

// MapColumn overrides the column name for one member.
func (c *Compiler[T]) MapColumn(member, column string) error {
	if _, ok := c.schema.Selector(member); !ok {
		return fmt.Errorf("map column: %w: %q", queryspec.ErrUnknownMember, member)
	}
	c.columns[member] = column
	return nil
}

// Columns returns the SELECT column list in schema order.
func (c *Compiler[T]) Columns() []string {
	sels := c.schema.Selectors()
	out := make([]string, len(sels))
	for i, sel := range sels {
		out[i] = c.columns[sel.Name()]
	}
	return out
}

// Compile converts a specification to parameterized SQL.
// Returns (sql, params, error). A nil spec selects everything.
func (c *Compiler[T]) Compile(spec *queryspec.Spec[T]) (string, []any, error) {
	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(c.selectClause())
	b.WriteString(" FROM ")
	b.WriteString(quote(c.table))

	if spec == nil {
		return b.String(), params, nil
	}

	where, whereParams, err := c.whereClause(spec)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	if order := c.orderClause(spec); order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}

	skip, hasSkip := spec.Skip()
	take, hasTake := spec.Take()
	if hasSkip || hasTake {
		// SQLite needs a LIMIT before OFFSET; -1 means unbounded.
		limit := -1
		if hasTake {
			limit = take
		}
		b.WriteString(" LIMIT ?")
		params = append(params, limit)
		if hasSkip && skip > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, skip)
		}
	}

	return b.String(), params, nil
}

func (c *Compiler[T]) selectClause() string {
	cols := c.Columns()
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = quote(col)
	}
	return strings.Join(parts, ", ")
}

// whereClause conjoins the compiled filters with the compiled search
// groups. Either side may be absent.
func (c *Compiler[T]) whereClause(spec *queryspec.Spec[T]) (string, []any, error) {
	var parts []string
	var params []any

	for _, filter := range spec.Filters() {
		sql, filterParams, err := c.compileNode(filter.Body, filter.Param)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		parts = append(parts, sql)
		params = append(params, filterParams...)
	}

	for _, group := range groupCriteria(spec.SearchCriteria()) {
		var alternatives []string
		for _, criterion := range group {
			column, err := c.column(criterion.Selector.Name())
			if err != nil {
				return "", nil, fmt.Errorf("compile search: %w", err)
			}
			alternatives = append(alternatives, column+" LIKE ?")
			params = append(params, criterion.Pattern)
		}
		parts = append(parts, "("+strings.Join(alternatives, " OR ")+")")
	}

	return strings.Join(parts, " AND "), params, nil
}

func (c *Compiler[T]) orderClause(spec *queryspec.Spec[T]) string {
	chain := spec.OrderChain()
	if len(chain) == 0 {
		return ""
	}
	parts := make([]string, len(chain))
	for i, clause := range chain {
		dir := "ASC"
		if clause.Direction == queryspec.Desc {
			dir = "DESC"
		}
		parts[i] = quote(c.columns[clause.Selector.Name()]) + " " + dir
	}
	return strings.Join(parts, ", ")
}

// compileNode renders one expression node. Member accesses must be rooted
// at the filter's own parameter.
func (c *Compiler[T]) compileNode(n expr.Node, p *expr.Param) (string, []any, error) {
	switch v := n.(type) {
	case *expr.Const:
		return "?", []any{v.Value}, nil

	case *expr.Member:
		if v.Target != expr.Node(p) {
			return "", nil, fmt.Errorf("%w: member access %s is not rooted at the parameter", ErrUnsupported, v)
		}
		column, err := c.column(v.Name)
		if err != nil {
			return "", nil, err
		}
		return column, nil, nil

	case *expr.Unary:
		operand, params, err := c.compileNode(v.Operand, p)
		if err != nil {
			return "", nil, err
		}
		switch v.Op {
		case expr.OpNot:
			return "NOT (" + operand + ")", params, nil
		case expr.OpNeg:
			return "-(" + operand + ")", params, nil
		}
		return "", nil, fmt.Errorf("%w: unary operator %q", ErrUnsupported, v.Op)

	case *expr.Binary:
		op, ok := binaryOps[v.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: binary operator %q", ErrUnsupported, v.Op)
		}
		left, leftParams, err := c.compileNode(v.Left, p)
		if err != nil {
			return "", nil, err
		}
		right, rightParams, err := c.compileNode(v.Right, p)
		if err != nil {
			return "", nil, err
		}
		return "(" + left + " " + op + " " + right + ")", append(leftParams, rightParams...), nil

	case *expr.Call:
		return c.compileCall(v, p)

	case *expr.Lambda:
		return "", nil, fmt.Errorf("%w: nested lambda", ErrUnsupported)

	case *expr.Param:
		return "", nil, fmt.Errorf("%w: bare parameter", ErrUnsupported)
	}
	return "", nil, fmt.Errorf("%w: %T", ErrUnsupported, n)
}

var binaryOps = map[expr.BinaryOp]string{
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
	expr.OpEq:  "=",
	expr.OpNe:  "<>",
	expr.OpLt:  "<",
	expr.OpLe:  "<=",
	expr.OpGt:  ">",
	expr.OpGe:  ">=",
	expr.OpAdd: "+",
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
}

// compileCall renders the string functions. The case-sensitive ones go
// through instr/substr because SQLite's LIKE folds ASCII case.
func (c *Compiler[T]) compileCall(call *expr.Call, p *expr.Param) (string, []any, error) {
	args := make([]string, len(call.Args))
	argParams := make([][]any, len(call.Args))
	for i, arg := range call.Args {
		sql, params, err := c.compileNode(arg, p)
		if err != nil {
			return "", nil, err
		}
		args[i] = sql
		argParams[i] = params
	}
	params := func(order ...int) []any {
		var out []any
		for _, i := range order {
			out = append(out, argParams[i]...)
		}
		return out
	}

	switch call.Fn {
	case expr.FnContains:
		return "instr(" + args[0] + ", " + args[1] + ") > 0", params(0, 1), nil
	case expr.FnStartsWith:
		// the needle renders twice: once for the length, once to compare
		return "substr(" + args[0] + ", 1, length(" + args[1] + ")) = " + args[1], params(0, 1, 1), nil
	case expr.FnEndsWith:
		return "substr(" + args[0] + ", -length(" + args[1] + ")) = " + args[1], params(0, 1, 1), nil
	case expr.FnLike:
		return args[0] + " LIKE " + args[1], params(0, 1), nil
	case expr.FnLower:
		return "lower(" + args[0] + ")", params(0), nil
	case expr.FnUpper:
		return "upper(" + args[0] + ")", params(0), nil
	}
	return "", nil, fmt.Errorf("%w: call %q", ErrUnsupported, call.Fn)
}

func (c *Compiler[T]) column(member string) (string, error) {
	column, ok := c.columns[member]
	if !ok {
		return "", fmt.Errorf("%w: %q", queryspec.ErrUnknownMember, member)
	}
	return quote(column), nil
}

// groupCriteria buckets live criteria by group key in first-appearance
// order.
func groupCriteria[T any](criteria []queryspec.SearchCriterion[T]) [][]queryspec.SearchCriterion[T] {
	var keys []int
	byGroup := make(map[int][]queryspec.SearchCriterion[T])
	for _, criterion := range criteria {
		if criterion.Inert() {
			continue
		}
		if _, ok := byGroup[criterion.Group]; !ok {
			keys = append(keys, criterion.Group)
		}
		byGroup[criterion.Group] = append(byGroup[criterion.Group], criterion)
	}
	groups := make([][]queryspec.SearchCriterion[T], 0, len(keys))
	for _, k := range keys {
		groups = append(groups, byGroup[k])
	}
	return groups
}

func quote(name string) string {
	return `"` + name + `"`
}
