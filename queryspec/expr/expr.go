// Package expr provides immutable expression trees for predicates and
// selectors over a single bound parameter, together with the traversal,
// substitution, equality, hashing, and condition-rewriting operations the
// specification model is built on. Trees are never executed directly; they
// are inspected, recombined, and evaluated through a member resolver or
// compiled by a storage collaborator.
package expr

import (
	"fmt"
	"strings"
)

// Type is the declared input type of a parameter, issued by the schema that
// defines the entity. Two parameters are interchangeable only when their
// types match.
type Type string

// Node is the sealed interface implemented by every tree node. Traversals
// type-switch over the concrete kinds; adding a kind requires updating every
// switch.
type Node interface {
	exprNode()
	String() string
}

// BinaryOp identifies a binary operator.
type BinaryOp string

const (
	OpAnd BinaryOp = "&&"
	OpOr  BinaryOp = "||"
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
	OpLt  BinaryOp = "<"
	OpLe  BinaryOp = "<="
	OpGt  BinaryOp = ">"
	OpGe  BinaryOp = ">="
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
)

// Commutative reports whether swapping the operands leaves the result
// unchanged. Strict orderings and subtraction/division are order-sensitive.
func (op BinaryOp) Commutative() bool {
	switch op {
	case OpAnd, OpOr, OpEq, OpNe, OpAdd, OpMul:
		return true
	}
	return false
}

// UnaryOp identifies a unary operator.
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// Fn identifies a built-in call target. The first argument of a call is the
// receiver.
type Fn string

const (
	FnContains   Fn = "contains"
	FnStartsWith Fn = "starts-with"
	FnEndsWith   Fn = "ends-with"
	FnLike       Fn = "like"
	FnLower      Fn = "lower"
	FnUpper      Fn = "upper"
)

// Param is a reference to the bound input parameter. Substitution replaces
// occurrences by pointer identity; equality and hashing treat parameters as
// interchangeable by structural position and declared type.
type Param struct {
	Name string
	Type Type
}

func (*Param) exprNode()        {}
func (p *Param) String() string { return p.Name }

// Const is a literal value.
type Const struct {
	Value any
}

func (*Const) exprNode() {}
func (c *Const) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", c.Value)
}

// Member is a property access on a receiver tree. Receivers chain down to a
// Param for any tree the schema produces.
type Member struct {
	Target Node
	Name   string
}

func (*Member) exprNode()        {}
func (m *Member) String() string { return m.Target.String() + "." + m.Name }

// Unary applies a unary operator to its operand.
type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (*Unary) exprNode()        {}
func (u *Unary) String() string { return string(u.Op) + u.Operand.String() }

// Binary applies a binary operator to two operands.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
}

func (*Binary) exprNode() {}
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

// Call applies a built-in function. Args[0] is the receiver.
type Call struct {
	Fn   Fn
	Args []Node
}

func (*Call) exprNode() {}
func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return string(c.Fn) + "(" + strings.Join(parts, ", ") + ")"
}

// Lambda binds a parameter over a body. Predicates and selectors are lambdas
// whose bodies reference the bound parameter.
type Lambda struct {
	Param *Param
	Body  Node
}

func (*Lambda) exprNode()        {}
func (l *Lambda) String() string { return l.Param.String() + " -> " + l.Body.String() }

// NewParam creates a parameter of the given declared type.
func NewParam(name string, typ Type) *Param {
	return &Param{Name: name, Type: typ}
}

// Constant wraps a literal value.
func Constant(v any) *Const { return &Const{Value: v} }

// Access builds a member access on a receiver.
func Access(target Node, name string) *Member {
	return &Member{Target: target, Name: name}
}

// AccessPath builds a chain of member accesses from a dotted path, e.g.
// "Address.City" becomes target.Address.City.
func AccessPath(target Node, path string) Node {
	n := target
	for _, name := range strings.Split(path, ".") {
		n = &Member{Target: n, Name: name}
	}
	return n
}

// Bind wraps a body under a parameter.
func Bind(p *Param, body Node) *Lambda { return &Lambda{Param: p, Body: body} }

func Not(n Node) *Unary { return &Unary{Op: OpNot, Operand: n} }
func Neg(n Node) *Unary { return &Unary{Op: OpNeg, Operand: n} }

func And(l, r Node) *Binary { return &Binary{Op: OpAnd, Left: l, Right: r} }
func Or(l, r Node) *Binary  { return &Binary{Op: OpOr, Left: l, Right: r} }
func Eq(l, r Node) *Binary  { return &Binary{Op: OpEq, Left: l, Right: r} }
func Ne(l, r Node) *Binary  { return &Binary{Op: OpNe, Left: l, Right: r} }
func Lt(l, r Node) *Binary  { return &Binary{Op: OpLt, Left: l, Right: r} }
func Le(l, r Node) *Binary  { return &Binary{Op: OpLe, Left: l, Right: r} }
func Gt(l, r Node) *Binary  { return &Binary{Op: OpGt, Left: l, Right: r} }
func Ge(l, r Node) *Binary  { return &Binary{Op: OpGe, Left: l, Right: r} }
func Add(l, r Node) *Binary { return &Binary{Op: OpAdd, Left: l, Right: r} }
func Sub(l, r Node) *Binary { return &Binary{Op: OpSub, Left: l, Right: r} }
func Mul(l, r Node) *Binary { return &Binary{Op: OpMul, Left: l, Right: r} }
func Div(l, r Node) *Binary { return &Binary{Op: OpDiv, Left: l, Right: r} }

func Contains(recv, s Node) *Call   { return &Call{Fn: FnContains, Args: []Node{recv, s}} }
func StartsWith(recv, s Node) *Call { return &Call{Fn: FnStartsWith, Args: []Node{recv, s}} }
func EndsWith(recv, s Node) *Call   { return &Call{Fn: FnEndsWith, Args: []Node{recv, s}} }
func Like(recv, pattern Node) *Call { return &Call{Fn: FnLike, Args: []Node{recv, pattern}} }
func Lower(recv Node) *Call         { return &Call{Fn: FnLower, Args: []Node{recv}} }
func Upper(recv Node) *Call         { return &Call{Fn: FnUpper, Args: []Node{recv}} }
