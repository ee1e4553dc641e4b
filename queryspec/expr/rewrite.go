package expr

import "fmt"

// Walk visits n and its children in pre-order. Returning false from visit
// skips the node's children.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case *Param, *Const:
	case *Member:
		Walk(v.Target, visit)
	case *Unary:
		Walk(v.Operand, visit)
	case *Binary:
		Walk(v.Left, visit)
		Walk(v.Right, visit)
	case *Call:
		for _, a := range v.Args {
			Walk(a, visit)
		}
	case *Lambda:
		Walk(v.Param, visit)
		Walk(v.Body, visit)
	}
}

// Rewrite rebuilds the tree bottom-up, applying f to every node after its
// children have been rewritten. Unchanged subtrees are shared, not copied.
// Lambda binder slots are not rewritten; use Rebind to change a lambda's
// parameter.
func Rewrite(n Node, f func(Node) Node) Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *Param, *Const:
		return f(n)
	case *Member:
		if t := Rewrite(v.Target, f); t != v.Target {
			n = &Member{Target: t, Name: v.Name}
		}
		return f(n)
	case *Unary:
		if op := Rewrite(v.Operand, f); op != v.Operand {
			n = &Unary{Op: v.Op, Operand: op}
		}
		return f(n)
	case *Binary:
		l := Rewrite(v.Left, f)
		r := Rewrite(v.Right, f)
		if l != v.Left || r != v.Right {
			n = &Binary{Op: v.Op, Left: l, Right: r}
		}
		return f(n)
	case *Call:
		var args []Node
		for i, a := range v.Args {
			ra := Rewrite(a, f)
			if args == nil && ra != a {
				args = make([]Node, i, len(v.Args))
				copy(args, v.Args[:i])
			}
			if args != nil {
				args = append(args, ra)
			}
		}
		if args != nil {
			n = &Call{Fn: v.Fn, Args: args}
		}
		return f(n)
	case *Lambda:
		if body := Rewrite(v.Body, f); body != v.Body {
			n = &Lambda{Param: v.Param, Body: body}
		}
		return f(n)
	}
	return f(n)
}

// ReplaceParameter returns a copy of the tree with every occurrence of old
// (by pointer identity) replaced by repl. The replacement's declared type
// must match the parameter's when it is determinable.
func ReplaceParameter(n Node, old *Param, repl Node) (Node, error) {
	if n == nil {
		return nil, fmt.Errorf("replace parameter: nil tree")
	}
	if old == nil {
		return nil, fmt.Errorf("replace parameter: nil parameter")
	}
	if repl == nil {
		return nil, fmt.Errorf("replace parameter: nil replacement")
	}
	if rp, ok := repl.(*Param); ok && rp.Type != old.Type {
		return nil, fmt.Errorf("replace parameter: type mismatch: %s != %s", rp.Type, old.Type)
	}
	if _, ok := repl.(*Lambda); ok {
		return nil, fmt.Errorf("replace parameter: replacement must be a value tree, not a lambda")
	}

	out := Rewrite(n, func(m Node) Node {
		if p, ok := m.(*Param); ok && p == old {
			return repl
		}
		return m
	})
	return out, nil
}

// Rebind rebases a lambda's body onto a new parameter of the same declared
// type, so independently built lambdas can share one parameter.
func Rebind(l *Lambda, p *Param) (*Lambda, error) {
	if l == nil {
		return nil, fmt.Errorf("rebind: nil lambda")
	}
	if p == nil {
		return nil, fmt.Errorf("rebind: nil parameter")
	}
	if p.Type != l.Param.Type {
		return nil, fmt.Errorf("rebind: type mismatch: %s != %s", p.Type, l.Param.Type)
	}
	body, err := ReplaceParameter(l.Body, l.Param, p)
	if err != nil {
		return nil, err
	}
	return &Lambda{Param: p, Body: body}, nil
}

// Conditions flattens a top-level AND chain into its operands, in order.
// Non-AND trees are a single-element chain.
func Conditions(n Node) []Node {
	if n == nil {
		return nil
	}
	if b, ok := n.(*Binary); ok && b.Op == OpAnd {
		return append(Conditions(b.Left), Conditions(b.Right)...)
	}
	return []Node{n}
}

// JoinAnd rebuilds an AND chain from its operands, left-associated. Nil
// operands are dropped; an empty list yields nil.
func JoinAnd(conds []Node) Node {
	var out Node
	for _, c := range conds {
		if c == nil {
			continue
		}
		if out == nil {
			out = c
		} else {
			out = And(out, c)
		}
	}
	return out
}
