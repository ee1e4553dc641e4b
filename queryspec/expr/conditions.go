package expr

import "fmt"

// IsEquivalentCondition reports whether two boolean-predicate trees are
// semantically equivalent. It extends Equal with boolean-literal
// normalization, so a condition written as a bare boolean member, its
// negation, or an explicit comparison against a boolean literal matches its
// counterpart in the other idiom:
//
//	b         ~  b == true
//	!b        ~  b == false
//	b != false ~ b == true
//	b != true  ~ b == false
func IsEquivalentCondition(a, b Node) bool {
	return Equal(normalizeCondition(a), normalizeCondition(b))
}

// normalizeCondition canonicalizes boolean-literal idioms in condition
// positions: lambda bodies, AND/OR operands, and negations. Value positions
// (comparison operands, call arguments) are left untouched.
func normalizeCondition(n Node) Node {
	switch v := n.(type) {
	case nil:
		return nil

	case *Lambda:
		if body := normalizeCondition(v.Body); body != v.Body {
			return &Lambda{Param: v.Param, Body: body}
		}
		return v

	case *Binary:
		switch v.Op {
		case OpAnd, OpOr:
			l := normalizeCondition(v.Left)
			r := normalizeCondition(v.Right)
			if l != v.Left || r != v.Right {
				return &Binary{Op: v.Op, Left: l, Right: r}
			}
			return v
		case OpNe:
			if lit, ok := boolLiteral(v.Right); ok {
				return Eq(v.Left, Constant(!lit))
			}
			if lit, ok := boolLiteral(v.Left); ok {
				return Eq(v.Right, Constant(!lit))
			}
		}
		return v

	case *Unary:
		if v.Op == OpNot {
			if isBoolAtom(v.Operand) {
				return Eq(v.Operand, Constant(false))
			}
			if op := normalizeCondition(v.Operand); op != v.Operand {
				return Not(op)
			}
		}
		return v

	case *Member:
		return Eq(v, Constant(true))

	case *Call:
		if isBoolAtom(v) {
			return Eq(v, Constant(true))
		}
		return v
	}
	return n
}

func boolLiteral(n Node) (bool, bool) {
	c, ok := n.(*Const)
	if !ok {
		return false, false
	}
	b, ok := c.Value.(bool)
	return b, ok
}

// isBoolAtom reports whether a node used in condition position is a bare
// boolean-valued access or predicate call.
func isBoolAtom(n Node) bool {
	switch v := n.(type) {
	case *Member:
		return true
	case *Call:
		switch v.Fn {
		case FnContains, FnStartsWith, FnEndsWith, FnLike:
			return true
		}
	}
	return false
}

// RemoveCondition removes a condition from a boolean AND chain. If the tree
// itself is equivalent to the target the result is nil ("no condition"); if
// the target is equivalent to operands of the top-level AND chain the chain
// is rebuilt without them; if the target is not found the tree is returned
// unchanged. Lambda trees are unwrapped, edited, and re-wrapped under the
// same parameter.
func RemoveCondition(tree, target Node) (Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("remove condition: nil tree")
	}
	if target == nil {
		return nil, fmt.Errorf("remove condition: nil target")
	}

	body, wrap := condBody(tree)
	tbody, _ := condBody(target)

	if IsEquivalentCondition(body, tbody) {
		return nil, nil
	}

	conds := Conditions(body)
	kept := make([]Node, 0, len(conds))
	removed := false
	for _, c := range conds {
		if IsEquivalentCondition(c, tbody) {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return tree, nil
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return wrap(JoinAnd(kept)), nil
}

// RemoveConditions applies RemoveCondition for each target in order. An
// empty target list returns the tree unchanged; removing every condition
// yields nil.
func RemoveConditions(tree Node, targets ...Node) (Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("remove conditions: nil tree")
	}
	out := tree
	for _, t := range targets {
		if t == nil {
			return nil, fmt.Errorf("remove conditions: nil target")
		}
		if out == nil {
			continue
		}
		var err error
		out, err = RemoveCondition(out, t)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReplaceCondition substitutes every subtree in condition position that is
// equivalent to oldCond with newCond. If oldCond is not found the tree is
// returned unchanged. A lambda replacement is rebased onto the tree's
// parameter before insertion.
func ReplaceCondition(tree, oldCond, newCond Node) (Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("replace condition: nil tree")
	}
	if oldCond == nil {
		return nil, fmt.Errorf("replace condition: nil old condition")
	}
	if newCond == nil {
		return nil, fmt.Errorf("replace condition: nil new condition")
	}

	body, wrap := condBody(tree)
	oldBody, _ := condBody(oldCond)

	newBody := newCond
	if nl, ok := newCond.(*Lambda); ok {
		newBody = nl.Body
		if tl, ok := tree.(*Lambda); ok {
			rebased, err := ReplaceParameter(nl.Body, nl.Param, tl.Param)
			if err != nil {
				return nil, err
			}
			newBody = rebased
		}
	}

	out, changed := replaceCond(body, oldBody, newBody)
	if !changed {
		return tree, nil
	}
	return wrap(out), nil
}

// replaceCond descends through condition positions (AND/OR operands and
// negations) replacing equivalent subtrees.
func replaceCond(n, old, repl Node) (Node, bool) {
	if n == nil {
		return nil, false
	}
	if IsEquivalentCondition(n, old) {
		return repl, true
	}
	switch v := n.(type) {
	case *Binary:
		if v.Op == OpAnd || v.Op == OpOr {
			l, lc := replaceCond(v.Left, old, repl)
			r, rc := replaceCond(v.Right, old, repl)
			if lc || rc {
				return &Binary{Op: v.Op, Left: l, Right: r}, true
			}
		}
	case *Unary:
		if v.Op == OpNot {
			if op, changed := replaceCond(v.Operand, old, repl); changed {
				return Not(op), true
			}
		}
	}
	return n, false
}

// condBody unwraps a lambda condition to its body, returning a function that
// re-wraps an edited body under the original parameter.
func condBody(n Node) (Node, func(Node) Node) {
	if l, ok := n.(*Lambda); ok {
		return l.Body, func(b Node) Node {
			return &Lambda{Param: l.Param, Body: b}
		}
	}
	return n, func(b Node) Node { return b }
}
