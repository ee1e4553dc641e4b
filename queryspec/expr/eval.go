package expr

import (
	"fmt"
	"strings"
)

// Resolver supplies the value of a dotted member path on the bound entity.
// The empty path resolves to the entity itself.
type Resolver func(member string) (any, error)

// Eval evaluates a tree against a resolver. Comparisons use CompareValues,
// AND/OR short-circuit, and string predicates operate on string values only.
func Eval(n Node, resolve Resolver) (any, error) {
	if n == nil {
		return nil, fmt.Errorf("eval: nil node")
	}
	if resolve == nil {
		return nil, fmt.Errorf("eval: nil resolver")
	}

	switch v := n.(type) {
	case *Param:
		return resolve("")

	case *Const:
		return v.Value, nil

	case *Member:
		path, err := memberPath(v)
		if err != nil {
			return nil, err
		}
		return resolve(path)

	case *Unary:
		switch v.Op {
		case OpNot:
			b, err := evalBool(v.Operand, resolve)
			if err != nil {
				return nil, err
			}
			return !b, nil
		case OpNeg:
			val, err := Eval(v.Operand, resolve)
			if err != nil {
				return nil, err
			}
			switch x := val.(type) {
			case int:
				return int64(-x), nil
			case int64:
				return -x, nil
			case float64:
				return -x, nil
			}
			return nil, fmt.Errorf("eval: cannot negate %T", val)
		}
		return nil, fmt.Errorf("eval: unknown unary operator %q", v.Op)

	case *Binary:
		return evalBinary(v, resolve)

	case *Call:
		return evalCall(v, resolve)

	case *Lambda:
		return nil, fmt.Errorf("eval: cannot evaluate a lambda; evaluate its body")
	}

	return nil, fmt.Errorf("eval: unknown node %T", n)
}

// EvalPredicate evaluates a predicate lambda's body and coerces the result
// to a boolean.
func EvalPredicate(l *Lambda, resolve Resolver) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("eval: nil predicate")
	}
	return evalBool(l.Body, resolve)
}

func evalBool(n Node, resolve Resolver) (bool, error) {
	val, err := Eval(n, resolve)
	if err != nil {
		return false, err
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("eval: %s is not a boolean (got %T)", n, val)
	}
	return b, nil
}

func evalBinary(v *Binary, resolve Resolver) (any, error) {
	// Logical connectives short-circuit.
	switch v.Op {
	case OpAnd:
		l, err := evalBool(v.Left, resolve)
		if err != nil {
			return nil, err
		}
		if !l {
			return false, nil
		}
		return evalBool(v.Right, resolve)
	case OpOr:
		l, err := evalBool(v.Left, resolve)
		if err != nil {
			return nil, err
		}
		if l {
			return true, nil
		}
		return evalBool(v.Right, resolve)
	}

	left, err := Eval(v.Left, resolve)
	if err != nil {
		return nil, err
	}
	right, err := Eval(v.Right, resolve)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case OpEq:
		return CompareValues(left, right) == 0, nil
	case OpNe:
		return CompareValues(left, right) != 0, nil
	case OpLt:
		return CompareValues(left, right) < 0, nil
	case OpLe:
		return CompareValues(left, right) <= 0, nil
	case OpGt:
		return CompareValues(left, right) > 0, nil
	case OpGe:
		return CompareValues(left, right) >= 0, nil
	case OpAdd, OpSub, OpMul, OpDiv:
		return evalArith(v.Op, left, right)
	}
	return nil, fmt.Errorf("eval: unknown binary operator %q", v.Op)
}

func evalArith(op BinaryOp, left, right any) (any, error) {
	if l, lok := asInt64(left); lok {
		if r, rok := asInt64(right); rok {
			switch op {
			case OpAdd:
				return l + r, nil
			case OpSub:
				return l - r, nil
			case OpMul:
				return l * r, nil
			case OpDiv:
				if r == 0 {
					return nil, fmt.Errorf("eval: division by zero")
				}
				return l / r, nil
			}
		}
	}
	l, lok := asFloat64(left)
	r, rok := asFloat64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("eval: %q requires numeric operands, got %T and %T", op, left, right)
	}
	switch op {
	case OpAdd:
		return l + r, nil
	case OpSub:
		return l - r, nil
	case OpMul:
		return l * r, nil
	case OpDiv:
		if r == 0 {
			return nil, fmt.Errorf("eval: division by zero")
		}
		return l / r, nil
	}
	return nil, fmt.Errorf("eval: unknown arithmetic operator %q", op)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func evalCall(v *Call, resolve Resolver) (any, error) {
	want := 2
	if v.Fn == FnLower || v.Fn == FnUpper {
		want = 1
	}
	if len(v.Args) != want {
		return nil, fmt.Errorf("eval: %s requires %d arguments, got %d", v.Fn, want, len(v.Args))
	}

	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		val, err := Eval(a, resolve)
		if err != nil {
			return nil, err
		}
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("eval: %s argument %d is not a string (got %T)", v.Fn, i, val)
		}
		args[i] = s
	}

	switch v.Fn {
	case FnContains:
		return strings.Contains(args[0], args[1]), nil
	case FnStartsWith:
		return strings.HasPrefix(args[0], args[1]), nil
	case FnEndsWith:
		return strings.HasSuffix(args[0], args[1]), nil
	case FnLike:
		return LikeMatch(args[1], args[0]), nil
	case FnLower:
		return strings.ToLower(args[0]), nil
	case FnUpper:
		return strings.ToUpper(args[0]), nil
	}
	return nil, fmt.Errorf("eval: unknown function %q", v.Fn)
}

// memberPath flattens a member chain rooted at a parameter into a dotted
// path.
func memberPath(m *Member) (string, error) {
	var names []string
	n := Node(m)
	for {
		switch t := n.(type) {
		case *Member:
			names = append(names, t.Name)
			n = t.Target
		case *Param:
			// Reverse into root-first order.
			for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
				names[i], names[j] = names[j], names[i]
			}
			return strings.Join(names, "."), nil
		default:
			return "", fmt.Errorf("eval: member access must be rooted at a parameter, found %T", n)
		}
	}
}
