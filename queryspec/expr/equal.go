package expr

// binderPair records corresponding lambda parameters while two trees are
// compared, so parameters match by structural position rather than identity.
type binderPair struct {
	a, b *Param
}

// Equal reports whether two trees compute the same result for all inputs,
// without evaluating either. Node kinds and operators must match exactly;
// commutative binary operators compare operands in given or swapped order;
// constants compare by value; members by name and receiver; parameters by
// structural position, with free parameters interchangeable when their
// declared types agree.
func Equal(a, b Node) bool {
	return equalNodes(a, b, nil)
}

func equalNodes(a, b Node, binders []binderPair) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(binders) == 0 && a == b {
		return true
	}

	switch av := a.(type) {
	case *Param:
		bv, ok := b.(*Param)
		if !ok {
			return false
		}
		// Innermost binder wins; a parameter bound on either side must
		// correspond to its pair on the other.
		for i := len(binders) - 1; i >= 0; i-- {
			if av == binders[i].a || bv == binders[i].b {
				return av == binders[i].a && bv == binders[i].b
			}
		}
		return av.Type == bv.Type

	case *Const:
		bv, ok := b.(*Const)
		return ok && ValuesEqual(av.Value, bv.Value)

	case *Member:
		bv, ok := b.(*Member)
		return ok && av.Name == bv.Name && equalNodes(av.Target, bv.Target, binders)

	case *Unary:
		bv, ok := b.(*Unary)
		return ok && av.Op == bv.Op && equalNodes(av.Operand, bv.Operand, binders)

	case *Binary:
		bv, ok := b.(*Binary)
		if !ok || av.Op != bv.Op {
			return false
		}
		if equalNodes(av.Left, bv.Left, binders) && equalNodes(av.Right, bv.Right, binders) {
			return true
		}
		if av.Op.Commutative() {
			return equalNodes(av.Left, bv.Right, binders) && equalNodes(av.Right, bv.Left, binders)
		}
		return false

	case *Call:
		bv, ok := b.(*Call)
		if !ok || av.Fn != bv.Fn || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !equalNodes(av.Args[i], bv.Args[i], binders) {
				return false
			}
		}
		return true

	case *Lambda:
		bv, ok := b.(*Lambda)
		if !ok || av.Param.Type != bv.Param.Type {
			return false
		}
		return equalNodes(av.Body, bv.Body, append(binders, binderPair{av.Param, bv.Param}))
	}

	return false
}
