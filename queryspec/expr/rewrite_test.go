package expr

import (
	"testing"
)

func TestReplaceParameter(t *testing.T) {
	x := NewParam("x", "Company")
	y := NewParam("y", "Company")
	tree := And(Eq(Access(x, "Id"), Constant(int64(1))), Access(x, "Active"))

	t.Run("replaces every occurrence", func(t *testing.T) {
		got, err := ReplaceParameter(tree, x, y)
		if err != nil {
			t.Fatalf("ReplaceParameter failed: %v", err)
		}
		Walk(got, func(n Node) bool {
			if p, ok := n.(*Param); ok && p != y {
				t.Errorf("Expected every parameter to be the replacement, found %v", p)
			}
			return true
		})
	})

	t.Run("leaves the original tree untouched", func(t *testing.T) {
		if _, err := ReplaceParameter(tree, x, y); err != nil {
			t.Fatalf("ReplaceParameter failed: %v", err)
		}
		Walk(tree, func(n Node) bool {
			if p, ok := n.(*Param); ok && p != x {
				t.Errorf("Expected the source tree to keep its parameter, found %v", p)
			}
			return true
		})
	})

	t.Run("substitutes a value tree", func(t *testing.T) {
		got, err := ReplaceParameter(Access(x, "Name"), x, Access(y, "Parent"))
		if err != nil {
			t.Fatalf("ReplaceParameter failed: %v", err)
		}
		if want := "y.Parent.Name"; got.String() != want {
			t.Errorf("Expected %q, got %q", want, got.String())
		}
	})

	t.Run("absent parameter returns the tree unchanged", func(t *testing.T) {
		z := NewParam("z", "Company")
		got, err := ReplaceParameter(tree, z, y)
		if err != nil {
			t.Fatalf("ReplaceParameter failed: %v", err)
		}
		if got != Node(tree) {
			t.Errorf("Expected the original tree back, got %v", got)
		}
	})

	t.Run("type mismatch errors", func(t *testing.T) {
		o := NewParam("o", "Order")
		if _, err := ReplaceParameter(tree, x, o); err == nil {
			t.Error("Expected error for mismatched parameter types")
		}
	})

	t.Run("lambda replacement errors", func(t *testing.T) {
		if _, err := ReplaceParameter(tree, x, Bind(y, Access(y, "Active"))); err == nil {
			t.Error("Expected error for lambda replacement")
		}
	})

	t.Run("nil arguments error", func(t *testing.T) {
		if _, err := ReplaceParameter(nil, x, y); err == nil {
			t.Error("Expected error for nil tree")
		}
		if _, err := ReplaceParameter(tree, nil, y); err == nil {
			t.Error("Expected error for nil parameter")
		}
		if _, err := ReplaceParameter(tree, x, nil); err == nil {
			t.Error("Expected error for nil replacement")
		}
	})
}

func TestRebind(t *testing.T) {
	x := NewParam("x", "Company")
	pred := Bind(x, Gt(Access(x, "Employees"), Constant(int64(10))))

	t.Run("moves the body onto the new parameter", func(t *testing.T) {
		y := NewParam("y", "Company")
		got, err := Rebind(pred, y)
		if err != nil {
			t.Fatalf("Rebind failed: %v", err)
		}
		if got.Param != y {
			t.Errorf("Expected binder %v, got %v", y, got.Param)
		}
		Walk(got.Body, func(n Node) bool {
			if p, ok := n.(*Param); ok && p != y {
				t.Errorf("Expected body to reference the new parameter, found %v", p)
			}
			return true
		})
		if !Equal(got, pred) {
			t.Errorf("Expected rebinding to preserve meaning: %v vs %v", got, pred)
		}
	})

	t.Run("type mismatch errors", func(t *testing.T) {
		if _, err := Rebind(pred, NewParam("o", "Order")); err == nil {
			t.Error("Expected error for mismatched parameter types")
		}
	})

	t.Run("nil arguments error", func(t *testing.T) {
		if _, err := Rebind(nil, x); err == nil {
			t.Error("Expected error for nil lambda")
		}
		if _, err := Rebind(pred, nil); err == nil {
			t.Error("Expected error for nil parameter")
		}
	})
}

func TestConditions(t *testing.T) {
	x := NewParam("x", "Company")
	active, tech, big := companyPreds(x)

	tests := []struct {
		name     string
		tree     Node
		expected []Node
	}{
		{"nil tree", nil, nil},
		{"single condition", tech, []Node{tech}},
		{"left-nested chain", And(And(active, tech), big), []Node{active, tech, big}},
		{"right-nested chain", And(active, And(tech, big)), []Node{active, tech, big}},
		{"or is a single condition", Or(active, tech), []Node{Or(active, tech)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Conditions(tt.tree)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d conditions, got %d", len(tt.expected), len(got))
			}
			for i := range got {
				if !Equal(got[i], tt.expected[i]) {
					t.Errorf("Condition %d: expected %v, got %v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestJoinAnd(t *testing.T) {
	x := NewParam("x", "Company")
	active, tech, big := companyPreds(x)

	tests := []struct {
		name     string
		conds    []Node
		expected Node
	}{
		{"empty list", nil, nil},
		{"single condition", []Node{tech}, tech},
		{"three conditions", []Node{active, tech, big}, And(And(active, tech), big)},
		{"nil operands are dropped", []Node{nil, tech, nil, big}, And(tech, big)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinAnd(tt.conds)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("Expected nil, got %v", got)
				}
				return
			}
			if !Equal(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWalkOrder(t *testing.T) {
	x := NewParam("x", "Company")
	tree := And(Access(x, "Active"), Not(Access(x, "Deleted")))

	var seen []string
	Walk(tree, func(n Node) bool {
		seen = append(seen, n.String())
		return true
	})

	want := []string{
		"(x.Active && !x.Deleted)",
		"x.Active",
		"x",
		"!x.Deleted",
		"x.Deleted",
		"x",
	}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d visits, got %d: %v", len(want), len(seen), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Visit %d: expected %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	x := NewParam("x", "Company")
	tree := And(Access(x, "Active"), Access(x, "Verified"))

	var visits int
	Walk(tree, func(n Node) bool {
		visits++
		_, isBinary := n.(*Binary)
		return isBinary
	})

	// The root plus its two member children; their receivers are skipped.
	if visits != 3 {
		t.Errorf("Expected 3 visits, got %d", visits)
	}
}

func TestRewriteSharesUntouchedSubtrees(t *testing.T) {
	x := NewParam("x", "Company")
	left := Access(x, "Active")
	right := Eq(Access(x, "Industry"), Constant("tech"))
	tree := And(left, right)

	got := Rewrite(tree, func(n Node) Node {
		if c, ok := n.(*Const); ok && c.Value == "tech" {
			return Constant("retail")
		}
		return n
	})

	gb, ok := got.(*Binary)
	if !ok {
		t.Fatalf("Expected a binary root, got %T", got)
	}
	if gb == tree {
		t.Error("Expected a fresh root after rewriting a leaf")
	}
	if gb.Left != Node(left) {
		t.Error("Expected the untouched branch to be shared")
	}
	if want := `(x.Industry == "retail")`; gb.Right.String() != want {
		t.Errorf("Expected %q, got %q", want, gb.Right.String())
	}
}
