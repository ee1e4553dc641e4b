package queryspec

// Direction orders a sort key ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderClause pairs a sort-key selector with a direction. The first clause
// in a chain is the primary key; later clauses break ties in listed order.
type OrderClause[T any] struct {
	Selector  *Selector[T]
	Direction Direction
}

func (c OrderClause[T]) String() string {
	return c.Selector.Name() + " " + string(c.Direction)
}
