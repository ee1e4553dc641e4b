package queryspec

import "errors"

// Contract violations surface at the mutation that caused them, never at
// evaluation time. Callers can match these with errors.Is.
var (
	ErrNilPredicate   = errors.New("nil predicate")
	ErrNilSelector    = errors.New("nil selector")
	ErrDuplicateOrder = errors.New("duplicate order selector")
	ErrNegativeBound  = errors.New("negative pagination bound")
	ErrUnknownMember  = errors.New("unknown member")
	ErrNotText        = errors.New("not a text member")
)
