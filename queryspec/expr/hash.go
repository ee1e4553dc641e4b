package expr

import (
	"fmt"
	"math"
	"time"
)

// FNV-1a constants for tree hashing.
const (
	hashOffset uint64 = 14695981039346656037
	hashPrime  uint64 = 1099511628211
)

// Per-kind seeds keep structurally different nodes from colliding trivially.
const (
	seedParam uint64 = iota + 1
	seedConst
	seedMember
	seedUnary
	seedBinary
	seedCall
	seedLambda
)

// Hash returns a hash that agrees with Equal: trees Equal reports equal hash
// identically. Commutative binary nodes combine child hashes with a wrapping
// sum so swapped operands hash the same; every other kind mixes children in
// fixed order with the node kind in the seed. Parameters hash by declared
// type only, matching their position-based equality.
func Hash(n Node) uint64 {
	if n == nil {
		return 0
	}
	switch v := n.(type) {
	case *Param:
		return mixString(seed(seedParam), string(v.Type))
	case *Const:
		return mix(seed(seedConst), hashValue(v.Value))
	case *Member:
		return mix(mixString(seed(seedMember), v.Name), Hash(v.Target))
	case *Unary:
		return mix(mixString(seed(seedUnary), string(v.Op)), Hash(v.Operand))
	case *Binary:
		h := mixString(seed(seedBinary), string(v.Op))
		l, r := Hash(v.Left), Hash(v.Right)
		if v.Op.Commutative() {
			return mix(h, l+r)
		}
		return mix(mix(h, l), r)
	case *Call:
		h := mixString(seed(seedCall), string(v.Fn))
		for _, a := range v.Args {
			h = mix(h, Hash(a))
		}
		return h
	case *Lambda:
		h := mixString(seed(seedLambda), string(v.Param.Type))
		return mix(h, Hash(v.Body))
	}
	return 0
}

func seed(kind uint64) uint64 {
	return mix(hashOffset, kind)
}

func mix(h, x uint64) uint64 {
	return (h ^ x) * hashPrime
}

func mixString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = (h ^ uint64(s[i])) * hashPrime
	}
	return h
}

// hashValue hashes a constant's value. Values ValuesEqual considers equal
// must hash identically; collisions between unequal values are harmless.
func hashValue(v any) uint64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return mixString(hashOffset, val)
	case bool:
		if val {
			return 1
		}
		return 2
	case int:
		return uint64(int64(val))
	case int64:
		return uint64(val)
	case float64:
		return math.Float64bits(val)
	case time.Time:
		return uint64(val.UnixNano())
	default:
		return mixString(hashOffset, fmt.Sprintf("%v", v))
	}
}
