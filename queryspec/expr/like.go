package expr

import "strings"

// LikeMatch reports whether value matches a SQL-LIKE pattern: '%' matches
// any run of characters, '_' matches exactly one. Matching is
// case-insensitive, agreeing with the default LIKE collation of the SQL
// backend so in-memory and pushed-down search select the same rows.
func LikeMatch(pattern, value string) bool {
	p := []rune(strings.ToLower(pattern))
	v := []rune(strings.ToLower(value))

	var pi, vi int
	star, mark := -1, 0

	for vi < len(v) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == v[vi]):
			pi++
			vi++
		case pi < len(p) && p[pi] == '%':
			// Remember the wildcard position; try matching zero characters.
			star = pi
			mark = vi
			pi++
		case star >= 0:
			// Backtrack: let the last '%' absorb one more character.
			pi = star + 1
			mark++
			vi = mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
