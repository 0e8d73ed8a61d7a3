package construct

import "golang.org/x/exp/constraints"

// Roundup rounds n up to the nearest multiple of m.
func Roundup[T constraints.Integer](n, m T) T {
	if m <= 0 {
		return n
	}
	r := n % m
	if r == 0 {
		return n
	}
	return n + m - r
}
