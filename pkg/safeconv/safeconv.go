// Package safeconv converts between tree-sitter's unsigned offsets and Go ints.
package safeconv

// MaxInt is the largest int on this platform.
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts v, panicking when it does not fit.
// Callers use it for byte offsets and row numbers, which are always small.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}
