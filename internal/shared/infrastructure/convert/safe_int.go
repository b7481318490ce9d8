// Package convert provides checked integer conversions for configuration
// values that feed fixed-width library parameters.
package convert

import (
	"fmt"
	"math"
)

// IntToUint32 converts v, returning an error when it is negative or too large.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer out of range: %d cannot be converted to uint32", v)
	}
	return uint32(v), nil
}

// IntToUint8 converts v, returning an error when it is outside 0..255.
func IntToUint8(v int) (uint8, error) {
	if v < 0 || v > math.MaxUint8 {
		return 0, fmt.Errorf("integer out of range: %d cannot be converted to uint8", v)
	}
	return uint8(v), nil
}

// IntToInt32Clamped converts v, clamping to the int32 bounds.
func IntToInt32Clamped(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
