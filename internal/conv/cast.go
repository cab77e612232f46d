package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// IntToInt32 converts int to int32 safely.
func IntToInt32(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d cannot be converted to int32", ErrOverflow, v)
	}
	return int32(v), nil
}

// Int64ToInt32 converts int64 to int32 safely.
func Int64ToInt32(v int64) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d cannot be converted to int32", ErrOverflow, v)
	}
	return int32(v), nil
}

// DimToUint32 converts a record dimension to its on-disk header. A
// dimension must be positive and fit int32.
func DimToUint32(dim int) (uint32, error) {
	if dim <= 0 {
		return 0, fmt.Errorf("%w: dimension %d is not positive", ErrOverflow, dim)
	}
	d, err := IntToInt32(dim)
	if err != nil {
		return 0, err
	}
	return uint32(d), nil
}
