//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToInt32(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := IntToInt32(-123)
		assert.NoError(t, err)
		assert.Equal(t, int32(-123), got)
	})

	t.Run("valid max int32", func(t *testing.T) {
		got, err := IntToInt32(math.MaxInt32)
		assert.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), got)
	})

	t.Run("invalid too large", func(t *testing.T) {
		_, err := IntToInt32(math.MaxInt32 + 1)
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestInt64ToInt32(t *testing.T) {
	got, err := Int64ToInt32(-1)
	assert.NoError(t, err)
	assert.Equal(t, int32(-1), got)

	_, err = Int64ToInt32(math.MinInt32 - 1)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDimToUint32(t *testing.T) {
	got, err := DimToUint32(128)
	assert.NoError(t, err)
	assert.Equal(t, uint32(128), got)

	_, err = DimToUint32(0)
	assert.ErrorIs(t, err, ErrOverflow)
}
