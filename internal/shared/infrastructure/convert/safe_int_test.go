package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("converts in range", func(t *testing.T) {
		v, err := IntToUint32(65536)
		require.NoError(t, err)
		assert.Equal(t, uint32(65536), v)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("rejects overflow", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		assert.Error(t, err)
	})
}

func TestIntToUint8(t *testing.T) {
	v, err := IntToUint8(255)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), v)

	_, err = IntToUint8(256)
	assert.Error(t, err)
	_, err = IntToUint8(-3)
	assert.Error(t, err)
}

func TestIntToInt32Clamped(t *testing.T) {
	assert.Equal(t, int32(42), IntToInt32Clamped(42))
	assert.Equal(t, int32(math.MaxInt32), IntToInt32Clamped(math.MaxInt32+1))
	assert.Equal(t, int32(math.MinInt32), IntToInt32Clamped(math.MinInt32-1))
}
