package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, kind := range []Kind{KindBruteForce, KindIVF, KindSketch} {
		t.Run(string(kind), func(t *testing.T) {
			b, err := New(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, b.Kind())
			assert.Equal(t, 0, b.Len())
		})
	}

	_, err := New("hnsw")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("sketch")
	require.NoError(t, err)
	assert.Equal(t, KindSketch, k)

	_, err = ParseKind("nope")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestRouting(t *testing.T) {
	bf, err := NewBruteForce()
	require.NoError(t, err)
	assert.Equal(t, 0, bf.Routing(10, SearchOptions{NProbe: 3}))

	ivf := NewIVF()
	assert.Equal(t, DefaultNProbe, ivf.Routing(10, SearchOptions{}))
	assert.Equal(t, 3, ivf.Routing(10, SearchOptions{NProbe: 3}))

	sk, err := NewSketch()
	require.NoError(t, err)
	assert.Equal(t, 100, sk.Routing(10, SearchOptions{}))
	assert.Equal(t, 7, sk.Routing(10, SearchOptions{C: 7}))
}
