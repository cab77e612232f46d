package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	src := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "ds/a", src))
	require.NoError(t, store.Put(ctx, "ds/b", []byte("b")))
	src[0] = 'x'

	got, err := ReadAll(ctx, store, "ds/a")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))

	b, err := store.Open(ctx, "ds/a")
	require.NoError(t, err)
	r, err := b.ReadRange(ctx, 8, 10)
	require.NoError(t, err)
	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "89", string(tail))

	names, err := store.List(ctx, "ds/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ds/a", "ds/b"}, names)

	require.NoError(t, store.Delete(ctx, "ds/a"))
	_, err = store.Open(ctx, "ds/a")
	assert.ErrorIs(t, err, ErrNotFound)
}
