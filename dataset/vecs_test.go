package dataset

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbucket/model"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		c      Compression
	}{
		{"base.fvecs", FormatFvecs, CompressionNone},
		{"dir/groundtruth.ivecs.zst", FormatIvecs, CompressionZSTD},
		{"sketches.u8vecs.lz4", FormatU8vecs, CompressionLZ4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c, err := ParseName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
			assert.Equal(t, tt.c, c)
		})
	}

	_, _, err := ParseName("base.bin.zst")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFvecs(t *testing.T) {
	m, err := model.MatrixFromRows([][]float32{{1, 2, 3}, {-1, 0.5, 0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeFvecs(&buf, m))
	assert.Equal(t, 2*(4+12), buf.Len())
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf.Bytes()))

	got, err := DecodeFvecs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestIvecs(t *testing.T) {
	rows := [][]int64{{4, 2}, {-1, 7}}

	var buf bytes.Buffer
	require.NoError(t, EncodeIvecs(&buf, rows))
	got, err := DecodeIvecs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	assert.Error(t, EncodeIvecs(&bytes.Buffer{}, [][]int64{{1, 2}, {3}}))
	assert.Error(t, EncodeIvecs(&bytes.Buffer{}, [][]int64{{1 << 40}}))
}

func TestU8vecs(t *testing.T) {
	s := model.SketchMatrix{Data: []byte{0xff, 0x01, 0x00, 0x80}, Width: 2}

	var buf bytes.Buffer
	require.NoError(t, EncodeU8vecs(&buf, s))
	got, err := DecodeU8vecs(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeCorrupt(t *testing.T) {
	var buf bytes.Buffer
	m, _ := model.MatrixFromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, EncodeFvecs(&buf, m))
	data := buf.Bytes()

	_, err := DecodeFvecs(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = DecodeFvecs(data[:2])
	assert.ErrorIs(t, err, ErrCorrupt)

	bad := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(bad[12:], 1)
	_, err = DecodeFvecs(bad)
	assert.ErrorIs(t, err, ErrCorrupt)

	zero := []byte{0, 0, 0, 0}
	_, err = DecodeIvecs(zero)
	assert.ErrorIs(t, err, ErrCorrupt)

	empty, err := DecodeFvecs(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Rows())
}
