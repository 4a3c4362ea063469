package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderRoundTrip(t *testing.T) {
	data := compressibleBytes(200000)
	for _, spec := range []codecSpec{
		{"gzip", Gzip, nil},
		{"zstd", Zstd, nil},
		{"lz4-frame", Lz4Frame, nil},
		{"bz2", Bz2, nil},
	} {
		t.Run(spec.name, func(t *testing.T) {
			codec, err := Create(spec.ct, spec.opts...)
			require.NoError(t, err)
			comp, err := codec.NewCompressor()
			require.NoError(t, err)
			compressed := streamCompress(t, comp, data, 8192, 0)
			require.NoError(t, comp.Close())

			r, err := NewReader(bytes.NewReader(compressed), spec.ct)
			require.NoError(t, err)
			out, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, out)
			require.NoError(t, r.Close())
		})
	}
}

func TestReaderConcatenatedGzipMembers(t *testing.T) {
	codec, err := Create(Gzip)
	require.NoError(t, err)

	first := []byte("hello from the first member\n")
	second := []byte("and the second one\n")
	dst := make([]byte, 256)
	n1, err := codec.Compress(dst, first)
	require.NoError(t, err)
	n2, err := codec.Compress(dst[n1:], second)
	require.NoError(t, err)

	r, err := NewReader(bytes.NewReader(dst[:n1+n2]), Gzip)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, first...), second...), out)
	require.NoError(t, r.Close())
}

func TestReaderUncompressedPassThrough(t *testing.T) {
	data := []byte("plain bytes")
	r, err := NewReader(bytes.NewReader(data), Uncompressed)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	require.NoError(t, r.Close())
}

func TestDetectCompressionType(t *testing.T) {
	data := compressibleBytes(1000)
	for _, spec := range []codecSpec{
		{"gzip", Gzip, nil},
		{"zstd", Zstd, nil},
		{"lz4-frame", Lz4Frame, nil},
	} {
		t.Run(spec.name, func(t *testing.T) {
			codec, err := Create(spec.ct)
			require.NoError(t, err)
			dst := make([]byte, codec.MaxCompressedLen(len(data)))
			n, err := codec.Compress(dst, data)
			require.NoError(t, err)
			assert.Equal(t, spec.ct, DetectCompressionType(dst[:n]))
		})
	}

	assert.Equal(t, Bz2, DetectCompressionType([]byte("BZh91AY&SY")))
	assert.Equal(t, Uncompressed, DetectCompressionType([]byte("name,age\n")))
	assert.Equal(t, Uncompressed, DetectCompressionType([]byte{0x1f}))
	assert.Equal(t, Uncompressed, DetectCompressionType(nil))
}
