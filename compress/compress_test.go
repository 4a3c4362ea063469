package compress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionTypeNameRoundTrip(t *testing.T) {
	for _, ct := range []CompressionType{
		Uncompressed, Snappy, Gzip, Brotli, Zstd, Lz4Raw, Lz4Frame, Lz4Hadoop, Lzo, Bz2,
	} {
		name := ct.String()
		assert.NotEqual(t, "unknown", name)
		back, err := GetCompressionType(name)
		require.NoError(t, err)
		assert.Equal(t, ct, back)
	}
}

func TestCompressionTypeNames(t *testing.T) {
	assert.Equal(t, "uncompressed", Uncompressed.String())
	assert.Equal(t, "snappy", Snappy.String())
	assert.Equal(t, "gzip", Gzip.String())
	assert.Equal(t, "brotli", Brotli.String())
	assert.Equal(t, "zstd", Zstd.String())
	assert.Equal(t, "lz4_raw", Lz4Raw.String())
	assert.Equal(t, "lz4", Lz4Frame.String())
	assert.Equal(t, "lz4_hadoop", Lz4Hadoop.String())
	assert.Equal(t, "lzo", Lzo.String())
	assert.Equal(t, "bz2", Bz2.String())
	assert.Equal(t, "unknown", CompressionType(42).String())
}

func TestGetCompressionTypeIsExactMatch(t *testing.T) {
	_, err := GetCompressionType("SNAPPY")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = GetCompressionType("snappy ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = GetCompressionType("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIsAvailable(t *testing.T) {
	for _, ct := range []CompressionType{
		Uncompressed, Snappy, Gzip, Brotli, Zstd, Lz4Raw, Lz4Frame, Lz4Hadoop, Bz2,
	} {
		assert.True(t, IsAvailable(ct), ct.String())
	}
	assert.False(t, IsAvailable(Lzo))
	assert.False(t, IsAvailable(CompressionType(42)))
}

func TestCreateUncompressedReturnsNoCodec(t *testing.T) {
	codec, err := Create(Uncompressed)
	require.NoError(t, err)
	assert.Nil(t, codec)
}

func TestCreateLzoUnimplemented(t *testing.T) {
	_, err := Create(Lzo)
	assert.ErrorIs(t, err, ErrUnimplemented)
}

func TestCreateUnknownTypeInvalid(t *testing.T) {
	_, err := Create(CompressionType(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateRejectsLevelOnLevellessCodec(t *testing.T) {
	for _, ct := range []CompressionType{Snappy, Lz4Hadoop} {
		_, err := Create(ct, WithCompressionLevel(3))
		assert.ErrorIs(t, err, ErrInvalidArgument, ct.String())
	}
}

func TestCreateRejectsOutOfRangeLevels(t *testing.T) {
	for _, tc := range []struct {
		ct    CompressionType
		level int
	}{
		{Gzip, 0}, {Gzip, 10},
		{Brotli, -1}, {Brotli, 12},
		{Zstd, 0}, {Zstd, 23},
		{Lz4Raw, 0}, {Lz4Raw, 10},
		{Lz4Frame, 0}, {Lz4Frame, 10},
		{Bz2, 0}, {Bz2, 10},
	} {
		_, err := Create(tc.ct, WithCompressionLevel(tc.level))
		assert.ErrorIs(t, err, ErrInvalidArgument, "%s level %d", tc.ct, tc.level)
	}
}

func TestSupportsCompressionLevel(t *testing.T) {
	for _, ct := range []CompressionType{Gzip, Brotli, Zstd, Bz2, Lz4Raw, Lz4Frame} {
		assert.True(t, SupportsCompressionLevel(ct), ct.String())
	}
	for _, ct := range []CompressionType{Uncompressed, Snappy, Lz4Hadoop, Lzo} {
		assert.False(t, SupportsCompressionLevel(ct), ct.String())
	}
}

func TestDefaultCompressionLevels(t *testing.T) {
	for _, tc := range []struct {
		ct       CompressionType
		expected int
	}{
		{Gzip, 9}, {Brotli, 8}, {Zstd, 1}, {Lz4Raw, 1}, {Lz4Frame, 1}, {Bz2, 9},
	} {
		level, err := DefaultCompressionLevel(tc.ct)
		require.NoError(t, err, tc.ct.String())
		assert.Equal(t, tc.expected, level, tc.ct.String())
	}
}

func TestCompressionLevelRanges(t *testing.T) {
	for _, ct := range []CompressionType{Gzip, Brotli, Zstd, Lz4Raw, Lz4Frame, Bz2} {
		minLevel, err := MinimumCompressionLevel(ct)
		require.NoError(t, err)
		maxLevel, err := MaximumCompressionLevel(ct)
		require.NoError(t, err)
		defLevel, err := DefaultCompressionLevel(ct)
		require.NoError(t, err)
		assert.LessOrEqual(t, minLevel, defLevel, ct.String())
		assert.LessOrEqual(t, defLevel, maxLevel, ct.String())

		// the boundary levels must be accepted by Create
		_, err = Create(ct, WithCompressionLevel(minLevel))
		assert.NoError(t, err, ct.String())
		_, err = Create(ct, WithCompressionLevel(maxLevel))
		assert.NoError(t, err, ct.String())
	}
}

func TestCompressionLevelQueriesRejectLevellessCodecs(t *testing.T) {
	for _, ct := range []CompressionType{Uncompressed, Snappy, Lz4Hadoop} {
		_, err := MinimumCompressionLevel(ct)
		assert.ErrorIs(t, err, ErrInvalidArgument, ct.String())
		_, err = MaximumCompressionLevel(ct)
		assert.ErrorIs(t, err, ErrInvalidArgument, ct.String())
		_, err = DefaultCompressionLevel(ct)
		assert.ErrorIs(t, err, ErrInvalidArgument, ct.String())
	}
}

func TestCodecReportsConfiguredLevel(t *testing.T) {
	codec, err := Create(Gzip, WithCompressionLevel(3))
	require.NoError(t, err)
	assert.Equal(t, 3, codec.CompressionLevel())
	assert.Equal(t, Gzip, codec.Type())
	assert.Equal(t, "gzip", codec.Name())

	codec, err = Create(Snappy)
	require.NoError(t, err)
	assert.Equal(t, UseDefaultCompressionLevel, codec.CompressionLevel())
}

func TestGzipFormatOptions(t *testing.T) {
	for _, format := range []GzipFormat{GzipFormatGzip, GzipFormatZlib, GzipFormatDeflate} {
		codec, err := Create(Gzip, WithGzipFormat(format))
		require.NoError(t, err)
		assert.Equal(t, Gzip, codec.Type())
	}
	_, err := Create(Gzip, WithGzipFormat(GzipFormat(9)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWindowBitsValidation(t *testing.T) {
	_, err := Create(Gzip, WithWindowBits(8))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Create(Gzip, WithWindowBits(16))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Create(Gzip, WithWindowBits(12))
	assert.NoError(t, err)

	_, err = Create(Brotli, WithWindowBits(9))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Create(Brotli, WithWindowBits(25))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Create(Brotli, WithWindowBits(24))
	assert.NoError(t, err)
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrInvalidArgument, ErrUnimplemented, ErrDataCorruption, ErrResourceExhausted, ErrUnavailable}
	for i, a := range kinds {
		for j, b := range kinds {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b))
		}
	}
}
