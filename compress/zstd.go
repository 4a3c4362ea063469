package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

const (
	zstdMinCompressionLevel     = 1
	zstdMaxCompressionLevel     = 22
	zstdDefaultCompressionLevel = 1
)

// zstdCodec wraps klauspost's zstd in single-goroutine mode, the streaming
// protocol already serializes all access per instance.
type zstdCodec struct {
	level int

	// shared one-shot coders, EncodeAll/DecodeAll are safe for
	// concurrent use
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec(level int) (Codec, error) {
	c := &zstdCodec{level: level}
	if level == UseDefaultCompressionLevel {
		c.level = zstdDefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}

	var err error
	c.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating zstd encoder: %w", ErrInvalidArgument, err)
	}
	c.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating zstd decoder: %w", ErrInvalidArgument, err)
	}
	return c, nil
}

func (c *zstdCodec) Type() CompressionType { return Zstd }
func (c *zstdCodec) Name() string          { return Zstd.String() }
func (c *zstdCodec) CompressionLevel() int { return c.level }

func (c *zstdCodec) MinimumCompressionLevel() int { return zstdMinCompressionLevel }
func (c *zstdCodec) MaximumCompressionLevel() int { return zstdMaxCompressionLevel }
func (c *zstdCodec) DefaultCompressionLevel() int { return zstdDefaultCompressionLevel }

// MaxCompressedLen follows ZSTD_compressBound.
func (c *zstdCodec) MaxCompressedLen(n int) int {
	margin := 0
	if n < 128*1024 {
		margin = (128*1024 - n) >> 11
	}
	return n + (n >> 8) + margin
}

func (c *zstdCodec) mapErr(prefix string, err error) error {
	switch {
	case errors.Is(err, zstd.ErrMagicMismatch),
		errors.Is(err, zstd.ErrCRCMismatch),
		errors.Is(err, zstd.ErrBlockTooSmall),
		errors.Is(err, zstd.ErrWindowSizeExceeded),
		errors.Is(err, zstd.ErrFrameSizeExceeded),
		errors.Is(err, zstd.ErrFrameSizeMismatch),
		errors.Is(err, zstd.ErrDecoderSizeExceeded),
		errors.Is(err, zstd.ErrUnknownDictionary),
		errors.Is(err, io.ErrUnexpectedEOF):
		return codecError(ErrDataCorruption, prefix, err)
	}
	return codecError(ErrUnavailable, prefix, err)
}

func (c *zstdCodec) Compress(dst, src []byte) (int, error) {
	out := c.enc.EncodeAll(src, dst[:0])
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: output buffer too small for %d compressed bytes", ErrInvalidArgument, len(out))
	}
	return len(out), nil
}

func (c *zstdCodec) Decompress(dst, src []byte) (int, error) {
	out, err := c.dec.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, c.mapErr("corrupt input", err)
	}
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: output buffer too small for %d decompressed bytes", ErrInvalidArgument, len(out))
	}
	return len(out), nil
}

func (c *zstdCodec) NewCompressor() (Compressor, error) {
	return newStreamCompressor(func(w io.Writer) (flushWriter, error) {
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.level)),
			zstd.WithEncoderConcurrency(1))
	}, c.mapErr)
}

func (c *zstdCodec) NewDecompressor() (Decompressor, error) {
	return newStreamDecompressor(func(r io.Reader) (io.Reader, error) {
		return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	}, c.mapErr), nil
}
