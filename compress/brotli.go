package compress

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

const (
	brotliMinCompressionLevel     = 0
	brotliMaxCompressionLevel     = 11
	brotliDefaultCompressionLevel = 8

	brotliMinWindowBits     = 10
	brotliMaxWindowBits     = 24
	brotliDefaultWindowBits = 22
)

type brotliCodec struct {
	level      int
	windowBits int
}

func newBrotliCodec(level, windowBits int) (Codec, error) {
	if windowBits == 0 {
		windowBits = brotliDefaultWindowBits
	}
	if windowBits < brotliMinWindowBits || windowBits > brotliMaxWindowBits {
		return nil, fmt.Errorf("%w: window bits %d is outside of [%d, %d]",
			ErrInvalidArgument, windowBits, brotliMinWindowBits, brotliMaxWindowBits)
	}
	c := &brotliCodec{level: level, windowBits: windowBits}
	if level == UseDefaultCompressionLevel {
		c.level = brotliDefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *brotliCodec) Type() CompressionType { return Brotli }
func (c *brotliCodec) Name() string          { return Brotli.String() }
func (c *brotliCodec) CompressionLevel() int { return c.level }

func (c *brotliCodec) MinimumCompressionLevel() int { return brotliMinCompressionLevel }
func (c *brotliCodec) MaximumCompressionLevel() int { return brotliMaxCompressionLevel }
func (c *brotliCodec) DefaultCompressionLevel() int { return brotliDefaultCompressionLevel }

// MaxCompressedLen follows BrotliEncoderMaxCompressedSize.
func (c *brotliCodec) MaxCompressedLen(n int) int {
	if n == 0 {
		return 2
	}
	largeBlocks := n >> 14
	return n + 6 + 4*largeBlocks
}

// mapErr treats every library error as corruption. The underlying writers
// in this package never fail, so decode errors are all that can reach
// this point.
func (c *brotliCodec) mapErr(prefix string, err error) error {
	return codecError(ErrDataCorruption, prefix, err)
}

func (c *brotliCodec) newWriter(w io.Writer) (flushWriter, error) {
	return brotli.NewWriterOptions(w, brotli.WriterOptions{
		Quality: c.level,
		LGWin:   c.windowBits,
	}), nil
}

func (c *brotliCodec) newReader(r io.Reader) (io.Reader, error) {
	return brotli.NewReader(r), nil
}

func (c *brotliCodec) Compress(dst, src []byte) (int, error) {
	return oneShotCompress(dst, src, c.newWriter, c.mapErr)
}

func (c *brotliCodec) Decompress(dst, src []byte) (int, error) {
	return oneShotDecompress(dst, src, c.newReader, c.mapErr)
}

func (c *brotliCodec) NewCompressor() (Compressor, error) {
	return newStreamCompressor(c.newWriter, c.mapErr)
}

func (c *brotliCodec) NewDecompressor() (Decompressor, error) {
	return newStreamDecompressor(c.newReader, c.mapErr), nil
}
