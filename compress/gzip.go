package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const (
	gzipMinCompressionLevel     = 1
	gzipMaxCompressionLevel     = 9
	gzipDefaultCompressionLevel = 9

	gzipMinWindowBits     = 9
	gzipMaxWindowBits     = 15
	gzipDefaultWindowBits = 15
)

// gzipCodec speaks the deflate family in one of three wrappers: gzip
// members, the zlib wrapper or a raw deflate stream.
type gzipCodec struct {
	level      int
	format     GzipFormat
	windowBits int
}

func newGzipCodec(level int, format GzipFormat, windowBits int) (Codec, error) {
	switch format {
	case GzipFormatGzip, GzipFormatZlib, GzipFormatDeflate:
	default:
		return nil, fmt.Errorf("%w: unknown gzip format %d", ErrInvalidArgument, format)
	}
	if windowBits == 0 {
		windowBits = gzipDefaultWindowBits
	}
	if windowBits < gzipMinWindowBits || windowBits > gzipMaxWindowBits {
		return nil, fmt.Errorf("%w: window bits %d is outside of [%d, %d]",
			ErrInvalidArgument, windowBits, gzipMinWindowBits, gzipMaxWindowBits)
	}
	c := &gzipCodec{level: level, format: format, windowBits: windowBits}
	if level == UseDefaultCompressionLevel {
		c.level = gzipDefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *gzipCodec) Type() CompressionType { return Gzip }
func (c *gzipCodec) Name() string          { return Gzip.String() }
func (c *gzipCodec) CompressionLevel() int { return c.level }

func (c *gzipCodec) MinimumCompressionLevel() int { return gzipMinCompressionLevel }
func (c *gzipCodec) MaximumCompressionLevel() int { return gzipMaxCompressionLevel }
func (c *gzipCodec) DefaultCompressionLevel() int { return gzipDefaultCompressionLevel }

// MaxCompressedLen mirrors deflateBound: worst case the stream degrades to
// stored blocks, plus wrapper header and trailer.
func (c *gzipCodec) MaxCompressedLen(n int) int {
	return n + (n >> 12) + (n >> 14) + (n >> 25) + 13 + 18
}

func (c *gzipCodec) newWriter(w io.Writer) (flushWriter, error) {
	switch c.format {
	case GzipFormatZlib:
		return zlib.NewWriterLevel(w, c.level)
	case GzipFormatDeflate:
		return flate.NewWriter(w, c.level)
	default:
		return gzip.NewWriterLevel(w, c.level)
	}
}

// newStreamReader is the reader used by the streaming decompressor. The
// gzip wrapper disables multistream mode so that a member boundary
// surfaces as a finished stream instead of being silently skipped.
func (c *gzipCodec) newStreamReader(r io.Reader) (io.Reader, error) {
	switch c.format {
	case GzipFormatZlib:
		return zlib.NewReader(r)
	case GzipFormatDeflate:
		return flate.NewReader(r), nil
	default:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		zr.Multistream(false)
		return zr, nil
	}
}

// newOneShotReader keeps multistream mode on, one-shot gzip inputs with
// concatenated members decompress as a single unit.
func (c *gzipCodec) newOneShotReader(r io.Reader) (io.Reader, error) {
	switch c.format {
	case GzipFormatZlib:
		return zlib.NewReader(r)
	case GzipFormatDeflate:
		return flate.NewReader(r), nil
	default:
		return gzip.NewReader(r)
	}
}

func (c *gzipCodec) mapErr(prefix string, err error) error {
	var corrupt flate.CorruptInputError
	switch {
	case errors.As(err, &corrupt),
		errors.Is(err, gzip.ErrHeader),
		errors.Is(err, gzip.ErrChecksum),
		errors.Is(err, zlib.ErrHeader),
		errors.Is(err, zlib.ErrChecksum),
		errors.Is(err, io.ErrUnexpectedEOF):
		return codecError(ErrDataCorruption, prefix, err)
	}
	return codecError(ErrUnavailable, prefix, err)
}

func (c *gzipCodec) Compress(dst, src []byte) (int, error) {
	return oneShotCompress(dst, src, c.newWriter, c.mapErr)
}

func (c *gzipCodec) Decompress(dst, src []byte) (int, error) {
	return oneShotDecompress(dst, src, c.newOneShotReader, c.mapErr)
}

func (c *gzipCodec) NewCompressor() (Compressor, error) {
	return newStreamCompressor(c.newWriter, c.mapErr)
}

func (c *gzipCodec) NewDecompressor() (Decompressor, error) {
	return newStreamDecompressor(c.newStreamReader, c.mapErr), nil
}
