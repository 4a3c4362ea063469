package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	lz4MinCompressionLevel     = 1
	lz4MaxCompressionLevel     = 9
	lz4DefaultCompressionLevel = 1
)

var lz4Levels = [...]lz4.CompressionLevel{
	1: lz4.Level1, 2: lz4.Level2, 3: lz4.Level3, 4: lz4.Level4,
	5: lz4.Level5, 6: lz4.Level6, 7: lz4.Level7, 8: lz4.Level8,
	9: lz4.Level9,
}

func lz4MapErr(prefix string, err error) error {
	switch {
	case errors.Is(err, lz4.ErrInvalidFrame),
		errors.Is(err, lz4.ErrInvalidHeaderChecksum),
		errors.Is(err, lz4.ErrInvalidBlockChecksum),
		errors.Is(err, lz4.ErrInvalidFrameChecksum),
		errors.Is(err, lz4.ErrInvalidSourceShortBuffer),
		errors.Is(err, io.ErrUnexpectedEOF):
		return codecError(ErrDataCorruption, prefix, err)
	}
	return codecError(ErrUnavailable, prefix, err)
}

// compressRawBlock compresses src as a single LZ4 raw block into dst.
// CompressBlock reports incompressible input as zero bytes written; those
// inputs are stored as a literal-only block so the output is always a
// valid raw block.
func compressRawBlock(dst, src []byte, level int) (int, error) {
	var (
		n   int
		err error
	)
	if level <= lz4MinCompressionLevel {
		var c lz4.Compressor
		n, err = c.CompressBlock(src, dst)
	} else {
		c := lz4.CompressorHC{Level: lz4Levels[level]}
		n, err = c.CompressBlock(src, dst)
	}
	if err != nil {
		return 0, codecError(ErrInvalidArgument, "output buffer too small", err)
	}
	if n == 0 && len(src) > 0 {
		return encodeLiteralBlock(dst, src)
	}
	if n == 0 {
		return encodeLiteralBlock(dst, nil)
	}
	return n, nil
}

// encodeLiteralBlock emits src as one literal-only LZ4 sequence.
func encodeLiteralBlock(dst, src []byte) (int, error) {
	n := len(src)
	ext := 0
	if n >= 15 {
		ext = (n-15)/255 + 1
	}
	if len(dst) < 1+ext+n {
		return 0, fmt.Errorf("%w: output buffer too small for literal block", ErrInvalidArgument)
	}
	i := 1
	if n < 15 {
		dst[0] = byte(n) << 4
	} else {
		dst[0] = 0xf0
		rem := n - 15
		for ; rem >= 255; rem -= 255 {
			dst[i] = 0xff
			i++
		}
		dst[i] = byte(rem)
		i++
	}
	copy(dst[i:], src)
	return i + n, nil
}

func decompressRawBlock(dst, src []byte) (int, error) {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return 0, codecError(ErrDataCorruption, "corrupt input", err)
	}
	return n, nil
}

// lz4RawCodec is the bare block format without any framing. The block
// carries neither its compressed nor decompressed size, so only the
// one-shot API is supported.
type lz4RawCodec struct {
	level int
}

func newLz4RawCodec(level int) (Codec, error) {
	c := &lz4RawCodec{level: level}
	if level == UseDefaultCompressionLevel {
		c.level = lz4DefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *lz4RawCodec) Type() CompressionType { return Lz4Raw }
func (c *lz4RawCodec) Name() string          { return Lz4Raw.String() }
func (c *lz4RawCodec) CompressionLevel() int { return c.level }

func (c *lz4RawCodec) MinimumCompressionLevel() int { return lz4MinCompressionLevel }
func (c *lz4RawCodec) MaximumCompressionLevel() int { return lz4MaxCompressionLevel }
func (c *lz4RawCodec) DefaultCompressionLevel() int { return lz4DefaultCompressionLevel }

func (c *lz4RawCodec) MaxCompressedLen(n int) int {
	return lz4.CompressBlockBound(n)
}

func (c *lz4RawCodec) Compress(dst, src []byte) (int, error) {
	return compressRawBlock(dst, src, c.level)
}

func (c *lz4RawCodec) Decompress(dst, src []byte) (int, error) {
	return decompressRawBlock(dst, src)
}

func (c *lz4RawCodec) NewCompressor() (Compressor, error) {
	return nil, fmt.Errorf("%w: streaming compression unsupported with LZ4 raw format", ErrUnimplemented)
}

func (c *lz4RawCodec) NewDecompressor() (Decompressor, error) {
	return nil, fmt.Errorf("%w: streaming decompression unsupported with LZ4 raw format", ErrUnimplemented)
}

// lz4FrameCodec is the standard LZ4 frame format, the only LZ4 flavor with
// streaming support.
type lz4FrameCodec struct {
	level int
}

func newLz4FrameCodec(level int) (Codec, error) {
	c := &lz4FrameCodec{level: level}
	if level == UseDefaultCompressionLevel {
		c.level = lz4DefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *lz4FrameCodec) Type() CompressionType { return Lz4Frame }
func (c *lz4FrameCodec) Name() string          { return Lz4Frame.String() }
func (c *lz4FrameCodec) CompressionLevel() int { return c.level }

func (c *lz4FrameCodec) MinimumCompressionLevel() int { return lz4MinCompressionLevel }
func (c *lz4FrameCodec) MaximumCompressionLevel() int { return lz4MaxCompressionLevel }
func (c *lz4FrameCodec) DefaultCompressionLevel() int { return lz4DefaultCompressionLevel }

// MaxCompressedLen is the raw block bound plus frame header, end marker
// and per-block length words.
func (c *lz4FrameCodec) MaxCompressedLen(n int) int {
	blocks := n/(4*1024*1024) + 1
	return lz4.CompressBlockBound(n) + 19 + 4*blocks
}

func (c *lz4FrameCodec) newWriter(w io.Writer) (flushWriter, error) {
	zw := lz4.NewWriter(w)
	err := zw.Apply(
		lz4.CompressionLevelOption(lz4Levels[c.level]),
		lz4.ConcurrencyOption(1),
	)
	if err != nil {
		return nil, err
	}
	return zw, nil
}

func (c *lz4FrameCodec) newReader(r io.Reader) (io.Reader, error) {
	return lz4.NewReader(r), nil
}

func (c *lz4FrameCodec) Compress(dst, src []byte) (int, error) {
	return oneShotCompress(dst, src, c.newWriter, lz4MapErr)
}

func (c *lz4FrameCodec) Decompress(dst, src []byte) (int, error) {
	return oneShotDecompress(dst, src, c.newReader, lz4MapErr)
}

func (c *lz4FrameCodec) NewCompressor() (Compressor, error) {
	return newStreamCompressor(c.newWriter, lz4MapErr)
}

func (c *lz4FrameCodec) NewDecompressor() (Decompressor, error) {
	return newStreamDecompressor(c.newReader, lz4MapErr), nil
}

const lz4HadoopPrefixLen = 8

// lz4HadoopCodec is the Hadoop flavor of LZ4: raw blocks, each preceded by
// the big-endian decompressed and compressed sizes. Levels are not
// configurable, matching the Hadoop implementation.
type lz4HadoopCodec struct{}

func newLz4HadoopCodec() Codec {
	return &lz4HadoopCodec{}
}

func (c *lz4HadoopCodec) Type() CompressionType { return Lz4Hadoop }
func (c *lz4HadoopCodec) Name() string          { return Lz4Hadoop.String() }
func (c *lz4HadoopCodec) CompressionLevel() int { return UseDefaultCompressionLevel }

func (c *lz4HadoopCodec) MinimumCompressionLevel() int { return UseDefaultCompressionLevel }
func (c *lz4HadoopCodec) MaximumCompressionLevel() int { return UseDefaultCompressionLevel }
func (c *lz4HadoopCodec) DefaultCompressionLevel() int { return UseDefaultCompressionLevel }

func (c *lz4HadoopCodec) MaxCompressedLen(n int) int {
	return lz4HadoopPrefixLen + lz4.CompressBlockBound(n)
}

func (c *lz4HadoopCodec) Compress(dst, src []byte) (int, error) {
	if len(dst) < lz4HadoopPrefixLen {
		return 0, fmt.Errorf("%w: output buffer too small for size prefix", ErrInvalidArgument)
	}
	n, err := compressRawBlock(dst[lz4HadoopPrefixLen:], src, lz4DefaultCompressionLevel)
	if err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint32(dst[0:4], uint32(len(src)))
	binary.BigEndian.PutUint32(dst[4:8], uint32(n))
	return lz4HadoopPrefixLen + n, nil
}

// Decompress first tries the Hadoop framing and falls back to a bare raw
// block, some writers emit the blocks without the size prefixes.
func (c *lz4HadoopCodec) Decompress(dst, src []byte) (int, error) {
	if n, ok := c.tryDecompressHadoop(dst, src); ok {
		return n, nil
	}
	return decompressRawBlock(dst, src)
}

func (c *lz4HadoopCodec) tryDecompressHadoop(dst, src []byte) (int, bool) {
	total := 0
	for len(src) >= lz4HadoopPrefixLen {
		expectedDecompressed := binary.BigEndian.Uint32(src[0:4])
		expectedCompressed := binary.BigEndian.Uint32(src[4:8])
		src = src[lz4HadoopPrefixLen:]
		if uint32(len(src)) < expectedCompressed {
			return 0, false
		}
		n, err := lz4.UncompressBlock(src[:expectedCompressed], dst)
		if err != nil || uint32(n) != expectedDecompressed {
			return 0, false
		}
		total += n
		dst = dst[n:]
		src = src[expectedCompressed:]
	}
	if len(src) != 0 {
		return 0, false
	}
	return total, true
}

func (c *lz4HadoopCodec) NewCompressor() (Compressor, error) {
	return nil, fmt.Errorf("%w: streaming compression unsupported with LZ4 Hadoop format", ErrUnimplemented)
}

func (c *lz4HadoopCodec) NewDecompressor() (Decompressor, error) {
	return nil, fmt.Errorf("%w: streaming decompression unsupported with LZ4 Hadoop format", ErrUnimplemented)
}
