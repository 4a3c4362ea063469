package compress

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

const (
	bz2MinCompressionLevel     = 1
	bz2MaxCompressionLevel     = 9
	bz2DefaultCompressionLevel = 9
)

// bz2Codec wraps bzip2. The format has no way to bound the compressed
// size up front, so only the streaming API is supported; the one-shot
// functions report ErrUnimplemented like MaxCompressedLen reports 0.
type bz2Codec struct {
	level int
}

func newBz2Codec(level int) (Codec, error) {
	c := &bz2Codec{level: level}
	if level == UseDefaultCompressionLevel {
		c.level = bz2DefaultCompressionLevel
	} else if err := checkLevelRange(c, level); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *bz2Codec) Type() CompressionType { return Bz2 }
func (c *bz2Codec) Name() string          { return Bz2.String() }
func (c *bz2Codec) CompressionLevel() int { return c.level }

func (c *bz2Codec) MinimumCompressionLevel() int { return bz2MinCompressionLevel }
func (c *bz2Codec) MaximumCompressionLevel() int { return bz2MaxCompressionLevel }
func (c *bz2Codec) DefaultCompressionLevel() int { return bz2DefaultCompressionLevel }

func (c *bz2Codec) MaxCompressedLen(n int) int { return 0 }

func (c *bz2Codec) mapErr(prefix string, err error) error {
	return codecError(ErrDataCorruption, prefix, err)
}

// The bzip2 writer has no sync flush, Flush on a bz2 compressor only
// drains already staged output. Flushed bz2 data is therefore not
// independently decodable, the stream only becomes complete with End.
func (c *bz2Codec) newWriter(w io.Writer) (flushWriter, error) {
	zw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: c.level})
	if err != nil {
		return nil, err
	}
	return nopFlushWriter{zw}, nil
}

func (c *bz2Codec) newReader(r io.Reader) (io.Reader, error) {
	return bzip2.NewReader(r, nil)
}

func (c *bz2Codec) Compress(dst, src []byte) (int, error) {
	return 0, fmt.Errorf("%w: one-shot compression unsupported with bz2", ErrUnimplemented)
}

func (c *bz2Codec) Decompress(dst, src []byte) (int, error) {
	return 0, fmt.Errorf("%w: one-shot decompression unsupported with bz2", ErrUnimplemented)
}

func (c *bz2Codec) NewCompressor() (Compressor, error) {
	return newStreamCompressor(c.newWriter, c.mapErr)
}

func (c *bz2Codec) NewDecompressor() (Decompressor, error) {
	return newStreamDecompressor(c.newReader, c.mapErr), nil
}
