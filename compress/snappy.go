package compress

import (
	"fmt"

	"github.com/golang/snappy"
)

// snappyCodec wraps the snappy block format. Snappy has no compression
// levels and no streaming mode, the one-shot API is all there is.
type snappyCodec struct{}

func newSnappyCodec() Codec {
	return &snappyCodec{}
}

func (c *snappyCodec) Type() CompressionType { return Snappy }
func (c *snappyCodec) Name() string          { return Snappy.String() }
func (c *snappyCodec) CompressionLevel() int { return UseDefaultCompressionLevel }

func (c *snappyCodec) MinimumCompressionLevel() int { return UseDefaultCompressionLevel }
func (c *snappyCodec) MaximumCompressionLevel() int { return UseDefaultCompressionLevel }
func (c *snappyCodec) DefaultCompressionLevel() int { return UseDefaultCompressionLevel }

func (c *snappyCodec) MaxCompressedLen(n int) int {
	return snappy.MaxEncodedLen(n)
}

func (c *snappyCodec) Compress(dst, src []byte) (int, error) {
	if len(dst) < snappy.MaxEncodedLen(len(src)) {
		return 0, fmt.Errorf("%w: output buffer smaller than the maximum encoded length %d",
			ErrInvalidArgument, snappy.MaxEncodedLen(len(src)))
	}
	return len(snappy.Encode(dst, src)), nil
}

func (c *snappyCodec) Decompress(dst, src []byte) (int, error) {
	decodedLen, err := snappy.DecodedLen(src)
	if err != nil {
		return 0, codecError(ErrDataCorruption, "corrupt input", err)
	}
	if decodedLen > len(dst) {
		return 0, fmt.Errorf("%w: output buffer too small for %d decompressed bytes",
			ErrInvalidArgument, decodedLen)
	}
	out, err := snappy.Decode(dst, src)
	if err != nil {
		return 0, codecError(ErrDataCorruption, "corrupt input", err)
	}
	return len(out), nil
}

func (c *snappyCodec) NewCompressor() (Compressor, error) {
	return nil, fmt.Errorf("%w: streaming compression unsupported with Snappy", ErrUnimplemented)
}

func (c *snappyCodec) NewDecompressor() (Decompressor, error) {
	return nil, fmt.Errorf("%w: streaming decompression unsupported with Snappy", ErrUnimplemented)
}
