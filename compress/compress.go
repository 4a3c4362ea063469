// Package compress provides a uniform abstraction over a set of block and
// streaming compression codecs (gzip/zlib/deflate, zstd, lz4, snappy, brotli,
// bz2). The codec implementations delegate entirely to their respective
// libraries; this package only supplies the registry, the capability
// queries and the chunked streaming protocol that lets a caller push
// arbitrarily sized buffers through a codec without knowing its internal
// block structure.
package compress

import (
	"errors"
	"fmt"
	"math"
)

// CompressionType identifies one codec family. The zero value is
// Uncompressed, the identity transform.
type CompressionType int8

const (
	Uncompressed CompressionType = iota
	Snappy
	Gzip
	Brotli
	Zstd
	Lz4Raw
	Lz4Frame
	Lz4Hadoop
	Lzo
	Bz2
)

// UseDefaultCompressionLevel passed as a compression level means the codec
// picks its own default.
const UseDefaultCompressionLevel = math.MinInt

// Error kinds. Adapters translate every library error into one of these,
// wrapped with a descriptive message; test with errors.Is.
var (
	ErrInvalidArgument   = errors.New("compress: invalid argument")
	ErrUnimplemented     = errors.New("compress: unimplemented")
	ErrDataCorruption    = errors.New("compress: data corruption")
	ErrResourceExhausted = errors.New("compress: resource exhausted")
	ErrUnavailable       = errors.New("compress: unavailable")
)

// String returns the stable name for the compression type, "unknown" for
// values outside the enumeration. It never fails.
func (t CompressionType) String() string {
	switch t {
	case Uncompressed:
		return "uncompressed"
	case Snappy:
		return "snappy"
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	case Lz4Raw:
		return "lz4_raw"
	case Lz4Frame:
		return "lz4"
	case Lz4Hadoop:
		return "lz4_hadoop"
	case Lzo:
		return "lzo"
	case Bz2:
		return "bz2"
	default:
		return "unknown"
	}
}

// GetCompressionType is the inverse of String. The lookup is exact-match
// lowercase only, "SNAPPY" is not a valid name.
func GetCompressionType(name string) (CompressionType, error) {
	switch name {
	case "uncompressed":
		return Uncompressed, nil
	case "snappy":
		return Snappy, nil
	case "gzip":
		return Gzip, nil
	case "brotli":
		return Brotli, nil
	case "zstd":
		return Zstd, nil
	case "lz4_raw":
		return Lz4Raw, nil
	case "lz4":
		return Lz4Frame, nil
	case "lz4_hadoop":
		return Lz4Hadoop, nil
	case "lzo":
		return Lzo, nil
	case "bz2":
		return Bz2, nil
	default:
		return Uncompressed, fmt.Errorf("%w: unrecognized compression type: '%s'", ErrInvalidArgument, name)
	}
}

// availability is the process-wide capability table. All codecs this build
// links are available; Lzo has a registry entry but no implementation ships.
var availability = map[CompressionType]bool{
	Uncompressed: true,
	Snappy:       true,
	Gzip:         true,
	Brotli:       true,
	Zstd:         true,
	Lz4Raw:       true,
	Lz4Frame:     true,
	Lz4Hadoop:    true,
	Lzo:          false,
	Bz2:          true,
}

// IsAvailable returns whether an implementation for the given codec is
// linked into this build.
func IsAvailable(t CompressionType) bool {
	return availability[t]
}

// SupportsCompressionLevel returns whether the codec accepts a compression
// level parameter.
func SupportsCompressionLevel(t CompressionType) bool {
	switch t {
	case Gzip, Brotli, Zstd, Bz2, Lz4Raw, Lz4Frame:
		return true
	default:
		return false
	}
}

// CompressResult reports the progress of a single streaming Compress call.
// BytesRead of zero means the output buffer was too small to make any
// forward progress and the caller should retry with a larger one.
type CompressResult struct {
	BytesRead    int
	BytesWritten int
}

// FlushResult reports the progress of a Flush call. ShouldRetry instructs
// the caller to call Flush again with a larger buffer.
type FlushResult struct {
	BytesWritten int
	ShouldRetry  bool
}

// EndResult reports the progress of an End call, with the same retry
// contract as FlushResult.
type EndResult struct {
	BytesWritten int
	ShouldRetry  bool
}

// DecompressResult reports the progress of a streaming Decompress call.
// NeedMoreOutput means the output buffer could not hold the next unit of
// decompressed data; the caller retries with a larger buffer without
// re-feeding the input already handed over. BytesRead and BytesWritten
// both zero with NeedMoreOutput false marks a natural stream boundary.
type DecompressResult struct {
	BytesRead      int
	BytesWritten   int
	NeedMoreOutput bool
}

// Compressor is a stateful per-stream compression session. Exactly one
// goroutine drives one instance; distinct instances are fully independent.
//
// The caller owns all retry loops: none of the methods block or grow
// buffers on the caller's behalf.
type Compressor interface {
	// Compress consumes a prefix of src and writes a prefix of the
	// compressed stream into dst.
	Compress(dst, src []byte) (CompressResult, error)
	// Flush forces all buffered compressed data out, making everything
	// written so far decompressable as a self-contained unit. The stream
	// stays open for further Compress calls. Bz2 cannot honor this, its
	// flushed data only becomes decodable after End.
	Flush(dst []byte) (FlushResult, error)
	// End finalizes the stream (trailer, checksum, frame end marker) and
	// implies a Flush. Once ShouldRetry comes back false the Compressor
	// must not be used anymore.
	End(dst []byte) (EndResult, error)
	// Close releases the underlying resources. It is safe to call more
	// than once and after End.
	Close() error
}

// Decompressor is the mirror-image stateful per-stream decompression
// session. Same single-goroutine-per-instance discipline as Compressor.
type Decompressor interface {
	// Decompress consumes a prefix of src and writes a prefix of the
	// decompressed stream into dst.
	Decompress(dst, src []byte) (DecompressResult, error)
	// IsFinished is a heuristic: true guarantees the stream is complete,
	// false may only mean the underlying library cannot tell.
	IsFinished() bool
	// Reset makes the instance ready for a new compressed stream,
	// reusing its internal buffers. Input bytes already consumed but not
	// yet decoded carry over, so back-to-back members can be decoded by
	// looping on Reset.
	Reset() error
	// Close releases the underlying resources. Safe to call repeatedly.
	Close() error
}

// Codec is a factory and capability object for one (type, options)
// combination. It holds no per-stream state; all mutable progress lives in
// the Compressor/Decompressor instances it creates.
type Codec interface {
	// Type returns this codec's compression type.
	Type() CompressionType
	// Name returns the stable name of this codec's compression type.
	Name() string
	// CompressionLevel returns the configured level, or
	// UseDefaultCompressionLevel when levels do not apply.
	CompressionLevel() int

	MinimumCompressionLevel() int
	MaximumCompressionLevel() int
	DefaultCompressionLevel() int

	// MaxCompressedLen returns an upper bound for the compressed size of
	// n input bytes, used to pre-size one-shot output buffers. Codecs
	// that cannot compute a bound (bz2) return 0.
	MaxCompressedLen(n int) int

	// Compress is the one-shot compression function. dst must have been
	// sized with MaxCompressedLen; the number of bytes written is
	// returned.
	Compress(dst, src []byte) (int, error)
	// Decompress is the one-shot decompression function. dst must be
	// exactly the known decompressed size; the number of bytes written
	// is returned.
	Decompress(dst, src []byte) (int, error)

	// NewCompressor creates a streaming compressor instance.
	NewCompressor() (Compressor, error)
	// NewDecompressor creates a streaming decompressor instance.
	NewDecompressor() (Decompressor, error)
}

// Create builds a codec for the given compression type. Creation fails
// with ErrUnimplemented when the type is known but no implementation is
// linked (Lzo, always), and with ErrInvalidArgument when the type is
// unknown or the options do not fit the codec.
//
// For Uncompressed it returns (nil, nil): the identity transform has no
// codec object and callers are expected to special-case it.
func Create(t CompressionType, opts ...Option) (Codec, error) {
	if !IsAvailable(t) {
		if t == Lzo {
			return nil, fmt.Errorf("%w: LZO codec not implemented", ErrUnimplemented)
		}
		if t.String() == "unknown" {
			return nil, fmt.Errorf("%w: unrecognized codec", ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: support for codec '%s' not built", ErrUnimplemented, t)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.compressionLevel != UseDefaultCompressionLevel && !SupportsCompressionLevel(t) {
		return nil, fmt.Errorf("%w: codec '%s' doesn't support setting a compression level", ErrInvalidArgument, t)
	}

	var (
		codec Codec
		err   error
	)
	switch t {
	case Uncompressed:
		return nil, nil
	case Snappy:
		codec = newSnappyCodec()
	case Gzip:
		codec, err = newGzipCodec(o.compressionLevel, o.gzipFormat, o.windowBits)
	case Brotli:
		codec, err = newBrotliCodec(o.compressionLevel, o.windowBits)
	case Zstd:
		codec, err = newZstdCodec(o.compressionLevel)
	case Lz4Raw:
		codec, err = newLz4RawCodec(o.compressionLevel)
	case Lz4Frame:
		codec, err = newLz4FrameCodec(o.compressionLevel)
	case Lz4Hadoop:
		codec = newLz4HadoopCodec()
	case Bz2:
		codec, err = newBz2Codec(o.compressionLevel)
	}
	if err != nil {
		return nil, err
	}
	return codec, nil
}

func checkLevelRange(codec Codec, level int) error {
	if level == UseDefaultCompressionLevel {
		return nil
	}
	if level < codec.MinimumCompressionLevel() || level > codec.MaximumCompressionLevel() {
		return fmt.Errorf("%w: compression level %d is outside of [%d, %d] for codec '%s'",
			ErrInvalidArgument, level, codec.MinimumCompressionLevel(), codec.MaximumCompressionLevel(), codec.Name())
	}
	return nil
}

func levelQuery(t CompressionType, q func(Codec) int) (int, error) {
	if !SupportsCompressionLevel(t) {
		return 0, fmt.Errorf("%w: codec '%s' does not support the compression level parameter", ErrInvalidArgument, t)
	}
	codec, err := Create(t)
	if err != nil {
		return 0, err
	}
	return q(codec), nil
}

// MinimumCompressionLevel returns the smallest supported level for the
// codec. It constructs a temporary codec instance to query it.
func MinimumCompressionLevel(t CompressionType) (int, error) {
	return levelQuery(t, Codec.MinimumCompressionLevel)
}

// MaximumCompressionLevel returns the largest supported level for the
// codec. It constructs a temporary codec instance to query it.
func MaximumCompressionLevel(t CompressionType) (int, error) {
	return levelQuery(t, Codec.MaximumCompressionLevel)
}

// DefaultCompressionLevel returns the codec's default level. It constructs
// a temporary codec instance to query it.
func DefaultCompressionLevel(t CompressionType) (int, error) {
	return levelQuery(t, Codec.DefaultCompressionLevel)
}
