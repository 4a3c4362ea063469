package compress

// GzipFormat selects the wrapper the gzip codec speaks on the wire.
type GzipFormat int8

const (
	// GzipFormatGzip is the gzip member format with header and CRC32
	// trailer, the default.
	GzipFormatGzip GzipFormat = iota
	// GzipFormatZlib is the zlib wrapper with an Adler32 trailer.
	GzipFormatZlib
	// GzipFormatDeflate is a raw deflate stream without any wrapper.
	GzipFormatDeflate
)

type codecOptions struct {
	compressionLevel int
	gzipFormat       GzipFormat
	// windowBits of 0 means the codec default. Only gzip and brotli
	// consult it.
	windowBits int
}

func defaultOptions() codecOptions {
	return codecOptions{
		compressionLevel: UseDefaultCompressionLevel,
		gzipFormat:       GzipFormatGzip,
		windowBits:       0,
	}
}

// Option configures codec creation.
type Option func(*codecOptions)

// WithCompressionLevel sets the codec's compression level. Codecs that do
// not support levels reject any value other than
// UseDefaultCompressionLevel at Create time.
func WithCompressionLevel(level int) Option {
	return func(o *codecOptions) {
		o.compressionLevel = level
	}
}

// WithGzipFormat selects the wrapper format of the gzip codec, one of
// GzipFormatGzip, GzipFormatZlib or GzipFormatDeflate.
func WithGzipFormat(format GzipFormat) Option {
	return func(o *codecOptions) {
		o.gzipFormat = format
	}
}

// WithWindowBits sets the history window size as a power of two. Valid for
// gzip (9-15) and brotli (10-24); other codecs ignore it.
func WithWindowBits(bits int) Option {
	return func(o *codecOptions) {
		o.windowBits = bits
	}
}
