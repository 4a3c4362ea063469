package compress

import (
	"io"
)

// readerChunkLen is the input chunk size NewReader feeds its decompressor.
const readerChunkLen = 32 * 1024

// NewReader wraps r with streaming decompression for the given type,
// turning the push-style Decompressor back into a plain io.Reader.
// Concatenated members or frames are decoded back to back. Uncompressed
// passes r through untouched. Close releases the decompressor only, the
// source stays open.
func NewReader(r io.Reader, t CompressionType, opts ...Option) (io.ReadCloser, error) {
	if t == Uncompressed {
		return io.NopCloser(r), nil
	}
	codec, err := Create(t, opts...)
	if err != nil {
		return nil, err
	}
	dec, err := codec.NewDecompressor()
	if err != nil {
		return nil, err
	}
	return &decompressReader{
		src: r,
		dec: dec,
		buf: make([]byte, readerChunkLen),
	}, nil
}

type decompressReader struct {
	src    io.Reader
	dec    Decompressor
	buf    []byte
	chunk  []byte
	srcEOF bool
	done   bool
}

func (r *decompressReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		res, err := r.dec.Decompress(p, r.chunk)
		if err != nil {
			return 0, err
		}
		r.chunk = r.chunk[res.BytesRead:]
		if res.BytesWritten > 0 {
			return res.BytesWritten, nil
		}
		if r.dec.IsFinished() {
			// member boundary, any unconsumed tail carries over into
			// the next member
			if err := r.dec.Reset(); err != nil {
				return 0, err
			}
			continue
		}
		if len(r.chunk) > 0 {
			continue
		}
		if r.srcEOF {
			r.done = true
			return 0, io.EOF
		}
		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.chunk = r.buf[:n]
		}
		if err == io.EOF {
			r.srcEOF = true
		} else if err != nil {
			return 0, err
		}
	}
}

func (r *decompressReader) Close() error {
	return r.dec.Close()
}
