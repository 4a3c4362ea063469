package compress

import (
	"bytes"
	"errors"
	"io"
)

var errOutputTooSmall = errors.New("output buffer too small")

// boundedWriter writes into a caller-provided slice and fails instead of
// growing when the slice runs out.
type boundedWriter struct {
	dst []byte
	n   int
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	if len(p) > len(b.dst)-b.n {
		return 0, errOutputTooSmall
	}
	n := copy(b.dst[b.n:], p)
	b.n += n
	return n, nil
}

// oneShotCompress implements the one-shot path for codecs that only expose
// a stream writer: run the whole input through a writer backed by dst.
func oneShotCompress(dst, src []byte, newWriter func(io.Writer) (flushWriter, error), mapErr func(string, error) error) (int, error) {
	bw := &boundedWriter{dst: dst}
	w, err := newWriter(bw)
	if err != nil {
		return 0, mapErr("init failed", err)
	}
	if _, err := w.Write(src); err != nil {
		return 0, oneShotError("compress failed", err, mapErr)
	}
	if err := w.Close(); err != nil {
		return 0, oneShotError("compress failed", err, mapErr)
	}
	return bw.n, nil
}

// oneShotDecompress mirrors oneShotCompress for codecs that only expose a
// stream reader. dst is expected to be exactly the decompressed size, any
// overflow is reported as ErrInvalidArgument.
func oneShotDecompress(dst, src []byte, newReader func(io.Reader) (io.Reader, error), mapErr func(string, error) error) (int, error) {
	r, err := newReader(bytes.NewReader(src))
	if err != nil {
		return 0, mapErr("corrupt input", err)
	}
	bw := &boundedWriter{dst: dst}
	if _, err := io.Copy(bw, r); err != nil {
		return 0, oneShotError("corrupt input", err, mapErr)
	}
	return bw.n, nil
}

func oneShotError(prefix string, err error, mapErr func(string, error) error) error {
	if errors.Is(err, errOutputTooSmall) {
		// no growth-retry in the one-shot path, an undersized buffer is
		// a caller mistake
		return codecError(ErrInvalidArgument, prefix, err)
	}
	return mapErr(prefix, err)
}
