package files

import (
	"io"
)

// WriteFlushCloser is what every write path sits on top of, regardless of
// the backing I/O mechanism. Close implies a final Flush and closes the
// underlying file.
type WriteFlushCloser interface {
	io.WriteCloser
	Flush() error
}

// BlockReader is the buffered read side handed out by a Factory. Release
// returns the block to its pool, it does not close the underlying file.
type BlockReader interface {
	io.Reader
	// Skip advances the reader by up to n bytes and returns how many were
	// actually skipped, io.EOF when the file ends short.
	Skip(n int64) (int64, error)
	Release()
}

// blockWriter buffers writes into a caller-supplied block. Unlike
// bufio.Writer the buffer comes from the outside, which allows pooled
// blocks as well as the alignment O_DIRECT demands: an aligned writer pads
// its final flush up to the full block size.
type blockWriter struct {
	w       io.WriteCloser
	buf     []byte
	n       int
	err     error
	aligned bool
	release func()
}

func newBlockWriter(w io.WriteCloser, buf []byte, aligned bool, release func()) *blockWriter {
	return &blockWriter{w: w, buf: buf, aligned: aligned, release: release}
}

func (b *blockWriter) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	total := 0
	for len(p) > 0 {
		n := copy(b.buf[b.n:], p)
		b.n += n
		p = p[n:]
		total += n
		if b.n == len(b.buf) {
			if err := b.flushBlock(b.buf); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (b *blockWriter) flushBlock(block []byte) error {
	if _, err := b.w.Write(block); err != nil {
		b.err = err
		return err
	}
	b.n = 0
	return nil
}

func (b *blockWriter) Flush() error {
	if b.err != nil {
		return b.err
	}
	if b.n == 0 {
		return nil
	}
	block := b.buf[:b.n]
	if b.aligned {
		// O_DIRECT only accepts whole blocks, zero-pad the remainder
		for i := b.n; i < len(b.buf); i++ {
			b.buf[i] = 0
		}
		block = b.buf
	}
	return b.flushBlock(block)
}

func (b *blockWriter) Close() error {
	defer func() {
		if b.release != nil {
			b.release()
			b.release = nil
		}
	}()
	if err := b.Flush(); err != nil {
		_ = b.w.Close()
		return err
	}
	return b.w.Close()
}

// blockReader is the buffered counterpart for reads. All reads go through
// the block, even large ones, the destination slices of callers are not
// guaranteed to satisfy O_DIRECT alignment.
type blockReader struct {
	r          io.Reader
	buf        []byte
	start, end int
	release    func()
}

func newBlockReader(r io.Reader, buf []byte, release func()) *blockReader {
	return &blockReader{r: r, buf: buf, release: release}
}

func (b *blockReader) fill() error {
	b.start, b.end = 0, 0
	for {
		n, err := b.r.Read(b.buf)
		if n > 0 {
			b.end = n
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (b *blockReader) Read(p []byte) (int, error) {
	if b.start == b.end {
		if len(p) == 0 {
			return 0, nil
		}
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.buf[b.start:b.end])
	b.start += n
	return n, nil
}

func (b *blockReader) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		if b.start == b.end {
			if err := b.fill(); err != nil {
				return skipped, err
			}
		}
		avail := int64(b.end - b.start)
		if rest := n - skipped; avail > rest {
			avail = rest
		}
		b.start += int(avail)
		skipped += avail
	}
	return skipped, nil
}

func (b *blockReader) Release() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
}
