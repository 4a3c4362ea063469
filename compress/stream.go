package compress

import (
	"bytes"
	"fmt"
	"io"
)

// compressorChunkLen caps how much input a single streaming Compress call
// consumes, which in turn bounds the internal staging buffer.
const compressorChunkLen = 256 * 1024

// decompressorScratchLen is the size of the decode pump's scratch buffer.
const decompressorScratchLen = 64 * 1024

// flushWriter is the shape all codec stream writers are adapted to.
type flushWriter interface {
	io.WriteCloser
	Flush() error
}

// nopFlushWriter adapts codecs without a sync-flush operation (bz2).
type nopFlushWriter struct {
	io.WriteCloser
}

func (nopFlushWriter) Flush() error { return nil }

// codecError wraps a library error into one of the package error kinds,
// keeping both inspectable through errors.Is.
func codecError(kind error, prefix string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, prefix, err)
}

// streamCompressor implements the Compressor protocol on top of a
// push-style codec writer. The writer emits into an internal staging
// buffer; every call first drains that buffer into the caller's output and
// only consumes fresh input once the staging buffer is empty, so a
// BytesRead of zero reliably signals "grow the output buffer".
type streamCompressor struct {
	w      flushWriter
	buf    bytes.Buffer
	mapErr func(prefix string, err error) error
	ended  bool
	closed bool
}

func newStreamCompressor(newWriter func(io.Writer) (flushWriter, error), mapErr func(string, error) error) (*streamCompressor, error) {
	c := &streamCompressor{mapErr: mapErr}
	w, err := newWriter(&c.buf)
	if err != nil {
		return nil, mapErr("init failed", err)
	}
	c.w = w
	return c, nil
}

func (c *streamCompressor) drain(dst []byte) int {
	if c.buf.Len() == 0 || len(dst) == 0 {
		return 0
	}
	n, _ := c.buf.Read(dst)
	return n
}

func (c *streamCompressor) Compress(dst, src []byte) (CompressResult, error) {
	if c.ended || c.closed {
		return CompressResult{}, fmt.Errorf("%w: compressor is already ended", ErrInvalidArgument)
	}

	written := c.drain(dst)
	if c.buf.Len() > 0 {
		// previously staged output did not fit, the caller has to
		// come back with a larger buffer before we take more input
		return CompressResult{BytesRead: 0, BytesWritten: written}, nil
	}

	chunk := src
	if len(chunk) > compressorChunkLen {
		chunk = chunk[:compressorChunkLen]
	}
	if len(chunk) > 0 {
		if _, err := c.w.Write(chunk); err != nil {
			return CompressResult{}, c.mapErr("compress failed", err)
		}
	}
	written += c.drain(dst[written:])
	return CompressResult{BytesRead: len(chunk), BytesWritten: written}, nil
}

func (c *streamCompressor) Flush(dst []byte) (FlushResult, error) {
	if c.ended || c.closed {
		return FlushResult{}, fmt.Errorf("%w: compressor is already ended", ErrInvalidArgument)
	}

	written := c.drain(dst)
	if c.buf.Len() > 0 {
		return FlushResult{BytesWritten: written, ShouldRetry: true}, nil
	}
	if err := c.w.Flush(); err != nil {
		return FlushResult{}, c.mapErr("flush failed", err)
	}
	written += c.drain(dst[written:])
	return FlushResult{BytesWritten: written, ShouldRetry: c.buf.Len() > 0}, nil
}

func (c *streamCompressor) End(dst []byte) (EndResult, error) {
	if c.closed {
		return EndResult{}, fmt.Errorf("%w: compressor is already closed", ErrInvalidArgument)
	}

	written := c.drain(dst)
	if c.buf.Len() > 0 {
		return EndResult{BytesWritten: written, ShouldRetry: true}, nil
	}
	if !c.ended {
		if err := c.w.Close(); err != nil {
			return EndResult{}, c.mapErr("end failed", err)
		}
		c.ended = true
	}
	written += c.drain(dst[written:])
	return EndResult{BytesWritten: written, ShouldRetry: c.buf.Len() > 0}, nil
}

func (c *streamCompressor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if !c.ended {
		c.ended = true
		if err := c.w.Close(); err != nil {
			return c.mapErr("close failed", err)
		}
	}
	return nil
}

// feeder hands input chunks from the driving goroutine into the codec
// reader running on the pump goroutine. It implements io.ByteReader so the
// zlib-family readers consume input byte-exact instead of buffering ahead.
type feeder struct {
	cur  []byte
	req  chan struct{}
	in   chan []byte
	quit chan struct{}
}

func (f *feeder) fill() error {
	for len(f.cur) == 0 {
		select {
		case f.req <- struct{}{}:
		case <-f.quit:
			return io.EOF
		}
		select {
		case chunk := <-f.in:
			f.cur = chunk
		case <-f.quit:
			return io.EOF
		}
	}
	return nil
}

func (f *feeder) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.fill(); err != nil {
		return 0, err
	}
	n := copy(p, f.cur)
	f.cur = f.cur[n:]
	return n, nil
}

func (f *feeder) ReadByte() (byte, error) {
	if err := f.fill(); err != nil {
		return 0, err
	}
	b := f.cur[0]
	f.cur = f.cur[1:]
	return b, nil
}

type readResult struct {
	n   int
	err error
}

// lazyReader defers codec reader construction to the first Read, which
// keeps every interaction with the feeder inside a serviced read request.
// Some readers (gzip, zlib) consume their stream header at construction
// time already, which would otherwise race with teardown.
type lazyReader struct {
	construct func() (io.Reader, error)
	r         io.Reader
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.r == nil {
		r, err := l.construct()
		if err != nil {
			return 0, err
		}
		l.r = r
	}
	return l.r.Read(p)
}

// streamDecompressor implements the Decompressor protocol on top of a
// pull-style codec reader. The reader runs on a dedicated pump goroutine
// that stays parked either waiting for the next read request or, inside
// the codec, waiting for the next input chunk; the driving goroutine and
// the pump rendezvous over unbuffered channels, so exactly one of them
// runs at any time.
type streamDecompressor struct {
	newReader func(io.Reader) (io.Reader, error)
	mapErr    func(prefix string, err error) error

	f       *feeder
	readReq chan int
	readRes chan readResult

	// inbuf holds a copy of the caller's input for the feeder, input
	// reported as read must not be referenced past the call
	inbuf    []byte
	scratch  []byte
	pending  []byte
	reading  bool
	starved  bool
	finished bool
	failed   error
	stopped  bool
}

func newStreamDecompressor(newReader func(io.Reader) (io.Reader, error), mapErr func(string, error) error) *streamDecompressor {
	d := &streamDecompressor{
		newReader: newReader,
		mapErr:    mapErr,
		scratch:   make([]byte, decompressorScratchLen),
	}
	d.start(nil)
	return d
}

func (d *streamDecompressor) start(leftover []byte) {
	d.f = &feeder{
		cur:  leftover,
		req:  make(chan struct{}),
		in:   make(chan []byte),
		quit: make(chan struct{}),
	}
	d.readReq = make(chan int, 1)
	d.readRes = make(chan readResult, 1)
	d.reading = false
	d.starved = false
	d.finished = false
	d.failed = nil
	go d.run()
}

func (d *streamDecompressor) run() {
	zr := &lazyReader{construct: func() (io.Reader, error) {
		return d.newReader(d.f)
	}}
	for n := range d.readReq {
		m, err := zr.Read(d.scratch[:n])
		d.readRes <- readResult{n: m, err: err}
	}
}

// teardown stops the pump goroutine and returns any input bytes that were
// handed over but never consumed by the codec.
func (d *streamDecompressor) teardown() []byte {
	close(d.f.quit)
	if d.reading {
		// wait out the in-flight read so the pump quiesces
		<-d.readRes
		d.reading = false
	}
	close(d.readReq)
	return d.f.cur
}

func (d *streamDecompressor) drainPending(dst []byte) int {
	n := copy(dst, d.pending)
	d.pending = d.pending[n:]
	return n
}

func (d *streamDecompressor) Decompress(dst, src []byte) (DecompressResult, error) {
	if d.failed != nil {
		return DecompressResult{}, d.failed
	}
	if d.stopped {
		return DecompressResult{}, fmt.Errorf("%w: decompressor is closed", ErrInvalidArgument)
	}

	result := func(read, wrote int) DecompressResult {
		return DecompressResult{
			BytesRead:      read,
			BytesWritten:   wrote,
			NeedMoreOutput: read == 0 && wrote == 0 && !d.finished,
		}
	}

	wrote := d.drainPending(dst)
	if len(d.pending) > 0 || d.finished {
		return result(0, wrote), nil
	}

	read := 0
	if d.starved {
		// the codec already asked for input on a previous call and its
		// feeder is parked waiting, it has to be fed before anything else
		if len(src) == 0 {
			return result(0, wrote), nil
		}
		d.f.in <- d.copyIn(src)
		read = len(src)
		src = nil
		d.starved = false
	}
	for {
		if wrote == len(dst) {
			return result(read, wrote), nil
		}
		if !d.reading {
			n := len(dst) - wrote
			if n > len(d.scratch) {
				n = len(d.scratch)
			}
			d.readReq <- n
			d.reading = true
		}
		select {
		case <-d.f.req:
			if len(src) > 0 {
				d.f.in <- d.copyIn(src)
				read += len(src)
				src = nil
				continue
			}
			// the codec is starved and this call has no input left;
			// the outstanding read request stays pending until the
			// next call feeds more
			d.starved = true
			return result(read, wrote), nil
		case res := <-d.readRes:
			d.reading = false
			if res.n > 0 {
				d.pending = d.scratch[:res.n]
				wrote += d.drainPending(dst[wrote:])
			}
			if res.err != nil {
				if res.err == io.EOF {
					d.finished = true
					return result(read, wrote), nil
				}
				d.failed = d.mapErr("decompress failed", res.err)
				return DecompressResult{}, d.failed
			}
			if len(d.pending) > 0 {
				return result(read, wrote), nil
			}
		}
	}
}

// copyIn stages the caller's input in the owned input buffer before it is
// handed to the feeder. A feed only ever happens once the feeder ran dry,
// so reusing one buffer is safe, and the caller gets its slice back the
// moment Decompress returns it as read.
func (d *streamDecompressor) copyIn(src []byte) []byte {
	d.inbuf = append(d.inbuf[:0], src...)
	return d.inbuf
}

func (d *streamDecompressor) IsFinished() bool {
	return d.finished
}

func (d *streamDecompressor) Reset() error {
	if d.stopped {
		return fmt.Errorf("%w: decompressor is closed", ErrInvalidArgument)
	}
	leftover := d.teardown()
	d.start(leftover)
	return nil
}

func (d *streamDecompressor) Close() error {
	if d.stopped {
		return nil
	}
	d.stopped = true
	d.teardown()
	return nil
}
