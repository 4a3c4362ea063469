//go:build linux

package files

import (
	"io"
	"os"

	"github.com/godzie44/go-uring/uring"
)

// ringWriter submits every write to an io_uring and only awaits
// completions at the Flush and Close barriers. Not safe for concurrent
// use, same as the rest of the write path.
type ringWriter struct {
	ring     *uring.Ring
	file     *os.File
	ringSize int32
	inFlight int32
	offset   uint64
}

func (w *ringWriter) Write(p []byte) (int, error) {
	for w.inFlight >= w.ringSize {
		if err := w.awaitOne(); err != nil {
			return 0, err
		}
	}

	// the caller may reuse p before the ring gets submitted, the kernel
	// needs a stable copy
	pc := make([]byte, len(p))
	copy(pc, p)

	// the queued length travels as user data so completions can be
	// checked for short writes
	if err := w.ring.QueueSQE(uring.Write(w.file.Fd(), pc, w.offset), 0, uint64(len(p))); err != nil {
		return 0, err
	}
	w.inFlight++
	w.offset += uint64(len(p))
	return len(p), nil
}

// Flush blocks until every queued write has completed.
func (w *ringWriter) Flush() error {
	for w.inFlight > 0 {
		if err := w.awaitOne(); err != nil {
			return err
		}
	}
	return nil
}

func (w *ringWriter) awaitOne() error {
	cqe, err := w.ring.SubmitAndWaitCQEvents(1)
	if err != nil {
		return err
	}
	w.inFlight--
	w.ring.SeenCQE(cqe)
	if err := cqe.Error(); err != nil {
		return err
	}
	if uint64(cqe.Res) != cqe.UserData {
		return io.ErrShortWrite
	}
	return nil
}

func (w *ringWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.ring.UnRegisterFiles(); err != nil {
		return err
	}
	if err := w.ring.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

// IOUringFactory writes through an io_uring, reads fall back to the
// buffered path.
type IOUringFactory struct {
	numRingEntries uint32
	opts           []uring.SetupOption
}

func NewIOUringFactory(numRingEntries uint32, opts ...uring.SetupOption) *IOUringFactory {
	return &IOUringFactory{numRingEntries: numRingEntries, opts: opts}
}

func (f *IOUringFactory) NewInput(path string, bufSizeBytes int) (*os.File, BlockReader, error) {
	return BufferedFactory{}.NewInput(path, bufSizeBytes)
}

func (f *IOUringFactory) NewOutput(path string, flags int, _ int) (*os.File, WriteFlushCloser, error) {
	ring, err := uring.New(f.numRingEntries, f.opts...)
	if err != nil {
		return nil, nil, err
	}

	// the ring writes at explicit offsets, O_APPEND is emulated by
	// starting at the current file size
	file, err := os.OpenFile(path, flags&^os.O_APPEND, 0666)
	if err != nil {
		_ = ring.Close()
		return nil, nil, err
	}
	var offset uint64
	if flags&os.O_APPEND != 0 {
		stat, err := file.Stat()
		if err != nil {
			_ = file.Close()
			_ = ring.Close()
			return nil, nil, err
		}
		offset = uint64(stat.Size())
	}

	if err := ring.RegisterFiles([]int{int(file.Fd())}); err != nil {
		_ = file.Close()
		_ = ring.Close()
		return nil, nil, err
	}

	return file, &ringWriter{
		ring:     ring,
		file:     file,
		ringSize: int32(f.numRingEntries),
		offset:   offset,
	}, nil
}

// IsIOUringAvailable tests whether the kernel supports io_uring. It
// returns (true, nil) when available and (false, nil) when not.
func IsIOUringAvailable() (bool, error) {
	ring, err := uring.New(1)
	if err != nil {
		return false, nil
	}
	return true, ring.Close()
}
