package files

import (
	"fmt"
	"os"
)

// RandomWriteFile writes at arbitrary offsets, pwrite style. Writes are
// unbuffered, there is nothing to flush.
type RandomWriteFile struct {
	path     string
	file     *os.File
	listener EventListener
	closed   bool
}

func NewRandomWriteFile(path string, options ...WriteFileOption) (*RandomWriteFile, error) {
	opts := &WriteFileOptions{}
	for _, o := range options {
		o(opts)
	}

	opts.listener.beforeOpen(path)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening file at '%s' failed with %w", path, err)
	}
	opts.listener.afterOpen(path, file)

	return &RandomWriteFile{path: path, file: file, listener: opts.listener}, nil
}

// WriteAt writes p at the given offset, with io.WriterAt semantics.
func (f *RandomWriteFile) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative write offset %d", ErrInvalidOffset, off)
	}
	return f.file.WriteAt(p, off)
}

func (f *RandomWriteFile) Truncate(size int64) error {
	if f.closed {
		return ErrAlreadyClosed
	}
	if size < 0 {
		return fmt.Errorf("%w: cannot truncate to %d", ErrInvalidOffset, size)
	}
	return f.file.Truncate(size)
}

func (f *RandomWriteFile) Sync() error {
	if f.closed {
		return ErrAlreadyClosed
	}
	return f.file.Sync()
}

func (f *RandomWriteFile) Path() string { return f.path }

func (f *RandomWriteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.listener.beforeClose(f.path)
	err := f.file.Close()
	f.listener.afterClose(f.path)
	if err != nil {
		return fmt.Errorf("closing file at '%s' failed with %w", f.path, err)
	}
	return nil
}
