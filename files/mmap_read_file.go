package files

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// MMapReadFile memory-maps a file for positional reads, skipping the
// page cache copy a pread takes.
type MMapReadFile struct {
	path     string
	reader   *mmap.ReaderAt
	listener EventListener
	closed   bool
}

func NewMMapReadFile(path string, options ...ReadFileOption) (*MMapReadFile, error) {
	opts := &ReadFileOptions{}
	for _, o := range options {
		o(opts)
	}

	opts.listener.beforeOpen(path)
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapping file at '%s' failed with %w", path, err)
	}
	opts.listener.afterOpen(path, nil)

	return &MMapReadFile{path: path, reader: reader, listener: opts.listener}, nil
}

// ReadAt fills p from the given offset, with io.ReaderAt semantics.
func (f *MMapReadFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative read offset %d", ErrInvalidOffset, off)
	}
	return f.reader.ReadAt(p, off)
}

func (f *MMapReadFile) Size() int64 { return int64(f.reader.Len()) }

func (f *MMapReadFile) Path() string { return f.path }

// Close unmaps the file, exactly once.
func (f *MMapReadFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.listener.beforeClose(f.path)
	err := f.reader.Close()
	f.listener.afterClose(f.path)
	if err != nil {
		return fmt.Errorf("unmapping file at '%s' failed with %w", f.path, err)
	}
	return nil
}
