package files

import (
	"fmt"
	"os"
)

// RandomReadFile serves positional reads, pread style: there is no shared
// cursor and no buffering, every ReadAt goes straight to the OS.
type RandomReadFile struct {
	path     string
	file     *os.File
	size     int64
	listener EventListener
	closed   bool
}

func NewRandomReadFile(path string, options ...ReadFileOption) (*RandomReadFile, error) {
	opts := &ReadFileOptions{}
	for _, o := range options {
		o(opts)
	}

	opts.listener.beforeOpen(path)
	file, err := os.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening file at '%s' failed with %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat of file at '%s' failed with %w", path, err)
	}
	opts.listener.afterOpen(path, file)

	return &RandomReadFile{
		path:     path,
		file:     file,
		size:     stat.Size(),
		listener: opts.listener,
	}, nil
}

// ReadAt fills p from the given offset, with io.ReaderAt semantics.
func (f *RandomReadFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative read offset %d", ErrInvalidOffset, off)
	}
	return f.file.ReadAt(p, off)
}

func (f *RandomReadFile) Size() int64 { return f.size }

func (f *RandomReadFile) Path() string { return f.path }

func (f *RandomReadFile) Close() error {
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
