package files

import (
	"fmt"
	"os"
)

// SequentialReadFile reads a file front to back through a buffered block
// reader. It tracks the read position so callers can skip forward without
// consuming the bytes themselves.
type SequentialReadFile struct {
	path     string
	file     *os.File
	reader   BlockReader
	position int64
	size     int64
	listener EventListener
	closed   bool
}

type ReadFileOptions struct {
	factory         Factory
	bufferSizeBytes int
	listener        EventListener
}

type ReadFileOption func(*ReadFileOptions)

// ReadBufferSizeBytes sets the block size of the read buffer, by default
// DefaultBufferSizeBytes.
func ReadBufferSizeBytes(n int) ReadFileOption {
	return func(args *ReadFileOptions) {
		args.bufferSizeBytes = n
	}
}

// ReadFactory selects the I/O mechanism, by default buffered plain files.
func ReadFactory(f Factory) ReadFileOption {
	return func(args *ReadFileOptions) {
		args.factory = f
	}
}

// ReadListener registers lifecycle callbacks on the file.
func ReadListener(l EventListener) ReadFileOption {
	return func(args *ReadFileOptions) {
		args.listener = l
	}
}

func NewSequentialReadFile(path string, options ...ReadFileOption) (*SequentialReadFile, error) {
	opts := &ReadFileOptions{
		factory:         BufferedFactory{},
		bufferSizeBytes: DefaultBufferSizeBytes,
	}
	for _, o := range options {
		o(opts)
	}

	opts.listener.beforeOpen(path)
	file, reader, err := opts.factory.NewInput(path, opts.bufferSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("opening file at '%s' failed with %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		reader.Release()
		_ = file.Close()
		return nil, fmt.Errorf("stat of file at '%s' failed with %w", path, err)
	}
	opts.listener.afterOpen(path, file)

	return &SequentialReadFile{
		path:     path,
		file:     file,
		reader:   reader,
		size:     stat.Size(),
		listener: opts.listener,
	}, nil
}

func (f *SequentialReadFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	n, err := f.reader.Read(p)
	f.position += int64(n)
	return n, err
}

// Skip advances the read position by up to n bytes without surfacing
// them, returning how far it actually got.
func (f *SequentialReadFile) Skip(n int64) (int64, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: cannot skip backwards by %d", ErrInvalidOffset, n)
	}
	skipped, err := f.reader.Skip(n)
	f.position += skipped
	return skipped, err
}

// Position returns the number of bytes consumed so far.
func (f *SequentialReadFile) Position() int64 { return f.position }

// Size returns the file size at open time.
func (f *SequentialReadFile) Size() int64 { return f.size }

func (f *SequentialReadFile) Path() string { return f.path }

func (f *SequentialReadFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.listener.beforeClose(f.path)
	f.reader.Release()
	err := f.file.Close()
	f.listener.afterClose(f.path)
	if err != nil {
		return fmt.Errorf("closing file at '%s' failed with %w", f.path, err)
	}
	return nil
}
