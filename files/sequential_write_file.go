package files

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SequentialWriteFile appends bytes through a buffered block writer,
// optionally keeping a running xxhash64 of everything written.
type SequentialWriteFile struct {
	path     string
	file     *os.File
	writer   WriteFlushCloser
	position int64
	digest   *xxhash.Digest
	listener EventListener
	logger   *zap.Logger
	closed   bool
}

type WriteFileOptions struct {
	factory         Factory
	bufferSizeBytes int
	appendMode      bool
	checksum        bool
	listener        EventListener
	logger          *zap.Logger
}

type WriteFileOption func(*WriteFileOptions)

// WriteBufferSizeBytes sets the block size of the write buffer, by
// default DefaultBufferSizeBytes.
func WriteBufferSizeBytes(n int) WriteFileOption {
	return func(args *WriteFileOptions) {
		args.bufferSizeBytes = n
	}
}

// WriteFactory selects the I/O mechanism, by default buffered plain files.
func WriteFactory(f Factory) WriteFileOption {
	return func(args *WriteFileOptions) {
		args.factory = f
	}
}

// Append opens the file at its current end instead of truncating it.
func Append() WriteFileOption {
	return func(args *WriteFileOptions) {
		args.appendMode = true
	}
}

// WithChecksum keeps a running xxhash64 over all written bytes,
// retrievable through Checksum.
func WithChecksum() WriteFileOption {
	return func(args *WriteFileOptions) {
		args.checksum = true
	}
}

// WriteListener registers lifecycle callbacks on the file.
func WriteListener(l EventListener) WriteFileOption {
	return func(args *WriteFileOptions) {
		args.listener = l
	}
}

// WriteLogger sets the logger, by default nothing is logged.
func WriteLogger(l *zap.Logger) WriteFileOption {
	return func(args *WriteFileOptions) {
		args.logger = l
	}
}

func NewSequentialWriteFile(path string, options ...WriteFileOption) (*SequentialWriteFile, error) {
	opts := &WriteFileOptions{
		factory:         BufferedFactory{},
		bufferSizeBytes: DefaultBufferSizeBytes,
		logger:          zap.NewNop(),
	}
	for _, o := range options {
		o(opts)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if opts.appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	opts.listener.beforeOpen(path)
	file, writer, err := opts.factory.NewOutput(path, flags, opts.bufferSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("opening file at '%s' failed with %w", path, err)
	}
	var position int64
	if opts.appendMode {
		stat, err := file.Stat()
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("stat of file at '%s' failed with %w", path, err)
		}
		position = stat.Size()
	}
	opts.listener.afterOpen(path, file)

	f := &SequentialWriteFile{
		path:     path,
		file:     file,
		writer:   writer,
		position: position,
		listener: opts.listener,
		logger:   opts.logger,
	}
	if opts.checksum {
		f.digest = xxhash.New()
	}
	return f, nil
}

func (f *SequentialWriteFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrAlreadyClosed
	}
	n, err := f.writer.Write(p)
	f.position += int64(n)
	if f.digest != nil {
		_, _ = f.digest.Write(p[:n])
	}
	if err != nil {
		return n, fmt.Errorf("writing to file at '%s' failed with %w", f.path, err)
	}
	return n, nil
}

// Flush pushes all buffered bytes down to the OS.
func (f *SequentialWriteFile) Flush() error {
	if f.closed {
		return ErrAlreadyClosed
	}
	return f.writer.Flush()
}

// Sync flushes the buffer and asks the OS to commit the file to stable
// storage.
func (f *SequentialWriteFile) Sync() error {
	if f.closed {
		return ErrAlreadyClosed
	}
	if err := f.writer.Flush(); err != nil {
		return err
	}
	f.logger.Debug("syncing file", zap.String("path", f.path), zap.Int64("position", f.position))
	return f.file.Sync()
}

// Truncate cuts the file down to size and continues writing from there.
func (f *SequentialWriteFile) Truncate(size int64) error {
	if f.closed {
		return ErrAlreadyClosed
	}
	if size < 0 {
		return fmt.Errorf("%w: cannot truncate to %d", ErrInvalidOffset, size)
	}
	if err := f.writer.Flush(); err != nil {
		return err
	}
	if err := f.file.Truncate(size); err != nil {
		return fmt.Errorf("truncating file at '%s' failed with %w", f.path, err)
	}
	if _, err := f.file.Seek(size, io.SeekStart); err != nil {
		return fmt.Errorf("seeking in file at '%s' failed with %w", f.path, err)
	}
	f.position = size
	return nil
}

// Position returns the write position including still-buffered bytes.
func (f *SequentialWriteFile) Position() int64 { return f.position }

func (f *SequentialWriteFile) Path() string { return f.path }

// Checksum returns the running xxhash64 over everything written so far,
// zero when checksumming was not enabled.
func (f *SequentialWriteFile) Checksum() uint64 {
	if f.digest == nil {
		return 0
	}
	return f.digest.Sum64()
}

func (f *SequentialWriteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.listener.beforeClose(f.path)
	err := f.writer.Flush()
	err = multierr.Append(err, f.file.Sync())
	err = multierr.Append(err, f.writer.Close())
	f.listener.afterClose(f.path)
	if err != nil {
		return fmt.Errorf("closing file at '%s' failed with %w", f.path, err)
	}
	return nil
}
