// Package csv reads rows out of large, possibly compressed CSV files. A
// plain file is memory-mapped and consumed in row-aligned chunks, a
// compressed one (detected by its magic number) is decompressed on the fly.
// Either way a single prefetch worker parses ahead of the caller.
package csv

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/alkaidlabs/alkaid/compress"
	"github.com/alkaidlabs/alkaid/files"
)

// DefaultPrefetchDepth is the number of rows the prefetch worker may run
// ahead of the caller.
const DefaultPrefetchDepth = 1024

// Reader iterates the rows of a CSV file. Rows are parsed ahead of time by
// one worker goroutine feeding a bounded channel, Read only ever receives.
type Reader struct {
	path   string
	rows   chan []string
	quit   chan struct{}
	logger *zap.Logger

	// written by the worker before it closes rows
	workerErr error

	closeOnce sync.Once
	closeErr  error
}

// ReaderOptions holds the configuration for a Reader, to be altered through
// the exported option functions.
type ReaderOptions struct {
	chunkSizeBytes int
	prefetchDepth  int
	separator      rune
	logger         *zap.Logger
}

type ReaderOption func(*ReaderOptions)

// ChunkSizeBytes sets how many bytes of an uncompressed file are parsed per
// chunk, defaults to DefaultChunkSizeBytes.
func ChunkSizeBytes(n int) ReaderOption {
	return func(o *ReaderOptions) {
		o.chunkSizeBytes = n
	}
}

// PrefetchDepth bounds how many rows the worker parses ahead, defaults to
// DefaultPrefetchDepth.
func PrefetchDepth(n int) ReaderOption {
	return func(o *ReaderOptions) {
		o.prefetchDepth = n
	}
}

// Separator sets the field separator, defaults to a comma.
func Separator(r rune) ReaderOption {
	return func(o *ReaderOptions) {
		o.separator = r
	}
}

// Logger supplies a logger for worker lifecycle events, defaults to a noop.
func Logger(l *zap.Logger) ReaderOption {
	return func(o *ReaderOptions) {
		o.logger = l
	}
}

// NewReader opens the CSV file at the given path and starts its prefetch
// worker. Gzip, zstd, lz4 frame and bz2 inputs are detected by magic number
// and decompressed transparently.
func NewReader(path string, options ...ReaderOption) (*Reader, error) {
	opts := &ReaderOptions{
		chunkSizeBytes: DefaultChunkSizeBytes,
		prefetchDepth:  DefaultPrefetchDepth,
		separator:      ',',
		logger:         zap.NewNop(),
	}
	for _, option := range options {
		option(opts)
	}
	if opts.prefetchDepth <= 0 {
		return nil, fmt.Errorf("prefetch depth must be positive, %d given", opts.prefetchDepth)
	}

	ct, err := sniffCompressionType(path)
	if err != nil {
		return nil, err
	}

	reader := &Reader{
		path:   path,
		rows:   make(chan []string, opts.prefetchDepth),
		quit:   make(chan struct{}),
		logger: opts.logger,
	}

	if ct == compress.Uncompressed {
		chunks, err := NewChunkReader(path, opts.chunkSizeBytes)
		if err != nil {
			return nil, err
		}
		go reader.chunkWorker(chunks, opts.separator)
	} else {
		file, err := files.NewSequentialReadFile(path)
		if err != nil {
			return nil, err
		}
		decompressed, err := compress.NewReader(file, ct)
		if err != nil {
			return nil, multierr.Append(err, file.Close())
		}
		go reader.streamWorker(file, decompressed, ct, opts.separator)
	}
	return reader, nil
}

// Read returns the next row, or io.EOF once the file is exhausted. After an
// error every subsequent call returns the same error.
func (r *Reader) Read() ([]string, error) {
	row, ok := <-r.rows
	if !ok {
		if r.workerErr != nil {
			return nil, r.workerErr
		}
		return nil, io.EOF
	}
	return row, nil
}

// Path returns the path this reader was opened with.
func (r *Reader) Path() string { return r.path }

// Close stops the prefetch worker, waits for it to finish and releases the
// underlying file. It is safe to call multiple times.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		close(r.quit)
		// the worker closes rows on its way out
		for range r.rows {
		}
		r.closeErr = r.workerErr
	})
	return r.closeErr
}

// chunkWorker parses an uncompressed, memory-mapped file chunk by chunk.
func (r *Reader) chunkWorker(chunks *ChunkReader, separator rune) {
	r.logger.Debug("csv prefetch worker started",
		zap.String("path", r.path), zap.Int64("sizeBytes", chunks.Size()))
	var numRows int
	defer func() {
		r.workerErr = multierr.Append(r.workerErr, chunks.Close())
		close(r.rows)
		r.logger.Debug("csv prefetch worker finished",
			zap.String("path", r.path), zap.Int("numRows", numRows))
	}()

	for {
		chunk, err := chunks.Next()
		if err == io.EOF {
			return
		} else if err != nil {
			r.workerErr = err
			return
		}

		parser := newRowParser(bytes.NewReader(chunk), separator)
		for {
			row, err := parser.Read()
			if err == io.EOF {
				break
			} else if err != nil {
				chunks.Release(chunk)
				r.workerErr = fmt.Errorf("parsing '%s' failed with %w", r.path, err)
				return
			}
			numRows++
			select {
			case r.rows <- row:
			case <-r.quit:
				chunks.Release(chunk)
				return
			}
		}
		chunks.Release(chunk)
	}
}

// streamWorker parses a compressed file straight off its decompressed stream.
func (r *Reader) streamWorker(file *files.SequentialReadFile, decompressed io.ReadCloser, ct compress.CompressionType, separator rune) {
	r.logger.Debug("csv prefetch worker started",
		zap.String("path", r.path), zap.Stringer("compression", ct))
	var numRows int
	defer func() {
		r.workerErr = multierr.Combine(r.workerErr, decompressed.Close(), file.Close())
		close(r.rows)
		r.logger.Debug("csv prefetch worker finished",
			zap.String("path", r.path), zap.Int("numRows", numRows))
	}()

	parser := newRowParser(decompressed, separator)
	for {
		row, err := parser.Read()
		if err == io.EOF {
			return
		} else if err != nil {
			r.workerErr = fmt.Errorf("parsing '%s' failed with %w", r.path, err)
			return
		}
		numRows++
		select {
		case r.rows <- row:
		case <-r.quit:
			return
		}
	}
}

func newRowParser(src io.Reader, separator rune) *stdcsv.Reader {
	parser := stdcsv.NewReader(src)
	parser.Comma = separator
	// rows can be ragged, length checks are left to the caller
	parser.FieldsPerRecord = -1
	return parser
}

// sniffCompressionType reads the leading magic bytes of the file.
func sniffCompressionType(path string) (compress.CompressionType, error) {
	file, err := files.NewRandomReadFile(path)
	if err != nil {
		return compress.Uncompressed, err
	}
	defer func() {
		_ = file.Close()
	}()

	header := make([]byte, compress.DetectHeaderLen)
	n, err := file.ReadAt(header, 0)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return compress.Uncompressed, err
	}
	return compress.DetectCompressionType(header[:n]), nil
}
