package csv

import (
	"fmt"
	"io"

	pool "github.com/libp2p/go-buffer-pool"

	"github.com/alkaidlabs/alkaid/files"
)

// DefaultChunkSizeBytes is the chunk size ChunkReader aims for when none
// is configured. Actual chunks can be slightly smaller (trimmed back to
// the last row boundary) or larger (grown until a row fits).
const DefaultChunkSizeBytes = 1024 * 1024

// ChunkReader slices a CSV file into chunks whose boundaries always fall
// on row boundaries. Quoting is honored, a newline inside a quoted field
// never ends a chunk, so every chunk parses as a standalone sequence of
// complete rows.
type ChunkReader struct {
	file      *files.MMapReadFile
	chunkSize int
	offset    int64
	closed    bool
}

// NewChunkReader memory-maps the file at the given path for chunked reading.
func NewChunkReader(path string, chunkSizeBytes int) (*ChunkReader, error) {
	if chunkSizeBytes <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, %d given", chunkSizeBytes)
	}
	file, err := files.NewMMapReadFile(path)
	if err != nil {
		return nil, err
	}
	return &ChunkReader{file: file, chunkSize: chunkSizeBytes}, nil
}

// Next returns the next chunk of complete rows, or io.EOF once the file is
// exhausted. The returned slice comes from a shared pool and stays valid
// until released, callers must hand it back through Release when done.
func (c *ChunkReader) Next() ([]byte, error) {
	if c.closed {
		return nil, files.ErrAlreadyClosed
	}
	remaining := c.file.Size() - c.offset
	if remaining <= 0 {
		return nil, io.EOF
	}

	size := int64(c.chunkSize)
	if size > remaining {
		size = remaining
	}
	buf, err := c.readAhead(int(size))
	if err != nil {
		return nil, err
	}

	end := lastRowBoundary(buf)
	for end < 0 && int64(len(buf)) < remaining {
		// no complete row in the chunk yet, double down until one fits,
		// then cut right behind it
		grown := int64(len(buf)) * 2
		if grown > remaining {
			grown = remaining
		}
		pool.Put(buf)
		if buf, err = c.readAhead(int(grown)); err != nil {
			return nil, err
		}
		end = firstRowBoundary(buf)
	}
	if end < 0 {
		// the file ends without a trailing newline
		end = len(buf)
	}

	c.offset += int64(end)
	return buf[:end], nil
}

func (c *ChunkReader) readAhead(size int) ([]byte, error) {
	buf := pool.Get(size)
	if _, err := c.file.ReadAt(buf, c.offset); err != nil {
		pool.Put(buf)
		return nil, fmt.Errorf("reading chunk at offset %d in '%s' failed with %w", c.offset, c.file.Path(), err)
	}
	return buf, nil
}

// Release hands a chunk obtained from Next back to the pool.
func (c *ChunkReader) Release(chunk []byte) {
	pool.Put(chunk)
}

// Offset returns the position of the next chunk in the file.
func (c *ChunkReader) Offset() int64 { return c.offset }

// Size returns the total file size in bytes.
func (c *ChunkReader) Size() int64 { return c.file.Size() }

func (c *ChunkReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

// lastRowBoundary returns the index just past the last newline that ends a
// row, tracking quote state from the start of the slice. It returns -1 when
// the slice holds no complete row. The slice must begin at a row boundary.
func lastRowBoundary(b []byte) int {
	end := -1
	inQuotes := false
	for i, ch := range b {
		switch ch {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			if !inQuotes {
				end = i + 1
			}
		}
	}
	return end
}

// firstRowBoundary is the counterpart used after growing a chunk: the index
// just past the first newline that ends a row, or -1.
func firstRowBoundary(b []byte) int {
	inQuotes := false
	for i, ch := range b {
		switch ch {
		case '"':
			inQuotes = !inQuotes
		case '\n':
			if !inQuotes {
				return i + 1
			}
		}
	}
	return -1
}
