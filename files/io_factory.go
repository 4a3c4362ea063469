package files

import (
	"os"

	pool "github.com/libp2p/go-buffer-pool"
	"github.com/ncw/directio"
)

// Factory creates the buffered reader/writer a file wrapper runs on. The
// write flags are the os.OpenFile flags the caller wants (truncate vs
// append); factories may adjust them for their I/O mechanism.
type Factory interface {
	NewInput(path string, bufSizeBytes int) (*os.File, BlockReader, error)
	NewOutput(path string, flags int, bufSizeBytes int) (*os.File, WriteFlushCloser, error)
}

// blockPool backs all buffered factories, blocks are returned on
// Release/Close.
var blockPool pool.BufferPool

// BufferedFactory is the default: plain files with pooled buffer blocks.
type BufferedFactory struct{}

func (BufferedFactory) NewInput(path string, bufSizeBytes int) (*os.File, BlockReader, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, nil, err
	}

	block := blockPool.Get(bufSizeBytes)
	return file, newBlockReader(file, block, func() { blockPool.Put(block) }), nil
}

func (BufferedFactory) NewOutput(path string, flags int, bufSizeBytes int) (*os.File, WriteFlushCloser, error) {
	file, err := os.OpenFile(path, flags, 0666)
	if err != nil {
		return nil, nil, err
	}

	block := blockPool.Get(bufSizeBytes)
	return file, newBlockWriter(file, block, false, func() { blockPool.Put(block) }), nil
}

// DirectIOFactory opens files with O_DIRECT and aligned blocks. The
// buffer size is rounded up to the next block size multiple.
type DirectIOFactory struct{}

func alignBufSize(bufSizeBytes int) int {
	if rem := bufSizeBytes % directio.BlockSize; rem != 0 {
		bufSizeBytes += directio.BlockSize - rem
	}
	return bufSizeBytes
}

func (DirectIOFactory) NewInput(path string, bufSizeBytes int) (*os.File, BlockReader, error) {
	file, err := directio.OpenFile(path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, nil, err
	}

	block := directio.AlignedBlock(alignBufSize(bufSizeBytes))
	return file, newBlockReader(file, block, nil), nil
}

func (DirectIOFactory) NewOutput(path string, flags int, bufSizeBytes int) (*os.File, WriteFlushCloser, error) {
	file, err := directio.OpenFile(path, flags, 0666)
	if err != nil {
		return nil, nil, err
	}

	block := directio.AlignedBlock(alignBufSize(bufSizeBytes))
	return file, newBlockWriter(file, block, true, nil), nil
}

// IsDirectIOAvailable tests whether O_DIRECT works on the OS and
// filesystem backing the temp dir. It returns (true, nil) when available
// and (false, nil) when not; any other failure comes back as an error.
func IsDirectIOAvailable() (bool, error) {
	tmpFile, err := os.CreateTemp("", "directio-probe")
	if err != nil {
		return false, err
	}
	name := tmpFile.Name()
	defer func() {
		_ = os.Remove(name)
	}()
	if err := tmpFile.Close(); err != nil {
		return false, err
	}

	// opening with O_DIRECT fails with EINVAL when unsupported
	tmpFile, err = directio.OpenFile(name, os.O_WRONLY, 0666)
	if err != nil {
		return false, nil
	}
	return true, tmpFile.Close()
}
