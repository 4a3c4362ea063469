package files

import (
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TempFile is a sequential write file in the OS temp dir that removes
// itself on Close.
type TempFile struct {
	*SequentialWriteFile
}

// NewTempFile creates the backing file via os.CreateTemp with the given
// name pattern and reopens it through the regular write path, so all
// WriteFileOption values apply.
func NewTempFile(pattern string, options ...WriteFileOption) (*TempFile, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, err
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	writeFile, err := NewSequentialWriteFile(path, options...)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &TempFile{SequentialWriteFile: writeFile}, nil
}

func (f *TempFile) Close() error {
	if f.closed {
		return nil
	}
	err := f.SequentialWriteFile.Close()
	if rmErr := os.Remove(f.path); rmErr != nil {
		f.logger.Warn("failed to remove temp file", zap.String("path", f.path), zap.Error(rmErr))
		err = multierr.Append(err, rmErr)
	}
	return err
}
