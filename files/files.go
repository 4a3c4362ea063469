// Package files provides thin, explicit wrappers around local files:
// sequential and random access in both directions, memory mapped reads and
// self-deleting temp files. All write paths run on a pluggable I/O factory,
// so the same call sites work on plain buffered I/O, O_DIRECT or io_uring.
package files

import (
	"errors"
	"os"
)

// DefaultBufferSizeBytes is the buffer size used when none is configured,
// 4MiB keeps sequential scans of large files syscall-cheap.
const DefaultBufferSizeBytes = 1024 * 1024 * 4

var (
	ErrAlreadyClosed = errors.New("files: already closed")
	ErrInvalidOffset = errors.New("files: invalid offset")
)

// EventListener carries optional callbacks around the lifecycle of a file
// wrapper. Any of the fields may be nil.
type EventListener struct {
	BeforeOpen  func(path string)
	AfterOpen   func(path string, file *os.File)
	BeforeClose func(path string)
	AfterClose  func(path string)
}

func (l EventListener) beforeOpen(path string) {
	if l.BeforeOpen != nil {
		l.BeforeOpen(path)
	}
}

func (l EventListener) afterOpen(path string, file *os.File) {
	if l.AfterOpen != nil {
		l.AfterOpen(path, file)
	}
}

func (l EventListener) beforeClose(path string) {
	if l.BeforeClose != nil {
		l.BeforeClose(path)
	}
}

func (l EventListener) afterClose(path string) {
	if l.AfterClose != nil {
		l.AfterClose(path)
	}
}
