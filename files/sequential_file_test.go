package files

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func TestSequentialWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.bin")
	data := testData(10000)

	w, err := NewSequentialWriteFile(path, WriteBufferSizeBytes(128))
	require.NoError(t, err)
	// odd chunk sizes to cross the block boundary mid-write
	for pos := 0; pos < len(data); pos += 333 {
		end := pos + 333
		if end > len(data) {
			end = len(data)
		}
		n, err := w.Write(data[pos:end])
		require.NoError(t, err)
		require.Equal(t, end-pos, n)
	}
	assert.Equal(t, int64(len(data)), w.Position())
	require.NoError(t, w.Close())

	r, err := NewSequentialReadFile(path, ReadBufferSizeBytes(128))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(len(data)), r.Size())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), r.Position())
}

func TestSequentialWriteAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.bin")

	w, err := NewSequentialWriteFile(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello "))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = NewSequentialWriteFile(path, Append())
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello ")), w.Position())
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestSequentialWriteChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checksum.bin")
	data := testData(5000)

	w, err := NewSequentialWriteFile(path, WithChecksum(), WriteBufferSizeBytes(512))
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64(data), w.Checksum())
	require.NoError(t, w.Close())

	// without the option the checksum stays zero
	w, err = NewSequentialWriteFile(path)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), w.Checksum())
	require.NoError(t, w.Close())
}

func TestSequentialWriteTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncate.bin")

	w, err := NewSequentialWriteFile(path, WriteBufferSizeBytes(64))
	require.NoError(t, err)
	_, err = w.Write(testData(100))
	require.NoError(t, err)
	require.NoError(t, w.Truncate(50))
	assert.Equal(t, int64(50), w.Position())
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, content, 60)
	assert.Equal(t, testData(100)[:50], content[:50])
	assert.Equal(t, "0123456789", string(content[50:]))
}

func TestSequentialReadSkip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skip.bin")
	data := testData(100)
	require.NoError(t, os.WriteFile(path, data, 0644))

	r, err := NewSequentialReadFile(path, ReadBufferSizeBytes(16))
	require.NoError(t, err)
	defer r.Close()

	skipped, err := r.Skip(37)
	require.NoError(t, err)
	require.Equal(t, int64(37), skipped)
	assert.Equal(t, int64(37), r.Position())

	one := make([]byte, 1)
	_, err = r.Read(one)
	require.NoError(t, err)
	assert.Equal(t, data[37], one[0])

	// skipping past the end stops at EOF
	skipped, err = r.Skip(1000)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int64(62), skipped)
	assert.Equal(t, int64(100), r.Position())

	_, err = r.Skip(-1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestSequentialFileUseAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.bin")

	w, err := NewSequentialWriteFile(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	assert.ErrorIs(t, w.Flush(), ErrAlreadyClosed)
	assert.ErrorIs(t, w.Sync(), ErrAlreadyClosed)

	r, err := NewSequentialReadFile(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestEventListenerCallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listener.bin")

	var events []string
	listener := EventListener{
		BeforeOpen:  func(p string) { events = append(events, "beforeOpen") },
		AfterOpen:   func(p string, f *os.File) { events = append(events, "afterOpen") },
		BeforeClose: func(p string) { events = append(events, "beforeClose") },
		AfterClose:  func(p string) { events = append(events, "afterClose") },
	}

	w, err := NewSequentialWriteFile(path, WriteListener(listener))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, []string{"beforeOpen", "afterOpen", "beforeClose", "afterClose"}, events)
}
