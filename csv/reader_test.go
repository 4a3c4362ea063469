package csv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alkaidlabs/alkaid/compress"
)

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func testRows(n int) ([][]string, []byte) {
	rows := make([][]string, 0, n)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		row := []string{fmt.Sprintf("user-%d", i), fmt.Sprintf("%d", i*i), "some payload"}
		rows = append(rows, row)
		sb.WriteString(strings.Join(row, ","))
		sb.WriteString("\n")
	}
	return rows, []byte(sb.String())
}

func readAllRows(t *testing.T, r *Reader) [][]string {
	t.Helper()
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestReaderPlainRoundTrip(t *testing.T) {
	expected, data := testRows(5000)
	path := writeTestFile(t, "plain.csv", data)

	// a small chunk size forces many chunk transitions
	reader, err := NewReader(path, ChunkSizeBytes(256), Logger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, path, reader.Path())
	assert.Equal(t, expected, readAllRows(t, reader))
	require.NoError(t, reader.Close())
}

func TestReaderQuotedNewlinesAcrossChunks(t *testing.T) {
	data := []byte("id,comment\n" +
		"1,\"first line\nsecond line\"\n" +
		"2,\"a much longer quoted field\nwith,commas,and\nmore newlines inside\"\n" +
		"3,plain\n")
	path := writeTestFile(t, "quoted.csv", data)

	// chunks far smaller than the quoted rows, boundaries must not split them
	reader, err := NewReader(path, ChunkSizeBytes(8))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "comment"},
		{"1", "first line\nsecond line"},
		{"2", "a much longer quoted field\nwith,commas,and\nmore newlines inside"},
		{"3", "plain"},
	}, readAllRows(t, reader))
	require.NoError(t, reader.Close())
}

func TestReaderCompressedRoundTrip(t *testing.T) {
	expected, data := testRows(2000)
	for _, ct := range []compress.CompressionType{compress.Gzip, compress.Zstd, compress.Lz4Frame, compress.Bz2} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := compress.Create(ct)
			require.NoError(t, err)
			var compressed []byte
			if ct == compress.Bz2 {
				compressed = streamCompressAll(t, codec, data)
			} else {
				dst := make([]byte, codec.MaxCompressedLen(len(data)))
				n, err := codec.Compress(dst, data)
				require.NoError(t, err)
				compressed = dst[:n]
			}
			path := writeTestFile(t, "rows.csv.bin", compressed)

			reader, err := NewReader(path, Logger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			assert.Equal(t, expected, readAllRows(t, reader))
			require.NoError(t, reader.Close())
		})
	}
}

// streamCompressAll compresses data through the streaming path for codecs
// that have no one-shot mode.
func streamCompressAll(t *testing.T, codec compress.Codec, data []byte) []byte {
	t.Helper()
	comp, err := codec.NewCompressor()
	require.NoError(t, err)
	var out []byte
	src := data
	for len(src) > 0 {
		dst := make([]byte, 64*1024)
		res, err := comp.Compress(dst, src)
		require.NoError(t, err)
		src = src[res.BytesRead:]
		out = append(out, dst[:res.BytesWritten]...)
	}
	for {
		dst := make([]byte, 64*1024)
		res, err := comp.End(dst)
		require.NoError(t, err)
		out = append(out, dst[:res.BytesWritten]...)
		if !res.ShouldRetry {
			break
		}
	}
	require.NoError(t, comp.Close())
	return out
}

func TestReaderCustomSeparator(t *testing.T) {
	path := writeTestFile(t, "tabs.csv", []byte("a\tb\tc\n1\t2\t3\n"))
	reader, err := NewReader(path, Separator('\t'))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}}, readAllRows(t, reader))
	require.NoError(t, reader.Close())
}

func TestReaderNoTrailingNewline(t *testing.T) {
	path := writeTestFile(t, "bare.csv", []byte("a,b\nc,d"))
	reader, err := NewReader(path, ChunkSizeBytes(4))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, readAllRows(t, reader))
	require.NoError(t, reader.Close())
}

func TestReaderTinyFile(t *testing.T) {
	path := writeTestFile(t, "tiny.csv", []byte("x"))
	reader, err := NewReader(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}}, readAllRows(t, reader))
	require.NoError(t, reader.Close())
}

func TestReaderEmptyFile(t *testing.T) {
	path := writeTestFile(t, "empty.csv", nil)
	reader, err := NewReader(path)
	require.NoError(t, err)
	_, err = reader.Read()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, reader.Close())
}

func TestReaderEarlyClose(t *testing.T) {
	_, data := testRows(50000)
	path := writeTestFile(t, "big.csv", data)

	reader, err := NewReader(path, PrefetchDepth(4), ChunkSizeBytes(512))
	require.NoError(t, err)
	_, err = reader.Read()
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())
}

func TestReaderMalformedQuoting(t *testing.T) {
	path := writeTestFile(t, "broken.csv", []byte("a,b\n\"unterminated\n"))
	reader, err := NewReader(path)
	require.NoError(t, err)
	for {
		_, err = reader.Read()
		if err != nil {
			break
		}
	}
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	closeErr := reader.Close()
	assert.Error(t, closeErr)
}

func TestReaderRejectsBadPrefetchDepth(t *testing.T) {
	path := writeTestFile(t, "x.csv", []byte("a\n"))
	_, err := NewReader(path, PrefetchDepth(0))
	assert.Error(t, err)
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
