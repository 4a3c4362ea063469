package compress

import "bytes"

// DetectHeaderLen is the number of leading bytes DetectCompressionType
// needs to make its decision.
const DetectHeaderLen = 4

var magicNumbers = []struct {
	magic []byte
	ct    CompressionType
}{
	{[]byte{0x1f, 0x8b}, Gzip},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, Zstd},
	{[]byte{0x04, 0x22, 0x4d, 0x18}, Lz4Frame},
	{[]byte{'B', 'Z', 'h'}, Bz2},
}

// DetectCompressionType inspects the leading bytes of a stream and reports
// the compression format they announce, or Uncompressed when no known magic
// number matches. Brotli and raw deflate carry no magic number and are
// reported as Uncompressed.
func DetectCompressionType(header []byte) CompressionType {
	for _, m := range magicNumbers {
		if len(header) >= len(m.magic) && bytes.Equal(header[:len(m.magic)], m.magic) {
			return m.ct
		}
	}
	return Uncompressed
}
