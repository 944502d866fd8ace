package w3g

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/w3g-sdk/internal/cursor"
	"github.com/kelindar/w3g-sdk/mock"
)

// buildBlock renders a single compressed block with an arbitrary declared
// decompressed size.
func buildBlock(t *testing.T, plain []byte, declared uint16) []byte {
	t.Helper()

	var cbuf bytes.Buffer
	zw := zlib.NewWriter(&cbuf)
	_, err := zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var out bytes.Buffer
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(cbuf.Len()))
	out.Write(tmp[:])
	binary.LittleEndian.PutUint16(tmp[:], declared)
	out.Write(tmp[:])
	out.Write([]byte{0, 0, 0, 0}) // unknown field
	out.Write(cbuf.Bytes())
	return out.Bytes()
}

func TestBlocks_FixedOutputSize(t *testing.T) {
	// A payload larger than one chunk forces multiple blocks; the output
	// is always BlockCount full chunks regardless of the content size.
	b := mock.Default()
	for i := 0; i < 2000; i++ {
		b.Countdown(0, uint32(i))
	}
	data := b.Bytes()

	r := cursor.New(data)
	hdr, _, err := parseContainer(r)
	require.NoError(t, err)
	require.Greater(t, int(hdr.BlockCount), 1)

	plain, trailing, err := decompressBlocks(r, hdr, zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, trailing)
	assert.Len(t, plain, int(hdr.BlockCount)*chunkSize)
}

func TestBlocks_DeclaredSizeMismatch(t *testing.T) {
	b := mock.Default()
	b.DeclaredChunkSize = 4096
	b.CorruptBlocks = true // proves the size gate fires before inflation

	r := cursor.New(b.Bytes())
	hdr, _, err := parseContainer(r)
	require.NoError(t, err)

	_, _, err = decompressBlocks(r, hdr, zerolog.Nop())
	require.ErrorIs(t, err, ErrBlockSize)
	assert.NotErrorIs(t, err, ErrDecompress)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dataOffset, de.Offset)
}

func TestBlocks_GarbageStream(t *testing.T) {
	b := mock.Default()
	b.CorruptBlocks = true

	r := cursor.New(b.Bytes())
	hdr, _, err := parseContainer(r)
	require.NoError(t, err)

	_, _, err = decompressBlocks(r, hdr, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDecompress)
}

func TestBlocks_ShortChunk(t *testing.T) {
	block := buildBlock(t, make([]byte, 100), chunkSize)

	_, _, err := decompressBlocks(cursor.New(block), Header{BlockCount: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDecompress)
}

func TestBlocks_OverlongChunk(t *testing.T) {
	block := buildBlock(t, make([]byte, chunkSize+1), chunkSize)

	_, _, err := decompressBlocks(cursor.New(block), Header{BlockCount: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDecompress)
}

func TestBlocks_TruncatedHeader(t *testing.T) {
	_, _, err := decompressBlocks(cursor.New([]byte{0x10}), Header{BlockCount: 1}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestBlocks_TrailingBytesNonFatal(t *testing.T) {
	b := mock.Default()
	b.TrailingJunk = 5

	replay, err := Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 5, replay.TrailingBytes)
}
