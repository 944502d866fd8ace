package w3g

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/w3g-sdk/internal/cursor"
	"github.com/kelindar/w3g-sdk/mock"
)

func TestContainer_Fields(t *testing.T) {
	b := mock.Default()
	b.Version = 26
	b.Build = 6059
	b.LengthMS = 90000

	r := cursor.New(b.Bytes())
	hdr, sub, err := parseContainer(r)
	require.NoError(t, err)

	assert.Equal(t, uint32(dataOffset), hdr.BlockOffset)
	assert.Equal(t, uint32(1), hdr.Version)
	assert.Equal(t, hdr.BlockCount*chunkSize, hdr.SizeDecompressed)
	assert.Equal(t, "PX3W", sub.Tag)
	assert.Equal(t, uint32(26), sub.Version)
	assert.Equal(t, uint16(6059), sub.Build)
	assert.Equal(t, 90*time.Second, sub.Duration())
	assert.True(t, sub.Expansion())
	assert.True(t, sub.Multiplayer())

	// The cursor must sit on the first compressed block afterwards.
	assert.Equal(t, dataOffset, r.Offset())
}

func TestContainer_ClassicTag(t *testing.T) {
	b := mock.Default()
	b.Tag = "3RAW"
	b.Flags = 0x0000

	_, sub, err := parseContainer(cursor.New(b.Bytes()))
	require.NoError(t, err)
	assert.False(t, sub.Expansion())
	assert.False(t, sub.Multiplayer())
}

func TestContainer_MagicMutations(t *testing.T) {
	// Any single flipped byte inside the 28-byte magic must be rejected.
	for i := 0; i < len(magicTag); i++ {
		data := mock.Default().Bytes()
		data[i] ^= 0xFF

		_, _, err := parseContainer(cursor.New(data))
		require.ErrorIs(t, err, ErrInvalidHeader, "mutated byte %d", i)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 0, de.Offset)
	}
}

func TestContainer_BadVersion(t *testing.T) {
	data := mock.Default().Bytes()
	binary.LittleEndian.PutUint32(data[len(magicTag)+8:], 2)

	_, _, err := parseContainer(cursor.New(data))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestContainer_BadBlockOffset(t *testing.T) {
	data := mock.Default().Bytes()
	binary.LittleEndian.PutUint32(data[len(magicTag):], 69)

	_, _, err := parseContainer(cursor.New(data))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestContainer_BadSubTag(t *testing.T) {
	b := mock.Default()
	b.Tag = "XXXX"

	_, _, err := parseContainer(cursor.New(b.Bytes()))
	require.ErrorIs(t, err, ErrInvalidSubHeader)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, headerSize, de.Offset)
}

func TestContainer_Truncated(t *testing.T) {
	data := mock.Default().Bytes()

	// Shorter than the magic, shorter than the header and shorter than
	// the sub-header all fail without moving past the missing field.
	for _, n := range []int{0, 10, len(magicTag), headerSize, headerSize + 10} {
		_, _, err := parseContainer(cursor.New(data[:n]))
		assert.Error(t, err, "length %d", n)
	}
}
