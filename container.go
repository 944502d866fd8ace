package w3g

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// Replay container layout constants. The compressed data blocks always
// start right after the header and sub-header.
const (
	headerSize    = 48
	subHeaderSize = 20
	dataOffset    = headerSize + subHeaderSize
	chunkSize     = 8192
)

// magicTag is the fixed 28-byte string every replay file starts with.
var magicTag = []byte("Warcraft III recorded game\x1A\x00")

// Sub-header tags, stored byte-reversed in the file.
const (
	subTagClassic   = "3RAW" // original game
	subTagExpansion = "PX3W" // expansion
)

// Header is the fixed container header that follows the magic string. All
// fields are little-endian in the file.
type Header struct {
	BlockOffset      uint32 `json:"blockOffset"`      // must equal dataOffset
	SizeCompressed   uint32 `json:"sizeCompressed"`   // total compressed size as recorded
	Version          uint32 `json:"version"`          // container format version, only 1 is supported
	SizeDecompressed uint32 `json:"sizeDecompressed"` // logical size of the decompressed stream
	BlockCount       uint32 `json:"blockCount"`       // number of compressed data blocks
}

// SubHeader carries the game version the replay was recorded with. Only the
// tag is validated; the remaining fields are reported as-is.
type SubHeader struct {
	Tag      string `json:"tag"` // subTagClassic or subTagExpansion
	Version  uint32 `json:"version"`
	Build    uint16 `json:"build"`
	Flags    uint16 `json:"flags"`
	LengthMS uint32 `json:"lengthMs"` // replay duration in milliseconds
	Checksum uint32 `json:"checksum"`
}

// Expansion reports whether the replay was recorded by the expansion.
func (s SubHeader) Expansion() bool {
	return s.Tag == subTagExpansion
}

// Multiplayer reports whether the multiplayer flag is set.
func (s SubHeader) Multiplayer() bool {
	return s.Flags&0x8000 != 0
}

// Duration returns the replay length as a time.Duration.
func (s SubHeader) Duration() time.Duration {
	return time.Duration(s.LengthMS) * time.Millisecond
}

// parseContainer validates the magic string, the fixed header and the
// sub-header tag, and leaves r positioned at the first compressed block.
func parseContainer(r *cursor.Reader) (Header, SubHeader, error) {
	var hdr Header
	var sub SubHeader

	magic, err := r.Bytes(len(magicTag))
	if err != nil || !bytes.Equal(magic, magicTag) {
		return hdr, sub, decodeErr(ErrInvalidHeader, 0)
	}

	raw, err := r.Bytes(headerSize - len(magicTag))
	if err != nil {
		return hdr, sub, decodeErr(ErrInvalidHeader, len(magicTag))
	}
	hdr.BlockOffset = binary.LittleEndian.Uint32(raw[0:4])
	hdr.SizeCompressed = binary.LittleEndian.Uint32(raw[4:8])
	hdr.Version = binary.LittleEndian.Uint32(raw[8:12])
	hdr.SizeDecompressed = binary.LittleEndian.Uint32(raw[12:16])
	hdr.BlockCount = binary.LittleEndian.Uint32(raw[16:20])

	if hdr.Version != 1 || hdr.BlockOffset != dataOffset {
		return hdr, sub, decodeErr(ErrUnsupportedVersion, len(magicTag))
	}

	subOff := r.Offset()
	raw, err = r.Bytes(subHeaderSize)
	if err != nil {
		return hdr, sub, decodeErr(ErrInvalidSubHeader, subOff)
	}
	sub.Tag = string(raw[0:4])
	sub.Version = binary.LittleEndian.Uint32(raw[4:8])
	sub.Build = binary.LittleEndian.Uint16(raw[8:10])
	sub.Flags = binary.LittleEndian.Uint16(raw[10:12])
	sub.LengthMS = binary.LittleEndian.Uint32(raw[12:16])
	sub.Checksum = binary.LittleEndian.Uint32(raw[16:20])

	if sub.Tag != subTagClassic && sub.Tag != subTagExpansion {
		return hdr, sub, decodeErr(ErrInvalidSubHeader, subOff)
	}

	return hdr, sub, nil
}
