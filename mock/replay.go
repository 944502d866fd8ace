// Package mock builds synthetic Warcraft III replay files for tests: a
// Builder assembles metadata and action blocks, compresses them into the
// fixed 8192-byte chunks and wraps the result in a valid container.
package mock

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zlib"
)

const chunkSize = 8192

var magic = []byte("Warcraft III recorded game\x1A\x00")

// SlotDef is the configurable part of one slot record; the remaining
// bytes (download, status, AI level, handicap) render as a ready human
// player.
type SlotDef struct {
	PlayerID uint8
	Team     uint8
	Color    uint8
	Race     uint8
}

// Frame is one player's share of a time slot.
type Frame struct {
	Player uint8
	Data   []byte
}

type playerRec struct {
	id   uint8
	name string
}

// Builder accumulates replay content and renders it with Bytes. The
// exported fields feed the container and metadata sections directly;
// zero values are replaced with working defaults where the decoder would
// otherwise reject the file.
type Builder struct {
	Tag        string
	Version    uint32
	Build      uint16
	Flags      uint16
	LengthMS   uint32
	GameName   string
	MapPath    string
	MapCreator string
	Speed      uint8
	Seed       uint32
	StartSpots uint8

	// knobs for malformed-file tests
	HostRecordID      uint8  // first metadata record id, 0x00 in real files
	SlotRecordID      uint8  // slot block record id, 0x19 in real files
	DeclaredChunkSize uint16 // per-block decompressed size field
	CorruptBlocks     bool   // write junk instead of a zlib stream
	TrailingJunk      int    // junk bytes appended after the last block

	host    playerRec
	joiners []playerRec
	slots   []SlotDef
	actions bytes.Buffer
}

// NewBuilder returns an empty builder. At least a host player and one
// slot are needed for the decoder to accept the result; Default covers
// that for tests that do not care.
func NewBuilder() *Builder {
	return &Builder{
		Tag:               "PX3W",
		Version:           26,
		Build:             6059,
		Flags:             0x8000,
		LengthMS:          120000,
		GameName:          "Local Game",
		MapPath:           `Maps\(2)BootyBay.w3m`,
		MapCreator:        "Blizzard Entertainment",
		SlotRecordID:      0x19,
		DeclaredChunkSize: chunkSize,
	}
}

// Default returns a builder pre-filled with a minimal two-player game.
func Default() *Builder {
	b := NewBuilder()
	b.Host(1, "Aran")
	b.Join(2, "Beryl")
	b.Slot(SlotDef{PlayerID: 1, Team: 0, Color: 0, Race: 1})
	b.Slot(SlotDef{PlayerID: 2, Team: 1, Color: 1, Race: 2})
	return b
}

// Host sets the recording player.
func (b *Builder) Host(id uint8, name string) {
	b.host = playerRec{id: id, name: name}
}

// Join appends an additional player record.
func (b *Builder) Join(id uint8, name string) {
	b.joiners = append(b.joiners, playerRec{id: id, name: name})
}

// Slot appends one slot record.
func (b *Builder) Slot(def SlotDef) {
	b.slots = append(b.slots, def)
}

// TimeSlot appends a 0x1F block carrying the given frames.
func (b *Builder) TimeSlot(delta uint16, frames ...Frame) {
	var body bytes.Buffer
	u16(&body, delta)
	for _, f := range frames {
		body.WriteByte(f.Player)
		u16(&body, uint16(len(f.Data)))
		body.Write(f.Data)
	}
	b.actions.WriteByte(0x1F)
	u16(&b.actions, uint16(body.Len()))
	b.actions.Write(body.Bytes())
}

// Chat appends a 0x20 block with a raw payload.
func (b *Builder) Chat(player uint8, payload []byte) {
	b.actions.WriteByte(0x20)
	b.actions.WriteByte(player)
	u16(&b.actions, uint16(len(payload)))
	b.actions.Write(payload)
}

// Countdown appends a 0x2F timer block.
func (b *Builder) Countdown(mode, remaining uint32) {
	b.actions.WriteByte(0x2F)
	u32(&b.actions, mode)
	u32(&b.actions, remaining)
}

// Leave appends a 0x17 leave-game block for the player.
func (b *Builder) Leave(player uint8) {
	b.actions.WriteByte(0x17)
	u32(&b.actions, 0x01) // reason
	b.actions.WriteByte(player)
	u32(&b.actions, 0x07) // result
	u32(&b.actions, 0)
}

// Raw appends arbitrary bytes to the action stream.
func (b *Builder) Raw(data ...byte) {
	b.actions.Write(data)
}

// SelectSubgroup renders a 0x19 action record.
func SelectSubgroup(item, object1, object2 uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x19)
	u32(&buf, item)
	u32(&buf, object1)
	u32(&buf, object2)
	return buf.Bytes()
}

// Ability renders a targetless 0x10 action record.
func Ability(flags uint16, item uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x10)
	u16(&buf, flags)
	u32(&buf, item)
	u32(&buf, 0xFFFFFFFF)
	u32(&buf, 0xFFFFFFFF)
	return buf.Bytes()
}

// MMD renders a 0x6B scoreboard record.
func MMD(filename, key, message string, checksum uint32) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x6B)
	cstring(&buf, filename)
	cstring(&buf, key)
	cstring(&buf, message)
	u32(&buf, checksum)
	return buf.Bytes()
}

// Bytes renders the complete replay file.
func (b *Builder) Bytes() []byte {
	payload := b.payload()

	blocks, count := b.compress(payload)

	var out bytes.Buffer
	out.Write(magic)
	u32(&out, 68) // data offset
	u32(&out, uint32(len(blocks)))
	u32(&out, 1) // container format version
	u32(&out, count*chunkSize)
	u32(&out, count)

	out.WriteString(b.Tag)
	u32(&out, b.Version)
	u16(&out, b.Build)
	u16(&out, b.Flags)
	u32(&out, b.LengthMS)
	u32(&out, 0xDEADBEEF) // checksum, not validated

	out.Write(blocks)
	for i := 0; i < b.TrailingJunk; i++ {
		out.WriteByte(0xAA)
	}
	return out.Bytes()
}

// payload renders the decompressed stream: metadata, action blocks and
// the trailing sentinel.
func (b *Builder) payload() []byte {
	var buf bytes.Buffer
	u32(&buf, 0x00011000) // unknown leading dword

	buf.WriteByte(b.HostRecordID)
	writePlayer(&buf, b.host)
	cstring(&buf, b.GameName)
	buf.WriteByte(0x00)

	settings := b.settingsBlob()
	buf.Write(encodeGameString(settings))
	buf.WriteByte(0x00)

	u32(&buf, uint32(len(b.joiners)+1)) // player count
	u32(&buf, 0x09)                     // game type
	u32(&buf, 0x00)                     // language

	for _, j := range b.joiners {
		buf.WriteByte(0x16)
		writePlayer(&buf, j)
		u32(&buf, 0)
	}

	buf.WriteByte(b.SlotRecordID)
	u16(&buf, uint16(len(b.slots)*9+7))
	buf.WriteByte(uint8(len(b.slots)))
	for _, s := range b.slots {
		buf.Write([]byte{s.PlayerID, 100, 0x02, 0x00, s.Team, s.Color, s.Race, 0x01, 100})
	}
	u32(&buf, b.Seed)
	buf.WriteByte(0x00) // select mode
	buf.WriteByte(b.StartSpots)

	buf.Write(b.actions.Bytes())
	buf.WriteByte(0x00) // sentinel, the chunk padding keeps it zero anyway
	return buf.Bytes()
}

// settingsBlob is the plain (decoded) form of the encoded settings
// string: game options, a map checksum and the map path and creator.
func (b *Builder) settingsBlob() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{b.Speed, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	u32(&buf, 0x12345678) // map checksum
	cstring(&buf, b.MapPath)
	cstring(&buf, b.MapCreator)
	return buf.Bytes()
}

// compress splits the payload into fixed chunks, deflates each and
// prepends the per-block headers.
func (b *Builder) compress(payload []byte) ([]byte, uint32) {
	padded := make([]byte, ((len(payload)+chunkSize-1)/chunkSize)*chunkSize)
	copy(padded, payload)
	if len(padded) == 0 {
		padded = make([]byte, chunkSize)
	}

	var out bytes.Buffer
	count := uint32(0)
	for off := 0; off < len(padded); off += chunkSize {
		chunk := padded[off : off+chunkSize]

		var cbuf bytes.Buffer
		if b.CorruptBlocks {
			cbuf.WriteString("not a zlib stream")
		} else {
			zw := zlib.NewWriter(&cbuf)
			zw.Write(chunk)
			zw.Close()
		}

		u16(&out, uint16(cbuf.Len()))
		u16(&out, b.DeclaredChunkSize)
		u32(&out, 0)
		out.Write(cbuf.Bytes())
		count++
	}
	return out.Bytes(), count
}

func writePlayer(buf *bytes.Buffer, p playerRec) {
	buf.WriteByte(p.id)
	cstring(buf, p.name)
	buf.WriteByte(0x01) // extra bytes that follow
	buf.WriteByte(0x00)
}

// encodeGameString is the inverse of the replay obfuscation: every group
// of seven payload bytes gets a leading mask byte, odd bytes keep their
// value with the mask bit set, even bytes are stored incremented with the
// bit clear. The output never contains a zero byte.
func encodeGameString(plain []byte) []byte {
	out := make([]byte, 0, len(plain)+len(plain)/7+1)
	for i := 0; i < len(plain); i += 7 {
		end := i + 7
		if end > len(plain) {
			end = len(plain)
		}
		group := plain[i:end]

		mask := byte(1)
		for j, c := range group {
			if c%2 == 1 {
				mask |= 1 << uint(j+1)
			}
		}
		out = append(out, mask)
		for _, c := range group {
			if c%2 == 1 {
				out = append(out, c)
			} else {
				out = append(out, c+1)
			}
		}
	}
	return out
}

func cstring(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0x00)
}

func u16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func u32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
