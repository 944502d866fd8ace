package w3g

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/w3g-sdk/internal/cursor"
	"github.com/kelindar/w3g-sdk/mock"
)

func TestMetadata_Game(t *testing.T) {
	TestWith(t, func(b *mock.Builder) {
		b.GameName = "grand melee"
		b.MapPath = `Maps\(4)TwistedMeadows.w3x`
		b.MapCreator = "Blizzard Entertainment"
		b.Speed = 2
		b.Seed = 0xCAFE
		b.StartSpots = 4
	}, func(t *testing.T, replay *Replay) {
		assert.Equal(t, "grand melee", replay.GameName)
		assert.Equal(t, `Maps\(4)TwistedMeadows.w3x`, replay.Settings.Map.Path)
		assert.Equal(t, "Blizzard Entertainment", replay.Settings.Map.Creator)
		assert.Equal(t, uint8(2), replay.Settings.Map.Speed)
		assert.Equal(t, uint32(0x12345678), replay.Settings.Map.Checksum)
		assert.Equal(t, uint32(0xCAFE), replay.Settings.Seed)
		assert.Equal(t, uint8(4), replay.Settings.StartSpots)
		assert.Equal(t, uint32(2), replay.Settings.PlayerCount)
		assert.NotEmpty(t, replay.Settings.Raw)
	})
}

func TestMetadata_Players(t *testing.T) {
	TestWith(t, func(b *mock.Builder) {
		b.Join(3, "Cyrus")
	}, func(t *testing.T, replay *Replay) {
		require.Len(t, replay.Players, 3)

		assert.Equal(t, uint8(1), replay.Players[0].ID)
		assert.Equal(t, "Aran", replay.Players[0].Name)
		assert.True(t, replay.Players[0].Host)
		assert.Equal(t, replay.Players[0], replay.Host())

		assert.Equal(t, uint8(2), replay.Players[1].ID)
		assert.Equal(t, "Beryl", replay.Players[1].Name)
		assert.False(t, replay.Players[1].Host)

		assert.Equal(t, "Cyrus", replay.Players[2].Name)
	})
}

func TestMetadata_Slots(t *testing.T) {
	TestWith(t, func(b *mock.Builder) {
		b.Slot(mock.SlotDef{PlayerID: 3, Team: 12, Color: 4, Race: 8})
	}, func(t *testing.T, replay *Replay) {
		require.Len(t, replay.Slots, 3)

		first := replay.Slots[0]
		assert.Equal(t, uint8(1), first.PlayerID)
		assert.Equal(t, uint8(0), first.Team)
		assert.True(t, first.Used())
		assert.False(t, first.Observer())

		obs := replay.Slots[2]
		assert.Equal(t, uint8(12), obs.Team)
		assert.True(t, obs.Observer())
		assert.Equal(t, uint8(100), obs.Handicap)
	})
}

func TestMetadata_CodePageNames(t *testing.T) {
	TestWith(t, func(b *mock.Builder) {
		// Raw Windows-1252 bytes as an older client would write them.
		b.Join(3, "J\xE9r\xF4me")
		// Already valid UTF-8 passes through untouched.
		b.Join(4, "Šárka")
	}, func(t *testing.T, replay *Replay) {
		require.Len(t, replay.Players, 4)
		assert.Equal(t, "Jérôme", replay.Players[2].Name)
		assert.Equal(t, "Šárka", replay.Players[3].Name)
	})
}

func TestMetadata_NonHostFirstRecord(t *testing.T) {
	b := mock.Default()
	b.HostRecordID = 0x16

	_, err := Decode(b.Bytes())
	require.ErrorIs(t, err, ErrNonHostPlayer)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 4, de.Offset)
}

func TestMetadata_BadSlotRecordID(t *testing.T) {
	b := mock.Default()
	b.SlotRecordID = 0x42

	_, err := Decode(b.Bytes())
	assert.ErrorIs(t, err, ErrSlotRecordID)
}

// metaPrefix renders the stream up to and including the skipped byte
// after the game name, so truncation tests can append what they need.
func metaPrefix() *bytes.Buffer {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteByte(0x00)             // host record
	buf.WriteByte(1)                // player id
	buf.WriteString("A\x00")        // player name
	buf.Write([]byte{0x01, 0x00})   // extra block
	buf.WriteString("skirmish\x00") // game name
	buf.WriteByte(0x00)             // separator
	return &buf
}

func TestMetadata_UnterminatedGameName(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteByte(0x00)
	buf.WriteByte(1)
	buf.WriteString("A\x00")
	buf.Write([]byte{0x01, 0x00})
	buf.WriteString("skirmish") // no terminator

	_, err := parseMetadata(cursor.New(buf.Bytes()))
	assert.ErrorIs(t, err, ErrGameName)
}

func TestMetadata_UnterminatedSettings(t *testing.T) {
	buf := metaPrefix()
	buf.Write([]byte{0x03, 0x01}) // masked bytes without a terminator

	_, err := parseMetadata(cursor.New(buf.Bytes()))
	assert.ErrorIs(t, err, ErrEncodedString)
}

func TestMetadata_UnterminatedPlayerName(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteByte(0x00)
	buf.WriteByte(1)
	buf.WriteString("Aran") // no terminator

	_, err := parseMetadata(cursor.New(buf.Bytes()))
	assert.ErrorIs(t, err, ErrPlayerName)
}

func TestMapInfo_Malformed(t *testing.T) {
	// Too short for the fixed fields.
	_, err := parseMapInfo([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMapInfo)

	// Fixed fields present but no terminated map path.
	_, err = parseMapInfo(make([]byte, 13))
	assert.ErrorIs(t, err, ErrMapInfo)

	// Map path terminated but creator missing.
	blob := append(make([]byte, 13), []byte("Maps\\x.w3m\x00creator")...)
	_, err = parseMapInfo(blob)
	assert.ErrorIs(t, err, ErrMapInfo)
}
