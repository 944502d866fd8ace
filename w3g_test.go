package w3g

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelindar/w3g-sdk/mock"
)

const (
	itemFootman = 0x68666F6F // "hfoo"
	itemWisp    = 0x65777370 // "ewsp"
)

// buildGame renders a small but complete game: selections, chat, a
// countdown and a player leaving.
func buildGame(b *mock.Builder) {
	b.TimeSlot(100, mock.Frame{Player: 1, Data: mock.SelectSubgroup(itemFootman, 1, 2)})
	b.TimeSlot(100, mock.Frame{Player: 1, Data: mock.SelectSubgroup(itemFootman, 1, 2)})
	b.TimeSlot(100, mock.Frame{Player: 2, Data: mock.SelectSubgroup(itemWisp, 3, 4)})
	b.TimeSlot(100, mock.Frame{Player: 1, Data: mock.SelectSubgroup(itemFootman, 1, 2)})
	b.Chat(2, []byte("gl hf"))
	b.Countdown(0, 3000)
	b.Leave(2)
}

func TestDecode_EndToEnd(t *testing.T) {
	TestWith(t, buildGame, func(t *testing.T, replay *Replay) {
		assert.Equal(t, 7, replay.ActionBlocks)
		assert.Zero(t, replay.TrailingBytes)
		assert.Len(t, replay.Payload(), int(replay.Header.BlockCount)*chunkSize)

		// Selection frequencies come back ascending by count.
		require.Len(t, replay.Selections, 2)
		assert.Equal(t, SelectionCount{ItemID: itemWisp, Count: 1}, replay.Selections[0])
		assert.Equal(t, SelectionCount{ItemID: itemFootman, Count: 3}, replay.Selections[1])
		assert.Equal(t, "ewsp", replay.Selections[0].FourCC())
		assert.Equal(t, "hfoo", replay.Selections[1].FourCC())

		// Two minutes of game time, three and one actions respectively.
		require.Len(t, replay.Activity, 2)
		assert.Equal(t, "Aran", replay.Activity[0].Name)
		assert.Equal(t, 3, replay.Activity[0].Actions)
		assert.Equal(t, 1.5, replay.Activity[0].APM)
		assert.Equal(t, "Beryl", replay.Activity[1].Name)
		assert.Equal(t, 0.5, replay.Activity[1].APM)
	})
}

func TestDecode_EventOrder(t *testing.T) {
	b := mock.Default()
	buildGame(b)

	var events []any
	d := NewDecoder(b.Bytes())
	d.RegisterEventHandler(func(e SubgroupSelected) { events = append(events, e) })
	d.RegisterEventHandler(func(e ChatMessage) { events = append(events, e) })
	d.RegisterEventHandler(func(e CountdownUpdate) { events = append(events, e) })

	_, err := d.Decode()
	require.NoError(t, err)
	require.Len(t, events, 6)

	// Events arrive in stream order.
	assert.IsType(t, SubgroupSelected{}, events[0])
	assert.IsType(t, SubgroupSelected{}, events[3])
	assert.IsType(t, ChatMessage{}, events[4])
	assert.IsType(t, CountdownUpdate{}, events[5])

	first := events[0].(SubgroupSelected)
	assert.Equal(t, uint8(1), first.Player)
	assert.Equal(t, uint32(itemFootman), first.ItemID)

	chat := events[4].(ChatMessage)
	assert.Equal(t, uint8(2), chat.Player)
	assert.Equal(t, []byte("gl hf"), chat.Raw)
}

func TestDecode_UnregisterHandler(t *testing.T) {
	b := mock.Default()
	b.Chat(1, []byte("hi"))

	seen := 0
	d := NewDecoder(b.Bytes())
	id := d.RegisterEventHandler(func(ChatMessage) { seen++ })
	d.UnregisterEventHandler(id)

	_, err := d.Decode()
	require.NoError(t, err)
	assert.Zero(t, seen)
}

func TestDecode_CheatReplayRejected(t *testing.T) {
	b := mock.Default()
	b.TimeSlot(50, mock.Frame{Player: 1, Data: []byte{0x22, 0, 0, 0, 0, 0}})

	_, err := Decode(b.Bytes())
	assert.ErrorIs(t, err, ErrSinglePlayerCheat)
}

func TestDecode_UnknownActionRejected(t *testing.T) {
	b := mock.Default()
	b.TimeSlot(50, mock.Frame{Player: 1, Data: []byte{0x99}})

	_, err := Decode(b.Bytes())
	assert.ErrorIs(t, err, ErrUnknownActionID)
}

func TestDecode_LoggerSummaries(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	b := mock.Default()
	_, err := NewDecoder(b.Bytes(), WithLogger(log)).Decode()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "replay header")
	assert.Contains(t, out, "Aran")
	assert.Contains(t, out, `"slot":0`)
}

func TestDecode_LoggerFailure(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	b := mock.Default()
	b.CorruptBlocks = true
	_, err := NewDecoder(b.Bytes(), WithLogger(log)).Decode()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "decode failed")
}

func TestReplay_JSON(t *testing.T) {
	TestWith(t, buildGame, func(t *testing.T, replay *Replay) {
		data, err := json.Marshal(replay)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "Local Game", decoded["gameName"])
		assert.Contains(t, decoded, "subHeader")
		assert.Contains(t, decoded, "selections")
		assert.NotContains(t, decoded, "payload")
	})
}
