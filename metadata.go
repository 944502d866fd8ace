package w3g

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// Record tags inside the decompressed metadata prefix.
const (
	recordHost   = 0x00
	recordJoiner = 0x16
	recordSlots  = 0x19

	observerTeam = 12
)

// Player is one player record from the replay metadata. The host is always
// the first record; additional players follow with join records.
type Player struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
	Host bool   `json:"host"`
}

// Slot is one fixed nine-byte lobby slot record.
type Slot struct {
	PlayerID uint8 `json:"playerId"`
	Download uint8 `json:"download"` // map download percentage
	Status   uint8 `json:"status"`   // 0 empty, 1 closed, 2 used
	Computer uint8 `json:"computer"` // 1 when the slot is AI-controlled
	Team     uint8 `json:"team"`
	Color    uint8 `json:"color"`
	Race     uint8 `json:"race"`
	AI       uint8 `json:"ai"`       // computer strength
	Handicap uint8 `json:"handicap"` // percent
}

// Used reports whether the slot holds a player or computer.
func (s Slot) Used() bool {
	return s.Status == 2
}

// Observer reports whether the slot sits on the observer team.
func (s Slot) Observer() bool {
	return s.Team == observerTeam
}

// MapInfo is the decoded view of the masked settings string: the lobby
// option bytes, the map checksum and the map and creator names.
type MapInfo struct {
	Speed      uint8  `json:"speed"`
	Visibility uint8  `json:"visibility"`
	Teams      uint8  `json:"teams"`
	Control    uint8  `json:"control"`
	Checksum   uint32 `json:"checksum"`
	Path       string `json:"path"`
	Creator    string `json:"creator"`
}

// GameSettings aggregates the lobby configuration of the recorded game.
type GameSettings struct {
	Raw         []byte  `json:"-"` // settings string after unmasking
	Map         MapInfo `json:"map"`
	PlayerCount uint32  `json:"playerCount"`
	GameType    uint32  `json:"gameType"`
	Language    uint32  `json:"language"`
	Seed        uint32  `json:"seed"`
	SelectMode  uint8   `json:"selectMode"`
	StartSpots  uint8   `json:"startSpots"`
}

// metadata is the parsed prefix of the decompressed stream; the cursor ends
// up at the first action-stream block.
type metadata struct {
	players  []Player
	gameName string
	settings GameSettings
	slots    []Slot
}

// parseMetadata consumes the decompressed stream's header region: the host
// record, game name, masked settings string, join records, slot records and
// the start parameters.
func parseMetadata(r *cursor.Reader) (metadata, error) {
	var m metadata

	if err := r.Skip(4); err != nil { // unknown leading field
		return m, decodeErr(err, 0)
	}

	recOff := r.Offset()
	recID, err := r.Uint8()
	if err != nil {
		return m, decodeErr(err, recOff)
	}
	if recID != recordHost {
		return m, decodeErr(fmt.Errorf("record id 0x%02X: %w", recID, ErrNonHostPlayer), recOff)
	}
	host, err := parsePlayerBody(r)
	if err != nil {
		return m, err
	}
	host.Host = true
	m.players = append(m.players, host)

	nameOff := r.Offset()
	name, err := r.CString()
	if err != nil {
		return m, decodeErr(ErrGameName, nameOff)
	}
	m.gameName = decodeText(name)

	if err := r.Skip(1); err != nil { // null byte between name and settings
		return m, decodeErr(err, r.Offset())
	}

	encOff := r.Offset()
	enc, err := r.CString()
	if err != nil {
		return m, decodeErr(ErrEncodedString, encOff)
	}
	m.settings.Raw = decodeGameString(enc)
	if m.settings.Map, err = parseMapInfo(m.settings.Raw); err != nil {
		return m, decodeErr(err, encOff)
	}

	fields := []*uint32{&m.settings.PlayerCount, &m.settings.GameType, &m.settings.Language}
	for _, f := range fields {
		off := r.Offset()
		if *f, err = r.Uint32(); err != nil {
			return m, decodeErr(err, off)
		}
	}

	// Join records for every additional player, each tagged 0x16.
	for {
		next, err := r.PeekUint8()
		if err != nil {
			return m, decodeErr(err, r.Offset())
		}
		if next != recordJoiner {
			break
		}
		_ = r.Skip(1)
		joiner, err := parsePlayerBody(r)
		if err != nil {
			return m, err
		}
		if err := r.Skip(4); err != nil { // unknown per-join field
			return m, decodeErr(err, r.Offset())
		}
		m.players = append(m.players, joiner)
	}

	slotOff := r.Offset()
	recID, err = r.Uint8()
	if err != nil {
		return m, decodeErr(err, slotOff)
	}
	if recID != recordSlots {
		return m, decodeErr(fmt.Errorf("record id 0x%02X: %w", recID, ErrSlotRecordID), slotOff)
	}
	if _, err := r.Uint16(); err != nil { // record byte length, advisory only
		return m, decodeErr(err, r.Offset())
	}
	count, err := r.Uint8()
	if err != nil {
		return m, decodeErr(err, r.Offset())
	}
	m.slots = make([]Slot, 0, count)
	for i := 0; i < int(count); i++ {
		off := r.Offset()
		raw, err := r.Bytes(9)
		if err != nil {
			return m, decodeErr(fmt.Errorf("slot %d: %w", i, err), off)
		}
		m.slots = append(m.slots, Slot{
			PlayerID: raw[0],
			Download: raw[1],
			Status:   raw[2],
			Computer: raw[3],
			Team:     raw[4],
			Color:    raw[5],
			Race:     raw[6],
			AI:       raw[7],
			Handicap: raw[8],
		})
	}

	off := r.Offset()
	if m.settings.Seed, err = r.Uint32(); err != nil {
		return m, decodeErr(err, off)
	}
	if m.settings.SelectMode, err = r.Uint8(); err != nil {
		return m, decodeErr(err, r.Offset())
	}
	if m.settings.StartSpots, err = r.Uint8(); err != nil {
		return m, decodeErr(err, r.Offset())
	}

	return m, nil
}

// parsePlayerBody reads the shared part of host and join records: player
// id, display name and the variable extra block.
func parsePlayerBody(r *cursor.Reader) (Player, error) {
	var p Player

	idOff := r.Offset()
	id, err := r.Uint8()
	if err != nil {
		return p, decodeErr(err, idOff)
	}
	p.ID = id

	nameOff := r.Offset()
	name, err := r.CString()
	if err != nil {
		return p, decodeErr(ErrPlayerName, nameOff)
	}
	p.Name = decodeText(name)

	extra, err := r.Uint8()
	if err != nil {
		return p, decodeErr(err, r.Offset())
	}
	if err := r.Skip(int(extra)); err != nil {
		return p, decodeErr(err, r.Offset())
	}
	return p, nil
}

// parseMapInfo decodes the unmasked settings string: four option bytes,
// five unknown bytes, the map checksum and two null-terminated names.
func parseMapInfo(blob []byte) (MapInfo, error) {
	var info MapInfo
	if len(blob) < 13 {
		return info, fmt.Errorf("settings string of %d bytes: %w", len(blob), ErrMapInfo)
	}

	info.Speed = blob[0]
	info.Visibility = blob[1]
	info.Teams = blob[2]
	info.Control = blob[3]

	r := cursor.At(blob, 9)
	checksum, err := r.Uint32()
	if err != nil {
		return info, fmt.Errorf("map checksum: %w", ErrMapInfo)
	}
	info.Checksum = checksum

	path, err := r.CString()
	if err != nil {
		return info, fmt.Errorf("map path: %w", ErrMapInfo)
	}
	info.Path = decodeText(path)

	creator, err := r.CString()
	if err != nil {
		return info, fmt.Errorf("creator name: %w", ErrMapInfo)
	}
	info.Creator = decodeText(creator)

	return info, nil
}

// decodeText converts a raw replay string to UTF-8. Older clients write
// text in the locale code page; Windows-1252 covers the usual case, and
// already-valid UTF-8 passes through untouched.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	if out, err := charmap.Windows1252.NewDecoder().Bytes(raw); err == nil {
		return string(out)
	}
	return string(raw)
}
