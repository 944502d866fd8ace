package w3g

import (
	"errors"
	"fmt"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// mmdFilename is the fixed first string of every scoreboard action.
const mmdFilename = "MMD.Dat"

// actionShape describes how one action id consumes its payload. Entries
// with a decode routine read field by field and emit an event; plain
// entries are skipped whole. Cheat entries reject the replay outright.
type actionShape struct {
	fixed  int
	decode func(d *Decoder, r *cursor.Reader, player uint8) error
	cheat  bool
}

var cheatAction = actionShape{cheat: true}

// actionTable maps every known action id to its payload shape. Any id
// absent from the table fails the parse with ErrUnknownActionID.
var actionTable = map[uint8]actionShape{
	0x01: {decode: actionPause},
	0x02: {decode: actionResume},
	0x03: {decode: actionSetSpeed},
	0x04: {decode: actionSpeedUp},
	0x05: {decode: actionSpeedDown},
	0x06: {decode: actionSaveGame},
	0x07: {decode: actionSaveDone},
	0x10: {decode: actionAbility},
	0x11: {decode: actionAbilityAtPoint},
	0x12: {decode: actionAbilityOnObject},
	0x13: {decode: actionGiveItem},
	0x14: {decode: actionAbilityTwoTargets},
	0x16: {decode: actionChangeSelection},
	0x17: {decode: actionAssignGroup},
	0x18: {decode: actionSelectGroup},
	0x19: {decode: actionSelectSubgroup},
	0x1A: {fixed: 0}, // pre-subselection
	0x1B: {fixed: 9},
	0x1C: {decode: actionSelectGroundItem},
	0x1D: {decode: actionCancelRevival},
	0x1E: {decode: actionRemoveFromQueue},

	// Single-player cheats. Replays containing them are rejected rather
	// than guessed at; 0x21 sits inside the range but is not a cheat.
	0x20: cheatAction,
	0x21: {fixed: 8},
	0x22: cheatAction,
	0x23: cheatAction,
	0x24: cheatAction,
	0x25: cheatAction,
	0x26: cheatAction,
	0x27: cheatAction,
	0x28: cheatAction,
	0x29: cheatAction,
	0x2A: cheatAction,
	0x2B: cheatAction,
	0x2C: cheatAction,
	0x2D: cheatAction,
	0x2E: cheatAction,
	0x2F: cheatAction,
	0x30: cheatAction,
	0x31: cheatAction,
	0x32: cheatAction,

	0x50: {decode: actionAllyOptions},
	0x51: {decode: actionTransferResources},
	0x60: {decode: actionChatCommand},
	0x61: {decode: actionEscPressed},
	0x62: {fixed: 12}, // scenario trigger
	0x66: {fixed: 0},  // hero skill menu
	0x67: {fixed: 0},  // building menu
	0x68: {decode: actionMinimapPing},
	0x69: {fixed: 16}, // continue game
	0x6A: {fixed: 16}, // continue game
	0x6B: {decode: actionMMD},
	0x75: {fixed: 1},
}

// actionErr attaches the current block ordinal to a failure site.
func (d *Decoder) actionErr(err error, offset, id int) *DecodeError {
	return &DecodeError{Err: err, Offset: offset, Block: d.blocks, ID: id}
}

// parseActionData runs the single pass over the action stream: the
// top-level block loop, time-slot frames and the per-action dispatch.
// The 0x00 sentinel and the end of the buffer both terminate the loop
// successfully; every other irregularity aborts the decode.
func (d *Decoder) parseActionData(r *cursor.Reader) error {
	for r.Remaining() > 0 {
		off := r.Offset()
		id, err := r.Uint8()
		if err != nil {
			return d.actionErr(err, off, -1)
		}

		switch id {
		case 0x00: // trailing zero padding, done
			return nil

		case 0x17: // player left
			err = r.Skip(13)

		case 0x1A, 0x1B, 0x1C:
			err = r.Skip(4)

		case 0x1E, 0x1F: // time slot
			err = d.parseTimeSlot(r, id)

		case 0x20: // chat
			err = d.parseChat(r)

		case 0x22:
			err = r.Skip(5)

		case 0x23:
			err = r.Skip(10)

		case 0x2F: // countdown timer
			err = d.parseCountdown(r)

		default:
			return d.actionErr(ErrUnknownBlockID, off, int(id))
		}

		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				return err
			}
			return d.actionErr(err, r.Offset(), int(id))
		}
		d.blocks++
	}
	return nil
}

// parseTimeSlot decodes one 0x1E/0x1F block: a declared byte length, a
// time delta and a run of per-player action frames. The declared length
// is authoritative; frames that disagree with it fail the parse.
func (d *Decoder) parseTimeSlot(r *cursor.Reader, id uint8) error {
	lenOff := r.Offset()
	n, err := r.Uint16()
	if err != nil {
		return err
	}
	if n < 2 {
		return d.actionErr(fmt.Errorf("declared %d bytes: %w", n, ErrTimeSlotBytes), lenOff, int(id))
	}
	end := r.Offset() + int(n)

	if _, err := r.Uint16(); err != nil { // time delta, unused
		return err
	}

	for r.Offset() < end {
		if err := d.parseFrame(r, end); err != nil {
			return err
		}
	}
	return nil
}

// parseFrame decodes one player's actions inside a time slot. The frame
// header declares how many action bytes follow; the dispatch below must
// consume exactly that many.
func (d *Decoder) parseFrame(r *cursor.Reader, end int) error {
	if r.Offset()+3 > end {
		return d.actionErr(fmt.Errorf("%d bytes left for a frame header: %w", end-r.Offset(), ErrTimeSlotBytes), r.Offset(), -1)
	}
	player, err := r.Uint8()
	if err != nil {
		return err
	}
	lenOff := r.Offset()
	alen, err := r.Uint16()
	if err != nil {
		return err
	}
	frameEnd := r.Offset() + int(alen)
	if frameEnd > end {
		return d.actionErr(fmt.Errorf("player %d declares %d action bytes past the time slot: %w", player, alen, ErrPlayerFrameBytes), lenOff, -1)
	}

	for r.Offset() < frameEnd {
		if err := d.parseAction(r, player); err != nil {
			return err
		}
	}
	if r.Offset() != frameEnd {
		return d.actionErr(fmt.Errorf("player %d actions overran the frame by %d bytes: %w", player, r.Offset()-frameEnd, ErrPlayerFrameBytes), r.Offset(), -1)
	}
	return nil
}

// parseAction dispatches a single action record through the shape table.
func (d *Decoder) parseAction(r *cursor.Reader, player uint8) error {
	start := r.Offset()
	id, err := r.Uint8()
	if err != nil {
		return d.actionErr(err, start, -1)
	}

	shape, ok := actionTable[id]
	switch {
	case !ok:
		return d.actionErr(ErrUnknownActionID, start, int(id))
	case shape.cheat:
		return d.actionErr(ErrSinglePlayerCheat, start, int(id))
	case shape.decode != nil:
		err = shape.decode(d, r, player)
	default:
		err = r.Skip(shape.fixed)
	}
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return err
		}
		return d.actionErr(err, r.Offset(), int(id))
	}

	d.activity[player]++
	return nil
}

// parseChat surfaces a block-level chat payload without decoding it.
func (d *Decoder) parseChat(r *cursor.Reader) error {
	player, err := r.Uint8()
	if err != nil {
		return err
	}
	n, err := r.Uint16()
	if err != nil {
		return err
	}
	raw, err := r.Bytes(int(n))
	if err != nil {
		return err
	}
	d.emit(ChatMessage{Player: player, Raw: raw})
	return nil
}

func (d *Decoder) parseCountdown(r *cursor.Reader) error {
	mode, err := r.Uint32()
	if err != nil {
		return err
	}
	remaining, err := r.Uint32()
	if err != nil {
		return err
	}
	d.emit(CountdownUpdate{Mode: mode, RemainingMS: remaining})
	return nil
}

func actionPause(d *Decoder, r *cursor.Reader, player uint8) error {
	d.emit(Paused{Player: player})
	return nil
}

func actionResume(d *Decoder, r *cursor.Reader, player uint8) error {
	d.emit(Resumed{Player: player})
	return nil
}

func actionSetSpeed(d *Decoder, r *cursor.Reader, player uint8) error {
	speed, err := r.Uint8()
	if err != nil {
		return err
	}
	d.emit(SpeedSet{Player: player, Speed: speed})
	return nil
}

func actionSpeedUp(d *Decoder, r *cursor.Reader, player uint8) error {
	d.emit(SpeedUp{Player: player})
	return nil
}

func actionSpeedDown(d *Decoder, r *cursor.Reader, player uint8) error {
	d.emit(SpeedDown{Player: player})
	return nil
}

func actionSaveGame(d *Decoder, r *cursor.Reader, player uint8) error {
	name, err := r.CString()
	if err != nil {
		return err
	}
	d.emit(GameSaved{Player: player, Name: string(name)})
	return nil
}

func actionSaveDone(d *Decoder, r *cursor.Reader, player uint8) error {
	if err := r.Skip(4); err != nil {
		return err
	}
	d.emit(SaveFinished{Player: player})
	return nil
}

// abilityHead reads the common prefix of the four ability shapes: the
// flags, the item id and two unknown dwords.
func abilityHead(r *cursor.Reader) (flags uint16, item uint32, err error) {
	if flags, err = r.Uint16(); err != nil {
		return
	}
	if item, err = r.Uint32(); err != nil {
		return
	}
	err = r.Skip(8)
	return
}

func actionAbility(d *Decoder, r *cursor.Reader, player uint8) error {
	flags, item, err := abilityHead(r)
	if err != nil {
		return err
	}
	d.emit(Ability{Player: player, Flags: flags, ItemID: item})
	return nil
}

func actionAbilityAtPoint(d *Decoder, r *cursor.Reader, player uint8) error {
	flags, item, err := abilityHead(r)
	if err != nil {
		return err
	}
	x, err := r.Uint32()
	if err != nil {
		return err
	}
	y, err := r.Uint32()
	if err != nil {
		return err
	}
	d.emit(AbilityAtPoint{Player: player, Flags: flags, ItemID: item, X: x, Y: y})
	return nil
}

func actionAbilityOnObject(d *Decoder, r *cursor.Reader, player uint8) error {
	flags, item, err := abilityHead(r)
	if err != nil {
		return err
	}
	fields, err := readUint32s(r, 4)
	if err != nil {
		return err
	}
	d.emit(AbilityOnObject{
		Player: player, Flags: flags, ItemID: item,
		X: fields[0], Y: fields[1],
		ObjectID1: fields[2], ObjectID2: fields[3],
	})
	return nil
}

func actionGiveItem(d *Decoder, r *cursor.Reader, player uint8) error {
	flags, item, err := abilityHead(r)
	if err != nil {
		return err
	}
	fields, err := readUint32s(r, 6)
	if err != nil {
		return err
	}
	d.emit(ItemGiven{
		Player: player, Flags: flags, ItemID: item,
		X: fields[0], Y: fields[1],
		TargetID1: fields[2], TargetID2: fields[3],
		ObjectID1: fields[4], ObjectID2: fields[5],
	})
	return nil
}

func actionAbilityTwoTargets(d *Decoder, r *cursor.Reader, player uint8) error {
	flags, first, err := abilityHead(r)
	if err != nil {
		return err
	}
	a, err := readUint32s(r, 2)
	if err != nil {
		return err
	}
	second, err := r.Uint32()
	if err != nil {
		return err
	}
	if err := r.Skip(9); err != nil {
		return err
	}
	b, err := readUint32s(r, 2)
	if err != nil {
		return err
	}
	d.emit(AbilityTwoTargets{
		Player: player, Flags: flags,
		FirstItemID: first, FirstX: a[0], FirstY: a[1],
		SecondItemID: second, SecondX: b[0], SecondY: b[1],
	})
	return nil
}

// groupedUnits reads the mode/group byte and the 8-byte unit entries of
// the selection and hotkey-assignment shapes. The entries themselves are
// not decoded.
func groupedUnits(r *cursor.Reader) (mode uint8, count uint16, err error) {
	if mode, err = r.Uint8(); err != nil {
		return
	}
	if count, err = r.Uint16(); err != nil {
		return
	}
	err = r.Skip(int(count) * 8)
	return
}

func actionChangeSelection(d *Decoder, r *cursor.Reader, player uint8) error {
	mode, count, err := groupedUnits(r)
	if err != nil {
		return err
	}
	d.emit(SelectionChanged{Player: player, Add: mode == 0x01, Count: count})
	return nil
}

func actionAssignGroup(d *Decoder, r *cursor.Reader, player uint8) error {
	group, count, err := groupedUnits(r)
	if err != nil {
		return err
	}
	d.emit(GroupAssigned{Player: player, Group: group, Count: count})
	return nil
}

func actionSelectGroup(d *Decoder, r *cursor.Reader, player uint8) error {
	group, err := r.Uint8()
	if err != nil {
		return err
	}
	if err := r.Skip(1); err != nil {
		return err
	}
	d.emit(GroupSelected{Player: player, Group: group})
	return nil
}

func actionSelectSubgroup(d *Decoder, r *cursor.Reader, player uint8) error {
	fields, err := readUint32s(r, 3)
	if err != nil {
		return err
	}
	d.tally.observe(fields[0])
	d.emit(SubgroupSelected{Player: player, ItemID: fields[0], ObjectID1: fields[1], ObjectID2: fields[2]})
	return nil
}

func actionSelectGroundItem(d *Decoder, r *cursor.Reader, player uint8) error {
	if err := r.Skip(1); err != nil {
		return err
	}
	ids, err := readUint32s(r, 2)
	if err != nil {
		return err
	}
	d.emit(GroundItemSelected{Player: player, ObjectID1: ids[0], ObjectID2: ids[1]})
	return nil
}

func actionCancelRevival(d *Decoder, r *cursor.Reader, player uint8) error {
	ids, err := readUint32s(r, 2)
	if err != nil {
		return err
	}
	d.emit(RevivalCanceled{Player: player, ObjectID1: ids[0], ObjectID2: ids[1]})
	return nil
}

func actionRemoveFromQueue(d *Decoder, r *cursor.Reader, player uint8) error {
	slot, err := r.Uint8()
	if err != nil {
		return err
	}
	item, err := r.Uint32()
	if err != nil {
		return err
	}
	d.emit(QueueItemRemoved{Player: player, Slot: slot, ItemID: item})
	return nil
}

func actionAllyOptions(d *Decoder, r *cursor.Reader, player uint8) error {
	slot, err := r.Uint8()
	if err != nil {
		return err
	}
	flags, err := r.Uint32()
	if err != nil {
		return err
	}
	d.emit(AllyOptionsSet{Player: player, Slot: slot, Flags: flags})
	return nil
}

func actionTransferResources(d *Decoder, r *cursor.Reader, player uint8) error {
	slot, err := r.Uint8()
	if err != nil {
		return err
	}
	amounts, err := readUint32s(r, 2)
	if err != nil {
		return err
	}
	d.emit(ResourcesTransferred{Player: player, Slot: slot, Gold: amounts[0], Lumber: amounts[1]})
	return nil
}

func actionChatCommand(d *Decoder, r *cursor.Reader, player uint8) error {
	if err := r.Skip(8); err != nil {
		return err
	}
	cmd, err := r.CString()
	if err != nil {
		return err
	}
	d.emit(ChatCommand{Player: player, Command: string(cmd)})
	return nil
}

func actionEscPressed(d *Decoder, r *cursor.Reader, player uint8) error {
	d.emit(EscPressed{Player: player})
	return nil
}

func actionMinimapPing(d *Decoder, r *cursor.Reader, player uint8) error {
	fields, err := readUint32s(r, 3)
	if err != nil {
		return err
	}
	d.emit(MinimapPing{Player: player, X: fields[0], Y: fields[1], Duration: fields[2]})
	return nil
}

// actionMMD decodes one scoreboard record: a fixed filename, a key, a
// message and a checksum.
func actionMMD(d *Decoder, r *cursor.Reader, player uint8) error {
	off := r.Offset()
	filename, err := r.CString()
	if err != nil {
		return d.actionErr(fmt.Errorf("filename: %w", ErrMMDField), off, 0x6B)
	}
	if string(filename) != mmdFilename {
		return d.actionErr(fmt.Errorf("%q: %w", filename, ErrMMDFilename), off, 0x6B)
	}

	off = r.Offset()
	key, err := r.CString()
	if err != nil {
		return d.actionErr(fmt.Errorf("key: %w", ErrMMDField), off, 0x6B)
	}
	off = r.Offset()
	message, err := r.CString()
	if err != nil {
		return d.actionErr(fmt.Errorf("message: %w", ErrMMDField), off, 0x6B)
	}
	checksum, err := r.Uint32()
	if err != nil {
		return err
	}

	d.emit(MMD{Player: player, Key: string(key), Message: string(message), Checksum: checksum})
	return nil
}

// readUint32s reads n consecutive little-endian dwords.
func readUint32s(r *cursor.Reader, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
