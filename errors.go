package w3g

import (
	"errors"
	"fmt"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// Errors returned while decoding a replay. Every one of them aborts the
// whole decode; there is no partial-result recovery.
var (
	// Container level
	ErrInvalidHeader      = errors.New("invalid replay header")
	ErrUnsupportedVersion = errors.New("unsupported replay format version")
	ErrInvalidSubHeader   = errors.New("invalid replay sub-header")

	// Decompression level
	ErrBlockSize  = errors.New("compressed block declares an unexpected decompressed size")
	ErrDecompress = errors.New("block decompression failed")

	// Metadata level
	ErrNonHostPlayer = errors.New("first player record does not belong to the host")
	ErrPlayerName    = errors.New("unterminated player name")
	ErrGameName      = errors.New("unterminated game name")
	ErrEncodedString = errors.New("unterminated encoded settings string")
	ErrSlotRecordID  = errors.New("unexpected slot record id")
	ErrMapInfo       = errors.New("malformed decoded settings string")

	// Action stream level
	ErrUnknownBlockID    = errors.New("unknown replay block id")
	ErrUnknownActionID   = errors.New("unknown action id")
	ErrTimeSlotBytes     = errors.New("time-slot block too short")
	ErrPlayerFrameBytes  = errors.New("player action frame length mismatch")
	ErrSinglePlayerCheat = errors.New("single-player cheat actions are not supported")
	ErrMMDFilename       = errors.New("unexpected MMD filename")
	ErrMMDField          = errors.New("missing MMD field")
)

// Cursor errors surface unchanged so callers can match them across layers.
var (
	ErrOutOfBounds  = cursor.ErrOutOfBounds
	ErrNoTerminator = cursor.ErrNoTerminator
)

// DecodeError carries the position at which a decode failed. Offset is
// relative to the stream being parsed at the time: the raw file for
// container and decompression errors, the decompressed stream for metadata
// and action errors.
type DecodeError struct {
	Err    error // taxonomy error, possibly wrapping a cause
	Offset int   // byte offset of the field at fault
	Block  int   // ordinal of the action-stream block, -1 outside the action parser
	ID     int   // block or action id involved, -1 when not applicable
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch {
	case e.Block >= 0 && e.ID >= 0:
		return fmt.Sprintf("w3g: %v (id 0x%02X at offset %d, block %d)", e.Err, e.ID, e.Offset, e.Block)
	case e.ID >= 0:
		return fmt.Sprintf("w3g: %v (id 0x%02X at offset %d)", e.Err, e.ID, e.Offset)
	default:
		return fmt.Sprintf("w3g: %v (at offset %d)", e.Err, e.Offset)
	}
}

// Unwrap exposes the underlying taxonomy error to errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodeErr builds a DecodeError without block/id context.
func decodeErr(err error, offset int) *DecodeError {
	return &DecodeError{Err: err, Offset: offset, Block: -1, ID: -1}
}
