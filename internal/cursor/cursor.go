// Package cursor provides bounds-checked little-endian reads over an
// in-memory byte buffer.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors
var (
	ErrOutOfBounds  = errors.New("read operation would exceed buffer bounds")
	ErrNoTerminator = errors.New("no null terminator before end of buffer")
)

// Reader walks an immutable byte buffer. Every read is bounds-checked and
// leaves the offset untouched when it fails, so a caller can report the
// exact position of a malformed field.
type Reader struct {
	buf []byte
	off int
}

// New returns a Reader positioned at the start of buf. The buffer is not
// copied; callers must not mutate it while the Reader is in use.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// At returns a Reader positioned at off within buf.
func At(buf []byte, off int) *Reader {
	return &Reader{buf: buf, off: off}
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.off
}

// Len returns the total buffer length.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Seek moves the read position to off. Seeking to len(buf) is allowed and
// marks the reader as exhausted.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.buf) {
		return fmt.Errorf("cursor: seek to %d outside buffer of %d bytes: %w", off, len(r.buf), ErrOutOfBounds)
	}
	r.off = off
	return nil
}

// require verifies that n more bytes can be read at the current offset.
func (r *Reader) require(n int) error {
	if n < 0 || r.off+n > len(r.buf) {
		return fmt.Errorf("cursor: read of %d bytes at offset %d exceeds buffer of %d bytes: %w",
			n, r.off, len(r.buf), ErrOutOfBounds)
	}
	return nil
}

// Uint8 reads one byte and advances the offset.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// Uint16 reads a little-endian 16-bit integer and advances the offset.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a little-endian 32-bit integer and advances the offset.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// PeekUint8 returns the next byte without advancing the offset.
func (r *Reader) PeekUint8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	return r.buf[r.off], nil
}

// PeekUint16 returns the next little-endian 16-bit integer without
// advancing the offset.
func (r *Reader) PeekUint16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[r.off:]), nil
}

// Bytes reads n bytes and advances the offset. The returned slice aliases
// the underlying buffer; callers that retain it must copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

// Skip advances the offset by n bytes without interpreting them.
func (r *Reader) Skip(n int) error {
	if err := r.require(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// CString reads bytes up to (but not including) the next null byte and
// advances the offset past the terminator. The offset is unchanged when no
// terminator exists before the end of the buffer.
func (r *Reader) CString() ([]byte, error) {
	for i := r.off; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			v := r.buf[r.off:i]
			r.off = i + 1
			return v, nil
		}
	}
	return nil, fmt.Errorf("cursor: string at offset %d: %w", r.off, ErrNoTerminator)
}
