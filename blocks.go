package w3g

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// decompressBlocks inflates every compressed data block into one contiguous
// stream of BlockCount fixed-size chunks. Each block must declare the fixed
// chunk size and inflate to exactly that many bytes; anything else aborts
// the decode. Bytes left in the file after the last block are reported as
// trailing garbage but do not fail the decode.
func decompressBlocks(r *cursor.Reader, hdr Header, log zerolog.Logger) ([]byte, int, error) {
	out := make([]byte, int(hdr.BlockCount)*chunkSize)

	for i := 0; i < int(hdr.BlockCount); i++ {
		blockOff := r.Offset()

		sizeCompressed, err := r.Uint16()
		if err != nil {
			return nil, 0, decodeErr(fmt.Errorf("block %d header: %w", i, err), blockOff)
		}
		sizeDecompressed, err := r.Uint16()
		if err != nil {
			return nil, 0, decodeErr(fmt.Errorf("block %d header: %w", i, err), blockOff)
		}
		if int(sizeDecompressed) != chunkSize {
			return nil, 0, decodeErr(fmt.Errorf("block %d declares %d bytes: %w", i, sizeDecompressed, ErrBlockSize), blockOff)
		}
		if err := r.Skip(4); err != nil { // unknown checksum field, carried unvalidated
			return nil, 0, decodeErr(fmt.Errorf("block %d header: %w", i, err), blockOff)
		}

		compressed, err := r.Bytes(int(sizeCompressed))
		if err != nil {
			return nil, 0, decodeErr(fmt.Errorf("block %d payload: %w", i, err), blockOff)
		}

		slot := out[i*chunkSize : (i+1)*chunkSize]
		if err := inflateChunk(compressed, slot); err != nil {
			return nil, 0, decodeErr(fmt.Errorf("block %d: %v: %w", i, err, ErrDecompress), blockOff)
		}
	}

	if trailing := r.Remaining(); trailing > 0 {
		log.Warn().
			Int("bytes", trailing).
			Int("offset", r.Offset()).
			Msg("trailing bytes after the last compressed block")
		return out, trailing, nil
	}
	return out, 0, nil
}

// inflateChunk decompresses one zlib stream into slot. The stream must end
// cleanly and fill the slot exactly; both a short fill and surplus output
// mean the block table is desynced from the payload.
func inflateChunk(compressed, slot []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	defer zr.Close()

	n, err := io.ReadFull(zr, slot)
	if err != nil {
		return fmt.Errorf("short chunk, %d of %d bytes: %w", n, len(slot), err)
	}

	var extra [1]byte
	if m, err := zr.Read(extra[:]); m != 0 || (err != nil && !errors.Is(err, io.EOF)) {
		if m != 0 {
			return errors.New("chunk produced more than the fixed size")
		}
		return err
	}
	return nil
}
