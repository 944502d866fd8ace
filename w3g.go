// Package w3g decodes Warcraft III replay files (.w3g): the container
// header, the zlib-compressed payload blocks, the game metadata and the
// full action stream. Decoding is a single sequential pass over an
// in-memory buffer; any irregularity in the file aborts the decode with
// an error carrying the byte offset at fault.
package w3g

import (
	"fmt"
	"io"

	"codeberg.org/go-mmap/mmap"
	dp "github.com/markus-wa/godispatch"
	"github.com/rs/zerolog"

	"github.com/kelindar/w3g-sdk/internal/cursor"
)

// Decoder decodes one replay file from an in-memory buffer. It holds the
// event dispatcher and the aggregation state of the current pass, so a
// Decoder must not be shared across goroutines while Decode runs.
type Decoder struct {
	data []byte
	log  zerolog.Logger

	eventDispatcher dp.Dispatcher

	// state of the current decode pass
	tally    *selectionTally
	activity map[uint8]uint32
	blocks   int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger routes decode diagnostics to the given structured logger:
// info-level summaries of the header, players and slots, and error-level
// failure reports. Without it the decoder stays silent.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Decoder) {
		d.log = log
	}
}

// NewDecoder creates a decoder over a complete replay file held in memory.
func NewDecoder(data []byte, options ...Option) *Decoder {
	d := &Decoder{
		data: data,
		log:  zerolog.Nop(),
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// RegisterEventHandler registers a handler for action events. The handler
// must be a func with a single parameter of one of the event types in this
// package; it is called synchronously during Decode, in stream order. The
// returned identifier can be used to unregister the handler again.
func (d *Decoder) RegisterEventHandler(handler any) dp.HandlerIdentifier {
	return d.eventDispatcher.RegisterHandler(handler)
}

// UnregisterEventHandler removes a handler registered with
// RegisterEventHandler.
func (d *Decoder) UnregisterEventHandler(identifier dp.HandlerIdentifier) {
	d.eventDispatcher.UnregisterHandler(identifier)
}

func (d *Decoder) emit(event any) {
	d.eventDispatcher.Dispatch(event)
}

// Replay is the fully decoded content of one replay file.
type Replay struct {
	Header        Header           `json:"header"`
	SubHeader     SubHeader        `json:"subHeader"`
	GameName      string           `json:"gameName"`
	Settings      GameSettings     `json:"settings"`
	Players       []Player         `json:"players"`
	Slots         []Slot           `json:"slots"`
	Selections    []SelectionCount `json:"selections"`
	Activity      []PlayerActivity `json:"activity"`
	ActionBlocks  int              `json:"actionBlocks"`
	TrailingBytes int              `json:"trailingBytes"`

	payload []byte
}

// Payload returns the decompressed replay stream, one fixed 8192-byte
// slot per compressed block. Intended for diagnostics and dumps.
func (r *Replay) Payload() []byte {
	return r.payload
}

// Host returns the player that recorded the replay.
func (r *Replay) Host() Player {
	for _, p := range r.Players {
		if p.Host {
			return p
		}
	}
	return Player{}
}

// Decode runs the full pipeline: container validation, block
// decompression, metadata parsing and the action-stream pass. Events are
// dispatched to registered handlers while the pass runs; the returned
// Replay carries everything else.
func (d *Decoder) Decode() (*Replay, error) {
	r := cursor.New(d.data)

	hdr, sub, err := parseContainer(r)
	if err != nil {
		return nil, d.fail(err)
	}
	d.log.Info().
		Str("tag", sub.Tag).
		Uint32("version", sub.Version).
		Uint16("build", sub.Build).
		Dur("length", sub.Duration()).
		Uint32("blocks", hdr.BlockCount).
		Msg("replay header")

	plain, trailing, err := decompressBlocks(r, hdr, d.log)
	if err != nil {
		return nil, d.fail(err)
	}

	pr := cursor.New(plain)
	meta, err := parseMetadata(pr)
	if err != nil {
		return nil, d.fail(err)
	}
	for _, p := range meta.players {
		d.log.Info().
			Uint8("id", p.ID).
			Bool("host", p.Host).
			Str("name", p.Name).
			Msg("player")
	}
	for i, s := range meta.slots {
		d.log.Info().
			Int("slot", i).
			Uint8("player", s.PlayerID).
			Uint8("team", s.Team).
			Uint8("color", s.Color).
			Uint8("race", s.Race).
			Bool("used", s.Used()).
			Msg("slot")
	}

	d.tally = newSelectionTally()
	d.activity = make(map[uint8]uint32, len(meta.players))
	d.blocks = 0
	if err := d.parseActionData(pr); err != nil {
		return nil, d.fail(err)
	}

	return &Replay{
		Header:        hdr,
		SubHeader:     sub,
		GameName:      meta.gameName,
		Settings:      meta.settings,
		Players:       meta.players,
		Slots:         meta.slots,
		Selections:    d.tally.rows(),
		Activity:      activityRows(d.activity, meta.players, sub.LengthMS),
		ActionBlocks:  d.blocks,
		TrailingBytes: trailing,
		payload:       plain,
	}, nil
}

func (d *Decoder) fail(err error) error {
	d.log.Error().Err(err).Msg("decode failed")
	return err
}

// Decode decodes a replay held in memory.
func Decode(data []byte) (*Replay, error) {
	return NewDecoder(data).Decode()
}

// Open reads and decodes the replay file at path. The file is
// memory-mapped only while its bytes are copied out, so the returned
// Replay holds no reference to it.
func Open(path string, options ...Option) (*Replay, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("w3g: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("w3g: read %s: %w", path, err)
	}
	return NewDecoder(data, options...).Decode()
}
