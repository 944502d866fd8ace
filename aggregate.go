package w3g

import (
	"fmt"
	"sort"

	"github.com/kelindar/intmap"
)

// SelectionCount is one row of the subgroup selection frequency table.
type SelectionCount struct {
	ItemID uint32 `json:"itemId"`
	Count  uint32 `json:"count"`
}

// FourCC renders the item id as its four bytes in reversed order, the
// way object type codes are written in the game data ("hfoo", "ewsp").
// Ids with bytes outside printable ASCII render in hexadecimal instead.
func (s SelectionCount) FourCC() string {
	b := [4]byte{byte(s.ItemID >> 24), byte(s.ItemID >> 16), byte(s.ItemID >> 8), byte(s.ItemID)}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("0x%08X", s.ItemID)
		}
	}
	return string(b[:])
}

// selectionTally counts subgroup selections by object-type id during the
// action pass. Its lifetime is one decode.
type selectionTally struct {
	counts *intmap.Map
}

func newSelectionTally() *selectionTally {
	return &selectionTally{counts: intmap.New(64, 0.90)}
}

func (t *selectionTally) observe(item uint32) {
	n, _ := t.counts.Load(item)
	t.counts.Store(item, n+1)
}

// rows flattens the tally, sorted ascending by count and by id within
// equal counts so the order is stable across runs.
func (t *selectionTally) rows() []SelectionCount {
	out := make([]SelectionCount, 0, t.counts.Count())
	t.counts.Range(func(item, n uint32) bool {
		out = append(out, SelectionCount{ItemID: item, Count: n})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// PlayerActivity summarizes how many action records one player issued
// and the resulting actions per minute over the replay duration.
type PlayerActivity struct {
	Player  uint8   `json:"player"`
	Name    string  `json:"name"`
	Actions int     `json:"actions"`
	APM     float64 `json:"apm"`
}

// activityRows pairs the per-player action counters with the metadata
// roster. Counters for ids missing from the roster (a malformed but
// parseable replay) are appended after it, nameless.
func activityRows(counts map[uint8]uint32, players []Player, lengthMS uint32) []PlayerActivity {
	minutes := float64(lengthMS) / 60000

	out := make([]PlayerActivity, 0, len(players))
	known := make(map[uint8]bool, len(players))
	for _, p := range players {
		known[p.ID] = true
		out = append(out, activityRow(p.ID, p.Name, counts[p.ID], minutes))
	}

	var extra []uint8
	for id := range counts {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, id := range extra {
		out = append(out, activityRow(id, "", counts[id], minutes))
	}
	return out
}

func activityRow(id uint8, name string, actions uint32, minutes float64) PlayerActivity {
	row := PlayerActivity{Player: id, Name: name, Actions: int(actions)}
	if minutes > 0 {
		row.APM = float64(actions) / minutes
	}
	return row
}
