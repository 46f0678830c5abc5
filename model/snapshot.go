package model

import (
	"io"

	"github.com/shamaton/msgpack/v2"
	"github.com/timewinder-dev/circus/cas"
)

// Snapshot is the observable state of a circus between rounds.
type Snapshot struct {
	Round       int
	Queues      [][]uint64
	Inspections []uint64
}

func TakeSnapshot(c *Circus) *Snapshot {
	return &Snapshot{
		Round:       c.Round(),
		Queues:      c.Queues(),
		Inspections: c.Inspections(),
	}
}

func (s *Snapshot) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, s)
}

func (s *Snapshot) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, s)
}

// LayoutHash fingerprints only the queues. Inspection counters do not feed
// back into routing, so two rounds with the same layout evolve identically.
func (s *Snapshot) LayoutHash() (cas.Hash, error) {
	return cas.HashOf(s.Queues)
}

func (s *Snapshot) ItemCount() int {
	n := 0
	for _, q := range s.Queues {
		n += len(q)
	}
	return n
}
