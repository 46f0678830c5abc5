package model

import (
	"fmt"
	"io"
	"slices"

	"github.com/timewinder-dev/circus/cas"
)

// Recurrence describes a queue layout seen at two different rounds. Because
// the layout alone determines every later routing decision, the circus is
// periodic from FirstRound on.
type Recurrence struct {
	Layout     cas.Hash
	FirstRound int
	Round      int
	Period     int
}

// DetectRecurrence records the snapshot's layout in the store and reports
// whether the same layout was observed at an earlier round.
func DetectRecurrence(store cas.CAS, s *Snapshot) (Recurrence, bool, error) {
	layout, err := s.LayoutHash()
	if err != nil {
		return Recurrence{}, false, err
	}
	store.RecordLayoutRound(layout, s.Round)
	rounds := store.LayoutRounds(layout)
	idx := slices.Index(rounds, s.Round)
	if idx <= 0 {
		return Recurrence{}, false, nil
	}
	return Recurrence{
		Layout:     layout,
		FirstRound: rounds[0],
		Round:      s.Round,
		Period:     s.Round - rounds[idx-1],
	}, true, nil
}

// ShowInspectionDifferences prints how many items each worker inspected
// between two snapshots.
func ShowInspectionDifferences(w io.Writer, from, to *Snapshot) {
	for i := range to.Inspections {
		var before uint64
		if i < len(from.Inspections) {
			before = from.Inspections[i]
		}
		fmt.Fprintf(w, "    Worker %d: +%d inspections (%d -> %d)\n",
			i, to.Inspections[i]-before, before, to.Inspections[i])
	}
}
