package model

import (
	"slices"
)

// ActivityLevel multiplies the two largest inspection counts. With a single
// worker it is that worker's count; with none it is zero.
func ActivityLevel(counts []uint64) uint64 {
	if len(counts) == 0 {
		return 0
	}
	sorted := slices.Clone(counts)
	slices.SortFunc(sorted, func(a, b uint64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	level := uint64(1)
	for _, c := range sorted[:min(2, len(sorted))] {
		level *= c
	}
	return level
}

// Statistics summarises one pass over a circus.
type Statistics struct {
	Rounds           int
	Modulus          uint64
	ItemsInFlight    int
	TotalInspections uint64
	Inspections      []uint64
	ActivityLevel    uint64
	UniqueLayouts    int
	RepeatedLayouts  int
	RecurrenceRound  int // first round whose queue layout had been seen before, 0 if none
	RecurrencePeriod int
	ViolationCount   int
}

func computeStatistics(c *Circus) Statistics {
	counts := c.Inspections()
	var total uint64
	for _, n := range counts {
		total += n
	}
	return Statistics{
		Rounds:           c.Round(),
		Modulus:          c.Modulus(),
		ItemsInFlight:    c.ItemCount(),
		TotalInspections: total,
		Inspections:      counts,
		ActivityLevel:    ActivityLevel(counts),
	}
}
