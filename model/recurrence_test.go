package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timewinder-dev/circus/cas"
)

func TestDetectRecurrence(t *testing.T) {
	store := cas.NewMemoryCAS()
	layouts := [][][]uint64{
		{{1}, nil},
		{{2}, nil},
		{{1}, nil},
		{{2}, nil},
		{{1}, nil},
	}
	var found []Recurrence
	for round, q := range layouts {
		rec, ok, err := DetectRecurrence(store, &Snapshot{Round: round, Queues: q})
		require.NoError(t, err)
		if ok {
			found = append(found, rec)
		}
	}

	require.Len(t, found, 3)
	assert.Equal(t, 0, found[0].FirstRound)
	assert.Equal(t, 2, found[0].Round)
	assert.Equal(t, 2, found[0].Period)
	assert.Equal(t, 4, found[2].Round)
	assert.Equal(t, 2, found[2].Period)
	assert.Equal(t, 2, store.LayoutCount())
}

func TestLayoutHash_IgnoresInspections(t *testing.T) {
	a := &Snapshot{Round: 1, Queues: [][]uint64{{3, 4}}, Inspections: []uint64{1}}
	b := &Snapshot{Round: 9, Queues: [][]uint64{{3, 4}}, Inspections: []uint64{50}}
	c := &Snapshot{Round: 9, Queues: [][]uint64{{4, 3}}, Inspections: []uint64{50}}

	ha, err := a.LayoutHash()
	require.NoError(t, err)
	hb, err := b.LayoutHash()
	require.NoError(t, err)
	hc, err := c.LayoutHash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}

func TestSnapshot_StoreRoundTrip(t *testing.T) {
	c := buildCircus(t, referenceConfigs())
	require.NoError(t, c.Run(4, Calm{}))
	s := TakeSnapshot(c)

	store := cas.NewLRUCache(cas.NewMemoryCAS(), 4)
	h, err := store.Put(s)
	require.NoError(t, err)
	got, err := cas.Retrieve[Snapshot](store, h)
	require.NoError(t, err)

	assert.Equal(t, s.Round, got.Round)
	assert.Equal(t, s.Inspections, got.Inspections)
	assert.Equal(t, s.ItemCount(), got.ItemCount())
}

func TestShowInspectionDifferences(t *testing.T) {
	var b bytes.Buffer
	ShowInspectionDifferences(&b,
		&Snapshot{Inspections: []uint64{1, 2}},
		&Snapshot{Inspections: []uint64{4, 2}})
	assert.Equal(t, "    Worker 0: +3 inspections (1 -> 4)\n    Worker 1: +0 inspections (2 -> 2)\n", b.String())
}
