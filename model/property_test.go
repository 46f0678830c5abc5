package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func roundState(prev, cur *Snapshot, initial int) *RoundState {
	return &RoundState{
		Current:      cur,
		Previous:     prev,
		Divisors:     []uint64{2, 3},
		Modulus:      6,
		InitialItems: initial,
	}
}

func TestStarlarkProperty_ReturnsTrue(t *testing.T) {
	prop, err := NewStarlarkProperty("small", "all([x < modulus for q in queues for x in q])")
	require.NoError(t, err)

	result, err := prop.Check(roundState(nil, &Snapshot{Round: 1, Queues: [][]uint64{{1, 5}, {0}}}, 3))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "small", result.Name)
	assert.Contains(t, result.Message, "satisfied")
}

func TestStarlarkProperty_ReturnsFalse(t *testing.T) {
	prop, err := NewStarlarkProperty("small", "all([x < modulus for q in queues for x in q])")
	require.NoError(t, err)

	result, err := prop.Check(roundState(nil, &Snapshot{Round: 1, Queues: [][]uint64{{1, 7}}}, 2))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "violated")
}

func TestStarlarkProperty_Globals(t *testing.T) {
	prev := &Snapshot{Round: 4, Queues: [][]uint64{{1}, {}}, Inspections: []uint64{3, 5}}
	cur := &Snapshot{Round: 5, Queues: [][]uint64{{}, {2}}, Inspections: []uint64{4, 5}}
	testCases := []struct {
		name string
		expr string
	}{
		{"round", "round == 5"},
		{"inspections", "inspections == [4, 5]"},
		{"prev_inspections", "prev_inspections == [3, 5]"},
		{"divisors", "divisors == [2, 3]"},
		{"modulus", "modulus == 6"},
		{"initial_items", "initial_items == 1"},
		{"queues", "queues == [[], [2]]"},
		{"monotonic", "all([inspections[i] >= prev_inspections[i] for i in range(len(inspections))])"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prop, err := NewStarlarkProperty(tc.name, tc.expr)
			require.NoError(t, err)
			result, err := prop.Check(roundState(prev, cur, 1))
			require.NoError(t, err)
			assert.True(t, result.Success, result.Message)
		})
	}
}

func TestStarlarkProperty_Errors(t *testing.T) {
	_, err := NewStarlarkProperty("broken", "queues ==")
	assert.ErrorIs(t, err, ErrConfiguration)

	prop, err := NewStarlarkProperty("none", "None")
	require.NoError(t, err)
	_, err = prop.Check(roundState(nil, &Snapshot{}, 0))
	assert.ErrorContains(t, err, "returning None")

	prop, err = NewStarlarkProperty("undefined", "nope > 1")
	require.NoError(t, err)
	_, err = prop.Check(roundState(nil, &Snapshot{}, 0))
	assert.Error(t, err)
}

func TestItemsConserved(t *testing.T) {
	st := roundState(nil, &Snapshot{Queues: [][]uint64{{1, 2}, {3}}}, 3)
	r, err := ItemsConserved{}.Check(st)
	require.NoError(t, err)
	assert.True(t, r.Success)

	st.InitialItems = 4
	r, err = ItemsConserved{}.Check(st)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "3 items in flight, started with 4")
}

func TestInspectionsMonotonic(t *testing.T) {
	prev := &Snapshot{Queues: [][]uint64{{1, 2}, {}}, Inspections: []uint64{4, 4}}

	ok := &Snapshot{Inspections: []uint64{6, 7}}
	r, err := InspectionsMonotonic{}.Check(roundState(prev, ok, 2))
	require.NoError(t, err)
	assert.True(t, r.Success)

	backwards := &Snapshot{Inspections: []uint64{6, 3}}
	r, err = InspectionsMonotonic{}.Check(roundState(prev, backwards, 2))
	require.NoError(t, err)
	assert.False(t, r.Success)

	miscounted := &Snapshot{Inspections: []uint64{5, 7}}
	r, err = InspectionsMonotonic{}.Check(roundState(prev, miscounted, 2))
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Message, "held 2")
}

func TestCheckProperties_FirstFailure(t *testing.T) {
	pass, err := NewStarlarkProperty("pass", "True")
	require.NoError(t, err)
	fail, err := NewStarlarkProperty("fail", "round > 10")
	require.NoError(t, err)

	result, err := CheckProperties(roundState(nil, &Snapshot{Round: 2}, 0), []Property{pass, fail, pass})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "fail", result.Name)

	result, err = CheckProperties(roundState(nil, &Snapshot{Round: 2}, 0), []Property{pass})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestStarlarkProperty_ConcurrentChecks(t *testing.T) {
	prop, err := NewStarlarkProperty("total", "len([x for q in queues for x in q]) == initial_items")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			st := roundState(nil, &Snapshot{Round: i, Queues: [][]uint64{{1, 2}, {3}}}, 3)
			for j := 0; j < 200; j++ {
				res, err := prop.Check(st)
				if err != nil {
					return err
				}
				if !res.Success {
					return assert.AnError
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
