package cas

import (
	"io"
	"testing"

	"github.com/shamaton/msgpack/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSnapshot struct {
	Round  int
	Queues [][]uint64
}

func (s *testSnapshot) Serialize(w io.Writer) error {
	return msgpack.MarshalWrite(w, s)
}

func (s *testSnapshot) Deserialize(r io.Reader) error {
	return msgpack.UnmarshalRead(r, s)
}

func snap(round int, items ...uint64) *testSnapshot {
	return &testSnapshot{Round: round, Queues: [][]uint64{items}}
}

func TestLRUCache_BasicOperation(t *testing.T) {
	underlying := NewMemoryCAS()
	cache := NewLRUCache(underlying, 3) // Small cache for testing

	var hashes []Hash
	for i := 1; i <= 4; i++ {
		h, err := cache.Put(snap(i, uint64(i)))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	got, err := Retrieve[testSnapshot](cache, hashes[0])
	require.NoError(t, err)
	assert.Equal(t, 1, got.Round)
	assert.Equal(t, [][]uint64{{1}}, got.Queues)

	for _, h := range hashes[1:] {
		_, err := Retrieve[testSnapshot](cache, h)
		require.NoError(t, err)
	}

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.Size, stats.MaxSize)
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 4, underlying.Len())

	// hashes[0] was evicted but is still in the underlying store
	got, err = Retrieve[testSnapshot](cache, hashes[0])
	require.NoError(t, err)
	assert.Equal(t, 1, got.Round)
}

func TestLRUCache_HitsAndMisses(t *testing.T) {
	cache := NewLRUCache(NewMemoryCAS(), 10)
	h, err := cache.Put(snap(7, 1, 2, 3))
	require.NoError(t, err)

	_, err = Retrieve[testSnapshot](cache, h)
	require.NoError(t, err)
	_, err = Retrieve[testSnapshot](cache, h)
	require.NoError(t, err)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Hits)
}

func TestLRUCache_Has(t *testing.T) {
	cache := NewLRUCache(NewMemoryCAS(), 10)

	hash, err := cache.Put(snap(1, 42))
	require.NoError(t, err)

	assert.True(t, cache.Has(hash), "Cache should report hash exists")
	assert.False(t, cache.Has(Hash(99999)), "Cache should report non-existent hash doesn't exist")
}

func TestRetrieve_Missing(t *testing.T) {
	_, err := Retrieve[testSnapshot](NewMemoryCAS(), Hash(1))
	assert.Error(t, err)
}

func TestPut_ContentAddressed(t *testing.T) {
	m := NewMemoryCAS()
	a, err := m.Put(snap(3, 5, 6))
	require.NoError(t, err)
	b, err := m.Put(snap(3, 5, 6))
	require.NoError(t, err)
	c, err := m.Put(snap(3, 6, 5))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, m.Len())
}

func TestLayoutRounds(t *testing.T) {
	cache := NewLRUCache(NewMemoryCAS(), 10)
	h1, err := HashOf([][]uint64{{1, 2}, {}})
	require.NoError(t, err)
	h2, err := HashOf([][]uint64{{2, 1}, {}})
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	cache.RecordLayoutRound(h1, 9)
	cache.RecordLayoutRound(h1, 3)
	cache.RecordLayoutRound(h2, 4)

	assert.Equal(t, []int{3, 9}, cache.LayoutRounds(h1))
	assert.Equal(t, []int{4}, cache.LayoutRounds(h2))
	assert.Empty(t, cache.LayoutRounds(Hash(0)))
	assert.Equal(t, 2, cache.LayoutCount())
}
