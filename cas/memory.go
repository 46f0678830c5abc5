package cas

import (
	"sort"
	"sync"
)

type MemoryCAS struct {
	mu           sync.RWMutex
	data         map[Hash][]byte
	layoutRounds map[Hash][]int // rounds at which each layout hash was seen
}

func NewMemoryCAS() *MemoryCAS {
	return &MemoryCAS{
		data:         make(map[Hash][]byte),
		layoutRounds: make(map[Hash][]int),
	}
}

func (m *MemoryCAS) getValue(h Hash) (bool, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[h]
	if !ok {
		return false, nil, nil
	}
	return true, v, nil
}

func (m *MemoryCAS) Has(hash Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[hash]
	return ok
}

func (m *MemoryCAS) Put(item Hashable) (Hash, error) {
	data, h, err := encode(item)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[h] = data
	return h, nil
}

// RecordLayoutRound records that a layout hash was seen at the given round
func (m *MemoryCAS) RecordLayoutRound(layout Hash, round int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layoutRounds[layout] = append(m.layoutRounds[layout], round)
	sort.Ints(m.layoutRounds[layout])
}

// LayoutRounds returns all rounds where the given layout hash was seen
func (m *MemoryCAS) LayoutRounds(layout Hash) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rounds := m.layoutRounds[layout]
	result := make([]int, len(rounds))
	copy(result, rounds)
	return result
}

func (m *MemoryCAS) LayoutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layoutRounds)
}

func (m *MemoryCAS) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
