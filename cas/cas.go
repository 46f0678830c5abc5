package cas

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// CAS is a content-addressed store for round snapshots. Besides the
// snapshots themselves it remembers, for every layout hash, the rounds in
// which that layout was observed.
type CAS interface {
	Put(item Hashable) (Hash, error)
	Has(hash Hash) bool

	RecordLayoutRound(layout Hash, round int)
	LayoutRounds(layout Hash) []int
	LayoutCount() int
}

// Factory builds a fresh store; each simulation pass gets its own.
type Factory func() CAS

type Serde interface {
	Serialize(w io.Writer) error
	Deserialize(r io.Reader) error
}

type Hashable interface {
	Serde
}

type directStore interface {
	getValue(h Hash) (bool, []byte, error)
}

type Hash uint64

// Retrieve loads the item stored under hash into a new T.
func Retrieve[T any, P interface {
	*T
	Hashable
}](c CAS, hash Hash) (P, error) {
	var zero P
	v, ok := c.(directStore)
	if !ok {
		return zero, errors.New("CAS does not support direct retrieval")
	}
	has, data, err := v.getValue(hash)
	if err != nil {
		return zero, err
	}
	if !has {
		return zero, fmt.Errorf("hash not found in CAS: %d", hash)
	}
	out := P(new(T))
	if err := out.Deserialize(bytes.NewReader(data)); err != nil {
		return zero, fmt.Errorf("deserializing %T: %w", out, err)
	}
	return out, nil
}

// NewDefault is the store used by the CLI: an LRU cache over memory.
func NewDefault() CAS {
	return NewLRUCache(NewMemoryCAS(), 10000)
}
