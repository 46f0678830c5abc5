package cas

import (
	"bytes"

	"github.com/dgryski/go-farm"
	"github.com/shamaton/msgpack/v2"
)

// HashOf fingerprints the msgpack encoding of v. It is used for values that
// are only compared, never stored, such as queue layouts.
func HashOf(v interface{}) (Hash, error) {
	var buf bytes.Buffer
	if err := msgpack.MarshalWrite(&buf, v); err != nil {
		return 0, err
	}
	return Hash(farm.Hash64(buf.Bytes())), nil
}

func encode(item Hashable) ([]byte, Hash, error) {
	var buf bytes.Buffer
	if err := item.Serialize(&buf); err != nil {
		return nil, 0, err
	}
	data := buf.Bytes()
	return data, Hash(farm.Hash64(data)), nil
}
