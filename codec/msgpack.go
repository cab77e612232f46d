package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MessagePack is a binary codec backed by github.com/vmihailenco/msgpack/v5.
// Struct fields are keyed by their json tag so reports round-trip between
// codecs.
type MessagePack struct{}

// Marshal encodes the value to MessagePack.
func (MessagePack) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v.
func (MessagePack) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// Name returns the unique name of the codec ("msgpack").
func (MessagePack) Name() string { return "msgpack" }
