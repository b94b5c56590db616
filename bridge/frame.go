package bridge

import (
	"encoding/binary"
	"fmt"

	"commlink.dev/rendezvous/exchange"
)

// Publish requests travel as a single bytes field:
// big-endian uint32 key length, the key, then the payload.

// EncodePublish frames a publish request.
func EncodePublish(key string, payload []byte) ([]byte, error) {
	if !exchange.ValidKey(key) {
		return nil, exchange.ErrInvalidKey
	}
	out := make([]byte, 4+len(key)+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(key)))
	copy(out[4:], key)
	copy(out[4+len(key):], payload)
	return out, nil
}

// DecodePublish splits a framed publish request.
func DecodePublish(b []byte) (key string, payload []byte, err error) {
	if len(b) < 4 {
		return "", nil, fmt.Errorf("publish frame too short: %d bytes", len(b))
	}
	n := binary.BigEndian.Uint32(b[0:4])
	if uint64(n) > uint64(len(b)-4) {
		return "", nil, fmt.Errorf("publish frame key length %d exceeds frame", n)
	}
	key = string(b[4 : 4+n])
	if !exchange.ValidKey(key) {
		return "", nil, exchange.ErrInvalidKey
	}
	return key, b[4+n:], nil
}
