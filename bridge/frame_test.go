package bridge

import (
	"bytes"
	"testing"

	"commlink.dev/rendezvous/exchange"
)

func TestPublishFrame_RoundTrip(t *testing.T) {
	frame, err := EncodePublish("job-1", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EncodePublish: %v", err)
	}
	key, payload, err := DecodePublish(frame)
	if err != nil {
		t.Fatalf("DecodePublish: %v", err)
	}
	if key != "job-1" || !bytes.Equal(payload, []byte{1, 2, 3}) {
		t.Fatalf("round trip mismatch: key=%q payload=%v", key, payload)
	}
}

func TestPublishFrame_EmptyPayload(t *testing.T) {
	frame, err := EncodePublish("k", nil)
	if err != nil {
		t.Fatalf("EncodePublish: %v", err)
	}
	key, payload, err := DecodePublish(frame)
	if err != nil {
		t.Fatalf("DecodePublish: %v", err)
	}
	if key != "k" || len(payload) != 0 {
		t.Fatalf("round trip mismatch: key=%q payload=%v", key, payload)
	}
}

func TestEncodePublish_InvalidKey(t *testing.T) {
	if _, err := EncodePublish("", nil); err != exchange.ErrInvalidKey {
		t.Fatalf("got %v want ErrInvalidKey", err)
	}
}

func TestDecodePublish_Malformed(t *testing.T) {
	cases := [][]byte{
		nil,
		{0, 0},
		// key length exceeds frame
		{0, 0, 0, 5, 'a'},
		// empty key
		{0, 0, 0, 0},
		// separator in key
		{0, 0, 0, 3, 'a', '/', 'b'},
	}
	for _, b := range cases {
		if _, _, err := DecodePublish(b); err == nil {
			t.Fatalf("expected failure for %v", b)
		}
	}
}
