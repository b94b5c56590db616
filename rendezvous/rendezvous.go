// Package rendezvous stages the bootstrap state a process needs before it can
// join a collective-communication group: its rank, the group size, and the
// opaque unique identifier all participants share.
//
// One process generates a UniqueID, an orchestrator distributes it out of
// band (see the exchange package), and every participant then ingests its
// own rank, the group size, and the shared identifier into a Bootstrap. The
// downstream group-initialization call reads the staged triple back through
// Bootstrap.Snapshot.
//
// The package never talks to the communication library itself; that boundary
// is the Generator interface.
package rendezvous

import (
	"encoding/hex"
	"fmt"
)

// UniqueIDBytes is the fixed identifier length mandated by the
// collective-communication library's ABI (NCCL_UNIQUE_ID_BYTES).
const UniqueIDBytes = 128

// UniqueID is an opaque rendezvous identifier. No internal structure is
// interpreted here; the bytes are copied verbatim across the boundary.
type UniqueID [UniqueIDBytes]byte

// Bytes returns a fresh copy of the identifier bytes.
func (id UniqueID) Bytes() []byte {
	out := make([]byte, UniqueIDBytes)
	copy(out, id[:])
	return out
}

// String renders the identifier as lowercase hex. Prefer idutil.Fingerprint
// for logs; the raw identifier is the rendezvous capability itself.
func (id UniqueID) String() string {
	return hex.EncodeToString(id[:])
}

// UniqueIDFromBytes copies the first UniqueIDBytes bytes of b into a
// UniqueID. Short input fails with an InvalidArgument error instead of
// reading past the buffer.
func UniqueIDFromBytes(b []byte) (UniqueID, error) {
	var id UniqueID
	if len(b) < UniqueIDBytes {
		return id, newError(KindInvalidArgument,
			fmt.Sprintf("unique id too short: got %d bytes, need %d", len(b), UniqueIDBytes))
	}
	copy(id[:], b[:UniqueIDBytes])
	return id, nil
}

// Info is the bootstrap triple for one participant.
type Info struct {
	Rank int
	Size int
	ID   UniqueID
}

func (in Info) validate() error {
	if in.Size < 1 {
		return newError(KindInvalidArgument, fmt.Sprintf("group size must be positive, got %d", in.Size))
	}
	if in.Rank < 0 || in.Rank >= in.Size {
		return newError(KindInvalidArgument,
			fmt.Sprintf("rank %d out of range for group size %d", in.Rank, in.Size))
	}
	return nil
}

// CreateUniqueID produces a fresh identifier by delegating to g.
// A nil g uses the package default generator. Generator failures surface as
// CommLib errors; callers may retry.
func CreateUniqueID(g Generator) (UniqueID, error) {
	if g == nil {
		g = defaultGenerator
	}
	id, err := g.Generate()
	if err != nil {
		return UniqueID{}, wrapError(KindCommLib, "unique id generation failed", err)
	}
	return id, nil
}
