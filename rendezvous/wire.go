package rendezvous

import (
	"encoding/binary"
	"fmt"
	"math"
)

// InfoFrameBytes is the length of an encoded Info frame:
// big-endian uint32 rank, big-endian uint32 size, then the identifier.
const InfoFrameBytes = 8 + UniqueIDBytes

// Encode renders the triple as a fixed binary frame. The frame is what
// crosses the bridge RPC boundary so that no protobuf codegen is required.
func (in Info) Encode() ([]byte, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if uint64(in.Size) > math.MaxUint32 {
		return nil, newError(KindInvalidArgument, fmt.Sprintf("group size %d does not fit the frame", in.Size))
	}
	out := make([]byte, InfoFrameBytes)
	binary.BigEndian.PutUint32(out[0:4], uint32(in.Rank))
	binary.BigEndian.PutUint32(out[4:8], uint32(in.Size))
	copy(out[8:], in.ID[:])
	return out, nil
}

// DecodeInfo parses a frame produced by Encode and validates the triple.
func DecodeInfo(b []byte) (Info, error) {
	if len(b) != InfoFrameBytes {
		return Info{}, newError(KindWire,
			fmt.Sprintf("info frame must be %d bytes, got %d", InfoFrameBytes, len(b)))
	}
	in := Info{
		Rank: int(binary.BigEndian.Uint32(b[0:4])),
		Size: int(binary.BigEndian.Uint32(b[4:8])),
	}
	copy(in.ID[:], b[8:])
	if err := in.validate(); err != nil {
		return Info{}, wrapError(KindWire, "invalid info frame", err)
	}
	return in, nil
}
