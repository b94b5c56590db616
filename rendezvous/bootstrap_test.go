package rendezvous

import (
	"bytes"
	"sync"
	"testing"
)

func testID(fill byte) []byte {
	b := make([]byte, UniqueIDBytes)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestBootstrap_IngestRoundTrip(t *testing.T) {
	var b Bootstrap
	id := testID(0x42)

	if b.Done() {
		t.Fatalf("Done before Ingest")
	}
	if _, ok := b.Snapshot(); ok {
		t.Fatalf("Snapshot ok before Ingest")
	}

	if err := b.Ingest(1, 4, id); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	info, ok := b.Snapshot()
	if !ok {
		t.Fatalf("Snapshot not ok after Ingest")
	}
	if info.Rank != 1 || info.Size != 4 {
		t.Fatalf("got rank=%d size=%d, want 1/4", info.Rank, info.Size)
	}
	if !bytes.Equal(info.ID.Bytes(), id) {
		t.Fatalf("stored id differs from ingested id")
	}
}

func TestBootstrap_IngestIdempotent(t *testing.T) {
	var b Bootstrap
	id := testID(0x07)

	if err := b.Ingest(0, 2, id); err != nil {
		t.Fatalf("Ingest(1): %v", err)
	}
	if err := b.Ingest(0, 2, id); err != nil {
		t.Fatalf("Ingest(2) with identical args: %v", err)
	}
	info, _ := b.Snapshot()
	if info.Rank != 0 || info.Size != 2 {
		t.Fatalf("state changed by idempotent re-ingest: %+v", info)
	}
}

func TestBootstrap_IngestConflict(t *testing.T) {
	var b Bootstrap
	if err := b.Ingest(0, 2, testID(1)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	cases := []struct {
		name string
		rank int
		size int
		id   []byte
	}{
		{"DifferentRank", 1, 2, testID(1)},
		{"DifferentSize", 0, 4, testID(1)},
		{"DifferentID", 0, 2, testID(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := b.Ingest(tc.rank, tc.size, tc.id)
			if !IsKind(err, KindConflict) {
				t.Fatalf("expected Conflict, got %v", err)
			}
		})
	}

	// Stored state must be untouched by rejected calls.
	info, _ := b.Snapshot()
	if info.Rank != 0 || info.Size != 2 || info.ID[0] != 1 {
		t.Fatalf("state mutated by rejected ingest: %+v", info)
	}
}

func TestBootstrap_IngestValidation(t *testing.T) {
	cases := []struct {
		name string
		rank int
		size int
		id   []byte
	}{
		{"ShortID", 0, 2, testID(0)[:UniqueIDBytes-1]},
		{"EmptyID", 0, 2, nil},
		{"ZeroSize", 0, 0, testID(0)},
		{"NegativeSize", 0, -1, testID(0)},
		{"NegativeRank", -1, 2, testID(0)},
		{"RankEqualsSize", 2, 2, testID(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b Bootstrap
			err := b.Ingest(tc.rank, tc.size, tc.id)
			if !IsKind(err, KindInvalidArgument) {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if b.Done() {
				t.Fatalf("rejected ingest marked bootstrap done")
			}
		})
	}
}

func TestBootstrap_IngestOversizedIDCopiesPrefix(t *testing.T) {
	var b Bootstrap
	long := append(testID(0x11), 0xff, 0xff)
	if err := b.Ingest(0, 1, long); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	info, _ := b.Snapshot()
	if !bytes.Equal(info.ID.Bytes(), long[:UniqueIDBytes]) {
		t.Fatalf("stored id is not the %d-byte prefix", UniqueIDBytes)
	}
}

func TestBootstrap_ConcurrentIngest(t *testing.T) {
	var b Bootstrap
	id := testID(0x33)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Identical arguments from every goroutine: all must succeed.
			if err := b.Ingest(3, 8, id); err != nil {
				t.Errorf("concurrent Ingest: %v", err)
			}
		}()
	}
	wg.Wait()

	info, ok := b.Snapshot()
	if !ok || info.Rank != 3 || info.Size != 8 {
		t.Fatalf("unexpected final state: %+v ok=%v", info, ok)
	}
}
