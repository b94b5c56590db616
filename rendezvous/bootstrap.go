package rendezvous

import (
	"crypto/subtle"
	"fmt"
	"sync"
)

// Bootstrap holds the staged (rank, size, unique id) triple for this process.
//
// Contract:
//   - Ingest validates its arguments; a short identifier buffer is rejected,
//     never read past.
//   - The triple is write-once: re-ingesting identical values is a no-op,
//     re-ingesting different values fails with a Conflict error and leaves
//     the stored state untouched.
//   - All methods are safe for concurrent use.
//
// The zero value is ready to use.
type Bootstrap struct {
	mu   sync.Mutex
	done bool
	info Info
}

// Ingest stores rank, the group size, and the shared identifier.
//
// id must be at least UniqueIDBytes long; exactly the first UniqueIDBytes
// bytes are stored. rank must satisfy 0 <= rank < size.
func (b *Bootstrap) Ingest(rank, size int, id []byte) error {
	uid, err := UniqueIDFromBytes(id)
	if err != nil {
		return err
	}
	return b.IngestInfo(Info{Rank: rank, Size: size, ID: uid})
}

// IngestInfo is Ingest over an already-parsed Info.
func (b *Bootstrap) IngestInfo(in Info) error {
	if err := in.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		if b.info.Rank == in.Rank && b.info.Size == in.Size &&
			subtle.ConstantTimeCompare(b.info.ID[:], in.ID[:]) == 1 {
			return nil
		}
		return newError(KindConflict, fmt.Sprintf(
			"bootstrap already ingested as rank %d of %d; refusing to overwrite",
			b.info.Rank, b.info.Size))
	}

	b.info = in
	b.done = true
	return nil
}

// Done reports whether the triple has been ingested.
func (b *Bootstrap) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Snapshot returns a copy of the staged triple. ok is false before Ingest.
func (b *Bootstrap) Snapshot() (info Info, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info, b.done
}
