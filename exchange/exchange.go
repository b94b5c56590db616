// Package exchange defines the out-of-band channel over which a rendezvous
// ticket travels from the process that created the unique id to every other
// participant. The orchestrator decides who publishes and who fetches; this
// package only supplies the primitives.
package exchange

import (
	"context"
	"time"
)

// Exchange is a minimal publish-once key/value channel.
//
// Contract:
//   - Keys are immutable: once published, a key's payload never changes.
//     Republishing identical bytes MUST be idempotent; differing bytes MUST
//     fail with ErrImmutable.
//   - Fetch MUST return ErrNotFound when the key is absent.
//   - Keys MUST be non-empty and free of path separators and NUL.
type Exchange interface {
	Publish(key string, payload []byte) error
	Fetch(key string) ([]byte, error)
	Has(key string) bool
}

// ValidKey reports whether key satisfies the interface contract.
func ValidKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '/', '\\', 0:
			return false
		}
	}
	return true
}

// Wait polls ex until key appears, then fetches it. Ranks other than the
// publisher block here until the orchestrator's ticket lands.
func Wait(ctx context.Context, ex Exchange, key string, poll time.Duration) ([]byte, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if ex.Has(key) {
			b, err := ex.Fetch(key)
			// A concurrent publisher may race Has; retry on not-found.
			if err == nil || !IsNotFound(err) {
				return b, err
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
