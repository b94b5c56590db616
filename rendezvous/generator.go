package rendezvous

import (
	"crypto/rand"
	"io"
)

// Generator produces fresh unique identifiers. Implementations backed by a
// real collective-communication library bind its id-generation primitive
// here; the rest of this module treats the result as an opaque blob.
type Generator interface {
	Generate() (UniqueID, error)
}

// RandomGenerator draws identifiers from a cryptographic entropy source.
// At 128 bytes, collision between independently generated identifiers is
// negligible, matching the uniqueness assumption of library-issued ids.
type RandomGenerator struct {
	// Rand overrides the entropy source when non-nil. Defaults to crypto/rand.
	Rand io.Reader
}

func (g RandomGenerator) Generate() (UniqueID, error) {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	var id UniqueID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return UniqueID{}, err
	}
	return id, nil
}

var defaultGenerator Generator = RandomGenerator{}
