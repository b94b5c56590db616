// Package idutil derives content-addressed fingerprints of rendezvous
// identifiers. The raw identifier is the capability to join a group, so logs,
// exchange keys, and diagnostics use the fingerprint instead.
package idutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"commlink.dev/rendezvous/rendezvous"
)

// Fingerprint returns a CIDv1 (raw multicodec, sha2-256 multihash) derived
// from the identifier bytes. Equal identifiers yield equal fingerprints.
func Fingerprint(id rendezvous.UniqueID) (cid.Cid, error) {
	return FingerprintBytes(id[:])
}

// FingerprintBytes is Fingerprint over raw bytes.
func FingerprintBytes(b []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(b, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// FingerprintString renders the fingerprint, or "" when derivation fails.
// With sha2-256 and default length the failure path should be unreachable.
func FingerprintString(id rendezvous.UniqueID) string {
	c, err := Fingerprint(id)
	if err != nil {
		return ""
	}
	return c.String()
}
