package ticket

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, newError(KindCrypto, "unsupported Hash-Alg")
	}
}

// SignEd25519 signs the ticket's canonical payload with sha256(scope) and
// fills in the signature fields.
func (t *Ticket) SignEd25519(priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return newError(KindCrypto, "invalid ed25519 private key length")
	}
	scope, err := t.signedScope()
	if err != nil {
		return err
	}
	digest := sha256.Sum256(scope)
	pub := priv.Public().(ed25519.PublicKey)

	t.IssuerKey = "ed25519:" + base64.StdEncoding.EncodeToString(pub)
	t.HashAlg = "sha256"
	t.SignatureAlg = "ed25519"
	t.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(priv, digest[:]))
	return nil
}

// SignDilithium3 signs the ticket's canonical payload with hashAlg(scope)
// (sha256, sha512, or sha3-256) and fills in the signature fields.
func (t *Ticket) SignDilithium3(hashAlg string, pub *mode3.PublicKey, priv *mode3.PrivateKey) error {
	if pub == nil || priv == nil {
		return newError(KindCrypto, "missing dilithium3 keypair")
	}
	scope, err := t.signedScope()
	if err != nil {
		return err
	}
	digest, err := digestFor(hashAlg, scope)
	if err != nil {
		return err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return wrapError(KindCrypto, "marshal dilithium3 public key", err)
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, digest, sig)

	t.IssuerKey = "dilithium3:" + base64.StdEncoding.EncodeToString(pubBytes)
	t.HashAlg = hashAlg
	t.SignatureAlg = "dilithium3"
	t.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// Verify checks the ticket's signature against its embedded issuer key.
func (t *Ticket) Verify() error {
	if t == nil {
		return newError(KindCrypto, "nil ticket")
	}
	if t.Signature == "" {
		return newError(KindCrypto, "missing Signature")
	}
	if t.SignatureAlg == "" {
		return newError(KindCrypto, "missing Signature-Alg")
	}
	if t.HashAlg == "" {
		return newError(KindCrypto, "missing Hash-Alg")
	}

	issuerAlg, issuerEnc, ok := strings.Cut(t.IssuerKey, ":")
	if !ok {
		return newError(KindCrypto, "invalid Issuer-Key encoding")
	}
	if issuerAlg != t.SignatureAlg {
		return newError(KindCrypto, "Issuer-Key alg does not match Signature-Alg")
	}
	pub, err := base64.StdEncoding.DecodeString(issuerEnc)
	if err != nil {
		return wrapError(KindCrypto, "invalid issuer key base64", err)
	}
	sig, err := base64.StdEncoding.DecodeString(t.Signature)
	if err != nil {
		return wrapError(KindCrypto, "invalid signature base64", err)
	}

	scope, err := t.signedScope()
	if err != nil {
		return err
	}
	digest, err := digestFor(t.HashAlg, scope)
	if err != nil {
		return err
	}

	switch t.SignatureAlg {
	case "ed25519":
		if t.HashAlg != "sha256" {
			return newError(KindCrypto, "ed25519 tickets require Hash-Alg sha256")
		}
		if len(pub) != ed25519.PublicKeySize {
			return newError(KindCrypto, "invalid ed25519 public key length")
		}
		if len(sig) != ed25519.SignatureSize {
			return newError(KindCrypto, "invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return newError(KindCrypto, "signature verification failed")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return wrapError(KindCrypto, "invalid dilithium3 public key", err)
		}
		if len(sig) != mode3.SignatureSize {
			return newError(KindCrypto, "invalid dilithium3 signature length")
		}
		if !mode3.Verify(&pk, digest, sig) {
			return newError(KindCrypto, "signature verification failed")
		}
		return nil
	default:
		return newError(KindCrypto, "unsupported Signature-Alg")
	}
}
