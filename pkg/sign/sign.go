// Package sign verifies module signatures.
// Ed25519 is wrapped in NaCl's sign API rather than called directly against
// crypto/ed25519, matching the pack's existing golang.org/x/crypto subtree.
package sign

import (
	"encoding/hex"

	"golang.org/x/crypto/nacl/sign"

	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

// PublicKeySize and SignedMessageOverhead mirror nacl/sign's own
// constants, re-exported so callers never need to import nacl directly.
const (
	PublicKeySize         = 32
	SignedMessageOverhead = sign.Overhead
)

// Issuer is a named Ed25519 public key trusted to sign module manifests.
type Issuer struct {
	Name      string
	PublicKey [PublicKeySize]byte
}

// ParsePublicKeyHex decodes a hex-encoded 32-byte Ed25519 public key, the
// form issuer keys are stored in security.toml.
func ParsePublicKeyHex(hexKey string) (Issuer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return Issuer{}, zerr.Wrap(zerr.Invalid, "invalid issuer public key encoding", err)
	}
	if len(raw) != PublicKeySize {
		return Issuer{}, zerr.Newf(zerr.Invalid, "issuer public key must be %d bytes, got %d", PublicKeySize, len(raw))
	}
	var key [PublicKeySize]byte
	copy(key[:], raw)
	return Issuer{PublicKey: key}, nil
}

// Verify checks a combined signed message (the NaCl sign box
// produced by the issuer's private key, carrying the original payload
// plus signature) against the issuer's public key. It returns the
// recovered payload and whether the signature is valid.
//
// Module authors sign the manifest bytes (module.toml content) with
// nacl/sign.Sign(nil, manifest, privateKey); zephyr verifies with the
// corresponding public key at install time.
func Verify(signed []byte, issuer Issuer) (payload []byte, valid bool, err error) {
	if len(signed) <= SignedMessageOverhead {
		return nil, false, zerr.New(zerr.Invalid, "signed message too short to contain a signature")
	}
	payload, ok := sign.Open(nil, signed, &issuer.PublicKey)
	if !ok {
		return nil, false, nil
	}
	return payload, true, nil
}

// VerifyAny checks signed against every issuer in turn, returning the
// first issuer whose key validates it. Used when a module does not
// declare which issuer signed it: an unmatched issuer is treated the same
// as a missing signature, and aborts unless unsigned installs are allowed.
func VerifyAny(signed []byte, issuers []Issuer) (payload []byte, issuer *Issuer, err error) {
	for i := range issuers {
		p, ok, verr := Verify(signed, issuers[i])
		if verr != nil {
			return nil, nil, verr
		}
		if ok {
			return p, &issuers[i], nil
		}
	}
	return nil, nil, nil
}
