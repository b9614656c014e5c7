package sign

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"
)

func newKeypair(t *testing.T) (Issuer, *[64]byte) {
	t.Helper()
	pub, priv, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return Issuer{Name: "test-issuer", PublicKey: *pub}, priv
}

func TestVerifyValidSignature(t *testing.T) {
	issuer, priv := newKeypair(t)
	payload := []byte("module = \"git-tools\"\nversion = \"1.0.0\"\n")
	signed := sign.Sign(nil, payload, priv)

	recovered, valid, err := Verify(signed, issuer)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, payload, recovered)
}

func TestVerifyTamperedSignatureFails(t *testing.T) {
	issuer, priv := newKeypair(t)
	payload := []byte("module = \"git-tools\"\n")
	signed := sign.Sign(nil, payload, priv)
	signed[len(signed)-1] ^= 0xFF

	_, valid, err := Verify(signed, issuer)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyWrongIssuerFails(t *testing.T) {
	_, priv := newKeypair(t)
	otherIssuer, _ := newKeypair(t)
	payload := []byte("module = \"git-tools\"\n")
	signed := sign.Sign(nil, payload, priv)

	_, valid, err := Verify(signed, otherIssuer)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyTooShortIsInvalid(t *testing.T) {
	issuer, _ := newKeypair(t)
	_, _, err := Verify([]byte("short"), issuer)
	assert.Error(t, err)
}

func TestVerifyAnyFindsMatchingIssuer(t *testing.T) {
	issuerA, privA := newKeypair(t)
	issuerB, _ := newKeypair(t)
	payload := []byte("module = \"aliases\"\n")
	signed := sign.Sign(nil, payload, privA)

	recovered, matched, err := VerifyAny(signed, []Issuer{issuerB, issuerA})
	require.NoError(t, err)
	require.NotNil(t, matched)
	assert.Equal(t, issuerA.PublicKey, matched.PublicKey)
	assert.Equal(t, payload, recovered)
}

func TestVerifyAnyNoMatch(t *testing.T) {
	issuerA, _ := newKeypair(t)
	issuerB, privB := newKeypair(t)
	payload := []byte("module = \"aliases\"\n")
	signed := sign.Sign(nil, payload, privB)

	// privB doesn't match issuerA or a fabricated third issuer
	_ = issuerB
	third, _ := newKeypair(t)
	_, matched, err := VerifyAny(signed, []Issuer{issuerA, third})
	require.NoError(t, err)
	assert.Nil(t, matched)
}

func TestParsePublicKeyHex(t *testing.T) {
	issuer, _ := newKeypair(t)
	encoded := hex.EncodeToString(issuer.PublicKey[:])

	parsed, err := ParsePublicKeyHex(encoded)
	require.NoError(t, err)
	assert.Equal(t, issuer.PublicKey, parsed.PublicKey)
}

func TestParsePublicKeyHexInvalidLength(t *testing.T) {
	_, err := ParsePublicKeyHex("abcd")
	assert.Error(t, err)
}

func TestParsePublicKeyHexInvalidEncoding(t *testing.T) {
	_, err := ParsePublicKeyHex("not-hex-at-all-zz")
	assert.Error(t, err)
}
