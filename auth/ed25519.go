package auth

import (
	"go.rmagent.dev/core/crypto/ed25519"
)

// Ed25519Signer adapts an Ed25519 key pair to the Signer interface.
type Ed25519Signer struct {
	kp *ed25519.KeyPair
}

// NewEd25519Signer wraps an existing key pair as a Signer.
func NewEd25519Signer(kp *ed25519.KeyPair) *Ed25519Signer {
	return &Ed25519Signer{kp: kp}
}

// Sign returns an Ed25519 signature over content.
func (s *Ed25519Signer) Sign(content []byte) []byte {
	return s.kp.Sign(content)
}

// Verify checks an Ed25519 signature produced by the same key pair.
func (s *Ed25519Signer) Verify(content, signature []byte) bool {
	return s.kp.Verify(content, signature)
}
