package auth_test

import (
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/crypto/ed25519"
)

func TestEd25519SignerRoundTrip(t *testing.T) {
	kp, err := ed25519.New()
	tdd.NoError(t, err)
	defer kp.Destroy()

	signer := auth.NewEd25519Signer(kp)
	msg := []byte("dispatch-envelope-contents")
	sig := signer.Sign(msg)
	tdd.True(t, signer.Verify(msg, sig))
}

func TestEd25519SignerDetectsTamper(t *testing.T) {
	kp, err := ed25519.New()
	tdd.NoError(t, err)
	defer kp.Destroy()

	signer := auth.NewEd25519Signer(kp)
	sig := signer.Sign([]byte("original"))
	tdd.False(t, signer.Verify([]byte("tampered"), sig))
}

func TestEd25519SignerRejectsForeignKey(t *testing.T) {
	kpA, err := ed25519.New()
	tdd.NoError(t, err)
	defer kpA.Destroy()
	kpB, err := ed25519.New()
	tdd.NoError(t, err)
	defer kpB.Destroy()

	msg := []byte("payload")
	sig := auth.NewEd25519Signer(kpA).Sign(msg)
	tdd.False(t, auth.NewEd25519Signer(kpB).Verify(msg, sig))
}
