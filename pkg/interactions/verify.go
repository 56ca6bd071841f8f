package interactions

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Header names carrying the signature envelope.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	// ErrMissingPublicKey is returned when no public key is configured.
	ErrMissingPublicKey = errors.New("discord public key not configured")

	// ErrInvalidPublicKey is returned for keys that are not 32 hex-encoded bytes.
	ErrInvalidPublicKey = errors.New("invalid discord public key")
)

// Verifier checks request signatures against the application's public key.
// A nil *Verifier rejects everything.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses the hex public key shown on the application's
// General Information page.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	publicKeyHex = strings.TrimSpace(publicKeyHex)
	if publicKeyHex == "" {
		return nil, ErrMissingPublicKey
	}
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), ed25519.PublicKeySize)
	}
	return &Verifier{key: ed25519.PublicKey(raw)}, nil
}

// Verify reports whether signatureHex is a valid signature of timestamp||body.
func (v *Verifier) Verify(body []byte, timestamp, signatureHex string) bool {
	if v == nil {
		return false
	}
	return Verify(body, timestamp, signatureHex, v.key)
}

// Verify checks an Ed25519 signature over the timestamp followed by the raw
// body bytes. body must be exactly what arrived on the wire.
func Verify(body []byte, timestamp, signatureHex string, key ed25519.PublicKey) bool {
	if len(key) != ed25519.PublicKeySize {
		return false
	}
	if len(body) == 0 || timestamp == "" || signatureHex == "" {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)

	return ed25519.Verify(key, msg, sig)
}
