// Package transform provides the confidentiality transforms that nodes apply
// to message bodies.
package transform

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/slicesim/ran"
)

// ErrUnknownTransform is returned by New for an unsupported name.
var ErrUnknownTransform = errors.New("unknown transform")

// ErrMissingNonce is returned when an AEAD message carries no usable nonce.
var ErrMissingNonce = errors.New("missing nonce")

// Names lists the names accepted by New.
var Names = []string{"mask", "aes-gcm", "chacha20-poly1305"}

// New creates a transform with a fresh random key.
func New(name string) (ran.Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mask", "mockpqc":
		m, err := NewMask()
		if err != nil {
			return nil, err
		}

		return m, nil
	case "aes-gcm", "aesgcm":
		a, err := NewAESGCM()
		if err != nil {
			return nil, err
		}

		return a, nil
	case "chacha20-poly1305", "chacha20poly1305":
		a, err := NewChaCha20Poly1305()
		if err != nil {
			return nil, err
		}

		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return b, nil
}
