package transform

import (
	"fmt"

	"github.com/sarchlab/slicesim/ran"
)

// MaskKeySize is the key length of the Mask transform.
const MaskKeySize = 32

// Mask XORs the body with a repeating 32-byte key. It hides the payload from
// casual inspection only and detects no tampering. It stands in for a
// post-quantum scheme.
type Mask struct {
	key []byte
}

// NewMask creates a Mask with a random key.
func NewMask() (*Mask, error) {
	key, err := randomBytes(MaskKeySize)
	if err != nil {
		return nil, err
	}

	return NewMaskWithKey(key)
}

// NewMaskWithKey creates a Mask with the given key.
func NewMaskWithKey(key []byte) (*Mask, error) {
	if len(key) != MaskKeySize {
		return nil, fmt.Errorf("mask key must be %d bytes, got %d",
			MaskKeySize, len(key))
	}

	return &Mask{key: append([]byte(nil), key...)}, nil
}

// Name returns the name of the transform.
func (m *Mask) Name() string {
	return "mask"
}

// Seal masks the body.
func (m *Mask) Seal(p ran.PlainMessage) (*ran.SealedMessage, error) {
	return ran.NewSealedMessage(p, m.apply(p.Body), nil), nil
}

// Open unmasks the body.
func (m *Mask) Open(s *ran.SealedMessage) (ran.PlainMessage, error) {
	return s.Plain(m.apply(s.Ciphertext)), nil
}

func (m *Mask) apply(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ m.key[i%len(m.key)]
	}

	return out
}
