package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/sarchlab/slicesim/ran"
	"golang.org/x/crypto/chacha20poly1305"
)

// AEAD seals bodies with an authenticated cipher. Each message gets a fresh
// random nonce, and the clear header is authenticated as additional data, so
// a message whose routing fields were altered fails to open.
type AEAD struct {
	name string
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM transform with a random key.
func NewAESGCM() (*AEAD, error) {
	key, err := randomBytes(32)
	if err != nil {
		return nil, err
	}

	return NewAESGCMWithKey(key)
}

// NewAESGCMWithKey creates an AES-GCM transform. The key length selects
// AES-128, AES-192 or AES-256.
func NewAESGCMWithKey(key []byte) (*AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AEAD{name: "aes-gcm", aead: gcm}, nil
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 transform with a random
// key.
func NewChaCha20Poly1305() (*AEAD, error) {
	key, err := randomBytes(chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}

	return NewChaCha20Poly1305WithKey(key)
}

// NewChaCha20Poly1305WithKey creates a ChaCha20-Poly1305 transform.
func NewChaCha20Poly1305WithKey(key []byte) (*AEAD, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	return &AEAD{name: "chacha20-poly1305", aead: aead}, nil
}

// Name returns the name of the transform.
func (t *AEAD) Name() string {
	return t.name
}

// Seal encrypts the body.
func (t *AEAD) Seal(p ran.PlainMessage) (*ran.SealedMessage, error) {
	nonce, err := randomBytes(t.aead.NonceSize())
	if err != nil {
		return nil, err
	}

	ciphertext := t.aead.Seal(nil, nonce, p.Body, p.Header())

	return ran.NewSealedMessage(p, ciphertext, nonce), nil
}

// Open decrypts and authenticates the body.
func (t *AEAD) Open(s *ran.SealedMessage) (ran.PlainMessage, error) {
	if len(s.Nonce) != t.aead.NonceSize() {
		return ran.PlainMessage{}, fmt.Errorf("%w: want %d bytes, got %d",
			ErrMissingNonce, t.aead.NonceSize(), len(s.Nonce))
	}

	body, err := t.aead.Open(nil, s.Nonce, s.Ciphertext, s.Header())
	if err != nil {
		return ran.PlainMessage{}, err
	}

	return s.Plain(body), nil
}
