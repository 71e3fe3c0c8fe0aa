package transform

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/slicesim/ran"
)

var _ = Describe("Transforms", func() {
	plain := ran.PlainMessage{
		From:    "Car-1",
		To:      "Edge-DC",
		SliceID: "safety",
		Kind:    "telemetry",
		Body:    bytes.Repeat([]byte("speed=42;"), 20),
	}

	DescribeTable("should round trip",
		func(name string) {
			t, err := New(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Name()).To(Equal(name))

			sealed, err := t.Seal(plain)
			Expect(err).NotTo(HaveOccurred())
			Expect(sealed.PlainSize).To(Equal(len(plain.Body)))
			Expect(sealed.From).To(Equal(plain.From))
			Expect(sealed.SliceID).To(Equal(plain.SliceID))
			Expect(sealed.Ciphertext).NotTo(Equal(plain.Body))

			opened, err := t.Open(sealed)
			Expect(err).NotTo(HaveOccurred())
			Expect(opened).To(Equal(plain))
		},
		Entry("mask", "mask"),
		Entry("AES-GCM", "aes-gcm"),
		Entry("ChaCha20-Poly1305", "chacha20-poly1305"),
	)

	DescribeTable("should reject messages sealed under another key",
		func(name string) {
			a, err := New(name)
			Expect(err).NotTo(HaveOccurred())
			b, err := New(name)
			Expect(err).NotTo(HaveOccurred())

			sealed, err := a.Seal(plain)
			Expect(err).NotTo(HaveOccurred())

			_, err = b.Open(sealed)
			Expect(err).To(HaveOccurred())
		},
		Entry("AES-GCM", "aes-gcm"),
		Entry("ChaCha20-Poly1305", "chacha20-poly1305"),
	)

	DescribeTable("should authenticate the header",
		func(name string) {
			t, err := New(name)
			Expect(err).NotTo(HaveOccurred())

			sealed, err := t.Seal(plain)
			Expect(err).NotTo(HaveOccurred())
			sealed.SliceID = "holo"

			_, err = t.Open(sealed)
			Expect(err).To(HaveOccurred())
		},
		Entry("AES-GCM", "aes-gcm"),
		Entry("ChaCha20-Poly1305", "chacha20-poly1305"),
	)

	It("should use a fresh nonce per message", func() {
		t, err := NewChaCha20Poly1305()
		Expect(err).NotTo(HaveOccurred())

		first, err := t.Seal(plain)
		Expect(err).NotTo(HaveOccurred())
		second, err := t.Seal(plain)
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Nonce).NotTo(Equal(second.Nonce))
		Expect(first.Ciphertext).NotTo(Equal(second.Ciphertext))
	})

	It("should reject a missing nonce", func() {
		t, err := NewAESGCM()
		Expect(err).NotTo(HaveOccurred())

		sealed, err := t.Seal(plain)
		Expect(err).NotTo(HaveOccurred())
		sealed.Nonce = nil

		_, err = t.Open(sealed)
		Expect(err).To(MatchError(ErrMissingNonce))
	})

	It("should mask with the repeating key", func() {
		key := make([]byte, MaskKeySize)
		key[0] = 0xff
		m, err := NewMaskWithKey(key)
		Expect(err).NotTo(HaveOccurred())

		sealed, err := m.Seal(ran.PlainMessage{Body: []byte{0x0f, 0x0f}})
		Expect(err).NotTo(HaveOccurred())
		Expect(sealed.Ciphertext).To(Equal([]byte{0xf0, 0x0f}))
		Expect(sealed.Nonce).To(BeNil())
	})

	It("should reject mask keys of the wrong size", func() {
		_, err := NewMaskWithKey([]byte{1, 2, 3})
		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown names", func() {
		t, err := New("rot13")
		Expect(err).To(MatchError(ErrUnknownTransform))
		Expect(t == nil).To(BeTrue())
	})
})
