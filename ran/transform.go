package ran

// A Transform provides confidentiality for message bodies. Seal and Open must
// be safe for concurrent use.
type Transform interface {
	Name() string

	// Seal turns a plaintext message into a sealed message. The returned
	// message has no ID and no creation time yet.
	Seal(p PlainMessage) (*SealedMessage, error)

	// Open recovers the plaintext of a sealed message. It fails if the
	// message was tampered with or sealed under another key.
	Open(m *SealedMessage) (PlainMessage, error)
}
