package ran

import (
	"bytes"
	"time"
)

// A PlainMessage is what an application hands to a node and what a node
// hands back to its handler after opening.
type PlainMessage struct {
	From    string
	To      string
	SliceID string
	Kind    string
	Body    []byte
}

// A SealedMessage is the form a message travels in. The header fields stay in
// clear so that the channel can shape by slice and the receiver can account
// for latency; the body is only available as ciphertext.
type SealedMessage struct {
	ID         string
	From       string
	To         string
	SliceID    string
	Kind       string
	Ciphertext []byte
	Nonce      []byte
	PlainSize  int
	CreatedAt  time.Time
}

// NewSealedMessage copies the header of p into a sealed message carrying the
// given ciphertext and nonce.
func NewSealedMessage(p PlainMessage, ciphertext, nonce []byte) *SealedMessage {
	return &SealedMessage{
		From:       p.From,
		To:         p.To,
		SliceID:    p.SliceID,
		Kind:       p.Kind,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		PlainSize:  len(p.Body),
	}
}

// Plain rebuilds the plaintext form of the message around body.
func (m *SealedMessage) Plain(body []byte) PlainMessage {
	return PlainMessage{
		From:    m.From,
		To:      m.To,
		SliceID: m.SliceID,
		Kind:    m.Kind,
		Body:    body,
	}
}

// Header returns the clear header fields in a stable binary form. AEAD
// transforms authenticate it as additional data.
func (m *SealedMessage) Header() []byte {
	return messageHeader(m.From, m.To, m.SliceID, m.Kind)
}

// Header returns the same bytes as the header of the sealed form of p.
func (p PlainMessage) Header() []byte {
	return messageHeader(p.From, p.To, p.SliceID, p.Kind)
}

func messageHeader(fields ...string) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		buf.WriteString(f)
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

// Size returns the number of bytes the message occupies on the channel.
func (m *SealedMessage) Size() int {
	return len(m.Ciphertext)
}
