package ran

import (
	"encoding/base64"
	"fmt"
	"time"
)

// A MessageHandler consumes the messages a node receives. It runs on the
// node's consumer goroutine.
type MessageHandler interface {
	HandleMessage(node *Node, m PlainMessage, latency time.Duration)
}

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(node *Node, m PlainMessage, latency time.Duration)

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(
	node *Node,
	m PlainMessage,
	latency time.Duration,
) {
	f(node, m, latency)
}

// LogHandler writes a line per received message to the node's logger.
type LogHandler struct{}

// HandleMessage logs the message at debug level.
func (LogHandler) HandleMessage(node *Node, m PlainMessage, latency time.Duration) {
	node.logger.Debug().
		Str("from", m.From).
		Str("slice", m.SliceID).
		Str("kind", m.Kind).
		Float64("latency_ms", float64(latency)/float64(time.Millisecond)).
		Str("preview", Preview(m.Body)).
		Msg("received")
}

const previewBytes = 40

// Preview summarizes a payload by its size and the base64 form of its first
// bytes.
func Preview(data []byte) string {
	head := data
	if len(head) > previewBytes {
		head = head[:previewBytes]
	}

	return fmt.Sprintf("bytes=%d head(b64)=%s",
		len(data), base64.StdEncoding.EncodeToString(head))
}
