// Package traffic generates the application traffic of the city: vehicle and
// sensor telemetry, and hologram frames.
package traffic

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/rand"
)

// A PayloadFunc creates a body of roughly size bytes.
type PayloadFunc func(size int, now time.Time) []byte

// PayloadByName returns the payload generator with the given name.
func PayloadByName(name string) (PayloadFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "telemetry":
		return Telemetry, nil
	case "hologram", "holo":
		return Hologram, nil
	case "zero", "padding":
		return Padding, nil
	default:
		return nil, fmt.Errorf("unknown payload %q", name)
	}
}

// Telemetry creates a JSON position report padded to at least size bytes.
func Telemetry(size int, now time.Time) []byte {
	report := fmt.Sprintf(
		`{"type":"telemetry","lat":%.5f,"lon":%.5f,"spd":%d,"ts":"%s","status":"OK"}`,
		uniform(-90, 90),
		uniform(-180, 180),
		rand.Intn(150),
		now.UTC().Format(time.RFC3339Nano),
	)

	return Pad([]byte(report), size)
}

// Hologram creates a frame chunk of exactly size bytes, or of its header
// length if size is smaller. The header carries the creation time, the size
// and a random tag.
func Hologram(size int, now time.Time) []byte {
	header := make([]byte, 64)
	binary.BigEndian.PutUint64(header[0:], uint64(now.UnixNano()))
	binary.BigEndian.PutUint32(header[8:], uint32(size))
	binary.BigEndian.PutUint32(header[12:], rand.Uint32())

	prefix := []byte("HOLO:" + base64.StdEncoding.EncodeToString(header) + ":")

	return Pad(prefix, size)
}

// Padding creates a body of size filler bytes.
func Padding(size int, _ time.Time) []byte {
	return Pad(nil, size)
}

// Pad extends src to size bytes with a repeating filler. Bodies longer than
// size are kept whole.
func Pad(src []byte, size int) []byte {
	n := size
	if len(src) > n {
		n = len(src)
	}

	out := make([]byte, n)
	copy(out, src)

	for i := len(src); i < n; i++ {
		out[i] = byte('A' + i%23)
	}

	return out
}

func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}
