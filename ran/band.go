package ran

import (
	"fmt"
	"strings"
)

// Band is a physical medium of the channel.
type Band int

// The supported bands.
const (
	BandTHZ Band = iota
	BandOptical
)

// Bands lists every band.
var Bands = []Band{BandTHZ, BandOptical}

func (b Band) String() string {
	switch b {
	case BandTHZ:
		return "THZ"
	case BandOptical:
		return "OPTICAL"
	default:
		return fmt.Sprintf("Band(%d)", int(b))
	}
}

// ParseBand converts a band name, in any case, into a Band.
func ParseBand(name string) (Band, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "THZ":
		return BandTHZ, nil
	case "OPTICAL":
		return BandOptical, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBand, name)
	}
}

// MarshalText encodes the band by name.
func (b Band) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a band name.
func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}

	*b = parsed

	return nil
}

// A BandProfile holds the static transmission parameters of a band.
type BandProfile struct {
	BaseLatencyMs   float64
	JitterMs        float64
	LossProbability float64
	CapacityBps     int64
}

// Validate checks that the profile is usable.
func (p BandProfile) Validate() error {
	switch {
	case p.BaseLatencyMs < 0:
		return fmt.Errorf("%w: negative base latency %v", ErrInvalidBandProfile, p.BaseLatencyMs)
	case p.JitterMs < 0:
		return fmt.Errorf("%w: negative jitter %v", ErrInvalidBandProfile, p.JitterMs)
	case p.LossProbability < 0 || p.LossProbability > 1:
		return fmt.Errorf("%w: loss probability %v not in [0, 1]", ErrInvalidBandProfile, p.LossProbability)
	case p.CapacityBps <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidBandProfile)
	}

	return nil
}

// SerializationDelayMs returns the time to put n bytes on the medium.
func (p BandProfile) SerializationDelayMs(n int) float64 {
	return float64(n) * 8 * 1000 / float64(p.CapacityBps)
}
