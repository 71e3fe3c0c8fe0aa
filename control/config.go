package control

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a controller configuration is unusable.
var ErrInvalidConfig = errors.New("invalid controller config")

// Signal selects the congestion signal the controller reacts to.
type Signal int

const (
	// SignalCumulative uses the average latency and the drop count since the
	// start of the run.
	SignalCumulative Signal = iota

	// SignalWindowed uses the average latency and the drop count since the
	// previous adjustment.
	SignalWindowed
)

func (s Signal) String() string {
	switch s {
	case SignalCumulative:
		return "cumulative"
	case SignalWindowed:
		return "windowed"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// ParseSignal converts a signal name into a Signal.
func ParseSignal(name string) (Signal, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cumulative":
		return SignalCumulative, nil
	case "windowed":
		return SignalWindowed, nil
	default:
		return 0, fmt.Errorf("%w: unknown signal %q", ErrInvalidConfig, name)
	}
}

// Config holds the tuning of a Controller.
type Config struct {
	Interval        time.Duration
	FloorStepBps    int64
	MaxStepBps      int64
	MinBandwidthBps int64

	// MaxBandwidthBps caps increases. Zero leaves bandwidth unbounded.
	MaxBandwidthBps int64

	DecayFactor float64
	Signal      Signal
}

// DefaultConfig returns the standard controller tuning.
func DefaultConfig() Config {
	return Config{
		Interval:        2 * time.Second,
		FloorStepBps:    150_000,
		MaxStepBps:      6_000_000,
		MinBandwidthBps: 100_000,
		DecayFactor:     0.96,
		Signal:          SignalCumulative,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case c.FloorStepBps <= 0:
		return fmt.Errorf("%w: floor step must be positive", ErrInvalidConfig)
	case c.MaxStepBps < c.FloorStepBps:
		return fmt.Errorf("%w: max step below floor step", ErrInvalidConfig)
	case c.MinBandwidthBps <= 0:
		return fmt.Errorf("%w: min bandwidth must be positive", ErrInvalidConfig)
	case c.MaxBandwidthBps != 0 && c.MaxBandwidthBps < c.MinBandwidthBps:
		return fmt.Errorf("%w: max bandwidth below min bandwidth", ErrInvalidConfig)
	case c.DecayFactor <= 0 || c.DecayFactor >= 1:
		return fmt.Errorf("%w: decay factor %v not in (0, 1)", ErrInvalidConfig, c.DecayFactor)
	case c.Signal != SignalCumulative && c.Signal != SignalWindowed:
		return fmt.Errorf("%w: unknown signal %v", ErrInvalidConfig, c.Signal)
	}

	return nil
}
