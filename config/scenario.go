// Package config loads simulation scenarios and assembles them into running
// simulations.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sarchlab/slicesim/control"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a scenario cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

//go:embed default.yaml
var defaultScenario []byte

// A Scenario describes everything a run needs: the bands, the slices, the
// nodes and their traffic, and the services around them.
type Scenario struct {
	Name           string              `yaml:"name"`
	Seed           uint64              `yaml:"seed"`
	TicksPerSecond int                 `yaml:"ticks_per_second"`
	Duration       time.Duration       `yaml:"duration"`
	Transform      string              `yaml:"transform"`
	Bands          map[string]BandSpec `yaml:"bands"`
	Slices         []SliceSpec         `yaml:"slices"`
	Controller     ControllerSpec      `yaml:"controller"`
	Nodes          []NodeSpec          `yaml:"nodes"`
	Monitoring     MonitoringSpec      `yaml:"monitoring"`
	Recording      RecordingSpec       `yaml:"recording"`
	Logging        LoggingSpec         `yaml:"logging"`
}

// BandSpec holds the transmission parameters of a band.
type BandSpec struct {
	BaseLatencyMs float64 `yaml:"base_latency_ms"`
	JitterMs      float64 `yaml:"jitter_ms"`
	Loss          float64 `yaml:"loss"`
	CapacityBps   int64   `yaml:"capacity_bps"`
}

// SliceSpec declares a slice and its starting bandwidth.
type SliceSpec struct {
	ID              string  `yaml:"id"`
	Description     string  `yaml:"description"`
	BandwidthBps    int64   `yaml:"bandwidth_bps"`
	BucketBytes     int64   `yaml:"bucket_bytes"`
	TargetLatencyMs float64 `yaml:"target_latency_ms"`
}

// ControllerSpec tunes the bandwidth controller. Zero fields take the
// controller defaults.
type ControllerSpec struct {
	Interval        time.Duration `yaml:"interval"`
	FloorStepBps    int64         `yaml:"floor_step_bps"`
	MaxStepBps      int64         `yaml:"max_step_bps"`
	MinBandwidthBps int64         `yaml:"min_bandwidth_bps"`
	MaxBandwidthBps int64         `yaml:"max_bandwidth_bps"`
	DecayFactor     float64       `yaml:"decay_factor"`
	Signal          string        `yaml:"signal"`
}

// NodeSpec declares a node. A node without an allow list may send on any
// band and slice.
type NodeSpec struct {
	Name         string        `yaml:"name"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Allow        []AllowSpec   `yaml:"allow,omitempty"`
	Traffic      []TrafficSpec `yaml:"traffic,omitempty"`
}

// AllowSpec is one (band, slice) combination a node may send on.
type AllowSpec struct {
	Band  string `yaml:"band"`
	Slice string `yaml:"slice"`
}

// TrafficSpec is one periodic flow from a node.
type TrafficSpec struct {
	To         string        `yaml:"to"`
	Band       string        `yaml:"band"`
	Slice      string        `yaml:"slice"`
	Kind       string        `yaml:"kind"`
	Payload    string        `yaml:"payload"`
	Bytes      int           `yaml:"bytes"`
	StartAfter time.Duration `yaml:"start_after"`
	Interval   time.Duration `yaml:"interval"`
}

// MonitoringSpec configures the HTTP monitor.
type MonitoringSpec struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Open    bool `yaml:"open"`
}

// RecordingSpec configures the SQLite recorder. An empty path picks a unique
// file name.
type RecordingSpec struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingSpec configures the logger.
type LoggingSpec struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the built-in smart-city scenario.
func Default() *Scenario {
	s, err := Parse(defaultScenario)
	if err != nil {
		panic(err)
	}

	return s
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// Parse decodes a scenario and fills in defaults. It does not validate.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	s.fillDefaults()

	return &s, nil
}

// Marshal encodes the scenario as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

func (s *Scenario) fillDefaults() {
	if s.TicksPerSecond == 0 {
		s.TicksPerSecond = 20
	}

	if s.Transform == "" {
		s.Transform = "mask"
	}

	if s.Recording.Interval == 0 {
		s.Recording.Interval = time.Second
	}

	for i := range s.Nodes {
		if s.Nodes[i].PollInterval == 0 {
			s.Nodes[i].PollInterval = 100 * time.Millisecond
		}
	}

	d := control.DefaultConfig()
	c := &s.Controller

	if c.Interval == 0 {
		c.Interval = d.Interval
	}

	if c.FloorStepBps == 0 {
		c.FloorStepBps = d.FloorStepBps
	}

	if c.MaxStepBps == 0 {
		c.MaxStepBps = d.MaxStepBps
	}

	if c.MinBandwidthBps == 0 {
		c.MinBandwidthBps = d.MinBandwidthBps
	}

	if c.DecayFactor == 0 {
		c.DecayFactor = d.DecayFactor
	}
}

// ControlConfig converts the controller section.
func (c ControllerSpec) ControlConfig() (control.Config, error) {
	signal, err := control.ParseSignal(c.Signal)
	if err != nil {
		return control.Config{}, err
	}

	return control.Config{
		Interval:        c.Interval,
		FloorStepBps:    c.FloorStepBps,
		MaxStepBps:      c.MaxStepBps,
		MinBandwidthBps: c.MinBandwidthBps,
		MaxBandwidthBps: c.MaxBandwidthBps,
		DecayFactor:     c.DecayFactor,
		Signal:          signal,
	}, nil
}
