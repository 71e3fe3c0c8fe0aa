package config

import (
	"errors"
	"fmt"

	"github.com/sarchlab/slicesim/ran"
	"github.com/sarchlab/slicesim/traffic"
	"github.com/sarchlab/slicesim/transform"
)

// Validate checks that the scenario can be assembled. Every problem found is
// reported, wrapped in ErrInvalidScenario.
func (s *Scenario) Validate() error {
	v := &validator{}

	v.checkRun(s)
	v.checkBands(s)
	v.checkSlices(s)
	v.checkController(s)
	v.checkNodes(s)

	if len(v.errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(v.errs...))
}

type validator struct {
	errs   []error
	slices map[string]bool
	nodes  map[string]bool
}

func (v *validator) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) checkRun(s *Scenario) {
	if s.TicksPerSecond <= 0 {
		v.fail("ticks_per_second must be positive")
	}

	if s.Duration < 0 {
		v.fail("duration must not be negative")
	}

	if _, err := transform.New(s.Transform); err != nil {
		v.fail("transform: %w", err)
	}

	if s.Monitoring.Port < 0 || s.Monitoring.Port > 65535 {
		v.fail("monitoring port %d out of range", s.Monitoring.Port)
	}

	if s.Recording.Interval <= 0 {
		v.fail("recording interval must be positive")
	}
}

func (v *validator) checkBands(s *Scenario) {
	if len(s.Bands) == 0 {
		v.fail("no band configured")
	}

	for name, b := range s.Bands {
		if _, err := ran.ParseBand(name); err != nil {
			v.fail("band: %w", err)
			continue
		}

		if err := b.Profile().Validate(); err != nil {
			v.fail("band %s: %w", name, err)
		}
	}
}

func (v *validator) checkSlices(s *Scenario) {
	v.slices = make(map[string]bool)

	if len(s.Slices) == 0 {
		v.fail("no slice configured")
	}

	for _, sl := range s.Slices {
		switch {
		case sl.ID == "":
			v.fail("slice without id")
			continue
		case v.slices[sl.ID]:
			v.fail("duplicate slice %s", sl.ID)
		case sl.BandwidthBps <= 0:
			v.fail("slice %s: bandwidth must be positive", sl.ID)
		case sl.BucketBytes <= 0:
			v.fail("slice %s: bucket size must be positive", sl.ID)
		case sl.TargetLatencyMs <= 0:
			v.fail("slice %s: target latency must be positive", sl.ID)
		}

		v.slices[sl.ID] = true
	}
}

func (v *validator) checkController(s *Scenario) {
	cfg, err := s.Controller.ControlConfig()
	if err != nil {
		v.fail("controller: %w", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		v.fail("controller: %w", err)
	}
}

func (v *validator) checkNodes(s *Scenario) {
	v.nodes = make(map[string]bool)

	for _, n := range s.Nodes {
		switch {
		case n.Name == "":
			v.fail("node without name")
			continue
		case v.nodes[n.Name]:
			v.fail("duplicate node %s", n.Name)
		case n.PollInterval <= 0:
			v.fail("node %s: poll interval must be positive", n.Name)
		}

		v.nodes[n.Name] = true
	}

	for _, n := range s.Nodes {
		for _, a := range n.Allow {
			v.checkRoute(s, n.Name, a.Band, a.Slice)
		}

		for i, t := range n.Traffic {
			v.checkTraffic(s, n, i, t)
		}
	}
}

func (v *validator) checkRoute(s *Scenario, node, band, slice string) {
	b, err := ran.ParseBand(band)
	if err != nil {
		v.fail("node %s: %w", node, err)
	} else if !s.hasBand(b) {
		v.fail("node %s: band %s is not configured", node, band)
	}

	if !v.slices[slice] {
		v.fail("node %s: unknown slice %q", node, slice)
	}
}

func (v *validator) checkTraffic(s *Scenario, n NodeSpec, i int, t TrafficSpec) {
	v.checkRoute(s, n.Name, t.Band, t.Slice)

	if !v.nodes[t.To] {
		v.fail("node %s traffic %d: unknown destination %q", n.Name, i, t.To)
	}

	if t.Interval <= 0 {
		v.fail("node %s traffic %d: interval must be positive", n.Name, i)
	}

	if t.StartAfter < 0 {
		v.fail("node %s traffic %d: start delay must not be negative", n.Name, i)
	}

	if t.Bytes < 0 {
		v.fail("node %s traffic %d: size must not be negative", n.Name, i)
	}

	if t.Payload != "" {
		if _, err := traffic.PayloadByName(t.Payload); err != nil {
			v.fail("node %s traffic %d: %w", n.Name, i, err)
		}
	}

	if b, err := ran.ParseBand(t.Band); err == nil && len(n.Allow) > 0 {
		if !allows(n.Allow, b, t.Slice) {
			v.fail("node %s traffic %d: %s/%s is not allowed",
				n.Name, i, t.Band, t.Slice)
		}
	}
}

func allows(list []AllowSpec, band ran.Band, slice string) bool {
	for _, a := range list {
		b, err := ran.ParseBand(a.Band)
		if err == nil && b == band && a.Slice == slice {
			return true
		}
	}

	return false
}

// hasBand tells if a band is configured under any spelling of its name.
func (s *Scenario) hasBand(band ran.Band) bool {
	for name := range s.Bands {
		if b, err := ran.ParseBand(name); err == nil && b == band {
			return true
		}
	}

	return false
}

// Profile converts the band section.
func (b BandSpec) Profile() ran.BandProfile {
	return ran.BandProfile{
		BaseLatencyMs:   b.BaseLatencyMs,
		JitterMs:        b.JitterMs,
		LossProbability: b.Loss,
		CapacityBps:     b.CapacityBps,
	}
}
