package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/slicesim/config"
	"github.com/sarchlab/slicesim/control"
)

const minimalScenario = `
name: minimal
bands:
  thz: {base_latency_ms: 1, jitter_ms: 0, loss: 0, capacity_bps: 8000000}
slices:
  - {id: s1, bandwidth_bps: 1000000, bucket_bytes: 4096, target_latency_ms: 10}
nodes:
  - name: A
    traffic:
      - {to: B, band: THZ, slice: s1, kind: telemetry, bytes: 100, interval: 10ms}
  - name: B
`

var _ = Describe("Scenario", func() {
	It("should load the built-in smart city", func() {
		s := config.Default()

		Expect(s.Validate()).To(Succeed())
		Expect(s.Name).To(Equal("smart-city"))
		Expect(s.Bands).To(HaveKey("THZ"))
		Expect(s.Bands).To(HaveKey("OPTICAL"))
		Expect(s.Bands["THZ"].Loss).To(Equal(0.003))
		Expect(s.Slices).To(HaveLen(3))
		Expect(s.Slices[1].ID).To(Equal("slice-holo"))
		Expect(s.Slices[1].BucketBytes).To(Equal(int64(1024 * 1024)))
		Expect(s.Nodes).To(HaveLen(5))
		Expect(s.Nodes[1].Traffic[0].Interval).To(Equal(20 * time.Millisecond))
		Expect(s.Nodes[1].Traffic[1].StartAfter).To(Equal(200 * time.Millisecond))
		Expect(s.Monitoring.Port).To(Equal(9400))
	})

	It("should fill in defaults", func() {
		s, err := config.Parse([]byte(minimalScenario))

		Expect(err).NotTo(HaveOccurred())
		Expect(s.TicksPerSecond).To(Equal(20))
		Expect(s.Transform).To(Equal("mask"))
		Expect(s.Nodes[0].PollInterval).To(Equal(100 * time.Millisecond))
		Expect(s.Recording.Interval).To(Equal(time.Second))
		Expect(s.Validate()).To(Succeed())

		cfg, err := s.Controller.ControlConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(control.DefaultConfig()))
	})

	It("should load a file", func() {
		dir, err := os.MkdirTemp("", "slicesim")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		path := filepath.Join(dir, "scenario.yaml")
		Expect(os.WriteFile(path, []byte(minimalScenario), 0o600)).To(Succeed())

		s, err := config.Load(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("minimal"))
	})

	It("should report a missing file", func() {
		_, err := config.Load("does-not-exist.yaml")

		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("should survive a marshal round trip", func() {
		data, err := config.Default().Marshal()
		Expect(err).NotTo(HaveOccurred())

		s, err := config.Parse(data)

		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(config.Default()))
	})

	DescribeTable("rejecting broken scenarios",
		func(mutate func(s *config.Scenario), message string) {
			s := config.Default()
			mutate(s)

			err := s.Validate()

			Expect(err).To(MatchError(config.ErrInvalidScenario))
			Expect(err.Error()).To(ContainSubstring(message))
		},
		Entry("unknown band", func(s *config.Scenario) {
			s.Bands["RADIO"] = config.BandSpec{CapacityBps: 1}
		}, "unknown band"),
		Entry("loss above one", func(s *config.Scenario) {
			b := s.Bands["THZ"]
			b.Loss = 1.5
			s.Bands["THZ"] = b
		}, "loss probability"),
		Entry("zero capacity", func(s *config.Scenario) {
			b := s.Bands["OPTICAL"]
			b.CapacityBps = 0
			s.Bands["OPTICAL"] = b
		}, "capacity"),
		Entry("duplicate slice", func(s *config.Scenario) {
			s.Slices = append(s.Slices, s.Slices[0])
		}, "duplicate slice"),
		Entry("zero bandwidth", func(s *config.Scenario) {
			s.Slices[0].BandwidthBps = 0
		}, "bandwidth must be positive"),
		Entry("duplicate node", func(s *config.Scenario) {
			s.Nodes = append(s.Nodes, config.NodeSpec{Name: "Edge-DC", PollInterval: time.Second})
		}, "duplicate node"),
		Entry("unknown destination", func(s *config.Scenario) {
			s.Nodes[1].Traffic[0].To = "Nowhere"
		}, "unknown destination"),
		Entry("unknown slice", func(s *config.Scenario) {
			s.Nodes[1].Traffic[0].Slice = "slice-none"
		}, "unknown slice"),
		Entry("traffic outside the allow list", func(s *config.Scenario) {
			s.Nodes[2].Traffic[0].Slice = "slice-city"
		}, "not allowed"),
		Entry("zero interval", func(s *config.Scenario) {
			s.Nodes[1].Traffic[0].Interval = 0
		}, "interval must be positive"),
		Entry("unknown transform", func(s *config.Scenario) {
			s.Transform = "rot13"
		}, "transform"),
		Entry("unknown signal", func(s *config.Scenario) {
			s.Controller.Signal = "psychic"
		}, "unknown signal"),
		Entry("bad decay", func(s *config.Scenario) {
			s.Controller.DecayFactor = 1.5
		}, "controller"),
	)

	It("should report every problem at once", func() {
		s := config.Default()
		s.Slices[0].BandwidthBps = 0
		s.Nodes[1].Traffic[0].To = "Nowhere"

		err := s.Validate()

		Expect(err.Error()).To(ContainSubstring("bandwidth must be positive"))
		Expect(err.Error()).To(ContainSubstring("unknown destination"))
	})
})

var _ = Describe("Environment", func() {
	setenv := func(key, value string) {
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(os.Unsetenv, key)
	}

	It("should override scenario fields", func() {
		setenv(config.EnvTransform, "aes-gcm")
		setenv(config.EnvMonitorPort, "9500")
		setenv(config.EnvLogLevel, "debug")
		setenv(config.EnvDuration, "30s")
		setenv(config.EnvRecord, "out/run")
		setenv(config.EnvSeed, "42")

		s := config.Default()
		Expect(s.ApplyEnv()).To(Succeed())

		Expect(s.Transform).To(Equal("aes-gcm"))
		Expect(s.Monitoring.Enabled).To(BeTrue())
		Expect(s.Monitoring.Port).To(Equal(9500))
		Expect(s.Logging.Level).To(Equal("debug"))
		Expect(s.Duration).To(Equal(30 * time.Second))
		Expect(s.Recording.Enabled).To(BeTrue())
		Expect(s.Recording.Path).To(Equal("out/run"))
		Expect(s.Seed).To(Equal(uint64(42)))
	})

	It("should reject malformed values", func() {
		setenv(config.EnvDuration, "soon")

		Expect(config.Default().ApplyEnv()).NotTo(Succeed())
	})

	It("should load a dotenv file", func() {
		dir, err := os.MkdirTemp("", "slicesim")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		path := filepath.Join(dir, "test.env")
		Expect(os.WriteFile(path,
			[]byte(config.EnvTransform+"=chacha20-poly1305\n"), 0o600)).To(Succeed())
		DeferCleanup(os.Unsetenv, config.EnvTransform)

		Expect(config.LoadDotEnv(path)).To(Succeed())

		s := config.Default()
		Expect(s.ApplyEnv()).To(Succeed())
		Expect(s.Transform).To(Equal("chacha20-poly1305"))
	})
})
