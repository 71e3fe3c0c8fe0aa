package traffic

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/slicesim/ran"
	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
	"github.com/sarchlab/slicesim/transform"
)

type sinkDirectory struct{}

func (sinkDirectory) Lookup(name string) (ran.Deliverer, bool) {
	if name != "Edge-DC" {
		return nil, false
	}

	return sinkDirectory{}, true
}

func (sinkDirectory) Deliver(*ran.SealedMessage) {}

type countingChannel struct {
	lock  sync.Mutex
	sizes map[string][]int
}

func (c *countingChannel) Transmit(_ ran.Band, m *ran.SealedMessage, _ ran.Deliverer) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.sizes[m.Kind] = append(c.sizes[m.Kind], m.PlainSize)
}

func (c *countingChannel) Count(kind string) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.sizes[kind])
}

var _ = Describe("Generator", func() {
	var (
		mockClock *clock.Mock
		engine    *timing.RealTimeEngine
		sim       *simulation.Simulation
		channel   *countingChannel
		car       *ran.Node
	)

	telemetry := Pattern{
		Band:       ran.BandTHZ,
		SliceID:    "safety",
		Kind:       "telemetry",
		To:         "Edge-DC",
		Payload:    Telemetry,
		Bytes:      256,
		StartAfter: 100 * time.Millisecond,
		Interval:   20 * time.Millisecond,
	}

	BeforeEach(func() {
		mockClock = clock.NewMock()
		engine = timing.NewRealTimeEngine(mockClock)
		sim = simulation.NewSimulation()
		sim.RegisterEngine(engine)
		channel = &countingChannel{sizes: make(map[string][]int)}

		mask, err := transform.NewMask()
		Expect(err).NotTo(HaveOccurred())

		car = ran.MakeNodeBuilder().
			WithSimulation(sim).
			WithDirectory(sinkDirectory{}).
			WithChannel(channel).
			WithTransform(mask).
			WithPatterns(
				ran.Pattern{Band: ran.BandTHZ, SliceID: "safety"},
				ran.Pattern{Band: ran.BandOptical, SliceID: "holo"},
			).
			Build("Car-X1")

		engine.Start()
	})

	AfterEach(func() {
		engine.Close()
		car.Close()
	})

	It("should refuse patterns the node may not use", func() {
		p := telemetry
		p.SliceID = "city"

		_, err := MakeGeneratorBuilder().
			WithSimulation(sim).
			WithNode(car).
			WithPatterns(p).
			Build("Car-X1.Traffic")

		Expect(err).To(MatchError(ErrPatternNotAllowed))
	})

	It("should refuse malformed patterns", func() {
		p := telemetry
		p.Interval = 0

		_, err := MakeGeneratorBuilder().
			WithSimulation(sim).
			WithNode(car).
			WithPatterns(p).
			Build("Car-X1.Traffic")

		Expect(err).To(HaveOccurred())
	})

	It("should send after the start delay and then periodically", func() {
		holo := Pattern{
			Band:       ran.BandOptical,
			SliceID:    "holo",
			Kind:       "holo",
			To:         "Edge-DC",
			Payload:    Hologram,
			Bytes:      16 * 1024,
			StartAfter: 200 * time.Millisecond,
			Interval:   50 * time.Millisecond,
		}

		gen, err := MakeGeneratorBuilder().
			WithSimulation(sim).
			WithNode(car).
			WithPatterns(telemetry, holo).
			Build("Car-X1.Traffic")
		Expect(err).NotTo(HaveOccurred())
		gen.Start()

		mockClock.Add(99 * time.Millisecond)
		Consistently(func() int { return channel.Count("telemetry") },
			20*time.Millisecond).Should(BeZero())

		mockClock.Add(time.Millisecond)
		Eventually(func() int { return channel.Count("telemetry") }).
			Should(Equal(1))

		mockClock.Add(100 * time.Millisecond)
		Eventually(func() int { return channel.Count("holo") }).
			Should(Equal(1))
		Expect(sim.GetMetrics().BytesSent()).To(BeNumerically(">=", 16*1024))
	})

	It("should count failed sends", func() {
		p := telemetry
		p.To = "Nowhere"
		p.StartAfter = 0

		gen, err := MakeGeneratorBuilder().
			WithSimulation(sim).
			WithNode(car).
			WithPatterns(p).
			Build("Car-X1.Traffic")
		Expect(err).NotTo(HaveOccurred())
		gen.Start()

		Eventually(gen.Failures).Should(Equal(int64(1)))
		Expect(gen.Attempts()).To(Equal(int64(1)))
		Expect(sim.GetMetrics().PacketsSent()).To(BeZero())
	})

	It("should stop sending when stopped", func() {
		gen, err := MakeGeneratorBuilder().
			WithSimulation(sim).
			WithNode(car).
			WithPatterns(telemetry).
			Build("Car-X1.Traffic")
		Expect(err).NotTo(HaveOccurred())
		gen.Start()
		gen.Stop()

		mockClock.Add(time.Second)

		Consistently(gen.Attempts, 20*time.Millisecond).Should(BeZero())
	})
})
