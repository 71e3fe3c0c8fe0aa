package simulation

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/id"
)

type namedComp struct {
	name string
}

func (c namedComp) Name() string {
	return c.name
}

var _ = Describe("Simulation", func() {
	var (
		sim *Simulation
	)

	BeforeEach(func() {
		sim = NewSimulation()
	})

	It("should provide defaults", func() {
		Expect(sim.GetEngine()).NotTo(BeNil())
		Expect(sim.GetMetrics()).NotTo(BeNil())
		Expect(sim.GetIDGenerator().Generate()).NotTo(BeEmpty())
	})

	It("should replace services", func() {
		agg := metrics.NewAggregator(nil)
		sim.RegisterMetrics(agg)
		sim.RegisterIDGenerator(id.NewIDGenerator())

		Expect(sim.GetMetrics()).To(BeIdenticalTo(agg))
		Expect(sim.GetIDGenerator().Generate()).To(Equal("1"))
	})

	It("should register components by name", func() {
		sim.RegisterComponent(namedComp{"A"})
		sim.RegisterComponent(namedComp{"B"})

		Expect(sim.GetComponentByName("B")).To(Equal(namedComp{"B"}))
		Expect(sim.GetComponentByName("C")).To(BeNil())
		Expect(sim.Components()).To(Equal([]Component{namedComp{"A"}, namedComp{"B"}}))
	})

	It("should panic on duplicated component names", func() {
		sim.RegisterComponent(namedComp{"A"})

		Expect(func() { sim.RegisterComponent(namedComp{"A"}) }).To(Panic())
	})
})
