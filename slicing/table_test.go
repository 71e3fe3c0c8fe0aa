package slicing

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Slice", func() {
	It("should reject non-positive bandwidth", func() {
		Expect(func() { NewSlice("s", "", 0, 10, 5) }).To(Panic())

		s := NewSlice("s", "", 10, 10, 5)
		Expect(func() { s.SetBandwidth(-1) }).To(Panic())
		Expect(s.Bandwidth()).To(Equal(int64(10)))
	})

	It("should reject non-positive bucket capacity", func() {
		Expect(func() { NewSlice("s", "", 10, 0, 5) }).To(Panic())
	})
})

var _ = Describe("Table", func() {
	var (
		table *Table
	)

	BeforeEach(func() {
		table = NewTable()
	})

	It("should keep the first slice registered for an ID", func() {
		first := NewSlice("safety", "first", 100, 10, 5)
		second := NewSlice("safety", "second", 200, 10, 5)

		Expect(table.Register(first)).To(BeIdenticalTo(first))
		Expect(table.Register(second)).To(BeIdenticalTo(first))
		Expect(table.Len()).To(Equal(1))
	})

	It("should list slices by ID", func() {
		table.Register(NewSlice("holo", "", 3, 10, 8))
		table.Register(NewSlice("city", "", 1, 10, 15))
		table.Register(NewSlice("safety", "", 2, 10, 5))

		Expect(table.IDs()).To(Equal([]string{"city", "holo", "safety"}))

		list := table.List()
		Expect(list).To(HaveLen(3))
		Expect(list[0].ID).To(Equal("city"))
		Expect(list[2].ID).To(Equal("safety"))
		Expect(table.Bandwidths()).To(Equal(map[string]int64{
			"city": 1, "holo": 3, "safety": 2,
		}))
	})

	It("should allow concurrent readers while the bandwidth changes", func() {
		s := table.Register(NewSlice("safety", "", 100, 10, 5))
		wg := sync.WaitGroup{}

		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					Expect(table.Bandwidths()["safety"]).To(BeNumerically(">", 0))
				}
			}()
		}

		for j := int64(1); j <= 1000; j++ {
			s.SetBandwidth(j)
		}

		wg.Wait()
		Expect(s.Bandwidth()).To(Equal(int64(1000)))
	})
})
