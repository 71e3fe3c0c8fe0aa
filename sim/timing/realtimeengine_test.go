package timing

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHandler struct {
	lock  sync.Mutex
	fired []string
}

func (h *recordingHandler) record(name string) Handler {
	return HandlerFunc(func(e Event) error {
		h.lock.Lock()
		defer h.lock.Unlock()

		h.fired = append(h.fired, name)

		return nil
	})
}

func (h *recordingHandler) Fired() []string {
	h.lock.Lock()
	defer h.lock.Unlock()

	out := make([]string, len(h.fired))
	copy(out, h.fired)

	return out
}

var _ = Describe("RealTimeEngine", func() {
	var (
		mock    *clock.Mock
		engine  *RealTimeEngine
		handler *recordingHandler
	)

	BeforeEach(func() {
		mock = clock.NewMock()
		engine = NewRealTimeEngine(mock)
		handler = &recordingHandler{}
		engine.Start()
	})

	AfterEach(func() {
		engine.Close()
	})

	It("should not fire events before their time", func() {
		ScheduleAfter(engine, 10*time.Millisecond, handler.record("a"))

		mock.Add(5 * time.Millisecond)

		Consistently(handler.Fired, 20*time.Millisecond).Should(BeEmpty())
	})

	It("should fire events in time order", func() {
		ScheduleAfter(engine, 30*time.Millisecond, handler.record("c"))
		ScheduleAfter(engine, 10*time.Millisecond, handler.record("a"))
		ScheduleAfter(engine, 20*time.Millisecond, handler.record("b"))

		mock.Add(50 * time.Millisecond)

		Eventually(handler.Fired).Should(Equal([]string{"a", "b", "c"}))
	})

	It("should keep scheduling order for events at the same time", func() {
		at := mock.Now().Add(time.Millisecond)
		for _, name := range []string{"1", "2", "3", "4"} {
			engine.Schedule(MakeEventBase(at, handler.record(name)))
		}

		mock.Add(time.Millisecond)

		Eventually(handler.Fired).Should(Equal([]string{"1", "2", "3", "4"}))
	})

	It("should fire events scheduled in the past right away", func() {
		engine.Schedule(MakeEventBase(mock.Now().Add(-time.Second), handler.record("late")))

		Eventually(handler.Fired).Should(Equal([]string{"late"}))
	})

	It("should let handlers schedule more events", func() {
		var chain Handler
		count := 0
		lock := sync.Mutex{}
		chain = HandlerFunc(func(e Event) error {
			lock.Lock()
			count++
			again := count < 3
			lock.Unlock()

			if again {
				engine.Schedule(MakeEventBase(e.Time(), chain))
			}

			return nil
		})

		ScheduleAfter(engine, 0, chain)

		Eventually(func() int {
			lock.Lock()
			defer lock.Unlock()
			return count
		}).Should(Equal(3))
	})

	It("should abandon pending events on close", func() {
		ScheduleAfter(engine, 10*time.Millisecond, handler.record("a"))
		Expect(engine.Pending()).To(Equal(1))

		engine.Close()
		mock.Add(20 * time.Millisecond)

		Expect(engine.Closed()).To(BeTrue())
		Expect(engine.Pending()).To(Equal(0))
		Consistently(handler.Fired, 20*time.Millisecond).Should(BeEmpty())
	})

	It("should ignore events scheduled after close", func() {
		engine.Close()

		ScheduleAfter(engine, 0, handler.record("a"))

		Expect(engine.Pending()).To(Equal(0))
	})

	It("should run with the system clock", func() {
		sysEngine := NewRealTimeEngine(nil)
		sysEngine.Start()
		defer sysEngine.Close()

		start := time.Now()
		var firedAt time.Time
		lock := sync.Mutex{}
		ScheduleAfter(sysEngine, 5*time.Millisecond, HandlerFunc(func(e Event) error {
			lock.Lock()
			defer lock.Unlock()
			firedAt = time.Now()
			return nil
		}))

		Eventually(func() bool {
			lock.Lock()
			defer lock.Unlock()
			return !firedAt.IsZero()
		}).Should(BeTrue())
		Expect(firedAt.Sub(start)).To(BeNumerically(">=", 5*time.Millisecond))
	})
})
