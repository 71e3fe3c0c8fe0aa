package timing

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Ticker", func() {
	var (
		mock   *clock.Mock
		engine *RealTimeEngine
		ticks  atomic.Int32
		ticker *Ticker
	)

	BeforeEach(func() {
		mock = clock.NewMock()
		engine = NewRealTimeEngine(mock)
		engine.Start()
		ticks.Store(0)
		ticker = NewTicker(engine, 10*time.Millisecond, TickFunc(func(time.Time) {
			ticks.Add(1)
		}))
	})

	AfterEach(func() {
		engine.Close()
	})

	It("should panic on non-positive interval", func() {
		Expect(func() { NewTicker(engine, 0, TickFunc(func(time.Time) {})) }).
			To(Panic())
	})

	It("should tick once per interval", func() {
		ticker.Start()

		mock.Add(10 * time.Millisecond)
		Eventually(ticks.Load).Should(Equal(int32(1)))

		mock.Add(10 * time.Millisecond)
		Eventually(ticks.Load).Should(Equal(int32(2)))
	})

	It("should stop ticking after stop", func() {
		ticker.Start()
		mock.Add(10 * time.Millisecond)
		Eventually(ticks.Load).Should(Equal(int32(1)))

		ticker.Stop()
		mock.Add(50 * time.Millisecond)

		Consistently(ticks.Load, 20*time.Millisecond).Should(Equal(int32(1)))
		Expect(ticker.Running()).To(BeFalse())
	})

	It("should fire every missed tick after a stall", func() {
		ticker.Start()

		mock.Add(50 * time.Millisecond)

		Eventually(ticks.Load).Should(Equal(int32(5)))
		Consistently(ticks.Load, 20*time.Millisecond).Should(Equal(int32(5)))
	})

	It("should ignore a second start", func() {
		ticker.Start()
		ticker.Start()

		mock.Add(10 * time.Millisecond)

		Eventually(ticks.Load).Should(Equal(int32(1)))
		Consistently(ticks.Load, 20*time.Millisecond).Should(Equal(int32(1)))
	})
})

var _ = Describe("Ticker with mocked engine", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		target   *MockTickable
		ticker   *Ticker
		now      time.Time
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		target = NewMockTickable(mockCtrl)
		ticker = NewTicker(engine, time.Second, target)
		now = time.Unix(100, 0)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule the next tick relative to the previous one", func() {
		engine.EXPECT().Now().Return(now)
		engine.EXPECT().Schedule(MakeTickEvent(ticker, now.Add(time.Second)))
		ticker.Start()

		target.EXPECT().Tick(now.Add(time.Second))
		engine.EXPECT().Schedule(MakeTickEvent(ticker, now.Add(2*time.Second)))

		err := ticker.Handle(MakeTickEvent(ticker, now.Add(time.Second)))

		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep missed ticks when far behind", func() {
		engine.EXPECT().Now().Return(now)
		engine.EXPECT().Schedule(gomock.Any())
		ticker.Start()

		target.EXPECT().Tick(now.Add(time.Second))
		engine.EXPECT().Schedule(MakeTickEvent(ticker, now.Add(2*time.Second)))

		err := ticker.Handle(MakeTickEvent(ticker, now.Add(time.Second)))

		Expect(err).NotTo(HaveOccurred())
	})

	It("should ignore stale tick events", func() {
		engine.EXPECT().Now().Return(now)
		engine.EXPECT().Schedule(gomock.Any())
		ticker.Start()

		err := ticker.Handle(MakeTickEvent(ticker, now.Add(3*time.Second)))

		Expect(err).NotTo(HaveOccurred())
	})
})
