package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Domain", func() {
	var (
		mockCtrl *gomock.Controller
		t1, t2   *MockTicker
		domain   *Domain
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		t1 = NewMockTicker(mockCtrl)
		t2 = NewMockTicker(mockCtrl)
		domain = NewDomain("Clk", 1*GHz)
		domain.Register(t1, t2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should tick all tickers in registration order", func() {
		gomock.InOrder(
			t1.EXPECT().Tick().Return(false),
			t2.EXPECT().Tick().Return(true),
		)

		Expect(domain.Step()).To(BeTrue())
		Expect(domain.CurrentCycle()).To(Equal(uint64(1)))
	})

	It("should report no progress when no ticker progresses", func() {
		t1.EXPECT().Tick().Return(false)
		t2.EXPECT().Tick().Return(false)

		Expect(domain.Step()).To(BeFalse())
	})

	It("should run a fixed number of cycles", func() {
		t1.EXPECT().Tick().Return(true).Times(5)
		t2.EXPECT().Tick().Return(true).Times(5)

		domain.RunCycles(5)

		Expect(domain.CurrentCycle()).To(Equal(uint64(5)))
		Expect(domain.CurrentTime()).To(BeNumerically("~", 5e-9, 1e-15))
	})

	It("should run until a condition holds", func() {
		t1.EXPECT().Tick().Return(true).Times(3)
		t2.EXPECT().Tick().Return(true).Times(3)

		met := domain.RunUntil(func() bool {
			return domain.CurrentCycle() == 3
		}, 10)

		Expect(met).To(BeTrue())
	})

	It("should run until idle", func() {
		t1.EXPECT().Tick().Return(true).Times(2)
		t1.EXPECT().Tick().Return(false).Times(4)
		t2.EXPECT().Tick().Return(false).Times(6)

		Expect(domain.RunUntilIdle(4, 100)).To(BeTrue())
		Expect(domain.CurrentCycle()).To(Equal(uint64(6)))
	})

	It("should invoke tick hooks", func() {
		hook := NewMockHook(mockCtrl)
		domain.AcceptHook(hook)

		t1.EXPECT().Tick().Return(false)
		t2.EXPECT().Tick().Return(false)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosBeforeTick))
			Expect(ctx.Item).To(Equal(uint64(0)))
		})
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(Equal(HookPosAfterTick))
			Expect(ctx.Detail).To(BeFalse())
		})

		domain.Step()
	})

	It("should keep ticking under an engine while progress is made", func() {
		engine := NewSerialEngine()
		domain.Attach(engine)

		t1.EXPECT().Tick().Return(true).Times(3)
		t1.EXPECT().Tick().Return(false)
		t2.EXPECT().Tick().Return(false).Times(4)

		domain.TickNow()
		Expect(engine.Run()).To(Succeed())

		Expect(domain.CurrentCycle()).To(Equal(uint64(4)))
	})

	It("should run until a condition holds under an engine", func() {
		engine := NewSerialEngine()
		domain.Attach(engine)

		t1.EXPECT().Tick().Return(false).Times(5)
		t2.EXPECT().Tick().Return(false).Times(5)

		met := domain.RunUntil(func() bool {
			return domain.CurrentCycle() == 3
		}, 10)

		Expect(met).To(BeTrue())
		Expect(domain.CurrentCycle()).To(Equal(uint64(3)))
		Expect(engine.CurrentTime()).To(BeNumerically("~", 2e-9, 1e-15))

		domain.RunCycles(2)

		Expect(domain.CurrentCycle()).To(Equal(uint64(5)))
		Expect(engine.CurrentTime()).To(BeNumerically("~", 4e-9, 1e-15))
	})

	It("should stop an engine run at the cycle limit", func() {
		engine := NewSerialEngine()
		domain.Attach(engine)

		t1.EXPECT().Tick().Return(true).Times(4)
		t2.EXPECT().Tick().Return(true).Times(4)

		Expect(domain.RunUntil(func() bool { return false }, 4)).To(BeFalse())
		Expect(domain.CurrentCycle()).To(Equal(uint64(4)))
	})
})
