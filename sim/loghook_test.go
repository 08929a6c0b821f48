package sim

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Log hooks", func() {
	var (
		buf    *bytes.Buffer
		logger *log.Logger
		domain *Domain
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = log.New(buf, "", 0)
		domain = NewDomain("Clk", 1*GHz)
	})

	It("should log events handled by the engine", func() {
		engine := NewSerialEngine()
		engine.AcceptHook(NewEventLogger(logger))
		domain.Attach(engine)

		ticks := 0
		domain.Register(tickerFunc(func() bool {
			ticks++
			return ticks < 2
		}))

		domain.TickLater()
		Expect(engine.Run()).To(Succeed())

		Expect(ticks).To(Equal(2))
		Expect(buf.String()).To(ContainSubstring("sim.TickEvent -> Clk"))
	})

	It("should log cycles without progress", func() {
		domain.AcceptHook(NewStallLogger(logger))

		busy := true
		domain.Register(tickerFunc(func() bool { return busy }))

		domain.Step()
		busy = false
		domain.Step()

		Expect(buf.String()).To(Equal("Clk: no progress in cycle 1\n"))
	})
})
