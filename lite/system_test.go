package lite

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/busforge/axi/axi"
	"github.com/busforge/axi/periph"
	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

var _ = Describe("Peripheral system", func() {
	var (
		domain *sim.Domain
		bus    *axi.LiteBus
		regs   *periph.RegisterFile
		ram    *periph.RAM
	)

	BeforeEach(func() {
		domain = sim.NewDomain("Clk", 100*sim.MHz)
		bus = axi.NewLiteBus("Bus", axi.DefaultLiteConfig, domain,
			stream.DefaultDepth)
		regs = periph.NewRegisterFile(0x0, 4, 4)
		ram = periph.NewRAM(0x100, 0x100, 4, 3)

		system := (&periph.SystemBuilder{}).
			Register(regs).
			Register(ram).
			MustFinalize()
		connector := MakeBuilder().
			WithBus(bus).
			WithPeripheral(system).
			Build("Connector")

		domain.Register(ram, connector)
	})

	read := func(addr uint64) axi.LiteReadDataBeat {
		bus.AR.MustSend(axi.LiteAddrBeat{Addr: addr})
		Expect(domain.RunUntil(bus.R.Valid, 5000)).To(BeTrue())
		r, _ := bus.R.Retrieve()
		return r
	}

	write := func(addr, data uint64) axi.Resp {
		bus.AW.MustSend(axi.LiteAddrBeat{Addr: addr})
		bus.W.MustSend(axi.LiteWriteDataBeat{Data: data, Strb: 0xf})
		Expect(domain.RunUntil(bus.B.Valid, 5000)).To(BeTrue())
		b, _ := bus.B.Retrieve()
		return b.Resp
	}

	It("should route accesses to the peripherals", func() {
		Expect(write(0x104, 0xdeadbeef)).To(Equal(axi.RespOkay))
		Expect(write(0x8, 0x55)).To(Equal(axi.RespOkay))

		Expect(read(0x104)).To(Equal(axi.LiteReadDataBeat{
			Data: 0xdeadbeef, Resp: axi.RespOkay,
		}))
		Expect(regs.Get(2)).To(Equal(uint64(0x55)))
		Expect(read(0x8).Data).To(Equal(uint64(0x55)))
	})

	It("should answer holes with DECERR", func() {
		Expect(read(0x50).Resp).To(Equal(axi.RespDecErr))
		Expect(write(0x50, 1)).To(Equal(axi.RespDecErr))
	})

	It("should time out on a stalled RAM", func() {
		ram.Stall(true)

		Expect(read(0x100).Resp).To(Equal(axi.RespDecErr))
		Expect(ram.NumPending()).To(BeZero())

		ram.Stall(false)
		Expect(read(0x100).Resp).To(Equal(axi.RespOkay))
	})

	It("should serve a master", func() {
		master := NewMaster("Master", bus, domain)
		domain.Register(master)

		w := master.Write(0x108, 0x1234)
		r := master.Read(0x108)
		hole := master.Read(0x80)
		partial := master.WriteStrobed(0x4, 0xaabbccdd, 0x1)
		back := master.Read(0x4)

		Expect(domain.RunUntil(master.Idle, 5000)).To(BeTrue())

		Expect(w.Resp).To(Equal(axi.RespOkay))
		Expect(r.Data).To(Equal(uint64(0x1234)))
		Expect(r.Latency()).To(BeNumerically(">=", 3))
		Expect(hole.Resp).To(Equal(axi.RespDecErr))
		Expect(partial.Done).To(BeTrue())
		Expect(back.Data).To(Equal(uint64(0xdd)))
	})
})
