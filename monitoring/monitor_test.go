package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/busforge/axi/sim"
	"github.com/busforge/axi/stream"
)

type sampleInner struct {
	queue *stream.Channel[int]
}

type sampleComponent struct {
	name  string
	in    *stream.Channel[int]
	out   *stream.Channel[int]
	inner *sampleInner
	fifo  *sim.Buffer[int]
	Count int
}

func (c *sampleComponent) Name() string {
	return c.name
}

var _ = Describe("Monitor", func() {
	var (
		domain *sim.Domain
		m      *Monitor
		comp   *sampleComponent
		router http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	BeforeEach(func() {
		domain = sim.NewDomain("Clk", 1*sim.GHz)
		comp = &sampleComponent{
			name:  "Comp",
			in:    stream.NewChannel[int]("Comp.In", domain, 2),
			out:   stream.NewChannel[int]("Comp.Out", domain, 4),
			inner: &sampleInner{queue: stream.NewChannel[int]("Comp.Queue", domain, 8)},
			fifo:  sim.NewBuffer[int]("Comp.FIFO", 16),
			Count: 7,
		}

		m = NewMonitor()
		m.RegisterDomain(domain)
		m.RegisterComponent(comp)
		router = m.Router()
	})

	It("should find the channels and buffers of a component", func() {
		names := []string{}
		for _, b := range m.buffers {
			names = append(names, b.Name())
		}

		Expect(names).To(
			ConsistOf("Comp.In", "Comp.Out", "Comp.Queue", "Comp.FIFO"))
	})

	It("should not register a buffer twice", func() {
		m.RegisterBuffer(comp.in)
		m.RegisterBuffer(comp.fifo)

		Expect(m.buffers).To(HaveLen(4))
	})

	It("should list components", func() {
		rec := get("/api/list_components")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`["Comp"]`))
	})

	It("should report the current cycle", func() {
		domain.RunCycles(5)

		rsp := nowRsp{}
		Expect(json.Unmarshal(get("/api/now").Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Cycle).To(Equal(uint64(5)))
		Expect(rsp.Paused).To(BeFalse())
	})

	It("should pause and continue the domain", func() {
		get("/api/pause")
		Expect(domain.IsPaused()).To(BeTrue())

		get("/api/continue")
		Expect(domain.IsPaused()).To(BeFalse())
	})

	It("should sort buffers by level", func() {
		comp.out.MustSend(1)
		comp.out.MustSend(2)
		comp.in.MustSend(1)

		rsp := []bufferRsp{}
		body := get("/api/hangdetector/buffers?sort=level&limit=2").Body.Bytes()
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())

		Expect(rsp).To(Equal([]bufferRsp{
			{Buffer: "Comp.Out", Level: 2, Cap: 4},
			{Buffer: "Comp.In", Level: 1, Cap: 2},
		}))
	})

	It("should sort buffers by percent", func() {
		comp.out.MustSend(1)
		comp.in.MustSend(1)
		comp.in.MustSend(2)

		rsp := []bufferRsp{}
		body := get("/api/hangdetector/buffers?offset=1").Body.Bytes()
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())

		Expect(rsp).To(HaveLen(3))
		Expect(rsp[0].Buffer).To(Equal("Comp.Out"))
	})

	It("should refuse an unknown sort method", func() {
		Expect(get("/api/hangdetector/buffers?sort=name").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should serialize a component", func() {
		rec := get("/api/component/Comp")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should answer 404 for unknown components", func() {
		Expect(get("/api/component/Nope").Code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("Writes", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rsp := []ProgressSnapshot{}
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Finished).To(Equal(uint64(3)))
		Expect(rsp[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})
})

var _ = Describe("WithPortNumber", func() {
	It("should refuse privileged ports", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
