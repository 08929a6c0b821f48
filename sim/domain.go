package sim

import (
	"log"
	"sync"
	"sync/atomic"
)

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	// Tick advances the state by one cycle. It returns true if progress is
	// made.
	Tick() bool
}

// CycleTeller reports the cycle that a clock domain is currently evaluating.
type CycleTeller interface {
	CurrentCycle() uint64
}

// A Domain is a synchronous clock domain. All the tickers registered to a
// domain advance in lock-step, in registration order, once per cycle.
//
// A domain can be stepped directly or driven by an Engine with TickEvents, in
// which case several domains with different frequencies can share one engine.
type Domain struct {
	HookableBase

	name string
	freq Freq

	lock      sync.Mutex
	pauseLock sync.Mutex
	isPaused  atomic.Bool

	cycle   atomic.Uint64
	tickers []Ticker

	engine       Engine
	nextTickTime VTimeInSec
	until        func() bool
	untilCycle   uint64
}

// NewDomain creates a clock domain.
func NewDomain(name string, freq Freq) *Domain {
	NameMustBeValid(name)

	if freq <= 0 {
		log.Panicf("domain %s must have a positive frequency", name)
	}

	return &Domain{
		name:         name,
		freq:         freq,
		nextTickTime: -1,
	}
}

// Name returns the name of the domain.
func (d *Domain) Name() string {
	return d.name
}

// Freq returns the frequency of the domain.
func (d *Domain) Freq() Freq {
	return d.freq
}

// Register adds tickers to the domain. Tickers are ticked in the order they
// are registered.
func (d *Domain) Register(tickers ...Ticker) {
	d.lock.Lock()
	defer d.lock.Unlock()

	for _, t := range tickers {
		if t == nil {
			log.Panicf("registering a nil ticker to domain %s", d.name)
		}

		d.tickers = append(d.tickers, t)
	}
}

// CurrentCycle returns the cycle being evaluated, or the next cycle to be
// evaluated when called between steps.
func (d *Domain) CurrentCycle() uint64 {
	return d.cycle.Load()
}

// CurrentTime returns the start time of the current cycle.
func (d *Domain) CurrentTime() VTimeInSec {
	return d.freq.CycleTime(d.cycle.Load())
}

// Step evaluates one cycle. It returns true if any ticker made progress.
func (d *Domain) Step() bool {
	d.pauseLock.Lock()
	defer d.pauseLock.Unlock()

	d.lock.Lock()
	defer d.lock.Unlock()

	cycle := d.cycle.Load()

	if d.NumHooks() > 0 {
		d.InvokeHook(HookCtx{Domain: d, Pos: HookPosBeforeTick, Item: cycle})
	}

	madeProgress := false
	for _, t := range d.tickers {
		if t.Tick() {
			madeProgress = true
		}
	}

	if d.NumHooks() > 0 {
		d.InvokeHook(HookCtx{
			Domain: d,
			Pos:    HookPosAfterTick,
			Item:   cycle,
			Detail: madeProgress,
		})
	}

	d.cycle.Store(cycle + 1)

	return madeProgress
}

// RunCycles steps the domain n times.
func (d *Domain) RunCycles(n uint64) {
	if d.engine != nil {
		d.runOnEngine(func() bool { return false }, n)
		return
	}

	for i := uint64(0); i < n; i++ {
		d.Step()
	}
}

// RunUntil steps the domain until cond returns true or maxCycles cycles have
// been evaluated. It returns whether the condition was met. A domain attached
// to an engine is ticked by tick events, and the engine runs until it has no
// event left.
func (d *Domain) RunUntil(cond func() bool, maxCycles uint64) bool {
	if d.engine != nil {
		return d.runOnEngine(cond, maxCycles)
	}

	for i := uint64(0); i < maxCycles; i++ {
		if cond() {
			return true
		}

		d.Step()
	}

	return cond()
}

// RunUntilIdle steps the domain until quietCycles consecutive cycles make no
// progress, or maxCycles cycles have been evaluated. It returns true if the
// domain became idle.
func (d *Domain) RunUntilIdle(quietCycles, maxCycles uint64) bool {
	quiet := uint64(0)

	for i := uint64(0); i < maxCycles; i++ {
		if d.Step() {
			quiet = 0
			continue
		}

		quiet++
		if quiet >= quietCycles {
			return true
		}
	}

	return false
}

// Inspect runs f while no cycle is being evaluated. It is meant for
// observers running on other goroutines, such as the monitor.
func (d *Domain) Inspect(f func()) {
	d.lock.Lock()
	defer d.lock.Unlock()

	f()
}

// Pause blocks further steps until Continue is called.
func (d *Domain) Pause() {
	if d.isPaused.Swap(true) {
		return
	}

	d.pauseLock.Lock()
}

// Continue resumes a paused domain.
func (d *Domain) Continue() {
	if !d.isPaused.Swap(false) {
		return
	}

	d.pauseLock.Unlock()
}

// IsPaused tells if the domain is paused.
func (d *Domain) IsPaused() bool {
	return d.isPaused.Load()
}

// Attach lets an engine drive the domain with tick events.
func (d *Domain) Attach(engine Engine) {
	d.engine = engine
}

// TickLater schedules a tick at the next cycle boundary of the engine time.
func (d *Domain) TickLater() {
	if d.engine == nil {
		log.Panicf("domain %s is not attached to an engine", d.name)
	}

	time := d.freq.NextTick(d.engine.CurrentTime())
	if d.nextTickTime >= time {
		return
	}

	d.nextTickTime = time
	d.engine.Schedule(MakeTickEvent(d, time))
}

// TickNow schedules a tick at the current cycle boundary of the engine time.
func (d *Domain) TickNow() {
	if d.engine == nil {
		log.Panicf("domain %s is not attached to an engine", d.name)
	}

	time := d.freq.ThisTick(d.engine.CurrentTime())
	if d.nextTickTime >= time {
		return
	}

	d.nextTickTime = time
	d.engine.Schedule(MakeTickEvent(d, time))
}

func (d *Domain) runOnEngine(cond func() bool, maxCycles uint64) bool {
	if cond() || maxCycles == 0 {
		return cond()
	}

	d.until = cond
	d.untilCycle = d.cycle.Load() + maxCycles
	defer func() { d.until = nil }()

	now := d.engine.CurrentTime()
	time := d.freq.ThisTick(now)
	if time <= d.nextTickTime {
		time = d.freq.NextTick(now)
	}

	d.nextTickTime = time
	d.engine.Schedule(MakeTickEvent(d, time))

	if err := d.engine.Run(); err != nil {
		log.Panicf("domain %s: %v", d.name, err)
	}

	return cond()
}

// tickAgain tells if another tick is needed after a cycle. While a run is in
// progress the domain ticks until the run ends; otherwise it keeps ticking
// as long as progress is made.
func (d *Domain) tickAgain(madeProgress bool) bool {
	if d.until == nil {
		return madeProgress
	}

	return !d.until() && d.cycle.Load() < d.untilCycle
}

// Handle evaluates a cycle when a TickEvent arrives.
func (d *Domain) Handle(e Event) error {
	if _, ok := e.(TickEvent); !ok {
		log.Panicf("domain %s cannot handle event %T", d.name, e)
	}

	engineCycle := d.freq.Cycle(e.Time())
	if engineCycle > d.cycle.Load() {
		d.cycle.Store(engineCycle)
	}

	if d.tickAgain(d.Step()) {
		d.TickLater()
	}

	return nil
}
