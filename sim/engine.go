package sim

import (
	"fmt"
	"log"
	"math"
)

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Time converts a cycle count to the time passed since cycle 0.
func (f Freq) Time(cycle uint64) VTimeInSec {
	return VTimeInSec(float64(cycle)) * f.Period()
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// A Ticker is an object that updates states with ticks. The return value
// tells if any progress is made in the cycle.
type Ticker interface {
	Tick(now uint64) bool
}

// TimeTeller can tell the current cycle of the simulation.
type TimeTeller interface {
	CurrentCycle() uint64
	CurrentTime() VTimeInSec
}

// A CycleEngine steps all the registered tickers once per cycle, always in
// the order they are registered. It is the only owner of the simulation
// clock.
type CycleEngine struct {
	HookableBase

	freq      Freq
	now       uint64
	maxCycles uint64
	tickers   []Ticker
}

// NewCycleEngine creates a CycleEngine running at the given frequency.
func NewCycleEngine(freq Freq) *CycleEngine {
	e := &CycleEngine{
		freq:      freq,
		maxCycles: math.MaxUint64,
	}

	return e
}

// WithMaxCycles limits the number of cycles Run can simulate.
func (e *CycleEngine) WithMaxCycles(n uint64) *CycleEngine {
	e.maxCycles = n
	return e
}

// RegisterTicker appends a ticker to the stepping order.
func (e *CycleEngine) RegisterTicker(t Ticker) {
	e.tickers = append(e.tickers, t)
}

// CurrentCycle returns the cycle that is about to be stepped.
func (e *CycleEngine) CurrentCycle() uint64 {
	return e.now
}

// CurrentTime returns the current time in seconds.
func (e *CycleEngine) CurrentTime() VTimeInSec {
	return e.freq.Time(e.now)
}

// Step runs one cycle and advances the clock.
func (e *CycleEngine) Step() bool {
	ctx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeTick,
		Now:    e.now,
	}
	e.InvokeHook(ctx)

	madeProgress := false
	for _, t := range e.tickers {
		madeProgress = t.Tick(e.now) || madeProgress
	}

	ctx.Pos = HookPosAfterTick
	ctx.Item = madeProgress
	e.InvokeHook(ctx)

	e.now++

	return madeProgress
}

// Run steps cycles until done returns true. It returns an error if the
// cycle limit is reached first.
func (e *CycleEngine) Run(done func() bool) error {
	for !done() {
		if e.now >= e.maxCycles {
			return fmt.Errorf(
				"simulation did not finish within %d cycles", e.maxCycles)
		}

		e.Step()
	}

	return nil
}
