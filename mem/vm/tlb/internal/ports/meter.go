// Package ports tracks how busy the ports of a TLB are.
package ports

import "log"

// Port identifies a port of a TLB.
type Port int

// A list of all the ports a TLB may have.
const (
	Data Port = iota
	Fill
	Serve
	numPorts
)

func (p Port) String() string {
	switch p {
	case Data:
		return "data"
	case Fill:
		return "fill"
	case Serve:
		return "serve"
	default:
		return "unknown"
	}
}

type counter struct {
	present  bool
	occupied int
	capacity int
}

// A Meter counts the occupancy of each port. Every use occupies the port for
// one cycle.
type Meter struct {
	counters [numPorts]counter
}

// NewMeter creates a meter with no port.
func NewMeter() *Meter {
	return &Meter{}
}

// WithSerialPort adds a port that can only be used once per cycle.
func (m *Meter) WithSerialPort(p Port) *Meter {
	return m.WithParallelPort(p, 1)
}

// WithParallelPort adds a port that can be used n times per cycle.
func (m *Meter) WithParallelPort(p Port, n int) *Meter {
	if n <= 0 {
		log.Panicf("port %s must have a positive capacity", p)
	}

	m.counters[p] = counter{present: true, capacity: n}

	return m
}

func (m *Meter) counter(p Port) *counter {
	c := &m.counters[p]
	if !c.present {
		log.Panicf("port %s is not metered", p)
	}

	return c
}

// CanUse tells if the port has capacity left.
func (m *Meter) CanUse(p Port) bool {
	c := m.counter(p)
	return c.occupied < c.capacity
}

// Use occupies the port. The caller must check CanUse first.
func (m *Meter) Use(p Port) {
	c := m.counter(p)
	if c.occupied >= c.capacity {
		log.Panicf("port %s is used beyond its capacity", p)
	}

	c.occupied++
}

// Occupied returns the current occupancy of the port.
func (m *Meter) Occupied(p Port) int {
	return m.counter(p).occupied
}

// ReplenishAll frees one occupancy unit of every port. It is called once per
// cycle.
func (m *Meter) ReplenishAll() {
	for i := range m.counters {
		if m.counters[i].occupied > 0 {
			m.counters[i].occupied--
		}
	}
}
