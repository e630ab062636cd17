package tlb

import (
	"fmt"
	"log"

	"github.com/google/btree"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/ports"
	"github.com/sarchlab/tlbsim/sim"
)

// A Builder can build TLB hierarchies.
type Builder struct {
	numCores int
	l1Config Config
	l2Config Config
	walker   PageWalker
}

// MakeBuilder returns a Builder with one core and the default configurations.
func MakeBuilder() Builder {
	return Builder{
		numCores: 1,
		l1Config: DefaultL1Config(),
		l2Config: DefaultL2Config(),
	}
}

// WithNumCores sets the number of L1 TLBs.
func (b Builder) WithNumCores(n int) Builder {
	b.numCores = n
	return b
}

// WithL1Config sets the configuration shared by all the L1 TLBs.
func (b Builder) WithL1Config(c Config) Builder {
	b.l1Config = c
	return b
}

// WithL2Config sets the configuration of the L2 TLB.
func (b Builder) WithL2Config(c Config) Builder {
	b.l2Config = c
	return b
}

// WithPageWalker sets the unit that resolves the misses of the L2 TLB.
func (b Builder) WithPageWalker(w PageWalker) Builder {
	b.walker = w
	return b
}

// Validate checks if the builder can build a hierarchy.
func (b Builder) Validate() error {
	if b.numCores <= 0 {
		return fmt.Errorf("number of cores must be positive, got %d", b.numCores)
	}

	if err := b.l1Config.Validate(); err != nil {
		return fmt.Errorf("invalid L1 TLB config: %w", err)
	}

	if err := b.l2Config.Validate(); err != nil {
		return fmt.Errorf("invalid L2 TLB config: %w", err)
	}

	if b.l1Config.PageSize != b.l2Config.PageSize {
		return fmt.Errorf("L1 page size %d differs from L2 page size %d",
			b.l1Config.PageSize, b.l2Config.PageSize)
	}

	return nil
}

// Build creates a new hierarchy. It panics if the builder is not valid.
func (b Builder) Build(name string) *Hierarchy {
	sim.NameMustBeValid(name)

	if err := b.Validate(); err != nil {
		log.Panic(err)
	}

	if b.walker == nil {
		log.Panic("page walker is not set")
	}

	h := &Hierarchy{name: name}
	h.l2 = b.buildL2(name + ".L2TLB")

	for i := 0; i < b.numCores; i++ {
		l1Name := sim.MakeIndexedName(name+".L1TLB", i)
		h.l1s = append(h.l1s, b.buildL1(l1Name, uint64(i), h.l2))
	}

	return h
}

func (b Builder) buildL2(name string) *L2 {
	c := b.l2Config

	l2 := &L2{
		Cache:   newCache(name, c),
		latency: c.Latency,
		ports: ports.NewMeter().
			WithParallelPort(ports.Data, c.PortCount).
			WithParallelPort(ports.Serve, c.PortCount).
			WithSerialPort(ports.Fill),
		missQueue: sim.NewBuffer(name+".MissQueue", c.MissQueueSize),
		responses: btree.NewG(8, coreResponsesLess),
		walker:    b.walker,
	}

	return l2
}

func (b Builder) buildL1(name string, coreID uint64, lower LowerLevel) *L1 {
	c := b.l1Config

	l1 := &L1{
		Cache:  newCache(name, c),
		coreID: coreID,
		ports: ports.NewMeter().
			WithParallelPort(ports.Data, c.PortCount).
			WithSerialPort(ports.Fill),
		missQueue: sim.NewBuffer(name+".MissQueue", c.MissQueueSize),
		lower:     lower,
	}

	return l1
}
