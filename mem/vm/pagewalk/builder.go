package pagewalk

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim"
)

// A Builder can build page walkers.
type Builder struct {
	log2PageSize       uint64
	latency            uint64
	pageTable          vm.PageTable
	autoPageAllocation bool
	firstPhysicalPage  uint64
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		log2PageSize: 12,
		latency:      100,
	}
}

// WithLog2PageSize sets the page size that the walker allocates.
func (b Builder) WithLog2PageSize(log2PageSize uint64) Builder {
	b.log2PageSize = log2PageSize
	return b
}

// WithLatency sets the number of cycles of a walk.
func (b Builder) WithLatency(cycles uint64) Builder {
	b.latency = cycles
	return b
}

// WithPageTable sets the page table to walk. A new table is created if it is
// not set.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithAutoPageAllocation enables or disables automatic page allocation.
// When enabled, the walker maps unknown pages to frames handed out in order,
// starting from the first physical page.
func (b Builder) WithAutoPageAllocation(enabled bool) Builder {
	b.autoPageAllocation = enabled
	return b
}

// WithFirstPhysicalPage sets the first frame that auto allocation hands out.
func (b Builder) WithFirstPhysicalPage(pAddr uint64) Builder {
	b.firstPhysicalPage = pAddr
	return b
}

// Build creates a new walker.
func (b Builder) Build(name string) *Walker {
	sim.NameMustBeValid(name)

	if b.firstPhysicalPage&(1<<b.log2PageSize-1) != 0 {
		log.Panicf("first physical page 0x%x is not page aligned",
			b.firstPhysicalPage)
	}

	w := &Walker{
		HookableBase:       sim.NewHookableBase(),
		name:               name,
		latency:            b.latency,
		log2PageSize:       b.log2PageSize,
		pageTable:          b.pageTable,
		autoPageAllocation: b.autoPageAllocation,
		nextPhysicalPage:   b.firstPhysicalPage,
	}

	if w.pageTable == nil {
		w.pageTable = vm.NewPageTable(b.log2PageSize)
	}

	return w
}
