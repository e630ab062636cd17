package translationagent

import (
	"log"
	"math/rand"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim"
)

// A Builder can build agents.
type Builder struct {
	coreID      uint64
	tlb         Requester
	pageTable   vm.PageTable
	logger      *log.Logger
	seed        int64
	numRequests int
	maxInflight int
	baseAddress uint64
	pageSize    uint64
	numPages    uint64
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		seed:        1,
		numRequests: 1000,
		maxInflight: 16,
		baseAddress: 0x100000000,
		pageSize:    4096,
		numPages:    64,
	}
}

// WithCoreID sets the core that the agent models.
func (b Builder) WithCoreID(id uint64) Builder {
	b.coreID = id
	return b
}

// WithTLB sets the TLB that receives the requests.
func (b Builder) WithTLB(t Requester) Builder {
	b.tlb = t
	return b
}

// WithPageTable sets the page table used for checking the translations.
func (b Builder) WithPageTable(pt vm.PageTable) Builder {
	b.pageTable = pt
	return b
}

// WithLogger sets the logger that reports wrong translations.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// WithSeed sets the seed of the random addresses.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithNumRequests sets the number of requests to issue.
func (b Builder) WithNumRequests(n int) Builder {
	b.numRequests = n
	return b
}

// WithMaxInflight sets the number of requests that can wait for an answer.
func (b Builder) WithMaxInflight(n int) Builder {
	b.maxInflight = n
	return b
}

// WithAddressSpace sets the pages that the random addresses fall into.
func (b Builder) WithAddressSpace(baseAddress, pageSize, numPages uint64) Builder {
	b.baseAddress = baseAddress
	b.pageSize = pageSize
	b.numPages = numPages

	return b
}

// Build creates a new agent.
func (b Builder) Build(name string) *Agent {
	sim.NameMustBeValid(name)

	if b.tlb == nil || b.pageTable == nil {
		log.Panic("agent needs a TLB and a page table")
	}

	if b.pageSize == 0 || b.numPages == 0 || b.maxInflight <= 0 {
		log.Panic("agent needs a non-empty address space and in-flight window")
	}

	return &Agent{
		name:        name,
		coreID:      b.coreID,
		tlb:         b.tlb,
		pageTable:   b.pageTable,
		rand:        rand.New(rand.NewSource(b.seed + int64(b.coreID))),
		logger:      b.logger,
		baseAddress: b.baseAddress,
		pageSize:    b.pageSize,
		numPages:    b.numPages,
		maxInflight: b.maxInflight,
		reqLeft:     b.numRequests,
		pendingReq:  make(map[string]*vm.TranslationReq),
	}
}
