// Package tlb models a two-level translation lookaside buffer hierarchy.
// Per-core L1 TLBs are backed by a shared L2 TLB, which sends true misses to
// a page walker.
package tlb

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/mshr"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/tagging"
	"github.com/sarchlab/tlbsim/sim"
	"github.com/sarchlab/tlbsim/tracing"
)

// A list of hook positions that TLBs invoke.
var (
	// HookPosAccess is triggered for every access outcome. The item is the
	// request and the detail is the Status.
	HookPosAccess = &sim.HookPos{Name: "TLBAccess"}

	// HookPosFill is triggered when a translation is written into an entry.
	// The item is a vm.Page.
	HookPosFill = &sim.HookPos{Name: "TLBFill"}

	// HookPosRespond is triggered when a translated request leaves the TLB.
	HookPosRespond = &sim.HookPos{Name: "TLBRespond"}
)

// TranslationCache is what every TLB level can do.
type TranslationCache interface {
	tracing.NamedHookable

	Probe(vAddr uint64) (Status, int)
	Access(req *vm.TranslationReq, now uint64) (Status, int)
	Fill(index int, tag, frame, now uint64)
	Flush() int
	Stats() Stats
}

// Cache is the set-associative lookup engine shared by both TLB levels.
type Cache struct {
	*sim.HookableBase

	name     string
	pageSize uint64
	decoder  vm.AddressDecoder
	store    *tagging.Store
	mshr     *mshr.MSHR
	stats    Stats
}

func newCache(name string, cfg Config) *Cache {
	decoder, err := vm.NewPageAddressDecoder(cfg.PageSize, uint64(cfg.NumSets))
	if err != nil {
		log.Panic(err)
	}

	c := &Cache{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		pageSize:     cfg.PageSize,
		decoder:      decoder,
		store: tagging.NewStore(
			cfg.NumSets, cfg.NumWays, decoder, cfg.Policy.victimFinder()),
		mshr: mshr.New(cfg.MSHRLines, cfg.MSHRTargets),
	}

	return c
}

// Name returns the name of the TLB.
func (c *Cache) Name() string {
	return c.name
}

// Tag returns the page-aligned tag of an address.
func (c *Cache) Tag(addr uint64) uint64 {
	return c.store.Tag(addr)
}

// Probe looks up an address without changing any state.
func (c *Cache) Probe(vAddr uint64) (Status, int) {
	return c.store.Probe(vAddr)
}

// Access looks up the request and updates the entries and the counters. A
// hit stamps the physical address into the request. A miss reserves the
// returned entry for the translation to come.
func (c *Cache) Access(req *vm.TranslationReq, now uint64) (Status, int) {
	c.stats.Accesses++

	status, index := c.store.Probe(req.GetVAddr())

	switch status {
	case Hit:
		c.store.Touch(index, now)
		c.translate(req, c.store.Entry(index).Frame)
	case HitReserved:
		c.store.Touch(index, now)
		c.stats.PendingHits++
	case Miss:
		c.stats.Misses++
		c.store.Allocate(index, c.store.Tag(req.GetVAddr()), now)
	case ReservationFail:
		c.stats.ReservationFails++
	}

	c.invokeHook(HookPosAccess, now, req, status)

	return status, index
}

// Fill writes the frame into the entry at index if the entry still belongs to
// the tag.
func (c *Cache) Fill(index int, tag, frame, now uint64) {
	if c.store.Entry(index).Tag != tag {
		return
	}

	c.store.Resolve(index, frame, now)

	c.invokeHook(HookPosFill, now, vm.Page{
		VAddr:    tag,
		PAddr:    frame,
		PageSize: c.pageSize,
		Valid:    true,
	}, nil)
}

// Flush drops all the valid translations and returns how many were dropped.
// Entries waiting for a fill are kept.
func (c *Cache) Flush() int {
	return c.store.InvalidateAll()
}

// Stats returns the counters of the TLB.
func (c *Cache) Stats() Stats {
	return c.stats
}

func (c *Cache) translate(req *vm.TranslationReq, frame uint64) {
	req.SetPAddr(frame | c.decoder.PageOffset(req.GetVAddr()))
}

// trackMiss records a request that has to wait for a translation. A request
// that opens a new MSHR line is also pushed into the miss queue. It returns
// false and reverts the speculative allocation if the request cannot be
// tracked.
func (c *Cache) trackMiss(
	req *vm.TranslationReq,
	status Status,
	index int,
	now uint64,
	missQueue sim.Buffer,
) (merged, ok bool) {
	tag := c.store.Tag(req.GetVAddr())
	merge := c.mshr.Probe(tag)
	avail := !c.mshr.Full(tag)
	d := mshr.Descriptor{Req: req, Index: index, Status: status}

	switch {
	case merge && avail:
		c.mshr.Add(tag, d)
		return true, true
	case !merge && avail && missQueue.CanPush():
		c.mshr.Add(tag, d)
		missQueue.Push(req)

		return false, true
	}

	c.stats.ReservationFails++

	if status == Miss {
		c.store.Release(index)
	}

	c.invokeHook(HookPosAccess, now, req, ReservationFail)

	return merge, false
}

func (c *Cache) invokeHook(
	pos *sim.HookPos,
	now uint64,
	item, detail interface{},
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Now:    now,
		Item:   item,
		Detail: detail,
	})
}

func (c *Cache) taskID(req *vm.TranslationReq) string {
	return tracing.IDAtReceiver(req.ID, c)
}

func (c *Cache) startTask(req *vm.TranslationReq) {
	tracing.StartTask(c.taskID(req), req.ID, c, "req_in", "translate", req)
}

func (c *Cache) stepTask(req *vm.TranslationReq, what string) {
	tracing.AddTaskStep(c.taskID(req), c, what)
}

func (c *Cache) endTask(req *vm.TranslationReq) {
	tracing.EndTask(c.taskID(req), c)
}
