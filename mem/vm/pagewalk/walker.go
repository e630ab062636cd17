// Package pagewalk provides a page walker that resolves translations from a
// page table after a fixed latency.
package pagewalk

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/sim"
	"github.com/sarchlab/tlbsim/tracing"
)

type walk struct {
	req       *vm.TranslationReq
	page      vm.Page
	readyTime uint64
}

// Walker looks up pages in a page table. Every walk takes the same number of
// cycles, so walks complete in the order they start.
type Walker struct {
	*sim.HookableBase

	name         string
	latency      uint64
	log2PageSize uint64
	pageTable    vm.PageTable

	autoPageAllocation bool
	nextPhysicalPage   uint64

	walking  []walk
	numWalks uint64
}

// Name returns the name of the walker.
func (w *Walker) Name() string {
	return w.name
}

// PageTable returns the page table that the walker reads.
func (w *Walker) PageTable() vm.PageTable {
	return w.pageTable
}

// Walk starts looking up the page of the request. With auto page allocation,
// a page that is not in the table is mapped to the next free frame. Without
// it, a missing page is a fault.
func (w *Walker) Walk(now uint64, req *vm.TranslationReq) {
	page, found := w.pageTable.Find(req.GetVAddr())
	if !found {
		if !w.autoPageAllocation {
			log.Panicf("%s: page fault at 0x%x", w.name, req.GetVAddr())
		}

		page = w.allocatePage(req.GetVAddr())
	}

	w.walking = append(w.walking, walk{
		req:       req,
		page:      page,
		readyTime: now + w.latency,
	})
	w.numWalks++

	tracing.StartTask(tracing.IDAtReceiver(req.ID, w), req.ID, w,
		"walk", "page_walk", req)
}

func (w *Walker) allocatePage(vAddr uint64) vm.Page {
	pageSize := uint64(1) << w.log2PageSize

	page := vm.Page{
		VAddr:    vAddr >> w.log2PageSize << w.log2PageSize,
		PAddr:    w.nextPhysicalPage,
		PageSize: pageSize,
		Valid:    true,
	}
	w.nextPhysicalPage += pageSize

	w.pageTable.Insert(page)

	return page
}

// PopCompleted returns the oldest walk that has finished.
func (w *Walker) PopCompleted(now uint64) (vm.Page, bool) {
	if len(w.walking) == 0 || w.walking[0].readyTime > now {
		return vm.Page{}, false
	}

	done := w.walking[0]
	w.walking[0] = walk{}
	w.walking = w.walking[1:]

	tracing.EndTask(tracing.IDAtReceiver(done.req.ID, w), w)

	return done.page, true
}

// NumInflight returns the number of walks that are not popped yet.
func (w *Walker) NumInflight() int {
	return len(w.walking)
}

// NumWalks returns the number of walks ever started.
func (w *Walker) NumWalks() uint64 {
	return w.numWalks
}
