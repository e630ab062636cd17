// Package translationagent provides a core model that stresses a TLB
// hierarchy with random translations and checks every answer.
package translationagent

import (
	"log"
	"math/rand"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
)

// A Requester is the TLB that an agent sends its requests to.
type Requester interface {
	CanAccept() bool
	ProcessAccess(req *vm.TranslationReq, now uint64) tlb.Status
	PopResponse() (*vm.TranslationReq, bool)
}

// An Agent issues one translation request per cycle to its TLB until it has
// issued a given number. Rejected requests are retried in later cycles.
type Agent struct {
	name      string
	coreID    uint64
	tlb       Requester
	pageTable vm.PageTable
	rand      *rand.Rand
	logger    *log.Logger

	baseAddress  uint64
	pageSize     uint64
	numPages     uint64
	maxInflight  int
	reqLeft      int
	pendingReq   map[string]*vm.TranslationReq
	rejectedReq  *vm.TranslationReq
	numRetries   uint64
	numCompleted uint64
	numWrong     uint64
}

// Name returns the name of the agent.
func (a *Agent) Name() string {
	return a.name
}

// Tick collects the translated requests and issues a new one.
func (a *Agent) Tick(now uint64) bool {
	madeProgress := false

	madeProgress = a.processResponses(now) || madeProgress
	madeProgress = a.issue(now) || madeProgress

	return madeProgress
}

func (a *Agent) processResponses(now uint64) bool {
	madeProgress := false

	for {
		req, ok := a.tlb.PopResponse()
		if !ok {
			return madeProgress
		}

		if _, found := a.pendingReq[req.ID]; !found {
			log.Panicf("%s received unknown response %s", a.name, req.ID)
		}

		delete(a.pendingReq, req.ID)
		a.checkTranslation(now, req)
		a.numCompleted++

		madeProgress = true
	}
}

func (a *Agent) checkTranslation(now uint64, req *vm.TranslationReq) {
	page, found := a.pageTable.Find(req.GetVAddr())
	if !found {
		a.numWrong++
		a.logf("%d, %s, unmapped, 0x%x", now, a.name, req.GetVAddr())

		return
	}

	expected := page.PAddr + req.GetVAddr() - page.VAddr
	if req.GetPAddr() != expected {
		a.numWrong++
		a.logf("%d, %s, wrong translation, 0x%x -> 0x%x, expecting 0x%x",
			now, a.name, req.GetVAddr(), req.GetPAddr(), expected)
	}
}

func (a *Agent) issue(now uint64) bool {
	if !a.tlb.CanAccept() {
		return false
	}

	req := a.rejectedReq
	if req == nil {
		if a.reqLeft == 0 || len(a.pendingReq) >= a.maxInflight {
			return false
		}

		req = vm.TranslationReqBuilder{}.
			WithVAddr(a.randomAddress()).
			WithDeviceID(a.coreID).
			Build()
		a.reqLeft--
	}

	a.rejectedReq = nil

	status := a.tlb.ProcessAccess(req, now)
	if status == tlb.ReservationFail {
		a.rejectedReq = req
		a.numRetries++

		return false
	}

	a.pendingReq[req.ID] = req

	return true
}

func (a *Agent) randomAddress() uint64 {
	page := a.rand.Uint64() % a.numPages
	offset := a.rand.Uint64() % a.pageSize

	return a.baseAddress + page*a.pageSize + offset
}

func (a *Agent) logf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}

// Done tells if all the requests are issued and answered.
func (a *Agent) Done() bool {
	return a.reqLeft == 0 && a.rejectedReq == nil && len(a.pendingReq) == 0
}

// NumCompleted returns the number of answered requests.
func (a *Agent) NumCompleted() uint64 {
	return a.numCompleted
}

// NumRetries returns the number of times a request was rejected.
func (a *Agent) NumRetries() uint64 {
	return a.numRetries
}

// NumWrongTranslations returns the number of answers that do not match the
// page table.
func (a *Agent) NumWrongTranslations() uint64 {
	return a.numWrong
}
