package tlb

import (
	"log"

	"github.com/google/btree"
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/ports"
	"github.com/sarchlab/tlbsim/sim"
)

// A PageWalker resolves the translations that miss in the L2 TLB.
type PageWalker interface {
	// Walk starts resolving the page of the request.
	Walk(now uint64, req *vm.TranslationReq)

	// PopCompleted returns one page whose walk has finished.
	PopCompleted(now uint64) (vm.Page, bool)
}

type delayedReq struct {
	req        *vm.TranslationReq
	readyCycle uint64
}

type coreResponses struct {
	coreID uint64
	queue  []Response
}

func coreResponsesLess(a, b *coreResponses) bool {
	return a.coreID < b.coreID
}

// L2 is the TLB shared by all the cores. Requests wait for the access latency
// before the lookup. True misses go to the page walker.
type L2 struct {
	*Cache

	latency    uint64
	ports      *ports.Meter
	delayQueue []delayedReq
	missQueue  sim.Buffer
	responses  *btree.BTreeG[*coreResponses]
	walker     PageWalker
}

// CanServe tells if a request from an L1 TLB can be admitted this cycle.
func (l *L2) CanServe() bool {
	return l.ports.CanUse(ports.Serve)
}

// Admit takes a request. It is looked up once the access latency has passed.
func (l *L2) Admit(req *vm.TranslationReq, now uint64) {
	if !l.CanServe() {
		log.Panicf("%s admits a request while the serve port is busy", l.name)
	}

	l.delayQueue = append(l.delayQueue, delayedReq{
		req:        req,
		readyCycle: now + l.latency,
	})
	l.ports.Use(ports.Serve)
	l.startTask(req)
}

// ProcessAccess looks up the oldest admitted request if its latency has
// passed. A rejected request stays at the head and is retried in a later
// cycle. The boolean tells if any request was looked up.
func (l *L2) ProcessAccess(now uint64) (Status, bool) {
	if len(l.delayQueue) == 0 || now < l.delayQueue[0].readyCycle {
		return ReservationFail, false
	}

	req := l.delayQueue[0].req
	status, index := l.Access(req, now)

	switch status {
	case Hit:
		l.stepTask(req, "hit")
		l.pushResponse(Response{Req: req, Frame: l.store.Entry(index).Frame})
		l.invokeHook(HookPosRespond, now, req, nil)
		l.endTask(req)
		l.popDelayQueue()
	case HitReserved, Miss:
		merged, ok := l.trackMiss(req, status, index, now, l.missQueue)
		if !ok {
			l.stepTask(req, "reservation-fail")
			return ReservationFail, true
		}

		l.stepTask(req, status.String())

		if merged {
			l.stepTask(req, "mshr-hit")
		}

		l.popDelayQueue()
	case ReservationFail:
		l.stepTask(req, "reservation-fail")
	}

	return status, true
}

func (l *L2) popDelayQueue() {
	l.delayQueue[0] = delayedReq{}
	l.delayQueue = l.delayQueue[1:]
}

// Cycle sends at most one miss to the page walker and frees the ports.
func (l *L2) Cycle(now uint64) bool {
	progress := false

	if l.missQueue.Size() > 0 {
		req := l.missQueue.Pop().(*vm.TranslationReq)
		l.walker.Walk(now, req)
		l.stepTask(req, "walk")

		progress = true
	}

	l.ports.ReplenishAll()

	return progress
}

// Writeback sends one request whose translation has arrived back to its core.
func (l *L2) Writeback(now uint64) bool {
	if !l.mshr.AccessReady() {
		return false
	}

	d := l.mshr.NextAccess()

	if d.Status == Miss {
		l.Fill(d.Index, l.Tag(d.Req.GetVAddr()), d.Frame, now)
	}

	l.translate(d.Req, d.Frame)
	l.pushResponse(Response{Req: d.Req, Frame: d.Frame})
	l.invokeHook(HookPosRespond, now, d.Req, nil)
	l.endTask(d.Req)

	return true
}

// FillFromPageWalk takes one finished page walk.
func (l *L2) FillFromPageWalk(now uint64) bool {
	if !l.ports.CanUse(ports.Fill) {
		return false
	}

	page, ok := l.walker.PopCompleted(now)
	if !ok {
		return false
	}

	l.mshr.MarkReady(l.Tag(page.VAddr), l.Tag(page.PAddr))
	l.ports.Use(ports.Fill)

	return true
}

func (l *L2) pushResponse(rsp Response) {
	key := &coreResponses{coreID: rsp.Req.GetDeviceID()}

	list, found := l.responses.Get(key)
	if !found {
		list = key
		l.responses.ReplaceOrInsert(list)
	}

	list.queue = append(list.queue, rsp)
}

// HasResponse tells if a translation is waiting for the core.
func (l *L2) HasResponse(coreID uint64) bool {
	return l.responses.Has(&coreResponses{coreID: coreID})
}

// CanSendData tells if a response can be sent this cycle.
func (l *L2) CanSendData() bool {
	return l.ports.CanUse(ports.Data)
}

// UseData occupies the data port.
func (l *L2) UseData() {
	l.ports.Use(ports.Data)
}

// PopResponse removes the oldest translation waiting for the core.
func (l *L2) PopResponse(coreID uint64) (Response, bool) {
	list, found := l.responses.Get(&coreResponses{coreID: coreID})
	if !found {
		return Response{}, false
	}

	rsp := list.queue[0]
	list.queue = list.queue[1:]

	if len(list.queue) == 0 {
		l.responses.Delete(list)
	}

	return rsp, true
}

// NumPendingResponses returns the number of translations waiting for the
// core.
func (l *L2) NumPendingResponses(coreID uint64) int {
	list, found := l.responses.Get(&coreResponses{coreID: coreID})
	if !found {
		return 0
	}

	return len(list.queue)
}

// IsIdle tells if the TLB has nothing in flight.
func (l *L2) IsIdle() bool {
	return len(l.delayQueue) == 0 &&
		l.missQueue.Size() == 0 &&
		l.mshr.IsEmpty() &&
		l.responses.Len() == 0
}
