package tlb

import (
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/ports"
	"github.com/sarchlab/tlbsim/sim"
)

// A Response carries a translated request from a lower level back to the
// core that asked for it.
type Response struct {
	Req   *vm.TranslationReq
	Frame uint64
}

// LowerLevel is what an L1 TLB needs from the level below it.
type LowerLevel interface {
	// CanServe tells if a new request can be admitted this cycle.
	CanServe() bool

	// Admit takes a request that missed in the L1 TLB.
	Admit(req *vm.TranslationReq, now uint64)

	// HasResponse tells if a translation is waiting for the core.
	HasResponse(coreID uint64) bool

	// CanSendData tells if a response can be sent this cycle.
	CanSendData() bool

	// UseData occupies the data port for sending a response.
	UseData()

	// PopResponse removes the oldest translation waiting for the core.
	PopResponse(coreID uint64) (Response, bool)
}

// L1 is a per-core TLB. It answers hits right away and sends misses to the
// level below.
type L1 struct {
	*Cache

	coreID    uint64
	ports     *ports.Meter
	missQueue sim.Buffer
	responses []*vm.TranslationReq
	lower     LowerLevel
}

// CoreID returns the ID of the core that the TLB serves.
func (l *L1) CoreID() uint64 {
	return l.coreID
}

// CanAccept tells if the TLB can take a request in this cycle.
func (l *L1) CanAccept() bool {
	return l.ports.CanUse(ports.Data)
}

// ProcessAccess looks up a request from the core. A hit is answered at once.
// A miss is merged into an in-flight miss or queued for the lower level. The
// caller has to retry the request later if ReservationFail is returned.
func (l *L1) ProcessAccess(req *vm.TranslationReq, now uint64) Status {
	if !l.CanAccept() {
		l.stats.Accesses++
		l.stats.ReservationFails++
		l.invokeHook(HookPosAccess, now, req, ReservationFail)

		return ReservationFail
	}

	status, index := l.Access(req, now)

	switch status {
	case Hit:
		l.startTask(req)
		l.stepTask(req, "hit")
		l.respond(req, now)
		l.ports.Use(ports.Data)
	case HitReserved, Miss:
		merged, ok := l.trackMiss(req, status, index, now, l.missQueue)
		if !ok {
			return ReservationFail
		}

		l.startTask(req)
		l.stepTask(req, status.String())

		if merged {
			l.stepTask(req, "mshr-hit")
		}
	}

	return status
}

// Cycle forwards at most one miss to the lower level and frees the ports.
func (l *L1) Cycle(now uint64) bool {
	progress := false

	if l.missQueue.Size() > 0 && l.lower.CanServe() {
		req := l.missQueue.Pop().(*vm.TranslationReq)
		l.lower.Admit(req, now)
		l.stepTask(req, "forward")

		progress = true
	}

	l.ports.ReplenishAll()

	return progress
}

// Writeback answers one request whose translation has arrived.
func (l *L1) Writeback(now uint64) bool {
	if !l.mshr.AccessReady() {
		return false
	}

	d := l.mshr.NextAccess()
	l.Fill(d.Index, l.Tag(d.Req.GetVAddr()), d.Frame, now)
	l.translate(d.Req, d.Frame)
	l.respond(d.Req, now)

	return true
}

// FillFromL2 takes one translation from the lower level.
func (l *L1) FillFromL2(now uint64) bool {
	if !l.lower.HasResponse(l.coreID) ||
		!l.lower.CanSendData() ||
		!l.ports.CanUse(ports.Fill) {
		return false
	}

	rsp, ok := l.lower.PopResponse(l.coreID)
	if !ok {
		return false
	}

	l.mshr.MarkReady(l.Tag(rsp.Req.GetVAddr()), rsp.Frame)
	l.ports.Use(ports.Fill)
	l.lower.UseData()
	l.stepTask(rsp.Req, "fill")

	return true
}

func (l *L1) respond(req *vm.TranslationReq, now uint64) {
	l.responses = append(l.responses, req)
	l.invokeHook(HookPosRespond, now, req, nil)
	l.endTask(req)
}

// PopResponse removes the oldest translated request.
func (l *L1) PopResponse() (*vm.TranslationReq, bool) {
	if len(l.responses) == 0 {
		return nil, false
	}

	req := l.responses[0]
	l.responses[0] = nil
	l.responses = l.responses[1:]

	return req, true
}

// NumPendingResponses returns the number of translated requests that are not
// popped yet.
func (l *L1) NumPendingResponses() int {
	return len(l.responses)
}

// IsIdle tells if the TLB has nothing in flight.
func (l *L1) IsIdle() bool {
	return l.mshr.IsEmpty() &&
		l.missQueue.Size() == 0 &&
		len(l.responses) == 0
}
