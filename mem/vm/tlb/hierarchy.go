package tlb

// Hierarchy owns the L1 TLBs of all the cores and the shared L2 TLB. It steps
// them in a fixed order once per cycle.
type Hierarchy struct {
	name string
	l1s  []*L1
	l2   *L2
}

// Name returns the name of the hierarchy.
func (h *Hierarchy) Name() string {
	return h.name
}

// NumCores returns the number of L1 TLBs.
func (h *Hierarchy) NumCores() int {
	return len(h.l1s)
}

// L1 returns the L1 TLB of a core.
func (h *Hierarchy) L1(coreID int) *L1 {
	return h.l1s[coreID]
}

// L2 returns the shared TLB.
func (h *Hierarchy) L2() *L2 {
	return h.l2
}

// Tick advances every TLB by one cycle. Fills move upwards before new
// requests are looked up, so a translation that arrives in a cycle can serve
// the requests of the same cycle. It returns true if anything was done.
func (h *Hierarchy) Tick(now uint64) bool {
	progress := false

	progress = h.l2.FillFromPageWalk(now) || progress
	progress = h.l2.Writeback(now) || progress

	if _, accessed := h.l2.ProcessAccess(now); accessed {
		progress = true
	}

	for _, l1 := range h.l1s {
		progress = l1.FillFromL2(now) || progress
		progress = l1.Writeback(now) || progress
	}

	for _, l1 := range h.l1s {
		progress = l1.Cycle(now) || progress
	}

	progress = h.l2.Cycle(now) || progress

	return progress
}

// Stats returns the counters summed over all the TLBs.
func (h *Hierarchy) Stats() Stats {
	s := h.L1Stats()
	return s.Add(h.l2.Stats())
}

// L1Stats returns the counters summed over the L1 TLBs.
func (h *Hierarchy) L1Stats() Stats {
	var s Stats

	for _, l1 := range h.l1s {
		s = s.Add(l1.Stats())
	}

	return s
}

// Flush drops the valid translations of every TLB and returns how many were
// dropped.
func (h *Hierarchy) Flush() int {
	n := h.l2.Flush()

	for _, l1 := range h.l1s {
		n += l1.Flush()
	}

	return n
}

// IsIdle tells if no request is in flight in any TLB. Responses that the
// cores have not popped count as in flight.
func (h *Hierarchy) IsIdle() bool {
	if !h.l2.IsIdle() {
		return false
	}

	for _, l1 := range h.l1s {
		if !l1.IsIdle() {
			return false
		}
	}

	return true
}
