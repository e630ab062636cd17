package tlb

// Stats counts the outcome of the accesses of one or more TLBs.
type Stats struct {
	Accesses         uint64 `yaml:"accesses"`
	Misses           uint64 `yaml:"misses"`
	PendingHits      uint64 `yaml:"pending_hits"`
	ReservationFails uint64 `yaml:"reservation_fails"`
}

// Add returns the sum of two stats.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Accesses:         s.Accesses + other.Accesses,
		Misses:           s.Misses + other.Misses,
		PendingHits:      s.PendingHits + other.PendingHits,
		ReservationFails: s.ReservationFails + other.ReservationFails,
	}
}
