package tagging

// A VictimFinder decides which valid entry of a set should be evicted.
type VictimFinder interface {
	// FindVictim returns the way to evict among the valid entries of a set.
	// Reserved and invalid entries are never returned.
	FindVictim(set []Entry) (wayID int, ok bool)
}

// LRUVictimFinder evicts the least recently used entry.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	return new(LRUVictimFinder)
}

// FindVictim returns the valid entry with the oldest access time. Ties go to
// the lowest way.
func (f *LRUVictimFinder) FindVictim(set []Entry) (int, bool) {
	return oldestValid(set, func(e *Entry) uint64 {
		return e.LastAccessTime
	})
}

// FIFOVictimFinder evicts the entry that was allocated first.
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder returns a newly constructed fifo evictor
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return new(FIFOVictimFinder)
}

// FindVictim returns the valid entry with the oldest allocation time. Ties go
// to the lowest way.
func (f *FIFOVictimFinder) FindVictim(set []Entry) (int, bool) {
	return oldestValid(set, func(e *Entry) uint64 {
		return e.AllocTime
	})
}

func oldestValid(set []Entry, timeOf func(e *Entry) uint64) (int, bool) {
	victim := -1

	var oldest uint64

	for i := range set {
		e := &set[i]
		if e.State != Valid {
			continue
		}

		t := timeOf(e)
		if victim < 0 || t < oldest {
			victim = i
			oldest = t
		}
	}

	return victim, victim >= 0
}
