package tagging

import (
	"log"

	"github.com/sarchlab/tlbsim/mem/vm"
)

// Status is the outcome of probing a store.
type Status int

// A list of all probe outcomes.
const (
	Hit Status = iota
	HitReserved
	Miss
	ReservationFail
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case HitReserved:
		return "hit-reserved"
	case Miss:
		return "miss"
	case ReservationFail:
		return "reservation-fail"
	default:
		return "unknown"
	}
}

// A Store keeps numSets x numWays entries in a flat slice. The entries of set
// s occupy indices [s*numWays, (s+1)*numWays).
type Store struct {
	numSets      int
	numWays      int
	decoder      vm.AddressDecoder
	victimFinder VictimFinder
	entries      []Entry
}

// NewStore creates a store with all entries invalid.
func NewStore(
	numSets, numWays int,
	decoder vm.AddressDecoder,
	victimFinder VictimFinder,
) *Store {
	if numSets <= 0 || numWays <= 0 {
		log.Panicf("invalid store geometry %d x %d", numSets, numWays)
	}

	s := &Store{
		numSets:      numSets,
		numWays:      numWays,
		decoder:      decoder,
		victimFinder: victimFinder,
	}

	s.Reset()

	return s
}

// Reset marks all the entries invalid.
func (s *Store) Reset() {
	s.entries = make([]Entry, s.numSets*s.numWays)
	for i := range s.entries {
		s.entries[i] = makeInvalidEntry()
	}
}

// NumEntries returns the total number of entries.
func (s *Store) NumEntries() int {
	return len(s.entries)
}

// Tag returns the page-aligned tag of an address.
func (s *Store) Tag(addr uint64) uint64 {
	return s.decoder.PageTag(addr)
}

// Entry returns a copy of the entry at the given index.
func (s *Store) Entry(index int) Entry {
	return s.entries[index]
}

// Probe looks up the set of the address. On a hit, the index of the matching
// entry is returned. On a miss, the index is the entry to allocate: the first
// invalid way if any, otherwise the victim chosen by the policy.
// ReservationFail means every way of the set is waiting for a fill.
func (s *Store) Probe(addr uint64) (Status, int) {
	setID := int(s.decoder.SetIndex(addr) % uint64(s.numSets))
	tag := s.decoder.PageTag(addr)
	base := setID * s.numWays
	set := s.entries[base : base+s.numWays]

	allReserved := true
	invalidWay := -1

	for way := range set {
		e := &set[way]

		if e.Tag == tag {
			switch e.State {
			case Reserved:
				return HitReserved, base + way
			case Valid:
				return Hit, base + way
			default:
				log.Panicf("invalid entry %d matches tag 0x%x", base+way, tag)
			}
		}

		if e.State == Reserved {
			continue
		}

		allReserved = false

		if e.State == Invalid && invalidWay < 0 {
			invalidWay = way
		}
	}

	if allReserved {
		return ReservationFail, -1
	}

	if invalidWay >= 0 {
		return Miss, base + invalidWay
	}

	victim, ok := s.victimFinder.FindVictim(set)
	if !ok {
		log.Panicf("set %d has no entry to evict", setID)
	}

	return Miss, base + victim
}

// Allocate reserves the entry for a tag that is being fetched.
func (s *Store) Allocate(index int, tag, now uint64) {
	s.entries[index].allocate(tag, now)
}

// Resolve stores the translated frame and marks the entry valid. Repeating
// the same fill has no effect.
func (s *Store) Resolve(index int, frame, now uint64) {
	s.entries[index].resolve(frame, now)
}

// Touch updates the last access time of an entry.
func (s *Store) Touch(index int, now uint64) {
	s.entries[index].LastAccessTime = now
}

// Release returns a reserved entry to the invalid state. It is used when the
// miss that reserved the entry cannot be tracked.
func (s *Store) Release(index int) {
	e := &s.entries[index]
	if e.State != Reserved {
		log.Panicf("releasing entry %d in state %s", index, e.State)
	}

	e.invalidate()
}

// InvalidateAll drops all the valid translations. Reserved entries are kept
// since their fills are still on the way. It returns the number of entries
// invalidated.
func (s *Store) InvalidateAll() int {
	count := 0

	for i := range s.entries {
		if s.entries[i].State == Valid {
			s.entries[i].invalidate()
			count++
		}
	}

	return count
}
