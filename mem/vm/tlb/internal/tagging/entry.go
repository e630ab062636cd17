// Package tagging provides the set-associative storage of TLB entries.
package tagging

// EntryState is the state of a TLB entry.
type EntryState int

// A list of all entry states.
const (
	Invalid EntryState = iota
	Reserved
	Valid
)

func (s EntryState) String() string {
	switch s {
	case Invalid:
		return "invalid"
	case Reserved:
		return "reserved"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// invalidTag is carried by entries that hold nothing. Tags are page-aligned,
// so no tag can be equal to it.
const invalidTag = ^uint64(0)

// An Entry is one way of a set. It maps a virtual page to a physical frame.
type Entry struct {
	Tag            uint64
	Frame          uint64
	AllocTime      uint64
	LastAccessTime uint64
	FillTime       uint64
	State          EntryState
}

func makeInvalidEntry() Entry {
	return Entry{Tag: invalidTag, State: Invalid}
}

func (e *Entry) allocate(tag, now uint64) {
	e.Tag = tag
	e.Frame = 0
	e.AllocTime = now
	e.LastAccessTime = now
	e.FillTime = 0
	e.State = Reserved
}

func (e *Entry) resolve(frame, now uint64) {
	if e.State == Valid && e.Frame == frame {
		return
	}

	e.Frame = frame
	e.FillTime = now
	e.State = Valid
}

func (e *Entry) invalidate() {
	*e = makeInvalidEntry()
}
