// Package mshr provides the miss-status holding registers of a TLB.
package mshr

import (
	"log"

	"github.com/google/btree"
	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/tagging"
)

// A Descriptor records a request that waits for a translation.
type Descriptor struct {
	Req    *vm.TranslationReq
	Index  int
	Status tagging.Status

	// Frame is stamped when the descriptor is drained.
	Frame uint64
}

type line struct {
	tag         uint64
	descriptors []Descriptor
}

type readyEntry struct {
	tag   uint64
	frame uint64
}

// MSHR merges the requests that miss on the same page and replays them once
// the page is translated.
type MSHR struct {
	totalLines     int
	targetsPerLine int

	lines *btree.BTreeG[*line]
	ready []readyEntry
}

// New creates an MSHR that can track totalLines pages, each with at most
// targetsPerLine waiting requests.
func New(totalLines, targetsPerLine int) *MSHR {
	if totalLines <= 0 || targetsPerLine <= 0 {
		log.Panicf("invalid mshr size %d x %d", totalLines, targetsPerLine)
	}

	m := &MSHR{
		totalLines:     totalLines,
		targetsPerLine: targetsPerLine,
	}

	m.Reset()

	return m
}

func lineLess(a, b *line) bool {
	return a.tag < b.tag
}

func (m *MSHR) find(tag uint64) (*line, bool) {
	return m.lines.Get(&line{tag: tag})
}

// Probe tells if there is a line for the tag to merge into.
func (m *MSHR) Probe(tag uint64) bool {
	return m.lines.Has(&line{tag: tag})
}

// Full tells if a request for the tag can not be added.
func (m *MSHR) Full(tag uint64) bool {
	l, found := m.find(tag)
	if found {
		return len(l.descriptors) >= m.targetsPerLine
	}

	return m.lines.Len() >= m.totalLines
}

// Add appends a descriptor to the line of the tag, creating the line if
// needed. The caller must check Full first.
func (m *MSHR) Add(tag uint64, d Descriptor) {
	if m.Full(tag) {
		log.Panicf("adding tag 0x%x to a full mshr", tag)
	}

	l, found := m.find(tag)
	if !found {
		l = &line{tag: tag}
		m.lines.ReplaceOrInsert(l)
	}

	l.descriptors = append(l.descriptors, d)
}

// MarkReady records that the translation of the tag has arrived.
func (m *MSHR) MarkReady(tag, frame uint64) {
	if !m.Probe(tag) {
		log.Panicf("fill for tag 0x%x that is not in the mshr", tag)
	}

	m.ready = append(m.ready, readyEntry{tag: tag, frame: frame})

	if len(m.ready) > m.lines.Len() {
		log.Panicf("more ready fills than mshr lines")
	}
}

// AccessReady tells if any request can be drained.
func (m *MSHR) AccessReady() bool {
	return len(m.ready) > 0
}

// NextAccess drains one request of the oldest ready line and stamps the
// translated frame into it. The line stays ready until its last request is
// drained.
func (m *MSHR) NextAccess() Descriptor {
	if !m.AccessReady() {
		log.Panic("no ready access in mshr")
	}

	r := m.ready[0]

	l, found := m.find(r.tag)
	if !found || len(l.descriptors) == 0 {
		log.Panicf("ready tag 0x%x has no waiting request", r.tag)
	}

	d := l.descriptors[0]
	d.Frame = r.frame
	l.descriptors = l.descriptors[1:]

	if len(l.descriptors) == 0 {
		m.lines.Delete(l)
		m.ready = m.ready[1:]
	}

	return d
}

// NumLines returns the number of pages being tracked.
func (m *MSHR) NumLines() int {
	return m.lines.Len()
}

// NumTargets returns the number of requests waiting for the tag.
func (m *MSHR) NumTargets(tag uint64) int {
	l, found := m.find(tag)
	if !found {
		return 0
	}

	return len(l.descriptors)
}

// IsEmpty tells if no page is being tracked.
func (m *MSHR) IsEmpty() bool {
	return m.lines.Len() == 0
}

// Reset drops all the lines and ready fills.
func (m *MSHR) Reset() {
	m.lines = btree.NewG(8, lineLess)
	m.ready = nil
}
