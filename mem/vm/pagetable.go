package vm

import (
	"container/list"
	"log"
	"sync"
)

// A Page is an entry in the page table, maintaining the information about how
// to translate a virtual address to a physical address. Both addresses are
// page-aligned.
type Page struct {
	VAddr    uint64
	PAddr    uint64
	PageSize uint64
	Valid    bool
}

// A PageTable holds the a list of pages.
type PageTable interface {
	Insert(page Page)
	Remove(vAddr uint64)
	Find(vAddr uint64) (Page, bool)
	Update(page Page)
	NumPages() int
}

// NewPageTable creates a new PageTable.
func NewPageTable(log2PageSize uint64) PageTable {
	return &pageTableImpl{
		log2PageSize: log2PageSize,
		entries:      list.New(),
		entriesTable: make(map[uint64]*list.Element),
	}
}

// pageTableImpl keeps the pages in insertion order while allowing lookups
// by virtual page.
type pageTableImpl struct {
	sync.Mutex
	log2PageSize uint64
	entries      *list.List
	entriesTable map[uint64]*list.Element
}

func (pt *pageTableImpl) alignToPage(addr uint64) uint64 {
	return (addr >> pt.log2PageSize) << pt.log2PageSize
}

// Insert put a new page into the PageTable
func (pt *pageTableImpl) Insert(page Page) {
	pt.Lock()
	defer pt.Unlock()

	page.VAddr = pt.alignToPage(page.VAddr)
	pt.pageMustNotExist(page.VAddr)

	elem := pt.entries.PushBack(page)
	pt.entriesTable[page.VAddr] = elem
}

// Remove removes the entry in the page table that contains the target
// address.
func (pt *pageTableImpl) Remove(vAddr uint64) {
	pt.Lock()
	defer pt.Unlock()

	vAddr = pt.alignToPage(vAddr)
	pt.pageMustExist(vAddr)

	elem := pt.entriesTable[vAddr]
	pt.entries.Remove(elem)
	delete(pt.entriesTable, vAddr)
}

// Find returns the page that contains the given virtual address. The bool
// return value invicates if the page is found or not.
func (pt *pageTableImpl) Find(vAddr uint64) (Page, bool) {
	pt.Lock()
	defer pt.Unlock()

	elem, found := pt.entriesTable[pt.alignToPage(vAddr)]
	if !found {
		return Page{}, false
	}

	return elem.Value.(Page), true
}

// Update changes the field of an existing page. The VAddr field is used to
// locate the page to update.
func (pt *pageTableImpl) Update(page Page) {
	pt.Lock()
	defer pt.Unlock()

	page.VAddr = pt.alignToPage(page.VAddr)
	pt.pageMustExist(page.VAddr)

	pt.entriesTable[page.VAddr].Value = page
}

// NumPages returns the number of pages in the table.
func (pt *pageTableImpl) NumPages() int {
	pt.Lock()
	defer pt.Unlock()

	return pt.entries.Len()
}

func (pt *pageTableImpl) pageMustExist(vAddr uint64) {
	if _, found := pt.entriesTable[vAddr]; !found {
		log.Panicf("page 0x%x does not exist", vAddr)
	}
}

func (pt *pageTableImpl) pageMustNotExist(vAddr uint64) {
	if _, found := pt.entriesTable[vAddr]; found {
		log.Panicf("page 0x%x already exists", vAddr)
	}
}
