package vm

import (
	"fmt"
	"math/bits"
)

// An AddressDecoder splits an address into the parts a set-associative
// translation cache needs.
type AddressDecoder interface {
	// SetIndex returns the set that the page of the address maps to.
	SetIndex(addr uint64) uint64

	// PageTag returns the page-aligned address.
	PageTag(addr uint64) uint64

	// PageOffset returns the offset of the address within its page.
	PageOffset(addr uint64) uint64
}

// PageAddressDecoder decodes addresses by page number. Pages are interleaved
// across sets.
type PageAddressDecoder struct {
	log2PageSize uint64
	log2NumSets  uint64
}

// NewPageAddressDecoder creates a decoder for the given page size and number
// of sets. Both must be powers of two.
func NewPageAddressDecoder(
	pageSize, numSets uint64,
) (*PageAddressDecoder, error) {
	log2PageSize, err := Log2(pageSize)
	if err != nil {
		return nil, fmt.Errorf("invalid page size: %w", err)
	}

	log2NumSets, err := Log2(numSets)
	if err != nil {
		return nil, fmt.Errorf("invalid number of sets: %w", err)
	}

	d := &PageAddressDecoder{
		log2PageSize: log2PageSize,
		log2NumSets:  log2NumSets,
	}

	return d, nil
}

// SetIndex returns the set that the page of the address maps to.
func (d *PageAddressDecoder) SetIndex(addr uint64) uint64 {
	pageNum := addr >> d.log2PageSize
	return pageNum & (1<<d.log2NumSets - 1)
}

// PageTag returns the page-aligned address.
func (d *PageAddressDecoder) PageTag(addr uint64) uint64 {
	return addr >> d.log2PageSize << d.log2PageSize
}

// PageOffset returns the offset of the address within its page.
func (d *PageAddressDecoder) PageOffset(addr uint64) uint64 {
	return addr & (1<<d.log2PageSize - 1)
}

// PageSize returns the page size in bytes.
func (d *PageAddressDecoder) PageSize() uint64 {
	return 1 << d.log2PageSize
}

// Log2 returns the base-2 logarithm of n, which must be a power of two.
func Log2(n uint64) (uint64, error) {
	if n == 0 || n&(n-1) != 0 {
		return 0, fmt.Errorf("%d is not a power of 2", n)
	}

	return uint64(bits.TrailingZeros64(n)), nil
}
