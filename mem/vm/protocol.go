// Package vm provides the models for address translations
package vm

import (
	"github.com/sarchlab/tlbsim/sim"
)

// A TranslationReq asks the TLB hierarchy to translate a virtual address. The
// same request object travels through every level; the level that resolves it
// stamps the physical address.
type TranslationReq struct {
	ID       string
	VAddr    uint64
	PAddr    uint64
	DeviceID uint64
}

// GetVAddr returns the virtual address to translate.
func (r *TranslationReq) GetVAddr() uint64 {
	return r.VAddr
}

// SetVAddr sets the virtual address to translate.
func (r *TranslationReq) SetVAddr(addr uint64) {
	r.VAddr = addr
}

// GetPAddr returns the translated physical address.
func (r *TranslationReq) GetPAddr() uint64 {
	return r.PAddr
}

// SetPAddr sets the translated physical address.
func (r *TranslationReq) SetPAddr(addr uint64) {
	r.PAddr = addr
}

// GetDeviceID returns the ID of the core that issued the request.
func (r *TranslationReq) GetDeviceID() uint64 {
	return r.DeviceID
}

// TranslationReqBuilder can build translation requests.
type TranslationReqBuilder struct {
	vAddr    uint64
	deviceID uint64
}

// WithVAddr sets the virtual address of the request to build.
func (b TranslationReqBuilder) WithVAddr(vAddr uint64) TranslationReqBuilder {
	b.vAddr = vAddr
	return b
}

// WithDeviceID sets the core ID of the request to build.
func (b TranslationReqBuilder) WithDeviceID(
	deviceID uint64,
) TranslationReqBuilder {
	b.deviceID = deviceID
	return b
}

// Build creates a new TranslationReq.
func (b TranslationReqBuilder) Build() *TranslationReq {
	return &TranslationReq{
		ID:       sim.GetIDGenerator().Generate(),
		VAddr:    b.vAddr,
		DeviceID: b.deviceID,
	}
}
