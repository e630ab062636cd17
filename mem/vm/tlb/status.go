package tlb

import "github.com/sarchlab/tlbsim/mem/vm/tlb/internal/tagging"

// Status is the outcome of a TLB access.
type Status = tagging.Status

// A list of all access outcomes.
const (
	// Hit means the translation is found and valid.
	Hit = tagging.Hit

	// HitReserved means the translation is being fetched by an earlier miss.
	HitReserved = tagging.HitReserved

	// Miss means the translation is not in the TLB.
	Miss = tagging.Miss

	// ReservationFail means the TLB cannot take the request now. The
	// requester should retry in a later cycle.
	ReservationFail = tagging.ReservationFail
)
