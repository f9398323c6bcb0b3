package translator

import "github.com/sarchlab/pagesim/vm"

// Outcome tells which level of the lookup resolved an access.
type Outcome int

// The outcomes of an access.
const (
	TLBHit Outcome = iota
	PageHit
	PageFault
)

func (o Outcome) String() string {
	switch o {
	case TLBHit:
		return "tlb_hit"
	case PageHit:
		return "page_hit"
	case PageFault:
		return "page_fault"
	default:
		return "unknown"
	}
}

// Access is the record of one translated virtual address. During hooks, the
// fields describing later steps are not filled yet.
type Access struct {
	Number uint64
	VA     uint64
	VPN    vm.VPN
	Offset uint64

	PFN     vm.PFN
	PA      uint64
	Outcome Outcome

	// FreeFrame is set when a fault was served by a never-used frame.
	FreeFrame bool

	// Evicted is set when a fault reclaimed the frame of EvictedVPN.
	Evicted    bool
	EvictedVPN vm.VPN

	// TLBSlot is the TLB slot written by the access, or -1.
	TLBSlot int

	// Decayed is set when the access triggered a use vector shift.
	Decayed bool
}
