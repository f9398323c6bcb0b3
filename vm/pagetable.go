package vm

import "log"

// A PTE is an entry in the page table, maintaining the information about how
// to translate a virtual page to a physical frame.
type PTE struct {
	Present bool
	PFN     PFN
}

// A PageTable maps every virtual page to the frame that holds it, if any.
type PageTable interface {
	// IsPresent tells if the page is currently loaded in a frame.
	IsPresent(vpn VPN) bool

	// FrameOf returns the frame of a present page. It panics if the page is
	// not present.
	FrameOf(vpn VPN) PFN

	// Bind marks the page as present in the given frame.
	Bind(vpn VPN, pfn PFN)

	// Unbind marks the page as absent.
	Unbind(vpn VPN)

	// Entry returns a copy of the entry of a page.
	Entry(vpn VPN) PTE

	// NumEntries returns the number of pages the table covers.
	NumEntries() int
}

// NewPageTable creates a page table with every page absent.
func NewPageTable() PageTable {
	return &pageTableImpl{
		entries: make([]PTE, NumPages),
	}
}

type pageTableImpl struct {
	entries []PTE
}

func (pt *pageTableImpl) IsPresent(vpn VPN) bool {
	return pt.entries[vpn].Present
}

func (pt *pageTableImpl) FrameOf(vpn VPN) PFN {
	pt.pageMustBePresent(vpn)

	return pt.entries[vpn].PFN
}

func (pt *pageTableImpl) Bind(vpn VPN, pfn PFN) {
	pt.entries[vpn] = PTE{Present: true, PFN: pfn}
}

func (pt *pageTableImpl) Unbind(vpn VPN) {
	pt.entries[vpn] = PTE{}
}

func (pt *pageTableImpl) Entry(vpn VPN) PTE {
	return pt.entries[vpn]
}

func (pt *pageTableImpl) NumEntries() int {
	return len(pt.entries)
}

func (pt *pageTableImpl) pageMustBePresent(vpn VPN) {
	if !pt.entries[vpn].Present {
		log.Panicf("page 0x%04x is not present", vpn)
	}
}
