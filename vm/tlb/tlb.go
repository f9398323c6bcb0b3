// Package tlb provides a translation lookaside buffer that caches the most
// recent page-to-frame translations in a single fully associative pool.
package tlb

import "github.com/sarchlab/pagesim/vm"

// An Entry is one slot of the TLB.
type Entry struct {
	Valid bool
	VPN   vm.VPN
	PFN   vm.PFN
}

// A TLB caches page-to-frame translations.
type TLB interface {
	// Name returns the name of the TLB.
	Name() string

	// Lookup returns the frame of the first valid slot that maps the page.
	Lookup(vpn vm.VPN) (pfn vm.PFN, found bool)

	// Insert stores a translation and returns the slot it was written to.
	// Empty slots are filled first. Otherwise, slots are overwritten in
	// FIFO order.
	Insert(vpn vm.VPN, pfn vm.PFN) (slot int)

	// Invalidate clears every slot that maps the page and returns the number
	// of slots cleared.
	Invalidate(vpn vm.VPN) (cleared int)

	// Entries returns a copy of all the slots.
	Entries() []Entry

	// NumEntries returns the number of slots.
	NumEntries() int
}

type tlbImpl struct {
	name      string
	entries   []Entry
	fifoIndex int
}

func (t *tlbImpl) Name() string {
	return t.name
}

func (t *tlbImpl) Lookup(vpn vm.VPN) (vm.PFN, bool) {
	for _, e := range t.entries {
		if e.Valid && e.VPN == vpn {
			return e.PFN, true
		}
	}

	return 0, false
}

func (t *tlbImpl) Insert(vpn vm.VPN, pfn vm.PFN) int {
	slot, found := t.firstInvalid()
	if !found {
		slot = t.fifoIndex
		t.fifoIndex = (t.fifoIndex + 1) % len(t.entries)
	}

	t.entries[slot] = Entry{Valid: true, VPN: vpn, PFN: pfn}

	return slot
}

func (t *tlbImpl) firstInvalid() (int, bool) {
	for i, e := range t.entries {
		if !e.Valid {
			return i, true
		}
	}

	return 0, false
}

func (t *tlbImpl) Invalidate(vpn vm.VPN) int {
	cleared := 0

	for i := range t.entries {
		if t.entries[i].Valid && t.entries[i].VPN == vpn {
			t.entries[i].Valid = false
			cleared++
		}
	}

	return cleared
}

func (t *tlbImpl) Entries() []Entry {
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

func (t *tlbImpl) NumEntries() int {
	return len(t.entries)
}
