// Package coremap tracks the physical frames of the simulated machine, which
// page owns each frame, and how recently each frame has been used.
package coremap

import (
	"log"

	"github.com/sarchlab/pagesim/vm"
)

// UseVectorBits is the width of the per-frame use vector.
const UseVectorBits = 8

// An Entry describes one physical frame.
type Entry struct {
	Valid     bool
	UseVector uint8
	VPN       vm.VPN
}

// A CoreMap owns the pool of physical frames.
type CoreMap interface {
	// Name returns the name of the core map.
	Name() string

	// FindFree reserves the first unused frame.
	FindFree() (pfn vm.PFN, found bool)

	// FindVictim selects the frame to reclaim when no frame is free.
	FindVictim() vm.PFN

	// Assign records the page that owns a reserved frame.
	Assign(pfn vm.PFN, vpn vm.VPN)

	// Reassign hands a valid frame to a new page, clears its use vector, and
	// returns the page that owned it before.
	Reassign(pfn vm.PFN, vpn vm.VPN) (old vm.VPN)

	// RecordAccess sets the highest zero bit of the frame's use vector.
	RecordAccess(pfn vm.PFN)

	// DecayAll shifts the use vector of every frame right by one bit.
	DecayAll()

	// Entry returns a copy of a frame's entry.
	Entry(pfn vm.PFN) Entry

	// Entries returns a copy of all frame entries.
	Entries() []Entry

	// NumFrames returns the number of frames.
	NumFrames() int
}

type coreMapImpl struct {
	name         string
	entries      []Entry
	victimFinder VictimFinder
}

func (c *coreMapImpl) Name() string {
	return c.name
}

func (c *coreMapImpl) FindFree() (vm.PFN, bool) {
	for i := range c.entries {
		if !c.entries[i].Valid {
			c.entries[i].Valid = true
			return vm.PFN(i), true
		}
	}

	return 0, false
}

func (c *coreMapImpl) FindVictim() vm.PFN {
	return c.victimFinder.FindVictim(c.entries)
}

func (c *coreMapImpl) Assign(pfn vm.PFN, vpn vm.VPN) {
	c.frameMustBeValid(pfn)

	c.entries[pfn].VPN = vpn
}

func (c *coreMapImpl) Reassign(pfn vm.PFN, vpn vm.VPN) vm.VPN {
	c.frameMustBeValid(pfn)

	e := &c.entries[pfn]
	old := e.VPN
	e.VPN = vpn
	e.UseVector = 0

	return old
}

func (c *coreMapImpl) RecordAccess(pfn vm.PFN) {
	e := &c.entries[pfn]

	for bit := UseVectorBits - 1; bit >= 0; bit-- {
		mask := uint8(1) << bit
		if e.UseVector&mask == 0 {
			e.UseVector |= mask
			return
		}
	}
}

func (c *coreMapImpl) DecayAll() {
	for i := range c.entries {
		c.entries[i].UseVector >>= 1
	}
}

func (c *coreMapImpl) Entry(pfn vm.PFN) Entry {
	return c.entries[pfn]
}

func (c *coreMapImpl) Entries() []Entry {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)

	return entries
}

func (c *coreMapImpl) NumFrames() int {
	return len(c.entries)
}

func (c *coreMapImpl) frameMustBeValid(pfn vm.PFN) {
	if !c.entries[pfn].Valid {
		log.Panicf("frame %d is not in use", pfn)
	}
}
