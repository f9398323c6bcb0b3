// Package translator walks a virtual address through the TLB, the page table,
// and the core map, loading pages on demand and keeping the three tables
// consistent.
package translator

import (
	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/coremap"
	"github.com/sarchlab/pagesim/vm/tlb"
)

// Hook positions, triggered in the order the steps of an access happen.
var (
	HookPosAccessStart       = &hooking.HookPos{Name: "AccessStart"}
	HookPosTLBHit            = &hooking.HookPos{Name: "TLBHit"}
	HookPosTLBMiss           = &hooking.HookPos{Name: "TLBMiss"}
	HookPosPageHit           = &hooking.HookPos{Name: "PageHit"}
	HookPosPageFault         = &hooking.HookPos{Name: "PageFault"}
	HookPosFrameAllocated    = &hooking.HookPos{Name: "FrameAllocated"}
	HookPosReplacementNeeded = &hooking.HookPos{Name: "ReplacementNeeded"}
	HookPosFrameReplaced     = &hooking.HookPos{Name: "FrameReplaced"}
	HookPosTLBInvalidate     = &hooking.HookPos{Name: "TLBInvalidate"}
	HookPosFaultResolved     = &hooking.HookPos{Name: "FaultResolved"}
	HookPosTLBUpdate         = &hooking.HookPos{Name: "TLBUpdate"}
	HookPosUseVectorShift    = &hooking.HookPos{Name: "UseVectorShift"}
	HookPosAccessEnd         = &hooking.HookPos{Name: "AccessEnd"}
	HookPosMalformed         = &hooking.HookPos{Name: "Malformed"}
)

// Statistics are the counters of a run.
type Statistics struct {
	Accesses   uint64
	TLBMisses  uint64
	PageFaults uint64
}

// TLBUpdate is the detail of a HookPosTLBUpdate hook.
type TLBUpdate struct {
	Slot int
	VPN  vm.VPN
	PFN  vm.PFN
}

// TLBInvalidation is the detail of a HookPosTLBInvalidate hook.
type TLBInvalidation struct {
	VPN     vm.VPN
	Cleared int
}

// Translator owns the TLB, the page table, and the core map of one simulated
// run, together with the run's counters.
type Translator struct {
	hooking.HookableBase

	name              string
	tlb               tlb.TLB
	pageTable         vm.PageTable
	coreMap           coremap.CoreMap
	observationPeriod uint64

	stats Statistics
}

// Name returns the name of the translator.
func (t *Translator) Name() string {
	return t.name
}

// TLB returns the TLB.
func (t *Translator) TLB() tlb.TLB {
	return t.tlb
}

// PageTable returns the page table.
func (t *Translator) PageTable() vm.PageTable {
	return t.pageTable
}

// CoreMap returns the core map.
func (t *Translator) CoreMap() coremap.CoreMap {
	return t.coreMap
}

// ObservationPeriod returns the number of accesses between two use vector
// shifts.
func (t *Translator) ObservationPeriod() uint64 {
	return t.observationPeriod
}

// Statistics returns the counters accumulated so far.
func (t *Translator) Statistics() Statistics {
	return t.stats
}

// Translate performs one access. A value wider than a virtual address is
// rejected with an error wrapping vm.ErrMalformedAddress and leaves every
// counter and table untouched.
func (t *Translator) Translate(va uint64) (Access, error) {
	err := vm.CheckAddress(va)
	if err != nil {
		t.invoke(HookPosMalformed, va, err)
		return Access{}, err
	}

	t.stats.Accesses++

	vpn, offset := vm.Split(va)
	access := &Access{
		Number:  t.stats.Accesses,
		VA:      va,
		VPN:     vpn,
		Offset:  offset,
		TLBSlot: -1,
	}
	t.invoke(HookPosAccessStart, access, nil)

	pfn, found := t.tlb.Lookup(vpn)
	if found {
		t.handleTLBHit(access, pfn)
	} else {
		t.handleTLBMiss(access)
	}

	t.shiftUseVectorsIfDue(access)

	t.invoke(HookPosAccessEnd, access, nil)

	return *access, nil
}

func (t *Translator) handleTLBHit(access *Access, pfn vm.PFN) {
	t.coreMap.RecordAccess(pfn)
	t.resolve(access, pfn, TLBHit)

	t.invoke(HookPosTLBHit, access, nil)
}

func (t *Translator) handleTLBMiss(access *Access) {
	t.stats.TLBMisses++
	t.invoke(HookPosTLBMiss, access, nil)

	if t.pageTable.IsPresent(access.VPN) {
		t.handlePageHit(access)
		return
	}

	t.handlePageFault(access)
}

func (t *Translator) handlePageHit(access *Access) {
	pfn := t.pageTable.FrameOf(access.VPN)

	t.coreMap.RecordAccess(pfn)
	t.resolve(access, pfn, PageHit)
	t.invoke(HookPosPageHit, access, nil)

	t.updateTLB(access)
}

func (t *Translator) handlePageFault(access *Access) {
	t.stats.PageFaults++
	t.invoke(HookPosPageFault, access, nil)

	pfn, found := t.coreMap.FindFree()
	if found {
		access.FreeFrame = true
		t.invoke(HookPosFrameAllocated, access, pfn)
		t.coreMap.Assign(pfn, access.VPN)
	} else {
		pfn = t.replaceFrame(access)
	}

	t.pageTable.Bind(access.VPN, pfn)

	t.coreMap.RecordAccess(pfn)
	t.resolve(access, pfn, PageFault)
	t.invoke(HookPosFaultResolved, access, nil)

	t.updateTLB(access)
}

func (t *Translator) replaceFrame(access *Access) vm.PFN {
	t.invoke(HookPosReplacementNeeded, access, nil)

	pfn := t.coreMap.FindVictim()
	t.invoke(HookPosFrameReplaced, access, pfn)

	old := t.coreMap.Entry(pfn).VPN
	t.pageTable.Unbind(old)
	cleared := t.tlb.Invalidate(old)
	t.invoke(HookPosTLBInvalidate, access,
		TLBInvalidation{VPN: old, Cleared: cleared})

	t.coreMap.Reassign(pfn, access.VPN)

	access.Evicted = true
	access.EvictedVPN = old

	return pfn
}

func (t *Translator) resolve(access *Access, pfn vm.PFN, outcome Outcome) {
	access.PFN = pfn
	access.PA = vm.PhysicalAddress(pfn, access.Offset)
	access.Outcome = outcome
}

func (t *Translator) updateTLB(access *Access) {
	slot := t.tlb.Insert(access.VPN, access.PFN)
	access.TLBSlot = slot

	t.invoke(HookPosTLBUpdate, access, TLBUpdate{
		Slot: slot,
		VPN:  access.VPN,
		PFN:  access.PFN,
	})
}

func (t *Translator) shiftUseVectorsIfDue(access *Access) {
	if t.stats.Accesses%t.observationPeriod != 0 {
		return
	}

	t.coreMap.DecayAll()
	access.Decayed = true

	t.invoke(HookPosUseVectorShift, access, nil)
}

func (t *Translator) invoke(
	pos *hooking.HookPos,
	item interface{},
	detail interface{},
) {
	if t.NumHooks() == 0 {
		return
	}

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
