package translator

import (
	"log"

	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/coremap"
	"github.com/sarchlab/pagesim/vm/tlb"
)

// A Builder can build translators.
type Builder struct {
	numFrames         int
	numTLBEntries     int
	observationPeriod uint64

	tlb       tlb.TLB
	pageTable vm.PageTable
	coreMap   coremap.CoreMap
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{
		numFrames:         16,
		numTLBEntries:     8,
		observationPeriod: 8,
	}
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// WithNumTLBEntries sets the number of TLB slots.
func (b Builder) WithNumTLBEntries(n int) Builder {
	b.numTLBEntries = n
	return b
}

// WithObservationPeriod sets the number of accesses between two use vector
// shifts.
func (b Builder) WithObservationPeriod(n uint64) Builder {
	b.observationPeriod = n
	return b
}

// WithTLB uses the given TLB instead of building one.
func (b Builder) WithTLB(t tlb.TLB) Builder {
	b.tlb = t
	return b
}

// WithPageTable uses the given page table instead of building one.
func (b Builder) WithPageTable(pt vm.PageTable) Builder {
	b.pageTable = pt
	return b
}

// WithCoreMap uses the given core map instead of building one.
func (b Builder) WithCoreMap(c coremap.CoreMap) Builder {
	b.coreMap = c
	return b
}

// Build creates a new Translator.
func (b Builder) Build(name string) *Translator {
	if b.observationPeriod == 0 {
		log.Panicf("translator %s needs a positive observation period", name)
	}

	t := &Translator{
		name:              name,
		tlb:               b.tlb,
		pageTable:         b.pageTable,
		coreMap:           b.coreMap,
		observationPeriod: b.observationPeriod,
	}

	if t.tlb == nil {
		t.tlb = tlb.MakeBuilder().
			WithNumEntries(b.numTLBEntries).
			Build(name + ".TLB")
	}

	if t.pageTable == nil {
		t.pageTable = vm.NewPageTable()
	}

	if t.coreMap == nil {
		t.coreMap = coremap.MakeBuilder().
			WithNumFrames(b.numFrames).
			Build(name + ".CoreMap")
	}

	return t
}
