package tlb

import "log"

// A Builder can build TLBs.
type Builder struct {
	numEntries int
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{
		numEntries: 8,
	}
}

// WithNumEntries sets the number of slots in the TLB.
func (b Builder) WithNumEntries(n int) Builder {
	b.numEntries = n
	return b
}

// Build creates a new TLB with every slot invalid.
func (b Builder) Build(name string) TLB {
	if b.numEntries < 1 {
		log.Panicf("TLB %s must have at least one entry, got %d",
			name, b.numEntries)
	}

	return &tlbImpl{
		name:    name,
		entries: make([]Entry, b.numEntries),
	}
}
