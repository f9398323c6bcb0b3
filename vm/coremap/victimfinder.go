package coremap

import "github.com/sarchlab/pagesim/vm"

// A VictimFinder decides which frame should be reclaimed.
type VictimFinder interface {
	FindVictim(entries []Entry) vm.PFN
}

// LowestUseVictimFinder reclaims the frame with the smallest use vector. Ties
// go to the lowest frame number.
type LowestUseVictimFinder struct {
}

// NewLowestUseVictimFinder returns a newly constructed victim finder.
func NewLowestUseVictimFinder() *LowestUseVictimFinder {
	return new(LowestUseVictimFinder)
}

// FindVictim returns the first frame holding the lowest use vector.
func (f *LowestUseVictimFinder) FindVictim(entries []Entry) vm.PFN {
	lowest := 0

	for i := range entries {
		if entries[i].UseVector < entries[lowest].UseVector {
			lowest = i
		}
	}

	return vm.PFN(lowest)
}
