package coremap

import (
	"log"

	"github.com/sarchlab/pagesim/vm"
)

// A Builder can build core maps.
type Builder struct {
	numFrames    int
	victimFinder VictimFinder
}

// MakeBuilder returns a Builder.
func MakeBuilder() Builder {
	return Builder{
		numFrames: 16,
	}
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// withVictimFinder swaps the lowest-use victim finder for a fixed one in
// tests. Lowest-use is the only replacement policy.
func (b Builder) withVictimFinder(f VictimFinder) Builder {
	b.victimFinder = f
	return b
}

// Build creates a core map with every frame unused.
func (b Builder) Build(name string) CoreMap {
	if b.numFrames < 1 || b.numFrames > vm.MaxFrames {
		log.Panicf("core map %s must have 1 to %d frames, got %d",
			name, vm.MaxFrames, b.numFrames)
	}

	c := &coreMapImpl{
		name:         name,
		entries:      make([]Entry, b.numFrames),
		victimFinder: b.victimFinder,
	}

	if c.victimFinder == nil {
		c.victimFinder = NewLowestUseVictimFinder()
	}

	return c
}
