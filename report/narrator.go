package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/translator"
)

// A Narrator is a hook that describes every step of every access.
type Narrator struct {
	writer io.Writer
}

// NewNarrator creates a Narrator that writes to w.
func NewNarrator(w io.Writer) *Narrator {
	return &Narrator{writer: w}
}

// Func prints the line that belongs to the hook position.
func (n *Narrator) Func(ctx hooking.HookCtx) {
	access, ok := ctx.Item.(*translator.Access)
	if !ok {
		return
	}

	switch ctx.Pos {
	case translator.HookPosAccessStart:
		n.printf("access %d:\n", access.Number)
		n.printf("  virtual address is              0x%06x\n", access.VA)
	case translator.HookPosTLBHit:
		n.printf("  tlb hit, physical address is      0x%04x\n", access.PA)
	case translator.HookPosTLBMiss:
		n.printf("  tlb miss\n")
	case translator.HookPosPageHit:
		n.printf("  page hit, physical address is     0x%04x\n", access.PA)
	case translator.HookPosPageFault:
		n.printf("  page fault\n")
	case translator.HookPosFrameAllocated:
		n.printf("  unused page frame allocated\n")
	case translator.HookPosReplacementNeeded:
		n.printf("  page replacement needed\n")
	case translator.HookPosFrameReplaced:
		n.printf("  replace frame %d\n", ctx.Detail.(vm.PFN))
	case translator.HookPosTLBInvalidate:
		inv := ctx.Detail.(translator.TLBInvalidation)
		n.printf("  TLB invalidate of vpn 0x%x\n", inv.VPN)
	case translator.HookPosFaultResolved:
		n.printf("  physical address is               0x%04x\n", access.PA)
	case translator.HookPosTLBUpdate:
		update := ctx.Detail.(translator.TLBUpdate)
		n.printf("  tlb update of vpn 0x%04x with pfn 0x%02x\n",
			update.VPN, update.PFN)
	case translator.HookPosUseVectorShift:
		n.printf("shift use vectors\n")
	}
}

func (n *Narrator) printf(format string, args ...interface{}) {
	_, err := fmt.Fprintf(n.writer, format, args...)
	if err != nil {
		panic(err)
	}
}
