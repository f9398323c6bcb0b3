package translator

import (
	"errors"
	"fmt"

	"github.com/sarchlab/pagesim/vm"
)

// ErrInconsistent is wrapped by the errors of CheckConsistency.
var ErrInconsistent = errors.New("translation tables are inconsistent")

// CheckConsistency verifies that every used frame and every valid TLB slot
// agree with the page table.
func (t *Translator) CheckConsistency() error {
	for i, e := range t.coreMap.Entries() {
		if !e.Valid {
			continue
		}

		pte := t.pageTable.Entry(e.VPN)
		if !pte.Present || pte.PFN != vm.PFN(i) {
			return fmt.Errorf(
				"%w: frame %d holds vpn 0x%04x, page table has %+v",
				ErrInconsistent, i, e.VPN, pte)
		}
	}

	for i, e := range t.tlb.Entries() {
		if !e.Valid {
			continue
		}

		pte := t.pageTable.Entry(e.VPN)
		if !pte.Present || pte.PFN != e.PFN {
			return fmt.Errorf(
				"%w: tlb slot %d maps vpn 0x%04x to pfn 0x%02x, "+
					"page table has %+v",
				ErrInconsistent, i, e.VPN, e.PFN, pte)
		}
	}

	return nil
}
