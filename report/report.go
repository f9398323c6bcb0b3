// Package report prints the human-readable output of a paging simulation:
// the banner, the per-access narration, the statistics, and the table dumps.
package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/coremap"
	"github.com/sarchlab/pagesim/vm/tlb"
	"github.com/sarchlab/pagesim/vm/translator"
)

// NumPageTableEntriesShown is the number of leading page table entries the
// table dumps include.
const NumPageTableEntriesShown = 10

// Parameters are the simulation parameters shown in the banner.
type Parameters struct {
	NumFrames         int
	NumTLBEntries     int
	ObservationPeriod uint64
}

// WriteBanner prints the simulation parameters.
func WriteBanner(w io.Writer, p Parameters) error {
	_, err := fmt.Fprintf(w,
		"paging simulation\n"+
			"  %d virtual pages in the virtual address space\n"+
			"  %d physical page frames\n"+
			"  %d TLB entries\n"+
			"  use vectors in core map are shifted every %d accesses\n\n",
		vm.NumPages, p.NumFrames, p.NumTLBEntries, p.ObservationPeriod)

	return err
}

// WriteStatistics prints the counters of a run.
func WriteStatistics(w io.Writer, s translator.Statistics) error {
	_, err := fmt.Fprintf(w,
		"statistics\n"+
			"  accesses    = %d\n"+
			"  tlb misses  = %d\n"+
			"  page faults = %d\n",
		s.Accesses, s.TLBMisses, s.PageFaults)

	return err
}

// WriteTLB prints every TLB slot.
func WriteTLB(w io.Writer, entries []tlb.Entry) error {
	ew := &errWriter{w: w}

	ew.printf("\ntlb\n")
	for _, e := range entries {
		ew.printf("  valid = %x, vpn = 0x%04x, pfn = 0x%02x\n",
			boolToInt(e.Valid), e.VPN, e.PFN)
	}

	return ew.err
}

// WriteCoreMap prints every frame of the core map.
func WriteCoreMap(w io.Writer, entries []coremap.Entry) error {
	ew := &errWriter{w: w}

	ew.printf("\ncore map table\n")
	for i, e := range entries {
		ew.printf(
			"  pfn = 0x%02x: valid = %d, use vector = 0x%02x, vpn = 0x%04x\n",
			i, boolToInt(e.Valid), e.UseVector, e.VPN)
	}

	return ew.err
}

// WritePageTable prints the leading entries of the page table.
func WritePageTable(w io.Writer, pt vm.PageTable) error {
	ew := &errWriter{w: w}

	ew.printf("\nfirst ten entries of page table\n")
	for i := 0; i < NumPageTableEntriesShown && i < pt.NumEntries(); i++ {
		pte := pt.Entry(vm.VPN(i))
		ew.printf("  vpn = 0x%04x: presence = %d, pfn = 0x%02x\n",
			i, boolToInt(pte.Present), pte.PFN)
	}

	return ew.err
}

// WriteTables prints the TLB, the core map, and the page table of a
// translator.
func WriteTables(w io.Writer, t *translator.Translator) error {
	if err := WriteTLB(w, t.TLB().Entries()); err != nil {
		return err
	}

	if err := WriteCoreMap(w, t.CoreMap().Entries()); err != nil {
		return err
	}

	return WritePageTable(w, t.PageTable())
}

// WriteDump prints the statistics and every table, framed by blank lines.
func WriteDump(w io.Writer, t *translator.Translator) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if err := WriteStatistics(w, t.Statistics()); err != nil {
		return err
	}

	if err := WriteTables(w, t); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)

	return err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
