package report

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/vm/translator"
)

var _ = Describe("Report", func() {
	var (
		buf *bytes.Buffer
		t   *translator.Translator
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		t = translator.MakeBuilder().
			WithNumFrames(2).
			WithNumTLBEntries(2).
			WithObservationPeriod(8).
			Build("Translator")
	})

	It("should write the banner", func() {
		Expect(WriteBanner(buf, Parameters{
			NumFrames:         2,
			NumTLBEntries:     2,
			ObservationPeriod: 8,
		})).To(Succeed())

		Expect(buf.String()).To(Equal("paging simulation\n" +
			"  65536 virtual pages in the virtual address space\n" +
			"  2 physical page frames\n" +
			"  2 TLB entries\n" +
			"  use vectors in core map are shifted every 8 accesses\n\n"))
	})

	It("should write the statistics", func() {
		Expect(WriteStatistics(buf, translator.Statistics{
			Accesses:   12,
			TLBMisses:  5,
			PageFaults: 3,
		})).To(Succeed())

		Expect(buf.String()).To(Equal("statistics\n" +
			"  accesses    = 12\n" +
			"  tlb misses  = 5\n" +
			"  page faults = 3\n"))
	})

	It("should write the tables", func() {
		_, err := t.Translate(0x000150)
		Expect(err).NotTo(HaveOccurred())

		Expect(WriteTables(buf, t)).To(Succeed())

		Expect(buf.String()).To(Equal("\ntlb\n" +
			"  valid = 1, vpn = 0x0001, pfn = 0x00\n" +
			"  valid = 0, vpn = 0x0000, pfn = 0x00\n" +
			"\ncore map table\n" +
			"  pfn = 0x00: valid = 1, use vector = 0x80, vpn = 0x0001\n" +
			"  pfn = 0x01: valid = 0, use vector = 0x00, vpn = 0x0000\n" +
			"\nfirst ten entries of page table\n" +
			"  vpn = 0x0000: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0001: presence = 1, pfn = 0x00\n" +
			"  vpn = 0x0002: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0003: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0004: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0005: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0006: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0007: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0008: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0009: presence = 0, pfn = 0x00\n"))
	})

	It("should frame the dump with blank lines", func() {
		Expect(WriteDump(buf, t)).To(Succeed())

		out := buf.String()
		Expect(out).To(HavePrefix("\nstatistics\n  accesses    = 0\n"))
		Expect(out).To(ContainSubstring("\ntlb\n"))
		Expect(out).To(ContainSubstring("\ncore map table\n"))
		Expect(out).To(HaveSuffix("pfn = 0x00\n\n"))
	})

	Context("narrator", func() {
		BeforeEach(func() {
			t.AcceptHook(NewNarrator(buf))
		})

		It("should narrate a fault on a free frame", func() {
			_, err := t.Translate(0x000123)
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).To(Equal("access 1:\n" +
				"  virtual address is              0x000123\n" +
				"  tlb miss\n" +
				"  page fault\n" +
				"  unused page frame allocated\n" +
				"  physical address is               0x0023\n" +
				"  tlb update of vpn 0x0001 with pfn 0x00\n"))
		})

		It("should narrate TLB hits, page hits, and replacements", func() {
			for _, va := range []uint64{0x000000, 0x000100, 0x000200} {
				_, err := t.Translate(va)
				Expect(err).NotTo(HaveOccurred())
			}
			buf.Reset()

			_, err := t.Translate(0x000210)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("access 4:\n" +
				"  virtual address is              0x000210\n" +
				"  tlb hit, physical address is      0x0010\n"))
		})

		It("should narrate a replacement", func() {
			for _, va := range []uint64{0x000000, 0x000100} {
				_, err := t.Translate(va)
				Expect(err).NotTo(HaveOccurred())
			}
			buf.Reset()

			_, err := t.Translate(0x000277)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("access 3:\n" +
				"  virtual address is              0x000277\n" +
				"  tlb miss\n" +
				"  page fault\n" +
				"  page replacement needed\n" +
				"  replace frame 0\n" +
				"  TLB invalidate of vpn 0x0\n" +
				"  physical address is               0x0077\n" +
				"  tlb update of vpn 0x0002 with pfn 0x00\n"))
		})

		It("should narrate page hits and use vector shifts", func() {
			t = translator.MakeBuilder().
				WithNumFrames(2).
				WithNumTLBEntries(1).
				WithObservationPeriod(3).
				Build("Translator")
			t.AcceptHook(NewNarrator(buf))

			for _, va := range []uint64{0x000000, 0x000100} {
				_, err := t.Translate(va)
				Expect(err).NotTo(HaveOccurred())
			}
			buf.Reset()

			_, err := t.Translate(0x000005)
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal("access 3:\n" +
				"  virtual address is              0x000005\n" +
				"  tlb miss\n" +
				"  page hit, physical address is     0x0005\n" +
				"  tlb update of vpn 0x0000 with pfn 0x00\n" +
				"shift use vectors\n"))
		})

		It("should ignore malformed values", func() {
			_, err := t.Translate(0x1ffffff)
			Expect(err).To(HaveOccurred())
			Expect(buf.String()).To(BeEmpty())
		})
	})
})
