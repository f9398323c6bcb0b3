package simulation

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/config"
	"github.com/sarchlab/pagesim/vm/translator"
)

const scenarioATrace = "000000\n000100\n000000\n"

const scenarioBTrace = "000000\n000100\n000200\n000300\n000000\n"

func scenarioAConfig() config.Config {
	return config.Config{
		NumFrames:         1,
		NumTLBEntries:     1,
		ObservationPeriod: 100,
	}
}

func scenarioBConfig() config.Config {
	return config.Config{
		NumFrames:         4,
		NumTLBEntries:     4,
		ObservationPeriod: 1000,
	}
}

var _ = Describe("Simulation", func() {
	var (
		out *bytes.Buffer
		s   *Simulation
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		s = nil
	})

	AfterEach(func() {
		if s != nil {
			Expect(s.Terminate(context.Background())).To(Succeed())
		}
	})

	build := func(b Builder) *Simulation {
		sim, err := b.WithOutput(out).Build()
		Expect(err).NotTo(HaveOccurred())

		return sim
	}

	It("should refill a single frame on every access", func() {
		s = build(MakeBuilder().WithConfig(scenarioAConfig()))

		stats, err := s.Run(context.Background(),
			strings.NewReader(scenarioATrace), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(translator.Statistics{
			Accesses:   3,
			TLBMisses:  3,
			PageFaults: 3,
		}))
		Expect(out.String()).To(Equal("statistics\n" +
			"  accesses    = 3\n" +
			"  tlb misses  = 3\n" +
			"  page faults = 3\n" +
			"\n"))
	})

	It("should hit the TLB when a page is revisited", func() {
		s = build(MakeBuilder().WithConfig(scenarioBConfig()))

		stats, err := s.Run(context.Background(),
			strings.NewReader(scenarioBTrace), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(translator.Statistics{
			Accesses:   5,
			TLBMisses:  4,
			PageFaults: 4,
		}))
	})

	It("should narrate every access in verbose mode", func() {
		s = build(MakeBuilder().
			WithConfig(scenarioAConfig()).
			WithVerbose(true))

		_, err := s.Run(context.Background(),
			strings.NewReader(scenarioATrace), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("paging simulation\n" +
			"  65536 virtual pages in the virtual address space\n" +
			"  1 physical page frames\n" +
			"  1 TLB entries\n" +
			"  use vectors in core map are shifted every 100 accesses\n\n" +
			"access 1:\n" +
			"  virtual address is              0x000000\n" +
			"  tlb miss\n" +
			"  page fault\n" +
			"  unused page frame allocated\n" +
			"  physical address is               0x0000\n" +
			"  tlb update of vpn 0x0000 with pfn 0x00\n" +
			"access 2:\n" +
			"  virtual address is              0x000100\n" +
			"  tlb miss\n" +
			"  page fault\n" +
			"  page replacement needed\n" +
			"  replace frame 0\n" +
			"  TLB invalidate of vpn 0x0\n" +
			"  physical address is               0x0000\n" +
			"  tlb update of vpn 0x0001 with pfn 0x00\n" +
			"access 3:\n" +
			"  virtual address is              0x000000\n" +
			"  tlb miss\n" +
			"  page fault\n" +
			"  page replacement needed\n" +
			"  replace frame 0\n" +
			"  TLB invalidate of vpn 0x1\n" +
			"  physical address is               0x0000\n" +
			"  tlb update of vpn 0x0000 with pfn 0x00\n" +
			"\n" +
			"statistics\n" +
			"  accesses    = 3\n" +
			"  tlb misses  = 3\n" +
			"  page faults = 3\n" +
			"\ntlb\n" +
			"  valid = 1, vpn = 0x0000, pfn = 0x00\n" +
			"\ncore map table\n" +
			"  pfn = 0x00: valid = 1, use vector = 0x80, vpn = 0x0000\n" +
			"\nfirst ten entries of page table\n" +
			"  vpn = 0x0000: presence = 1, pfn = 0x00\n" +
			"  vpn = 0x0001: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0002: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0003: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0004: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0005: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0006: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0007: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0008: presence = 0, pfn = 0x00\n" +
			"  vpn = 0x0009: presence = 0, pfn = 0x00\n" +
			"\n"))
	})

	It("should dump the tables on a malformed value and continue", func() {
		s = build(MakeBuilder().WithConfig(config.Config{
			NumFrames:         2,
			NumTLBEntries:     2,
			ObservationPeriod: 8,
		}))

		stats, err := s.Run(context.Background(),
			strings.NewReader("000100\n1000000\n000100\n"), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.NumMalformed()).To(Equal(1))
		Expect(stats).To(Equal(translator.Statistics{
			Accesses:   2,
			TLBMisses:  1,
			PageFaults: 1,
		}))
		Expect(out.String()).To(HavePrefix("\nstatistics\n" +
			"  accesses    = 1\n" +
			"  tlb misses  = 1\n" +
			"  page faults = 1\n" +
			"\ntlb\n" +
			"  valid = 1, vpn = 0x0001, pfn = 0x00\n"))
		Expect(out.String()).To(ContainSubstring(
			"  vpn = 0x0009: presence = 0, pfn = 0x00\n\n" +
				"statistics\n"))
		Expect(out.String()).To(HaveSuffix("statistics\n" +
			"  accesses    = 2\n" +
			"  tlb misses  = 1\n" +
			"  page faults = 1\n" +
			"\n"))
	})

	It("should skip lines without a value", func() {
		s = build(MakeBuilder().WithConfig(scenarioBConfig()))

		stats, err := s.Run(context.Background(),
			strings.NewReader("zzz\n\n000100\n"), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.NumSkipped()).To(Equal(2))
		Expect(stats.Accesses).To(Equal(uint64(1)))
	})

	It("should keep the tables consistent when checking", func() {
		s = build(MakeBuilder().
			WithConfig(scenarioAConfig()).
			WithConsistencyCheck(true))

		_, err := s.Run(context.Background(),
			strings.NewReader(scenarioATrace+scenarioBTrace), 0)

		Expect(err).NotTo(HaveOccurred())
	})

	It("should stop when the context is cancelled", func() {
		s = build(MakeBuilder().WithConfig(scenarioBConfig()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Run(ctx, strings.NewReader(scenarioBTrace), 0)

		Expect(err).To(MatchError(context.Canceled))
		Expect(out.String()).To(BeEmpty())
	})

	It("should stop while waiting for input when cancelled", func() {
		s = build(MakeBuilder().WithConfig(scenarioBConfig()))

		pr, pw := io.Pipe()
		defer pw.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			defer GinkgoRecover()

			_, err := pw.Write([]byte("000100\n"))
			Expect(err).NotTo(HaveOccurred())
			cancel()
		}()

		stats, err := s.Run(ctx, pr, 0)

		Expect(err).To(MatchError(context.Canceled))
		Expect(stats.Accesses).To(BeNumerically("<=", 1))
		Expect(out.String()).To(BeEmpty())
	})

	It("should read past a line longer than the read buffer", func() {
		s = build(MakeBuilder().WithConfig(scenarioBConfig()))

		input := "000100\n000200 " + strings.Repeat("x", 70000) + "\n000300\n"
		stats, err := s.Run(context.Background(), strings.NewReader(input), 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Accesses).To(Equal(uint64(3)))
		Expect(stats.PageFaults).To(Equal(uint64(3)))
	})

	It("should reject an invalid configuration", func() {
		_, err := MakeBuilder().
			WithConfig(config.Config{
				NumFrames:         0,
				NumTLBEntries:     1,
				ObservationPeriod: 1,
			}).
			Build()

		Expect(err).To(MatchError(config.ErrConfigInvalid))
	})

	It("should not allow a monitor port without monitoring", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	It("should not allow an output file name without recording", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithOutputFileName("x").Build()
		}).To(Panic())
	})

	It("should record accesses into a database", func() {
		path := filepath.Join(GinkgoT().TempDir(), "recording")

		s = build(MakeBuilder().
			WithConfig(scenarioBConfig()).
			WithRecording().
			WithOutputFileName(path))

		_, err := s.Run(context.Background(),
			strings.NewReader(scenarioBTrace+"1000000\n"), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Terminate(context.Background())).To(Succeed())

		db, err := sql.Open("sqlite3", path+".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		var count int
		Expect(db.QueryRow("SELECT COUNT(*) FROM access").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(5))

		Expect(db.QueryRow("SELECT COUNT(*) FROM malformed").
			Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))

		var faults int
		Expect(db.QueryRow("SELECT PageFaults FROM summary").
			Scan(&faults)).To(Succeed())
		Expect(faults).To(Equal(4))
	})

	It("should serve the statistics while monitoring", func() {
		s = build(MakeBuilder().
			WithConfig(scenarioBConfig()).
			WithMonitoring())

		Expect(s.MonitorURL()).To(HavePrefix("http://localhost:"))

		_, err := s.Run(context.Background(),
			strings.NewReader(scenarioBTrace), uint64(len(scenarioBTrace)))
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(s.MonitorURL() + "/api/stats")
		Expect(err).NotTo(HaveOccurred())

		body, err := io.ReadAll(rsp.Body)
		rsp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"accesses":5`))
	})
})
