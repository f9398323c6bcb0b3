package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/pagesim/vm/translator"
)

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		tracer   *DBTracer
		tr       *translator.Translator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)

		recorder.EXPECT().CreateTable(AccessTable, accessEntry{})
		recorder.EXPECT().CreateTable(MalformedTable, malformedEntry{})
		recorder.EXPECT().CreateTable(SummaryTable, summaryEntry{})

		tracer = NewDBTracer(recorder)

		tr = translator.MakeBuilder().
			WithNumFrames(1).
			WithNumTLBEntries(1).
			WithObservationPeriod(2).
			Build("Translator")
		tr.AcceptHook(tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record a page fault on a free frame", func() {
		recorder.EXPECT().InsertData(AccessTable, accessEntry{
			Translator: "Translator",
			Number:     1,
			VA:         0x000123,
			VPN:        0x0001,
			PFN:        0,
			PA:         0x23,
			Outcome:    "page_fault",
			FreeFrame:  true,
			TLBSlot:    0,
		})

		_, err := tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should record evictions and decays", func() {
		gomock.InOrder(
			recorder.EXPECT().InsertData(AccessTable, gomock.Any()),
			recorder.EXPECT().InsertData(AccessTable, accessEntry{
				Translator: "Translator",
				Number:     2,
				VA:         0x000245,
				VPN:        0x0002,
				PFN:        0,
				PA:         0x45,
				Outcome:    "page_fault",
				Evicted:    true,
				EvictedVPN: 0x0001,
				TLBSlot:    0,
				Decayed:    true,
			}),
		)

		_, err := tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())
		_, err = tr.Translate(0x000245)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should record malformed values", func() {
		gomock.InOrder(
			recorder.EXPECT().InsertData(AccessTable, gomock.Any()),
			recorder.EXPECT().InsertData(MalformedTable, malformedEntry{
				Translator:    "Translator",
				Value:         0x1000000,
				Bits:          25,
				AfterAccesses: 1,
			}),
		)

		_, err := tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())
		_, err = tr.Translate(0x1000000)
		Expect(err).To(HaveOccurred())
	})

	It("should summarize a translator", func() {
		recorder.EXPECT().InsertData(AccessTable, gomock.Any()).Times(2)
		recorder.EXPECT().InsertData(SummaryTable, summaryEntry{
			Translator:        "Translator",
			NumFrames:         1,
			NumTLBEntries:     1,
			ObservationPeriod: 2,
			Accesses:          2,
			TLBMisses:         1,
			PageFaults:        1,
		})

		_, err := tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())
		_, err = tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())

		tracer.Summarize(tr)
	})

	It("should flush once and drop later records", func() {
		recorder.EXPECT().Flush().Times(1)

		tracer.Terminate()
		tracer.Terminate()

		_, err := tr.Translate(0x000123)
		Expect(err).NotTo(HaveOccurred())
	})
})
