// Package tracing records what happens during a simulation into a database.
package tracing

import (
	"errors"
	"sync"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/translator"
	"github.com/tebeka/atexit"
)

// Table names used by the DBTracer.
const (
	AccessTable    = "access"
	MalformedTable = "malformed"
	SummaryTable   = "summary"
)

type accessEntry struct {
	Translator string
	Number     uint64
	VA         uint64
	VPN        uint16
	PFN        uint8
	PA         uint64
	Outcome    string
	FreeFrame  bool
	Evicted    bool
	EvictedVPN uint16
	TLBSlot    int
	Decayed    bool
}

type malformedEntry struct {
	Translator    string
	Value         uint64
	Bits          int
	AfterAccesses uint64
}

type summaryEntry struct {
	Translator        string
	NumFrames         int
	NumTLBEntries     int
	ObservationPeriod uint64
	Accesses          uint64
	TLBMisses         uint64
	PageFaults        uint64
}

// DBTracer is a hook that stores every access of a translator into a
// DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	terminated bool
}

// NewDBTracer creates a new DBTracer and the tables it writes to.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(AccessTable, accessEntry{})
	dataRecorder.CreateTable(MalformedTable, malformedEntry{})
	dataRecorder.CreateTable(SummaryTable, summaryEntry{})

	t := &DBTracer{
		backend: dataRecorder,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// Func records the access when it ends, and every malformed value.
func (t *DBTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case translator.HookPosAccessEnd:
		t.recordAccess(ctx)
	case translator.HookPosMalformed:
		t.recordMalformed(ctx)
	}
}

func (t *DBTracer) recordAccess(ctx hooking.HookCtx) {
	access, ok := ctx.Item.(*translator.Access)
	if !ok {
		return
	}

	entry := accessEntry{
		Translator: domainName(ctx.Domain),
		Number:     access.Number,
		VA:         access.VA,
		VPN:        uint16(access.VPN),
		PFN:        uint8(access.PFN),
		PA:         access.PA,
		Outcome:    access.Outcome.String(),
		FreeFrame:  access.FreeFrame,
		Evicted:    access.Evicted,
		EvictedVPN: uint16(access.EvictedVPN),
		TLBSlot:    access.TLBSlot,
		Decayed:    access.Decayed,
	}

	t.insert(AccessTable, entry)
}

func (t *DBTracer) recordMalformed(ctx hooking.HookCtx) {
	value, _ := ctx.Item.(uint64)
	entry := malformedEntry{
		Translator: domainName(ctx.Domain),
		Value:      value,
		Bits:       vm.SignificantBits(value),
	}

	var malformed *vm.MalformedAddressError
	if err, ok := ctx.Detail.(error); ok && errors.As(err, &malformed) {
		entry.Value = malformed.Value
		entry.Bits = malformed.Bits
	}

	if tr, ok := ctx.Domain.(*translator.Translator); ok {
		entry.AfterAccesses = tr.Statistics().Accesses
	}

	t.insert(MalformedTable, entry)
}

// Summarize records the final counters and the configuration of a
// translator.
func (t *DBTracer) Summarize(tr *translator.Translator) {
	stats := tr.Statistics()

	t.insert(SummaryTable, summaryEntry{
		Translator:        tr.Name(),
		NumFrames:         tr.CoreMap().NumFrames(),
		NumTLBEntries:     tr.TLB().NumEntries(),
		ObservationPeriod: tr.ObservationPeriod(),
		Accesses:          stats.Accesses,
		TLBMisses:         stats.TLBMisses,
		PageFaults:        stats.PageFaults,
	})
}

// Terminate flushes everything recorded so far. Later records are dropped.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true
	t.backend.Flush()
}

func (t *DBTracer) insert(table string, entry any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.backend.InsertData(table, entry)
}

type named interface {
	Name() string
}

func domainName(domain hooking.Hookable) string {
	if n, ok := domain.(named); ok {
		return n.Name()
	}

	return ""
}
