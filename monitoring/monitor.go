// Package monitoring turns a running simulation into a web server so that
// the tables and counters can be inspected while the trace is processed.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/pagesim/monitoring/web"
	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/translator"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// A Component is anything that can be looked up by name.
type Component interface {
	Name() string
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	portNumber int
	locker     sync.Locker
	translator *translator.Translator
	components []Component

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		slog.Warn("port number not allowed for the monitoring server, "+
			"using a random port instead", "port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLocker sets the lock that is held while the monitor reads the tables.
// The simulation must hold the same lock while it changes them.
func (m *Monitor) WithLocker(l sync.Locker) *Monitor {
	m.locker = l
	return m
}

// RegisterTranslator registers a translator and its tables as components.
func (m *Monitor) RegisterTranslator(t *translator.Translator) {
	m.translator = t

	m.RegisterComponent(t)
	m.RegisterComponent(t.TLB())
	m.RegisterComponent(t.CoreMap())
}

// RegisterComponent register a component to be monitored.
func (m *Monitor) RegisterComponent(c Component) {
	m.components = append(m.components, c)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the monitoring API and pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/tables", m.tables)
	r.HandleFunc("/api/page/{vpn}", m.page)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	slog.Info("monitoring simulation", "url", url)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return url
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) lock() {
	if m.locker != nil {
		m.locker.Lock()
	}
}

func (m *Monitor) unlock() {
	if m.locker != nil {
		m.locker.Unlock()
	}
}

type statsRsp struct {
	Name              string `json:"name"`
	NumFrames         int    `json:"num_frames"`
	NumTLBEntries     int    `json:"num_tlb_entries"`
	ObservationPeriod uint64 `json:"observation_period"`
	Accesses          uint64 `json:"accesses"`
	TLBMisses         uint64 `json:"tlb_misses"`
	PageFaults        uint64 `json:"page_faults"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	if !m.translatorMustBeRegistered(w) {
		return
	}

	m.lock()
	stats := m.translator.Statistics()
	m.unlock()

	rsp := statsRsp{
		Name:              m.translator.Name(),
		NumFrames:         m.translator.CoreMap().NumFrames(),
		NumTLBEntries:     m.translator.TLB().NumEntries(),
		ObservationPeriod: m.translator.ObservationPeriod(),
		Accesses:          stats.Accesses,
		TLBMisses:         stats.TLBMisses,
		PageFaults:        stats.PageFaults,
	}

	writeJSON(w, rsp)
}

type tlbEntryRsp struct {
	Valid bool   `json:"valid"`
	VPN   vm.VPN `json:"vpn"`
	PFN   vm.PFN `json:"pfn"`
}

type frameRsp struct {
	Valid     bool   `json:"valid"`
	UseVector uint8  `json:"use_vector"`
	VPN       vm.VPN `json:"vpn"`
}

type tablesRsp struct {
	TLB     []tlbEntryRsp `json:"tlb"`
	CoreMap []frameRsp    `json:"core_map"`
}

func (m *Monitor) tables(w http.ResponseWriter, _ *http.Request) {
	if !m.translatorMustBeRegistered(w) {
		return
	}

	rsp := tablesRsp{}

	m.lock()
	for _, e := range m.translator.TLB().Entries() {
		rsp.TLB = append(rsp.TLB,
			tlbEntryRsp{Valid: e.Valid, VPN: e.VPN, PFN: e.PFN})
	}

	for _, e := range m.translator.CoreMap().Entries() {
		rsp.CoreMap = append(rsp.CoreMap,
			frameRsp{Valid: e.Valid, UseVector: e.UseVector, VPN: e.VPN})
	}
	m.unlock()

	writeJSON(w, rsp)
}

type pageRsp struct {
	VPN     vm.VPN `json:"vpn"`
	Present bool   `json:"present"`
	PFN     vm.PFN `json:"pfn"`
}

func (m *Monitor) page(w http.ResponseWriter, r *http.Request) {
	if !m.translatorMustBeRegistered(w) {
		return
	}

	vpn, err := strconv.ParseUint(mux.Vars(r)["vpn"], 0, vm.VPNBits)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.lock()
	pte := m.translator.PageTable().Entry(vm.VPN(vpn))
	m.unlock()

	writeJSON(w, pageRsp{VPN: vm.VPN(vpn), Present: pte.Present, PFN: pte.PFN})
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, c := range m.components {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", c.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	m.lock()
	defer m.unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Component {
	var component Component
	for _, c := range m.components {
		if c.Name() == name {
			component = c
		}
	}

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

func (m *Monitor) translatorMustBeRegistered(w http.ResponseWriter) bool {
	if m.translator != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, err := w.Write([]byte("No translator registered"))
	dieOnErr(err)

	return false
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
