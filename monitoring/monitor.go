// Package monitoring turns a running simulation into a web server that
// reports the statistics while the trace is being replayed.
package monitoring

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/goccy/go-json"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/dirsim/cache"
	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/monitoring/web"
	"github.com/sarchlab/dirsim/simulator"
)

// DefaultStatsInterval is the period of the live statistics stream.
const DefaultStatsInterval = time.Second

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
type Monitor struct {
	sim           *simulator.Simulator
	portNumber    int
	statsInterval time.Duration
	openBrowser   bool
	hub           *statsHub
	server        *http.Server
	stopStream    chan struct{}

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statsInterval: DefaultStatsInterval,
		hub:           newStatsHub(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithStatsInterval sets how often the statistics are pushed to the
// websocket clients.
func (m *Monitor) WithStatsInterval(d time.Duration) *Monitor {
	m.statsInterval = d
	return m
}

// WithOpenBrowser makes StartServer open the dashboard in a browser.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterSimulator registers the simulator to report.
func (m *Monitor) RegisterSimulator(s *simulator.Simulator) {
	m.sim = s
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

// Router returns the handler that serves the dashboard and the API.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/report", m.report)
	r.HandleFunc("/api/processors", m.listProcessors)
	r.HandleFunc("/api/summary", m.summary)
	r.HandleFunc("/api/directory/{addr}", m.directoryLine)
	r.HandleFunc("/api/cache/{pid}", m.cacheDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/ws/stats", m.streamStats)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the address of the dashboard.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{Handler: m.Router()}
	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	if m.statsInterval > 0 {
		m.stopStream = make(chan struct{})
		go m.streamPeriodically(m.stopStream)
	}

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			log.Printf("monitor: cannot open browser: %v", err)
		}
	}

	return url
}

// StopServer closes the web server, the statistics stream and all the
// websocket clients. The monitor cannot be restarted.
func (m *Monitor) StopServer() {
	if m.stopStream != nil {
		close(m.stopStream)
		m.stopStream = nil
	}

	if m.server != nil {
		err := m.server.Close()
		if err != nil {
			log.Printf("monitor: closing server: %v", err)
		}

		m.server = nil
	}

	m.hub.stop()
}

func (m *Monitor) streamPeriodically(stop <-chan struct{}) {
	ticker := time.NewTicker(m.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.BroadcastStats()
		}
	}
}

// BroadcastStats sends the current summary to all the websocket clients.
// It returns false if the message was dropped.
func (m *Monitor) BroadcastStats() bool {
	if m.sim == nil {
		return false
	}

	data, err := json.Marshal(m.collectSummary())
	dieOnErr(err)

	return m.hub.send(data)
}

func (m *Monitor) simulatorOr503(w http.ResponseWriter) bool {
	if m.sim != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, err := w.Write([]byte("No simulator registered"))
	dieOnErr(err)

	return false
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) report(w http.ResponseWriter, _ *http.Request) {
	if !m.simulatorOr503(w) {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err := m.sim.WriteReport(w)
	dieOnErr(err)
}

// ProcessorRsp is the state of one processor.
type ProcessorRsp struct {
	PID         uint32 `json:"pid"`
	Attached    int    `json:"attached"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Cycles      uint64 `json:"cycles"`
	Hops        uint64 `json:"hops"`
	CachedLines int    `json:"cached_lines"`
}

func (m *Monitor) listProcessors(w http.ResponseWriter, _ *http.Request) {
	if !m.simulatorOr503(w) {
		return
	}

	attached := m.sim.Attached()
	snapshot := m.sim.Snapshot()

	rsp := make([]ProcessorRsp, len(snapshot.Processors))
	for pid, s := range snapshot.Processors {
		rsp[pid] = ProcessorRsp{
			PID:       uint32(pid),
			Attached:  attached[pid],
			Hits:      s.Hits(),
			Misses:    s.Misses(),
			Evictions: s.Evict.Misses,
			Cycles:    s.Cycles(),
			Hops:      s.Hops(),
		}
	}

	m.sim.Inspect(func(ctrl *controller.Controller) {
		for i := range rsp {
			rsp[i].CachedLines = ctrl.Cache(rsp[i].PID).CachedLines()
		}
	})

	m.writeJSON(w, rsp)
}

// SummaryRsp aggregates the statistics of all the processors.
type SummaryRsp struct {
	NumProcessors  uint32  `json:"num_processors"`
	Accesses       uint64  `json:"accesses"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	Evictions      uint64  `json:"evictions"`
	HitRate        float64 `json:"hit_rate"`
	TotalCycles    uint64  `json:"total_cycles"`
	TotalHops      uint64  `json:"total_hops"`
	MeanCycles     float64 `json:"mean_cycles"`
	StdDevCycles   float64 `json:"stddev_cycles"`
	DirectoryLines int     `json:"directory_lines"`
	Detector       bool    `json:"detector"`
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	if !m.simulatorOr503(w) {
		return
	}

	m.writeJSON(w, m.collectSummary())
}

func (m *Monitor) collectSummary() SummaryRsp {
	snapshot := m.sim.Snapshot()

	rsp := SummaryRsp{
		NumProcessors: m.sim.NumProcessors(),
		Accesses:      m.sim.NumAccesses(),
	}

	cycles := make([]float64, len(snapshot.Processors))
	for pid, s := range snapshot.Processors {
		rsp.Hits += s.Hits()
		rsp.Misses += s.Misses()
		rsp.Evictions += s.Evict.Misses
		rsp.TotalCycles += s.Cycles()
		rsp.TotalHops += s.Hops()
		cycles[pid] = float64(s.Cycles())
	}

	if total := rsp.Hits + rsp.Misses; total > 0 {
		rsp.HitRate = float64(rsp.Hits) / float64(total)
	}

	rsp.MeanCycles, rsp.StdDevCycles = stat.MeanStdDev(cycles, nil)
	rsp.MeanCycles = finiteOrZero(rsp.MeanCycles)
	rsp.StdDevCycles = finiteOrZero(rsp.StdDevCycles)

	m.sim.Inspect(func(ctrl *controller.Controller) {
		rsp.DirectoryLines = ctrl.Directory().NumLines()
		rsp.Detector = ctrl.Directory().DetectorEnabled()
	})

	return rsp
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}

// DirectoryLineRsp is the coherence state of one memory line.
type DirectoryLineRsp struct {
	Address    string           `json:"address"`
	Home       uint32           `json:"home"`
	State      string           `json:"state"`
	Sharers    []uint32         `json:"sharers"`
	Owner      *uint32          `json:"owner,omitempty"`
	LastWriter *uint32          `json:"last_writer,omitempty"`
	ReadCounts map[uint32]uint8 `json:"read_counts,omitempty"`
}

func (m *Monitor) directoryLine(w http.ResponseWriter, r *http.Request) {
	if !m.simulatorOr503(w) {
		return
	}

	addr, err := strconv.ParseUint(mux.Vars(r)["addr"], 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	var rsp *DirectoryLineRsp

	m.sim.Inspect(func(ctrl *controller.Controller) {
		dir := ctrl.Directory()

		line, ok := dir.Lookup(addr)
		if !ok {
			return
		}

		rsp = describeLine(dir, line, addr)
	})

	if rsp == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err = w.Write([]byte("Line not found"))
		dieOnErr(err)

		return
	}

	m.writeJSON(w, rsp)
}

func describeLine(
	dir *coherence.Directory,
	line *coherence.DirectoryLine,
	addr uint64,
) *DirectoryLineRsp {
	rsp := &DirectoryLineRsp{
		Address: fmt.Sprintf("0x%x", dir.LineAddress(addr)),
		Home:    dir.HomeNode(addr),
		State:   line.State.String(),
		Sharers: line.Sharers.PIDs(),
	}

	if line.State == coherence.Modified {
		owner := line.Owner()
		rsp.Owner = &owner
	}

	if line.LastWriter != coherence.NoProcessor {
		lastWriter := line.LastWriter
		rsp.LastWriter = &lastWriter
	}

	for pid := uint32(0); pid < dir.NumProcessors(); pid++ {
		if n := line.Readers.Count(pid); n > 0 {
			if rsp.ReadCounts == nil {
				rsp.ReadCounts = make(map[uint32]uint8)
			}

			rsp.ReadCounts[pid] = n
		}
	}

	return rsp
}

// cacheView leaves out the links from a cache back to the controller.
type cacheView struct {
	PID           uint32
	NumSets       int
	Associativity int
	CachedLines   int
	Sets          []cache.Set
}

func (m *Monitor) cacheDetails(w http.ResponseWriter, r *http.Request) {
	if !m.simulatorOr503(w) {
		return
	}

	pid, err := strconv.ParseUint(mux.Vars(r)["pid"], 10, 32)
	if err != nil || uint32(pid) >= m.sim.NumProcessors() {
		w.WriteHeader(http.StatusNotFound)
		_, err = w.Write([]byte("Processor not found"))
		dieOnErr(err)

		return
	}

	buf := bytes.NewBuffer(nil)

	m.sim.Inspect(func(ctrl *controller.Controller) {
		c := ctrl.Cache(uint32(pid))
		view := &cacheView{
			PID:           c.PID(),
			NumSets:       c.NumSets(),
			Associativity: c.Associativity(),
			CachedLines:   c.CachedLines(),
			Sets:          c.Sets,
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(view)
		serializer.SetMaxDepth(5)
		err = serializer.Serialize(buf)
	})

	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	views := make([]ProgressView, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		views = append(views, b.View())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, views)
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

	m.writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) streamStats(w http.ResponseWriter, r *http.Request) {
	var first []byte

	if m.sim != nil {
		data, err := json.Marshal(m.collectSummary())
		dieOnErr(err)

		first = data
	}

	m.hub.handle(w, r, first)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
