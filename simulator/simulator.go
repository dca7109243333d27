// Package simulator wraps a controller into a facade that is safe to call
// from many goroutines and that maps threads to processors.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/profile"
)

var (
	// ErrUnknownProcessor is returned for processor ids outside of the
	// simulated machine or without attached threads.
	ErrUnknownProcessor = errors.New("unknown processor")

	// ErrUnknownThread is returned for threads that are not attached.
	ErrUnknownThread = errors.New("unknown thread")
)

// Simulator serializes all the accesses to one controller.
type Simulator struct {
	lock      sync.Mutex
	ctrl      *controller.Controller
	allocator Allocator
	logger    *log.Logger

	attached map[uint32]int
	threads  map[uint32]uint32
	accesses uint64
}

// New creates a Simulator that drives ctrl. Threads are assigned to
// processors in round-robin order.
func New(ctrl *controller.Controller) *Simulator {
	return &Simulator{
		ctrl:      ctrl,
		allocator: NewRoundRobin(ctrl.NumProcessors()),
		attached:  make(map[uint32]int),
		threads:   make(map[uint32]uint32),
	}
}

// SetAllocator replaces the policy that assigns processors to threads.
func (s *Simulator) SetAllocator(a Allocator) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.allocator = a
}

// SetLogger sets the logger that receives thread assignments. A nil logger
// disables logging.
func (s *Simulator) SetLogger(l *log.Logger) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.logger = l
}

// NumProcessors returns the number of simulated processors.
func (s *Simulator) NumProcessors() uint32 {
	return s.ctrl.NumProcessors()
}

// Attach assigns a processor to a new thread of execution.
func (s *Simulator) Attach() uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.attach()
}

func (s *Simulator) attach() uint32 {
	pid := s.allocator.Next()
	if pid >= s.ctrl.NumProcessors() {
		log.Panicf("allocator returned processor %d of %d",
			pid, s.ctrl.NumProcessors())
	}

	s.attached[pid]++

	return pid
}

// AttachProcessor attaches one more thread of execution to pid. It is used
// when the processor is chosen by the caller, as in a replayed trace.
func (s *Simulator) AttachProcessor(pid uint32) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if pid >= s.ctrl.NumProcessors() {
		return fmt.Errorf("attach processor %d: %w", pid, ErrUnknownProcessor)
	}

	s.attached[pid]++

	return nil
}

// AttachThread assigns a processor to the thread tid and remembers the
// mapping.
func (s *Simulator) AttachThread(tid uint32) uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()

	if pid, ok := s.threads[tid]; ok {
		return pid
	}

	pid := s.attach()
	s.threads[tid] = pid

	if s.logger != nil {
		s.logger.Printf("tid %d -> pid %d", tid, pid)
	}

	return pid
}

// Detach releases one attachment of pid.
func (s *Simulator) Detach(pid uint32) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.detach(pid)
}

func (s *Simulator) detach(pid uint32) error {
	n, ok := s.attached[pid]
	if !ok {
		return fmt.Errorf("detach processor %d: %w", pid, ErrUnknownProcessor)
	}

	if n == 1 {
		delete(s.attached, pid)
	} else {
		s.attached[pid] = n - 1
	}

	return nil
}

// DetachThread forgets the thread tid.
func (s *Simulator) DetachThread(tid uint32) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	pid, ok := s.threads[tid]
	if !ok {
		return fmt.Errorf("detach thread %d: %w", tid, ErrUnknownThread)
	}

	delete(s.threads, tid)

	return s.detach(pid)
}

// Attached returns the number of attachments per processor.
func (s *Simulator) Attached() []int {
	s.lock.Lock()
	defer s.lock.Unlock()

	counts := make([]int, s.ctrl.NumProcessors())
	for pid, n := range s.attached {
		counts[pid] = n
	}

	return counts
}

// OnAccess simulates one memory reference of processor pid. The processor
// must be attached.
func (s *Simulator) OnAccess(
	pid uint32,
	addr uint64,
	isWrite bool,
) (coherence.Outcome, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.access(pid, addr, isWrite)
}

func (s *Simulator) access(
	pid uint32,
	addr uint64,
	isWrite bool,
) (coherence.Outcome, error) {
	if pid >= s.ctrl.NumProcessors() || s.attached[pid] == 0 {
		return coherence.Outcome{},
			fmt.Errorf("access by processor %d: %w", pid, ErrUnknownProcessor)
	}

	s.accesses++

	if isWrite {
		return s.ctrl.StoreSingleLine(addr, pid), nil
	}

	return s.ctrl.LoadSingleLine(addr, pid), nil
}

// OnThreadAccess simulates one memory reference of the thread tid.
func (s *Simulator) OnThreadAccess(
	tid uint32,
	addr uint64,
	isWrite bool,
) (coherence.Outcome, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pid, ok := s.threads[tid]
	if !ok {
		return coherence.Outcome{},
			fmt.Errorf("access by thread %d: %w", tid, ErrUnknownThread)
	}

	return s.access(pid, addr, isWrite)
}

// NumAccesses returns the number of accesses simulated so far.
func (s *Simulator) NumAccesses() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.accesses
}

// Report renders the statistics report.
func (s *Simulator) Report() string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ctrl.StatsToString()
}

// WriteReport writes the statistics report to w.
func (s *Simulator) WriteReport(w io.Writer) error {
	_, err := io.WriteString(w, s.Report())
	return err
}

// Snapshot copies all the counters of the profile.
func (s *Simulator) Snapshot() profile.Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ctrl.Profile().Snapshot()
}

// Inspect runs fn while holding the lock. The controller must not be kept
// after fn returns.
func (s *Simulator) Inspect(fn func(ctrl *controller.Controller)) {
	s.lock.Lock()
	defer s.lock.Unlock()

	fn(s.ctrl)
}
