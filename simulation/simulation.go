// Package simulation assembles a complete simulation run: the controller,
// the thread-safe simulator, the result database and the monitor.
package simulation

import (
	"context"

	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/config"
	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/datarecording"
	"github.com/sarchlab/dirsim/monitoring"
	"github.com/sarchlab/dirsim/simulator"
	"github.com/sarchlab/dirsim/trace"
)

// A Simulation provides the services required to run a trace.
type Simulation struct {
	id  string
	cfg config.Config

	ctrl      *controller.Controller
	simulator *simulator.Simulator

	dataRecorder datarecording.DataRecorder
	execRecorder *datarecording.ExecRecorder
	monitor      *monitoring.Monitor
	monitorURL   string

	terminated bool
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the simulated machine.
func (s *Simulation) Config() config.Config {
	return s.cfg
}

// Controller returns the controller. It must not be used while the
// simulator is being driven from other goroutines.
func (s *Simulation) Controller() *controller.Controller {
	return s.ctrl
}

// Simulator returns the thread-safe simulator.
func (s *Simulation) Simulator() *simulator.Simulator {
	return s.simulator
}

// GetDataRecorder returns the data recorder used in the simulation. It is
// nil if recording is disabled.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It is nil if
// monitoring is disabled.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring dashboard.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Replay feeds all the events of src to the simulator. The processors of
// the trace stay attached while it is replayed. If total is not
// zero and the monitor is on, the progress is shown on the dashboard.
func (s *Simulation) Replay(
	ctx context.Context,
	src trace.Source,
	name string,
	total uint64,
) (int, error) {
	var t trace.Target = s.simulator

	if s.monitor != nil {
		bar := s.monitor.CreateProgressBar(name, total)
		defer s.monitor.CompleteProgressBar(bar)

		t = progressTarget{Target: t, bar: bar}
	}

	return trace.Replay(ctx, t, src)
}

// Terminate stops the monitor, writes the statistics to the database and
// closes it. It is safe to call more than once.
func (s *Simulation) Terminate() {
	if s.terminated {
		return
	}

	s.terminated = true

	if s.monitor != nil {
		s.monitor.StopServer()
	}

	if s.dataRecorder == nil {
		return
	}

	datarecording.RecordProfile(s.dataRecorder, s.simulator.Snapshot())
	s.execRecorder.End()
	s.dataRecorder.Close()
}

type progressTarget struct {
	trace.Target
	bar *monitoring.ProgressBar
}

func (p progressTarget) OnAccess(
	pid uint32,
	addr uint64,
	isWrite bool,
) (coherence.Outcome, error) {
	o, err := p.Target.OnAccess(pid, addr, isWrite)
	if err == nil {
		p.bar.IncrementFinished(1)
	}

	return o, err
}
