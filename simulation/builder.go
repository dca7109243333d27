package simulation

import (
	"fmt"
	"strconv"

	"github.com/rs/xid"

	"github.com/sarchlab/dirsim/config"
	"github.com/sarchlab/dirsim/datarecording"
	"github.com/sarchlab/dirsim/monitoring"
	"github.com/sarchlab/dirsim/simulator"
	"github.com/sarchlab/dirsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg            config.Config
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	recordOn       bool
	recordAccesses bool
	outputFileName string
	tracers        []tracing.Tracer
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		cfg:       config.Default(),
		monitorOn: true,
		recordOn:  true,
	}
}

// WithConfig sets the simulated machine.
func (b Builder) WithConfig(c config.Config) Builder {
	b.cfg = c
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOpenBrowser opens the monitoring dashboard once the server is up.
func (b Builder) WithOpenBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithoutRecording sets the simulation to not write a database.
func (b Builder) WithoutRecording() Builder {
	b.recordOn = false
	return b
}

// WithAccessRecording writes every access, eviction and push to the
// database.
func (b Builder) WithAccessRecording() Builder {
	b.recordAccesses = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithTracer attaches a tracer to the controller.
func (b Builder) WithTracer(t tracing.Tracer) Builder {
	b.tracers = append(b.tracers[:len(b.tracers):len(b.tracers)], t)
	return b
}

func (b Builder) parametersMustBeValid() error {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		return fmt.Errorf("monitor options cannot be set " +
			"when monitoring is disabled")
	}

	if !b.recordOn && (b.recordAccesses || b.outputFileName != "") {
		return fmt.Errorf("recording options cannot be set " +
			"when recording is disabled")
	}

	return b.cfg.Validate()
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:  xid.New().String(),
		cfg: b.cfg,
	}

	ctrl, err := b.cfg.Builder().Build("Controller")
	if err != nil {
		return nil, err
	}

	s.ctrl = ctrl
	s.simulator = simulator.New(ctrl)

	for _, t := range b.tracers {
		tracing.CollectTrace(ctrl, t)
	}

	if b.recordOn {
		b.buildRecorders(s)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(b.monitorPort).
			WithOpenBrowser(b.openBrowser)
		s.monitor.RegisterSimulator(s.simulator)
		s.monitorURL = s.monitor.StartServer()
	}

	return s, nil
}

func (b Builder) buildRecorders(s *Simulation) {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "dirsim_" + s.id
	}

	s.dataRecorder = datarecording.New(outputPath)

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()
	s.execRecorder.Add("Simulation ID", s.id)
	s.execRecorder.Add("Number of sets", strconv.FormatUint(b.cfg.NumSets, 10))
	s.execRecorder.Add("Associativity", strconv.Itoa(b.cfg.Associativity))
	s.execRecorder.Add("Line size", strconv.FormatUint(b.cfg.LineSize, 10))
	s.execRecorder.Add("Total processors",
		strconv.FormatUint(uint64(b.cfg.NumProcessors), 10))
	s.execRecorder.Add("Detector", strconv.FormatBool(b.cfg.Detector))

	if b.recordAccesses {
		tracing.CollectTrace(s.ctrl,
			datarecording.NewAccessRecorder(s.dataRecorder))
	}
}
