package cmd

import (
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/dirsim/config"
	"github.com/sarchlab/dirsim/simulation"
	"github.com/sarchlab/dirsim/trace"
	"github.com/sarchlab/dirsim/tracing"
)

type runOptions struct {
	source sourceOptions

	output         string
	record         bool
	dbName         string
	recordAccesses bool
	monitor        bool
	monitorPort    int
	openBrowser    bool
	hold           bool
	logTrace       bool
	jsonTrace      bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [trace file]",
	Short: "Replay a memory trace and print the statistics.",
	Long: "`run trace.txt` replays a text trace with one `<pid> <R|W> <addr>` " +
		"access per line. `run --generator random` replays a synthetic " +
		"workload instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return runSimulation(cmd, c, args, runOpts)
	},
}

func init() {
	runOpts.source.addFlags(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runOpts.output, "output", "o", "",
		"file to write the report to (default stdout)")
	f.BoolVar(&runOpts.record, "db", false,
		"record the results in a sqlite database")
	f.StringVar(&runOpts.dbName, "db-name", "",
		"name of the database, without the .sqlite3 suffix")
	f.BoolVar(&runOpts.recordAccesses, "record-accesses", false,
		"record every access in the database")
	f.BoolVar(&runOpts.monitor, "monitor", false,
		"serve the statistics over HTTP while running")
	f.IntVar(&runOpts.monitorPort, "monitor-port", 0,
		"port of the monitoring server (default random)")
	f.BoolVar(&runOpts.openBrowser, "open-browser", false,
		"open the monitoring dashboard in a browser")
	f.BoolVar(&runOpts.hold, "hold", false,
		"keep the monitor running after the replay until interrupted")
	f.BoolVar(&runOpts.logTrace, "log-trace", false,
		"log every access to stderr")
	f.BoolVar(&runOpts.jsonTrace, "json-trace", false,
		"write every access to a JSON file")

	rootCmd.AddCommand(runCmd)
}

func (o runOptions) builder(c config.Config) simulation.Builder {
	b := simulation.MakeBuilder().WithConfig(c)

	if o.monitor {
		b = b.WithMonitorPort(o.monitorPort)
		if o.openBrowser {
			b = b.WithOpenBrowser()
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if o.record {
		b = b.WithOutputFileName(o.dbName)
		if o.recordAccesses {
			b = b.WithAccessRecording()
		}
	} else {
		b = b.WithoutRecording()
	}

	if o.logTrace {
		b = b.WithTracer(tracing.NewLogTracer(log.New(os.Stderr, "", 0)))
	}

	if o.jsonTrace {
		b = b.WithTracer(tracing.NewJSONTracer())
	}

	return b
}

func openSource(
	c config.Config,
	args []string,
	o sourceOptions,
) (src trace.Source, name string, total uint64, done func(), err error) {
	if len(args) == 1 && o.generator != "" {
		return nil, "", 0, nil,
			errors.New("either a trace file or a generator, not both")
	}

	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, "", 0, nil, err
		}

		return trace.NewReader(f), args[0], 0, func() { f.Close() }, nil
	}

	if o.generator == "" {
		return nil, "", 0, nil,
			errors.New("a trace file or a generator is required")
	}

	src, total, err = o.build(c)

	return src, o.generator, total, func() {}, err
}

func runSimulation(
	cmd *cobra.Command,
	c config.Config,
	args []string,
	o runOptions,
) error {
	src, name, total, done, err := openSource(c, args, o.source)
	if err != nil {
		return err
	}
	defer done()

	counter := tracing.NewResponseCounter()

	s, err := o.builder(c).WithTracer(counter).Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	color.New(color.FgCyan, color.Bold).Fprintf(cmd.ErrOrStderr(),
		"Simulating %d processors, %d sets x %d ways, %d-byte lines, "+
			"detector %t\n",
		c.NumProcessors, c.NumSets, c.Associativity, c.LineSize, c.Detector)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	n, err := s.Replay(ctx, src, name, total)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(),
			"Stopped after %d accesses\n", n)

		return err
	}

	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(),
		"Replayed %d accesses, %d evictions, %d pushes\n",
		n, counter.Evictions(), counter.Pushes())

	if err := writeReport(cmd, s, o.output); err != nil {
		return err
	}

	if o.monitor && o.hold {
		log.Printf("Monitor still running at %s, interrupt to exit",
			s.MonitorURL())
		<-ctx.Done()
	}

	return nil
}

func writeReport(cmd *cobra.Command, s *simulation.Simulation, path string) error {
	if path == "" {
		return s.Simulator().WriteReport(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := s.Simulator().WriteReport(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
