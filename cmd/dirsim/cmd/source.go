package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dirsim/config"
	"github.com/sarchlab/dirsim/trace"
)

// The synthetic workloads.
const (
	GeneratorProducerConsumer = "producer-consumer"
	GeneratorRandom           = "random"
	GeneratorStride           = "stride"
)

// ErrUnknownGenerator is returned for workloads that do not exist.
var ErrUnknownGenerator = errors.New("unknown generator")

type sourceOptions struct {
	generator  string
	count      int
	rounds     int
	seed       int64
	lines      uint64
	writeRatio float64
	addr       uint64
	step       uint64
	write      bool
}

func (o *sourceOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.generator, "generator", "g", "",
		"synthetic workload: producer-consumer, random or stride")
	f.IntVar(&o.count, "count", 10000,
		"number of accesses of the random and stride workloads")
	f.IntVar(&o.rounds, "rounds", 1000,
		"number of rounds of the producer-consumer workload")
	f.Int64Var(&o.seed, "seed", 1, "seed of the random workload")
	f.Uint64Var(&o.lines, "lines", 1024,
		"number of distinct lines of the random workload")
	f.Float64Var(&o.writeRatio, "write-ratio", 0.3,
		"share of writes in the random workload")
	f.Uint64Var(&o.addr, "addr", 0x1000,
		"shared address of producer-consumer, first address of stride")
	f.Uint64Var(&o.step, "step", 0,
		"stride in bytes (default one line)")
	f.BoolVar(&o.write, "write", false, "make the stride workload write")
}

// build creates the workload and returns the number of accesses it will
// produce.
func (o sourceOptions) build(c config.Config) (trace.Source, uint64, error) {
	switch o.generator {
	case GeneratorProducerConsumer:
		if o.rounds < 0 {
			return nil, 0, fmt.Errorf("rounds %d must not be negative", o.rounds)
		}

		total := uint64(o.rounds) * uint64(c.NumProcessors)

		return trace.NewProducerConsumer(c.NumProcessors, o.addr, o.rounds),
			total, nil
	case GeneratorRandom:
		if o.count < 0 {
			return nil, 0, fmt.Errorf("count %d must not be negative", o.count)
		}

		if o.lines == 0 {
			return nil, 0, errors.New("the random workload needs lines")
		}

		if o.writeRatio < 0 || o.writeRatio > 1 {
			return nil, 0, fmt.Errorf("write ratio %g is not in [0, 1]",
				o.writeRatio)
		}

		return trace.NewRandom(o.seed, c.NumProcessors, o.lines, c.LineSize,
			o.writeRatio, o.count), uint64(o.count), nil
	case GeneratorStride:
		if o.count < 0 {
			return nil, 0, fmt.Errorf("count %d must not be negative", o.count)
		}

		step := o.step
		if step == 0 {
			step = c.LineSize
		}

		return trace.NewStride(c.NumProcessors, o.addr, step, o.count, o.write),
			uint64(o.count), nil
	default:
		return nil, 0, fmt.Errorf("%q: %w", o.generator, ErrUnknownGenerator)
	}
}
