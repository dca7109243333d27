package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/dirsim/config"
	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/simulator"
	"github.com/sarchlab/dirsim/trace"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			Expect(sv.Replace(nil)).To(Succeed())
		} else {
			Expect(f.Value.Set(f.DefValue)).To(Succeed())
		}

		f.Changed = false
	}

	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)

	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

var _ = Describe("Source options", func() {
	var c config.Config

	BeforeEach(func() {
		c = config.Default()
	})

	It("should count the producer-consumer accesses", func() {
		o := sourceOptions{generator: GeneratorProducerConsumer, rounds: 3}

		src, total, err := o.build(c)

		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(uint64(12)))

		events, err := trace.Collect(src)
		Expect(err).ToNot(HaveOccurred())
		Expect(events).To(HaveLen(12))
	})

	It("should default the stride to one line", func() {
		o := sourceOptions{generator: GeneratorStride, count: 2, addr: 0x100}

		src, _, err := o.build(c)
		Expect(err).ToNot(HaveOccurred())

		events, err := trace.Collect(src)
		Expect(err).ToNot(HaveOccurred())
		Expect(events[1].Addr).To(Equal(uint64(0x140)))
	})

	It("should reject bad workloads", func() {
		_, _, err := sourceOptions{generator: "zipf"}.build(c)
		Expect(errors.Is(err, ErrUnknownGenerator)).To(BeTrue())

		_, _, err = sourceOptions{
			generator: GeneratorRandom, lines: 4, writeRatio: 2,
		}.build(c)
		Expect(err).To(HaveOccurred())

		_, _, err = sourceOptions{generator: GeneratorRandom}.build(c)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Commands", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should print the default configuration", func() {
		out, err := execute("config")

		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(config.Default().String()))
	})

	It("should apply the environment and the flags", func() {
		GinkgoT().Setenv(config.EnvNumProcessors, "8")

		out, err := execute("config", "--json", "--detector")

		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring(`"Total processors": 8`))
		Expect(out).To(ContainSubstring(`"Detector": true`))
	})

	It("should reject an invalid configuration file", func() {
		path := filepath.Join(dir, "config.json")
		Expect(os.WriteFile(path, []byte(`{"Total processors": 3}`), 0o644)).
			To(Succeed())

		_, err := execute("config", "--config", path)

		Expect(err).To(HaveOccurred())
	})

	It("should require a workload", func() {
		_, err := execute("run")

		Expect(err).To(HaveOccurred())
	})

	It("should replay a trace file", func() {
		tracePath := filepath.Join(dir, "trace.txt")
		reportPath := filepath.Join(dir, "report.txt")
		Expect(os.WriteFile(tracePath, []byte("0 W 0x1000\n1 R 1000\n"), 0o644)).
			To(Succeed())

		_, err := execute("run", tracePath, "--output", reportPath)
		Expect(err).ToNot(HaveOccurred())

		s := simulator.New(controller.New(4, 64, 64, 4))
		Expect(s.AttachProcessor(0)).To(Succeed())
		Expect(s.AttachProcessor(1)).To(Succeed())
		_, err = s.OnAccess(0, 0x1000, true)
		Expect(err).ToNot(HaveOccurred())
		_, err = s.OnAccess(1, 0x1000, false)
		Expect(err).ToNot(HaveOccurred())

		report, err := os.ReadFile(reportPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(report)).To(Equal(s.Report()))
	})

	It("should not take a trace file and a generator", func() {
		tracePath := filepath.Join(dir, "trace.txt")
		Expect(os.WriteFile(tracePath, []byte("0 R 0\n"), 0o644)).To(Succeed())

		_, err := execute("run", tracePath, "--generator", "stride")

		Expect(err).To(HaveOccurred())
	})

	It("should report bad trace lines", func() {
		tracePath := filepath.Join(dir, "trace.txt")
		Expect(os.WriteFile(tracePath, []byte("0 X 0\n"), 0o644)).To(Succeed())

		_, err := execute("run", tracePath)

		Expect(errors.Is(err, trace.ErrBadTraceLine)).To(BeTrue())
	})

	It("should replay a generated workload", func() {
		out, err := execute("run",
			"--generator", GeneratorProducerConsumer, "--rounds", "2")

		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("+ Processor: 3 L1 Data Cache"))
	})

	It("should write a generated trace", func() {
		out, err := execute("gen", "--generator", GeneratorStride,
			"--count", "2", "--write")

		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("0 W 1000\n1 W 1040\n"))
	})
})
