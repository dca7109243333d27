package cmd

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/dirsim/trace"
)

var (
	genOpts   sourceOptions
	genOutput string
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Write a synthetic workload as a text trace.",
	Long: "`gen --generator random -o trace.txt` writes the accesses of a " +
		"synthetic workload in the format that `run` reads.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if genOpts.generator == "" {
			return errors.New("a generator is required")
		}

		src, _, err := genOpts.build(c)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()

		if genOutput != "" {
			f, err := os.Create(genOutput)
			if err != nil {
				return err
			}
			defer f.Close()

			w = f
		}

		n, err := trace.Write(w, src)
		if err != nil {
			return err
		}

		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(),
			"Wrote %d accesses\n", n)

		return nil
	},
}

func init() {
	genOpts.addFlags(genCmd)
	genCmd.Flags().StringVarP(&genOutput, "output", "o", "",
		"file to write the trace to (default stdout)")

	rootCmd.AddCommand(genCmd)
}
