// Package cmd provides the command-line interface of dirsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/dirsim/config"
)

var (
	configFile string
	envFiles   []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dirsim",
	Short: "dirsim simulates a directory-based MSI cache coherence protocol.",
	Long: `dirsim replays memory traces on a multiprocessor with private ` +
		`caches kept coherent by a directory. It reports the hits, misses, ` +
		`cycles and network messages of every processor and memory line.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "",
		"JSON file that describes the simulated machine")
	flags.StringSliceVar(&envFiles, "env", nil,
		"files to load environment variables from (default .env)")
	flags.Bool("detector", false,
		"push written lines to the processors that keep reading them")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

// loadConfig resolves the machine from the defaults, the configuration
// file, the environment and the command line, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.Config{}, err
	}

	c := config.Default()

	if configFile != "" {
		var err error

		c, err = config.Load(configFile)
		if err != nil {
			return c, err
		}
	}

	c, err := c.ApplyEnv()
	if err != nil {
		return c, err
	}

	if cmd.Flags().Changed("detector") {
		c.Detector, err = cmd.Flags().GetBool("detector")
		if err != nil {
			return c, err
		}
	}

	return c, c.Validate()
}
