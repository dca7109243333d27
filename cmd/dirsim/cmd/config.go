package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var printJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration.",
	Long: "`config` prints the simulated machine after applying the " +
		"configuration file, the DIRSIM_* environment variables and the " +
		"command line flags. `config --json` prints it as a configuration " +
		"file.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if !printJSON {
			fmt.Fprint(cmd.OutOrStdout(), c.String())
			return nil
		}

		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&printJSON, "json", false,
		"print the configuration as JSON")

	rootCmd.AddCommand(configCmd)
}
