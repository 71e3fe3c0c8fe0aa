package main

import (
	"fmt"

	"github.com/sarchlab/slicesim/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario.yaml]",
	Short: "Check a scenario file without running it.",
	Long: "Check a scenario file without running it. Without a file, the " +
		"built-in smart-city scenario is checked.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		s, err := loadScenario(path)
		if err != nil {
			return err
		}

		if err := s.Validate(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "scenario %q is valid: %d bands, %d slices, %d nodes\n",
			s.Name, len(s.Bands), len(s.Slices), len(s.Nodes))

		if show, _ := cmd.Flags().GetBool("print"); show {
			data, err := s.Marshal()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), string(data))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("print", false,
		"Print the scenario with every default filled in")
}

func loadScenario(path string) (*config.Scenario, error) {
	if path == "" {
		return config.Default(), nil
	}

	return config.Load(path)
}
