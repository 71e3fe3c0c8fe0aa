package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slicesim",
	Short: "slicesim simulates a smart-city radio network with sliced bandwidth.",
	Long: `slicesim simulates vehicles, drones, AR glasses and sensors sending ` +
		`sealed messages over terahertz and optical bands to an edge data ` +
		`center. A controller grows and shrinks the bandwidth of every slice ` +
		`to keep latency under target.`,
	SilenceUsage: true,
}

// version is set at link time.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "slicesim " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
