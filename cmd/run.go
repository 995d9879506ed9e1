package cmd

import (
	"github.com/encodeous/nyroute/core"
	"github.com/encodeous/nyroute/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the router core",
	Long:  `This runs the route table core until it receives SIGINT or SIGTERM. A feed of route table operations can be applied on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		feed, _ := cmd.Flags().GetString("feed")
		logPath, _ := cmd.Flags().GetString("log")
		return core.Bootstrap(state.ConfigPath, feed, logPath, verbose)
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringP("feed", "f", "", "Route table operations to apply on startup")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().BoolVarP(&state.DBG_log_actions, "lactions", "a", false, "Write every handled action to console")
	runCmd.Flags().BoolVar(&state.DBG_trace, "trace", false, "Write a runtime trace to trace.out")
	runCmd.Flags().BoolVar(&state.DBG_debug, "debug", false, "Serve debug metrics on 0.0.0.0:6060")
}
