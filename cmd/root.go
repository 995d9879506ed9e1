package cmd

import (
	"os"

	"github.com/encodeous/nyroute/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nyroute",
	Short: "Route table core of an AMQP router node",
	Long: `nyroute keeps the route table of an interior AMQP router: the remote routers it knows,
how they are reached, and which routers reach each address.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "ny",
		Title: "Router Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "cfg",
		Title: "Configuration",
	})
	rootCmd.PersistentFlags().StringVarP(&state.ConfigPath, "config", "c", state.ConfigPath, "router config")
	rootCmd.PersistentFlags().BoolVar(&state.DBG_assert, "assert", false, "panic on internal route table consistency faults")
}
