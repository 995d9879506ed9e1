package cmd

import (
	"fmt"

	"github.com/encodeous/nyroute/core"
	"github.com/encodeous/nyroute/state"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [socket]",
	Aliases: []string{"i"},
	Short:   "Inspects the route table of a running router",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		socket := state.InspectSocketPath
		if len(args) == 1 {
			socket = args[0]
		}
		result, err := core.IPCGet(socket)
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Print(result)
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
