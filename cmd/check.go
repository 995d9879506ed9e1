package cmd

import (
	"fmt"

	"github.com/encodeous/nyroute/core"
	"github.com/encodeous/nyroute/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [feed]",
	Short: "Validates the router config, and optionally a feed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadRouterConfig(state.ConfigPath)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			feed, err := core.LoadFeed(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Feed is valid (%d operations)\n", len(feed))
		}
		cfgYaml, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Println("Config is valid")
		fmt.Println(string(cfgYaml))
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
