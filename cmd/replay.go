package cmd

import (
	"fmt"
	"log/slog"

	"github.com/encodeous/nyroute/core"
	"github.com/encodeous/nyroute/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <feed>",
	Short: "Applies a feed to an empty route table and prints the resulting table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadRouterConfig(state.ConfigPath)
		if err != nil {
			return err
		}
		feed, err := core.LoadFeed(args[0])
		if err != nil {
			return err
		}
		level := slog.LevelWarn
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		logger, closer, err := state.NewLogger(cfg.Id, level, "")
		if err != nil {
			return err
		}
		defer closer.Close()

		snap, err := core.Replay(*cfg, feed, logger)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(snap)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
	GroupID: "ny",
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
