package cmd

import (
	"fmt"
	"os"

	"guildsync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "guildsync",
	Short: "Guild roster to community platform sync",
	Long: `GuildSync mirrors WoW guild rosters from the Battle.net API and keeps
the roles on connected community platforms (Discord) in line with the
in-game guild ranks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format, a CLI failure should be readable without tooling
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
