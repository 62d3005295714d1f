package cmd

import (
	"fmt"
	"os"

	"github.com/mcbarinov/accounts-monitor/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "accounts-monitor",
	Short: "Accounts Monitor Service",
	Long: `Accounts Monitor tracks groups of blockchain accounts, the coins whose
balances are monitored for them, and the naming schemes used to label them,
keeping the derived per-account rows consistent with each group's configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// CLI errors go through the console logger so they look the same as
		// everything else.
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
