package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/ui"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "envcrypt",
		Short: "envcrypt - passphrase encryption for .env files",
		Long: `envcrypt encrypts the .env files in a directory into a single committed
bundle, and restores them from it, using one shared passphrase.

Usage:
  envcrypt <command> [flags]

Run 'envcrypt help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, figure.NewFigure("envcrypt", "", true).String())
			fmt.Fprintln(out, ui.Info.Sprint("→")+" Run "+ui.Code.Sprint("envcrypt --help")+" to see available commands")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(keyCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command. An interrupt cancels the running workflow
// between files.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	Logger = logger.Logger{}
	resetEncryptCommandState()
	resetDecryptCommandState()
	resetStatusCommandState()
	resetInitCommandState()
	resetKeyCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed marks cobra leaves on flags between runs.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}
