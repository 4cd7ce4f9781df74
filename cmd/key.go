package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/configs"
	"github.com/envcrypt/envcrypt/internal/ui"
)

var keyDir string

func init() {
	keyCmd.PersistentFlags().StringVar(&keyDir, "dir", "", "project directory (default: nearest project directory)")

	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyClearCmd)
}

func resetKeyCommandState() {
	keyDir = ""
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Remember or forget the passphrase for this directory",
	Long: `Stores the passphrase in the local state file so encrypt and decrypt no
longer ask for it. The state file is per machine and must not be committed.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [passphrase]",
	Short: "Remember a passphrase (prompts when none is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		dir, err := resolveDir(keyDir)
		if err != nil {
			return report(out, err)
		}

		settings, err := configs.LoadSettings(dir)
		if err != nil {
			return report(out, err)
		}

		var passphrase string
		if len(args) == 1 {
			passphrase, err = nonEmpty(args[0])
		} else {
			passphrase, err = promptPassphrase("Passphrase to remember: ")
		}
		if err != nil {
			return report(out, err)
		}

		if err := configs.SetStateKey(dir, settings.Bundle.State, passphrase, Logger); err != nil {
			return report(out, err)
		}

		fmt.Fprintln(out, ui.Success.Sprint("✓")+" Passphrase remembered in "+ui.Path.Sprint(settings.Bundle.State))
		fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" Never commit "+ui.Path.Sprint(settings.Bundle.State))
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the remembered passphrase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		dir, err := resolveDir(keyDir)
		if err != nil {
			return report(out, err)
		}

		settings, err := configs.LoadSettings(dir)
		if err != nil {
			return report(out, err)
		}

		removed, err := configs.ClearStateKey(dir, settings.Bundle.State, Logger)
		if err != nil {
			return report(out, err)
		}

		if !removed {
			fmt.Fprintln(out, ui.Muted.Sprint("◌")+" No passphrase was remembered")
			return nil
		}
		fmt.Fprintln(out, ui.Success.Sprint("✓")+" Passphrase forgotten")
		return nil
	},
}
