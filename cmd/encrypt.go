package cmd

import (
	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/utils"
	"github.com/envcrypt/envcrypt/internal/workflows"
)

var (
	encryptKey      string
	encryptKeyStdin bool
	encryptForce    bool
	encryptDryRun   bool
	encryptDir      string
	encryptParallel int
)

func init() {
	encryptCmd.Flags().StringVar(&encryptKey, "key", "", "passphrase to encrypt with")
	encryptCmd.Flags().BoolVar(&encryptKeyStdin, "key-stdin", false, "read the passphrase from stdin")
	encryptCmd.Flags().BoolVarP(&encryptForce, "force", "f", false, "overwrite the encrypted file even if local state is outdated")
	encryptCmd.Flags().BoolVar(&encryptDryRun, "dry-run", false, "show which files would be encrypted without writing anything")
	encryptCmd.Flags().StringVar(&encryptDir, "dir", "", "directory holding the .env files (default: nearest project directory)")
	encryptCmd.Flags().IntVar(&encryptParallel, "parallel", 0, "maximum files processed at once (default: settings, then one per CPU)")
	encryptCmd.MarkFlagsMutuallyExclusive("key", "key-stdin")
}

func resetEncryptCommandState() {
	encryptKey = ""
	encryptKeyStdin = false
	encryptForce = false
	encryptDryRun = false
	encryptDir = ""
	encryptParallel = 0
}

var encryptCmd = &cobra.Command{
	Use:     "encrypt",
	Aliases: []string{"e", "enc"},
	Short:   "Encrypts the .env files into a single encrypted file",
	Long: `Encrypts every .env file in the project directory into one encrypted file
that is safe to commit.

If the encrypted file changed since you last decrypted it, encrypt refuses to
overwrite it. Decrypt first to pick up the changes, or use --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")
		out := cmd.OutOrStdout()

		dir, err := resolveDir(encryptDir)
		if err != nil {
			return report(out, err)
		}

		passphrase := ""
		if !encryptDryRun {
			passphrase, err = resolvePassphrase(cmd, dir, encryptKey, encryptKeyStdin)
			if err != nil {
				return report(out, err)
			}
		}

		spinner, cleanup := startSpinner(out, "Encrypting environment files...")
		defer cleanup()

		result, err := workflows.Encrypt(cmd.Context(), workflows.EncryptOptions{
			Dir:         dir,
			Passphrase:  passphrase,
			Force:       encryptForce,
			DryRun:      encryptDryRun,
			Parallelism: encryptParallel,
			Logger:      Logger,
		})
		if err != nil {
			return fail(spinner, err)
		}

		if result.DryRun {
			spinner.FinalMSG = formatEncryptDryRun(result)
			return nil
		}

		Logger.Infof("Encrypt command completed successfully. Encrypted %d files", len(result.SourceFiles))
		spinner.FinalMSG = formatEncryptSuccess(result)
		return nil
	},
}

func formatEncryptDryRun(result *workflows.EncryptResult) string {
	msg := ui.Warning.Sprint("[dry-run]") + " Would encrypt " + ui.Highlight.Sprintf("%d", len(result.SourceFiles)) + " file(s) into " +
		ui.Path.Sprint(result.BundlePath)
	if len(result.SourceFiles) > 0 {
		msg += utils.FormatPaths(result.SourceFiles)
	} else {
		msg += "\n"
	}
	if result.Forced {
		msg += ui.Warning.Sprint("⚠") + " Would overwrite changes made since your last decrypt\n"
	}
	return msg + ui.Muted.Sprint("No changes made.")
}

func formatEncryptSuccess(result *workflows.EncryptResult) string {
	msg := ui.Success.Sprint("✓") + " Environment files encrypted successfully!\n"
	if len(result.SourceFiles) > 0 {
		msg += "The following files were encrypted:" + utils.FormatPaths(result.SourceFiles)
	} else {
		msg += ui.Warning.Sprint("⚠") + " No environment files found, wrote an empty encrypted file\n"
	}
	if result.Forced {
		msg += ui.Warning.Sprint("⚠") + " Overwrote changes made since your last decrypt\n"
	}
	msg += "Content hash: " + ui.Hash.Sprint(ui.ShortHash(result.ContentHash)) + "\n"
	msg += ui.Info.Sprint("→") + " You can now safely commit " + ui.Path.Sprint(result.BundlePath) + " to version control"
	return msg
}
