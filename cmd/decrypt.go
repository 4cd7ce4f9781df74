package cmd

import (
	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/utils"
	"github.com/envcrypt/envcrypt/internal/workflows"
)

var (
	decryptKey      string
	decryptKeyStdin bool
	decryptDryRun   bool
	decryptDir      string
	decryptParallel int
)

func init() {
	decryptCmd.Flags().StringVar(&decryptKey, "key", "", "passphrase to decrypt with")
	decryptCmd.Flags().BoolVar(&decryptKeyStdin, "key-stdin", false, "read the passphrase from stdin")
	decryptCmd.Flags().BoolVar(&decryptDryRun, "dry-run", false, "check the passphrase and list files without writing anything")
	decryptCmd.Flags().StringVar(&decryptDir, "dir", "", "directory holding the encrypted file (default: nearest project directory)")
	decryptCmd.Flags().IntVar(&decryptParallel, "parallel", 0, "maximum files processed at once (default: settings, then one per CPU)")
	decryptCmd.MarkFlagsMutuallyExclusive("key", "key-stdin")
}

func resetDecryptCommandState() {
	decryptKey = ""
	decryptKeyStdin = false
	decryptDryRun = false
	decryptDir = ""
	decryptParallel = 0
}

var decryptCmd = &cobra.Command{
	Use:     "decrypt",
	Aliases: []string{"d", "dec"},
	Short:   "Restores the .env files from the encrypted file",
	Long: `Decrypts every file recorded in the encrypted file and writes it back into
the project directory, overwriting existing copies.

Nothing is written unless every file decrypts, so a wrong passphrase leaves
your local files untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")
		out := cmd.OutOrStdout()

		dir, err := resolveDir(decryptDir)
		if err != nil {
			return report(out, err)
		}

		passphrase, err := resolvePassphrase(cmd, dir, decryptKey, decryptKeyStdin)
		if err != nil {
			return report(out, err)
		}

		spinner, cleanup := startSpinner(out, "Decrypting environment files...")
		defer cleanup()

		result, err := workflows.Decrypt(cmd.Context(), workflows.DecryptOptions{
			Dir:         dir,
			Passphrase:  passphrase,
			DryRun:      decryptDryRun,
			Parallelism: decryptParallel,
			Logger:      Logger,
		})
		if err != nil {
			return fail(spinner, err)
		}

		if result.DryRun {
			spinner.FinalMSG = formatDecryptDryRun(result)
			return nil
		}

		Logger.Infof("Decrypt command completed successfully. Restored %d files", len(result.DecryptedFiles))
		spinner.FinalMSG = formatDecryptSuccess(result)
		return nil
	},
}

func formatDecryptDryRun(result *workflows.DecryptResult) string {
	msg := ui.Warning.Sprint("[dry-run]") + " Passphrase is correct. Would restore " +
		ui.Highlight.Sprintf("%d", len(result.DecryptedFiles)) + " file(s)"
	if len(result.DecryptedFiles) > 0 {
		msg += utils.FormatPaths(result.DecryptedFiles)
	} else {
		msg += "\n"
	}
	if len(result.ExistingFiles) > 0 {
		msg += ui.Warning.Sprint("⚠") + " These existing files would be overwritten:" + utils.FormatPaths(result.ExistingFiles)
	}
	return msg + ui.Muted.Sprint("No changes made.")
}

func formatDecryptSuccess(result *workflows.DecryptResult) string {
	msg := ui.Success.Sprint("✓") + " Environment files decrypted successfully!\n"
	if len(result.DecryptedFiles) > 0 {
		msg += "The following files were restored:" + utils.FormatPaths(result.DecryptedFiles)
	} else {
		msg += "The encrypted file holds no files\n"
	}
	msg += "Content hash: " + ui.Hash.Sprint(ui.ShortHash(result.ContentHash)) + "\n"
	msg += ui.Warning.Sprint("⚠") + " Never commit the decrypted " + ui.Path.Sprint(".env") + " files"
	return msg
}
