package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/configs"
	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/utils"
)

var (
	initDir   string
	initForce bool
	initAudit bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "directory to initialize (default: current directory)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing settings file")
	initCmd.Flags().BoolVar(&initAudit, "audit", false, "enable the audit log")
}

func resetInitCommandState() {
	initDir = ""
	initForce = false
	initAudit = false
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes a settings file with the default options",
	Long: `Writes .envcrypt.toml with the default file patterns, bundle names and
worker settings so they can be edited and committed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		out := cmd.OutOrStdout()

		dir := initDir
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, configs.SettingsFileName)

		if utils.FileExists(path) && !initForce {
			fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" "+ui.Path.Sprint(path)+" already exists")
			fmt.Fprintln(out, ui.Info.Sprint("→")+" Pass "+ui.Flag.Sprint("--force")+" to overwrite it")
			return nil
		}

		settings := configs.DefaultSettings()
		settings.Audit.Enabled = initAudit

		if err := configs.SaveSettings(dir, settings); err != nil {
			return report(out, err)
		}
		Logger.Debugf("Wrote settings to %s", path)

		fmt.Fprintln(out, ui.Success.Sprint("✓")+" Created "+ui.Path.Sprint(path))
		fmt.Fprintln(out, ui.Info.Sprint("→")+" Add "+ui.Path.Sprint(configs.DefaultStateName)+" to your .gitignore")
		return nil
	},
}
