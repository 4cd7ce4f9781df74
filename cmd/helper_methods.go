package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/envcrypt/envcrypt/internal/configs"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	"github.com/envcrypt/envcrypt/internal/ui"
	"github.com/envcrypt/envcrypt/internal/utils"
)

// PassphraseEnvVar is consulted when neither --key nor --key-stdin is given.
const PassphraseEnvVar = "ENVCRYPT_KEY"

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before writing it to out.
func startSpinner(out io.Writer, message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// reportedError is an error whose explanation was already shown to the user.
// main exits non-zero without printing it again.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already explained to the user.
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

// fail puts a user-facing explanation of err into the spinner's final message
// and returns err marked as reported.
func fail(s *spinner.Spinner, err error) error {
	Logger.Errorf("%v", err)
	s.FinalMSG = describeError(err)
	return &reportedError{err: err}
}

// report writes the explanation of err to out directly, for failures that
// happen before a spinner is running.
func report(out io.Writer, err error) error {
	Logger.Errorf("%v", err)
	fmt.Fprint(out, ui.EnsureNewline(describeError(err)))
	return &reportedError{err: err}
}

// describeError turns a workflow error into a message with a next step.
func describeError(err error) string {
	cross := ui.Error.Sprint("✗")
	arrow := ui.Info.Sprint("→")

	switch {
	case errors.Is(err, kerrors.ErrStaleState):
		return cross + " Local state potentially outdated: the encrypted file changed since your last decrypt\n" +
			arrow + " Run " + ui.Code.Sprint("envcrypt decrypt") + " first, or pass " + ui.Flag.Sprint("--force") + " to overwrite it"
	case errors.Is(err, kerrors.ErrBundleNotFound):
		return cross + " No encrypted file found\n" +
			arrow + " Run " + ui.Code.Sprint("envcrypt encrypt") + " to create one"
	case errors.Is(err, kerrors.ErrAuthentication):
		return cross + " Decryption failed: wrong passphrase or modified encrypted file\n" +
			ui.Error.Sprint("Error: ") + err.Error()
	case errors.Is(err, kerrors.ErrParse), errors.Is(err, kerrors.ErrInvalidFormat):
		return cross + " The encrypted file is corrupt\n" +
			ui.Error.Sprint("Error: ") + err.Error()
	case errors.Is(err, kerrors.ErrNoPassphrase):
		return cross + " No passphrase provided\n" +
			arrow + " Use " + ui.Flag.Sprint("--key") + ", " + ui.Flag.Sprint("--key-stdin") + ", " +
			ui.Code.Sprint(PassphraseEnvVar) + " or " + ui.Code.Sprint("envcrypt key set")
	case errors.Is(err, kerrors.ErrInvalidSettings):
		return cross + " Invalid " + ui.Path.Sprint(configs.SettingsFileName) + "\n" +
			ui.Error.Sprint("Error: ") + err.Error()
	default:
		return cross + " " + ui.Error.Sprint("Error: ") + err.Error()
	}
}

// resolveDir returns flagDir when set. Otherwise it walks up from the working
// directory to the nearest directory holding a bundle, sidecar or settings
// file, falling back to the working directory itself.
func resolveDir(flagDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	root, err := utils.FindProjectRoot(wd, configs.ProjectMarkers())
	if err != nil {
		return "", err
	}
	if root == "" {
		Logger.Debugf("No project markers found above %s, using it directly", wd)
		return wd, nil
	}

	Logger.Debugf("Using project directory %s", root)
	return root, nil
}

// resolvePassphrase looks for a passphrase in order: --key, --key-stdin, the
// ENVCRYPT_KEY environment variable, the key remembered in the sidecar, and
// finally an interactive prompt.
func resolvePassphrase(cmd *cobra.Command, dir, key string, keyStdin bool) (string, error) {
	if cmd.Flags().Changed("key") {
		Logger.Debugf("Using passphrase from --key")
		return nonEmpty(key)
	}

	if keyStdin {
		Logger.Debugf("Reading passphrase from stdin")
		passphrase, err := utils.ReadPassphraseFrom(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("%w: %v", kerrors.ErrNoPassphrase, err)
		}
		return passphrase, nil
	}

	if passphrase, ok := os.LookupEnv(PassphraseEnvVar); ok {
		Logger.Debugf("Using passphrase from %s", PassphraseEnvVar)
		return nonEmpty(passphrase)
	}

	settings, err := configs.LoadSettings(dir)
	if err != nil {
		return "", err
	}
	state, err := configs.ReadState(dir, settings.Bundle.State, Logger)
	if err != nil {
		return "", err
	}
	if state != nil && state.Key != "" {
		Logger.Debugf("Using passphrase remembered in %s", settings.Bundle.State)
		return state.Key, nil
	}

	return promptPassphrase("Enter passphrase: ")
}

func promptPassphrase(prompt string) (string, error) {
	if !utils.IsTerminal() {
		return "", kerrors.ErrNoPassphrase
	}

	passphrase, err := utils.ReadPassphrase(prompt)
	if err != nil {
		return "", err
	}
	return nonEmpty(string(passphrase))
}

func nonEmpty(passphrase string) (string, error) {
	if passphrase == "" {
		return "", kerrors.ErrNoPassphrase
	}
	return passphrase, nil
}
