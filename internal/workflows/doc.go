// Package workflows provides high-level orchestration for envcrypt commands.
//
// Workflows coordinate the configs, secrets and audit packages to implement
// complete user-facing features. Each workflow handles a single command's
// business logic, independent of CLI concerns like flag parsing, spinners and
// output formatting.
//
// # Available Workflows
//
//   - Encrypt: encrypts the selected plaintext files into the bundle
//   - Decrypt: restores every file recorded in the bundle
//   - Status: compares the bundle, the state sidecar and the directory
//
// # Error Handling
//
// Workflows return errors wrapping the sentinels in internal/errors, so the
// CLI layer can check them with errors.Is:
//
//	result, err := workflows.Encrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrStaleState) {
//	    // Suggest decrypting first or --force
//	}
//
// # Context Usage
//
// Encrypt and Decrypt process files concurrently. Cancelling ctx stops any
// file that has not started yet.
package workflows
