// Package errors provides typed error values for the envcrypt application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Bundle errors: the .envcrypt document is unreadable (ErrParse, ErrInvalidFormat)
//   - Crypto errors: a record cannot be opened (ErrMalformedRecord, ErrAuthentication)
//   - Workflow errors: a whole run failed (ErrEncryptFailed, ErrDecryptFailed)
//   - State errors: the local state disagrees with the bundle (ErrStaleState)
//
// # Usage
//
// Return errors from internal packages:
//
//	if len(parts) != 4 {
//	    return nil, fmt.Errorf("%w: expected 4 parts, got %d", errors.ErrMalformedRecord, len(parts))
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Encrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrStaleState) {
//	    // Suggest running decrypt or passing --force
//	}
//
// A wrapping error keeps its cause, so both checks hold for a failed decrypt
// with the wrong passphrase:
//
//	errors.Is(err, kerrors.ErrDecryptFailed)  // true
//	errors.Is(err, kerrors.ErrAuthentication) // true
package errors
