package errors

import "errors"

// Bundle errors indicate the encrypted bundle cannot be used as stored.
var (
	// ErrParse indicates the bundle is not well-formed JSON.
	ErrParse = errors.New("failed to parse encrypted file")

	// ErrInvalidFormat indicates the bundle is JSON but lacks required fields.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrBundleNotFound indicates the bundle file does not exist.
	ErrBundleNotFound = errors.New("encrypted file not found")
)

// Cryptographic errors indicate failures while opening a single record.
var (
	// ErrMalformedRecord indicates a cipher record does not have its four parts.
	ErrMalformedRecord = errors.New("malformed encrypted record")

	// ErrAuthentication indicates the authentication tag did not verify. A wrong
	// passphrase and a tampered ciphertext cannot be told apart.
	ErrAuthentication = errors.New("unsupported state or unable to authenticate data")
)

// Workflow errors wrap the cause of a failed run.
var (
	// ErrEncryptFailed indicates an encryption run was aborted.
	ErrEncryptFailed = errors.New("encryption failed")

	// ErrDecryptFailed indicates a decryption run was aborted.
	ErrDecryptFailed = errors.New("decryption failed")
)

// State errors indicate a disagreement between local state and the bundle.
var (
	// ErrStaleState indicates the bundle changed since this machine last decrypted it.
	ErrStaleState = errors.New("local state potentially outdated")
)

// Configuration errors indicate unusable settings or input.
var (
	// ErrInvalidSettings indicates the project settings file is malformed.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrNoPassphrase indicates no passphrase could be resolved.
	ErrNoPassphrase = errors.New("no passphrase provided")
)

// Audit errors indicate the audit log cannot be queried.
var (
	// ErrNoAuditLog indicates the audit log does not exist yet.
	ErrNoAuditLog = errors.New("no audit log found")

	// ErrInvalidDateFormat indicates a date filter is not in YYYY-MM-DD format.
	ErrInvalidDateFormat = errors.New("invalid date format")
)
