// Package utils provides shared utility functions for envcrypt.
//
// # Filesystem Utilities
//
//   - FindProjectRoot: walks up directories to find the bundle or sidecar
//   - WriteFileAtomic: temp-file-and-rename writes for the bundle and sidecar
//   - FileExists: stat helper that ignores directories
//
// # System Utilities
//
//   - GetUsername: returns the current system username
//   - GetHostname: returns the system hostname
//
// # I/O and Terminal Utilities
//
//   - ReadPassphraseFrom: reads a piped passphrase
//   - ReadPassphrase: prompt on the terminal without echo
//   - FormatPaths: formats file paths for human-readable output
package utils
