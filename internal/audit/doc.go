// Package audit provides an optional audit trail for envcrypt runs.
//
// When enabled in .envcrypt.toml, every successful encrypt and decrypt
// appends one JSON object per line to .envcrypt.audit.jsonl in the protected
// directory. Each entry carries a random id, a UTC timestamp with
// microseconds, the system user and host, the operation, the files involved,
// and the resulting content hash.
//
// # Failure Handling
//
// Audit logging is best-effort. If the log cannot be written the operation
// still succeeds.
//
// # Reading Logs
//
// ReadEntries parses the log. Malformed lines are skipped, which tolerates a
// partially written last line.
package audit
