// Package configs manages the per-directory files envcrypt keeps next to the
// protected secrets.
//
// # State Sidecar
//
// The sidecar (.envcrypt.config by default) is a small JSON object:
//
//	{
//	  "last_decrypted_hash": "<hex sha-256>",
//	  "key": "<remembered passphrase>"
//	}
//
// last_decrypted_hash is the content hash of the bundle this machine last
// produced or decrypted. Comparing it with the bundle's current hash tells
// whether someone else has pushed a newer bundle in the meantime.
//
// Every write is read-merge-write: fields envcrypt does not know about are
// carried over verbatim. A missing or unparseable sidecar reads as absent.
//
// # Settings
//
// An optional .envcrypt.toml selects files and names:
//
//	[files]
//	include = [".env*"]
//	exclude = [".env.example"]
//
//	[bundle]
//	name = ".envcrypt"
//	state = ".envcrypt.config"
//
//	[workers]
//	parallelism = 4
//
//	[audit]
//	enabled = true
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
package configs
