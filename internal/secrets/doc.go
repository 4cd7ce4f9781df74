// Package secrets provides the cryptographic core of envcrypt.
//
// It covers key derivation, per-file authenticated encryption, the bundle
// document format, and selection of the plaintext files to protect.
//
// # Encryption Scheme
//
// Every file is encrypted on its own:
//
//  1. A fresh 16-byte salt and a fresh 16-byte IV are drawn from crypto/rand
//  2. A 32-byte key is derived from the passphrase and salt with PBKDF2-HMAC-SHA512
//  3. The file is sealed with AES-256-GCM, yielding ciphertext and a 16-byte tag
//
// Keys are never reused across files or runs. Learning one file's key says
// nothing about another's.
//
// # Bundle Format
//
// The records are collected into one JSON document:
//
//	{
//	  "encrypted_content_hash": "<hex sha-256 of files>",
//	  "files": {
//	    ".env": "<iv>,<salt>,<tag>,<ciphertext>"
//	  }
//	}
//
// Each record is four hex fields joined by commas. The content hash is the
// SHA-256 of the canonical JSON encoding of "files" and lets two machines tell
// whether they have seen the same bundle.
//
// # Security Considerations
//
// A wrong passphrase and a tampered record both fail tag verification with
// ErrAuthentication; there is no separate passphrase check. File names are
// stored in clear.
package secrets
