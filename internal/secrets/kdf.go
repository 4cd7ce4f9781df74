package secrets

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of a derived AES-256 key.
	KeySize = 32

	// SaltSize is the length of the random salt stored with each record.
	SaltSize = 16

	// KDFIterations is the PBKDF2 work factor. Changing it breaks every
	// existing bundle, since the count is not stored alongside the salt.
	KDFIterations = 100000
)

// DeriveKey stretches a passphrase into a 32-byte key with PBKDF2-HMAC-SHA512.
// The same passphrase and salt always yield the same key.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, KDFIterations, KeySize, sha512.New)
}
