package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
)

const (
	// IVSize is the GCM nonce length. It is larger than the 12-byte default
	// to match the bundle format.
	IVSize = 16

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// CipherRecord is one file's encrypted representation.
type CipherRecord struct {
	IV         []byte
	Salt       []byte
	Tag        []byte
	Ciphertext []byte
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap cipher block in GCM: %w", err)
	}

	return gcm, nil
}

// EncryptBytes encrypts plaintext under a key derived from passphrase and a
// fresh salt. Each call draws a new IV and salt, so encrypting the same input
// twice produces unrelated records.
func EncryptBytes(plaintext []byte, passphrase string) (*CipherRecord, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - TagSize

	return &CipherRecord{
		IV:         iv,
		Salt:       salt,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// DecryptRecord reverses EncryptBytes. A tag that does not verify, whether
// from a wrong passphrase or a modified record, returns ErrAuthentication.
func DecryptRecord(rec *CipherRecord, passphrase string) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record is empty", kerrors.ErrMalformedRecord)
	}
	if len(rec.IV) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", kerrors.ErrMalformedRecord, IVSize, len(rec.IV))
	}
	if len(rec.Salt) != SaltSize {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", kerrors.ErrMalformedRecord, SaltSize, len(rec.Salt))
	}
	if len(rec.Tag) != TagSize {
		return nil, fmt.Errorf("%w: tag must be %d bytes, got %d", kerrors.ErrMalformedRecord, TagSize, len(rec.Tag))
	}

	gcm, err := newGCM(DeriveKey(passphrase, rec.Salt))
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(rec.Ciphertext)+TagSize)
	sealed = append(sealed, rec.Ciphertext...)
	sealed = append(sealed, rec.Tag...)

	plaintext, err := gcm.Open(nil, rec.IV, sealed, nil)
	if err != nil {
		return nil, kerrors.ErrAuthentication
	}

	return plaintext, nil
}
