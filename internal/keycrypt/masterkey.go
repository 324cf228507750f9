// Package keycrypt holds the cryptographic primitives of the key custody
// subsystem: master key derivation, key wrapping and the versioned envelope
// format. It performs no I/O.
package keycrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// KeySize is the length in bytes of the master key and of every data key (AES-256).
const KeySize = 32

// Supported master key derivation functions.
const (
	KDFSHA256   = "sha256"
	KDFArgon2id = "argon2id"
)

// argon2id parameters for new deployments.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// MinSaltLen is the shortest salt accepted for argon2id.
const MinSaltLen = 16

// MasterKey is the key-encryption key derived from the deployment passphrase.
// It is never persisted.
type MasterKey struct {
	key []byte
}

// DeriveMasterKey hashes the passphrase with SHA-256 into a 256-bit key.
// The same passphrase always yields the same key.
func DeriveMasterKey(passphrase string) (MasterKey, error) {
	if passphrase == "" {
		return MasterKey{}, fmt.Errorf("master passphrase is empty: %w", domain.ErrConfiguration)
	}
	sum := sha256.Sum256([]byte(passphrase))
	return MasterKey{key: sum[:]}, nil
}

// DeriveMasterKeyArgon2id stretches the passphrase with argon2id and the given salt.
func DeriveMasterKeyArgon2id(passphrase string, salt []byte) (MasterKey, error) {
	if passphrase == "" {
		return MasterKey{}, fmt.Errorf("master passphrase is empty: %w", domain.ErrConfiguration)
	}
	if len(salt) < MinSaltLen {
		return MasterKey{}, fmt.Errorf("argon2id salt must be at least %d bytes: %w", MinSaltLen, domain.ErrConfiguration)
	}
	return MasterKey{key: argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, KeySize)}, nil
}

// NewMasterKey derives the master key using the named KDF.
func NewMasterKey(kdf, passphrase string, salt []byte) (MasterKey, error) {
	switch kdf {
	case "", KDFSHA256:
		return DeriveMasterKey(passphrase)
	case KDFArgon2id:
		return DeriveMasterKeyArgon2id(passphrase, salt)
	default:
		return MasterKey{}, fmt.Errorf("unknown kdf %q: %w", kdf, domain.ErrConfiguration)
	}
}

// IsZero reports whether the key was never derived.
func (m MasterKey) IsZero() bool { return len(m.key) == 0 }

// Fingerprint returns a short, non-reversible identifier of the key for logs.
func (m MasterKey) Fingerprint() string {
	sum := sha256.Sum256(append([]byte("keycustody/fingerprint/"), m.key...))
	return hex.EncodeToString(sum[:8])
}

// String never prints key material.
func (m MasterKey) String() string { return "MasterKey(" + m.Fingerprint() + ")" }

// Wrap seals a raw data key under the master key: nonce || AES-GCM(raw).
func (m MasterKey) Wrap(raw []byte) ([]byte, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("wrap key: %w", domain.ErrConfiguration)
	}
	gcm, err := newGCM(m.key, 0)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("wrap key: nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, raw, nil), nil
}

// Unwrap opens a key sealed by Wrap. A wrong master key or corrupted
// material yields domain.ErrCipherIntegrity.
func (m MasterKey) Unwrap(wrapped []byte) ([]byte, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("unwrap key: %w", domain.ErrConfiguration)
	}
	gcm, err := newGCM(m.key, 0)
	if err != nil {
		return nil, err
	}

	ns := gcm.NonceSize()
	if len(wrapped) < ns+gcm.Overhead() {
		return nil, fmt.Errorf("unwrap key: wrapped key too short: %w", domain.ErrCipherIntegrity)
	}

	raw, err := gcm.Open(nil, wrapped[:ns], wrapped[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", domain.ErrCipherIntegrity)
	}
	return raw, nil
}

// GenerateDataKey returns a fresh random 256-bit key.
func GenerateDataKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate data key: %w", err)
	}
	return key, nil
}

// Wipe zeroes a key buffer once it is no longer needed.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// newGCM builds AES-GCM for key. nonceSize 0 selects the standard 12-byte nonce.
func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	if nonceSize == 0 {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
