package keycrypt

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// Envelope layout, before base64:
//
//	[0:4)   key version, uint32 little-endian
//	[4:20)  IV
//	[20:)   AES-256-GCM output (ciphertext || tag)
//
// The version bytes are bound to the ciphertext as additional data.
const (
	VersionSize = 4
	IVSize      = 16
	HeaderSize  = VersionSize + IVSize
)

// Seal encrypts plaintext with key and prefixes the version and a fresh IV.
func Seal(version int, key, plaintext []byte) ([]byte, error) {
	if version < 1 || version > math.MaxInt32 {
		return nil, fmt.Errorf("seal: version %d out of range", version)
	}
	gcm, err := newGCM(key, IVSize)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}

	blob := make([]byte, HeaderSize, HeaderSize+len(plaintext)+gcm.Overhead())
	binary.LittleEndian.PutUint32(blob[:VersionSize], uint32(version))
	if _, err := io.ReadFull(rand.Reader, blob[VersionSize:HeaderSize]); err != nil {
		return nil, fmt.Errorf("seal: iv: %w", err)
	}

	return gcm.Seal(blob, blob[VersionSize:HeaderSize], plaintext, blob[:VersionSize]), nil
}

// ReadVersion returns the key version embedded in a raw blob without
// decrypting anything.
func ReadVersion(blob []byte) (int, error) {
	if len(blob) < HeaderSize {
		return 0, fmt.Errorf("blob is %d bytes, header needs %d: %w", len(blob), HeaderSize, domain.ErrFormatInvalid)
	}
	v := binary.LittleEndian.Uint32(blob[:VersionSize])
	if v == 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("blob carries version %d: %w", v, domain.ErrFormatInvalid)
	}
	return int(v), nil
}

// Open decrypts a raw blob produced by Seal with the key of the embedded version.
func Open(key, blob []byte) ([]byte, error) {
	if _, err := ReadVersion(blob); err != nil {
		return nil, err
	}
	gcm, err := newGCM(key, IVSize)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	plaintext, err := gcm.Open(nil, blob[VersionSize:HeaderSize], blob[HeaderSize:], blob[:VersionSize])
	if err != nil {
		return nil, fmt.Errorf("open: %w", domain.ErrCipherIntegrity)
	}
	return plaintext, nil
}

// Encode renders a raw blob for a text column.
func Encode(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// Decode parses the text form of a blob.
func Decode(text string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode blob: %v: %w", err, domain.ErrFormatInvalid)
	}
	return blob, nil
}
