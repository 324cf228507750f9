package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextEmailPassword is the keyring used for the outbound mail server credential.
const ContextEmailPassword = "EmailPassword"

// MaxContextLength bounds the keyring name; it matches the column width.
const MaxContextLength = 100

// KeyRecord is one version of a symmetric key belonging to a keyring context.
// WrappedKey holds the raw key sealed under the master key and is opaque at rest.
type KeyRecord struct {
	ID            uuid.UUID
	Context       string
	Version       int
	WrappedKey    []byte
	Active        bool
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	DeactivatedAt *time.Time
	Notes         string
}

// IsExpired reports whether the key is past its expiry at now.
// A key without ExpiresAt never expires.
func (k *KeyRecord) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// EligibleForEncrypt reports whether the key may protect new data.
// Eligibility for decryption is unconditional and is not modelled here.
func (k *KeyRecord) EligibleForEncrypt(now time.Time) bool {
	return k.Active && !k.IsExpired(now)
}

// Operation names a cryptographic operation recorded in the usage ledger.
type Operation string

const (
	OperationEncrypt Operation = "encrypt"
	OperationDecrypt Operation = "decrypt"
)

// IsValid reports whether the operation is one of the known values.
func (o Operation) IsValid() bool {
	switch o {
	case OperationEncrypt, OperationDecrypt:
		return true
	}
	return false
}

func (o Operation) String() string { return string(o) }

// UsageLogEntry records a single encrypt or decrypt attempt.
// KeyRecordID is nil when the attempt failed before a key was resolved.
// ErrorMessage is set iff Success is false.
type UsageLogEntry struct {
	ID           uuid.UUID
	KeyRecordID  *uuid.UUID
	Operation    Operation
	Context      string
	Identifier   *string
	Success      bool
	ErrorMessage *string
	CreatedAt    time.Time
}

// ValidateContext checks a keyring context name.
func ValidateContext(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("context", "required")
	}
	if len(name) > MaxContextLength {
		return NewValidationError("context", fmt.Sprintf("must be at most %d characters", MaxContextLength))
	}
	return nil
}
