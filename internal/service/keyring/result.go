package keyring

import (
	"time"

	"github.com/google/uuid"
)

// ActiveKey is the key selected for a new encryption.
// Provisioned is true when this call created the version.
type ActiveKey struct {
	RecordID    uuid.UUID
	Version     int
	Key         []byte
	Provisioned bool
}

// VersionKey is a historical key version resolved for decryption.
type VersionKey struct {
	RecordID uuid.UUID
	Version  int
	Active   bool
	Key      []byte
}

// KeyInfo describes a key version without any key material.
type KeyInfo struct {
	ID            uuid.UUID  `json:"id"`
	Context       string     `json:"context"`
	Version       int        `json:"version"`
	Active        bool       `json:"active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// SnapshotRecord is a key version including its wrapped (never raw) material.
type SnapshotRecord struct {
	KeyInfo
	WrappedKey []byte `json:"wrapped_key"`
}

// Snapshot is a point-in-time export of every key record.
// MasterKey is the fingerprint of the master key the records are wrapped under.
type Snapshot struct {
	TakenAt   time.Time        `json:"taken_at"`
	MasterKey string           `json:"master_key_fingerprint"`
	Records   []SnapshotRecord `json:"records"`
}

// VerifyFailure names a key version that could not be unwrapped.
type VerifyFailure struct {
	Context string
	Version int
	Err     error
}

// VerifyReport is the outcome of unwrapping every stored key.
type VerifyReport struct {
	Checked  int
	Failures []VerifyFailure
}

// OK reports whether every key unwrapped.
func (r VerifyReport) OK() bool { return len(r.Failures) == 0 }
