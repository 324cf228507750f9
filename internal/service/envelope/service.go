// Package envelope implements the envelope codec: the two operations other
// components call to protect a secret at rest.
package envelope

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
	"github.com/heartmarshall/keycustody-backend/internal/keycrypt"
	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
	"github.com/heartmarshall/keycustody-backend/pkg/ctxutil"
)

type keyManager interface {
	GetActiveKey(ctx context.Context, keyContext string) (keyring.ActiveKey, error)
	GetKeyByVersion(ctx context.Context, keyContext string, version int) (keyring.VersionKey, error)
}

type usageRecorder interface {
	Record(ctx context.Context, keyID *uuid.UUID, op domain.Operation, keyContext string, identifier *string, opErr error)
}

// Service encrypts and decrypts secrets under per-context versioned keys.
type Service struct {
	keys  keyManager
	usage usageRecorder
	log   *slog.Logger
}

// NewService creates a new envelope codec.
func NewService(log *slog.Logger, keys keyManager, usage usageRecorder) *Service {
	return &Service{
		keys:  keys,
		usage: usage,
		log:   log.With("service", "envelope"),
	}
}

// Encrypt seals plaintext under the active key of keyContext and returns the
// base64 blob. The blob embeds the key version, so it stays decryptable after
// rotation and retirement.
func (s *Service) Encrypt(ctx context.Context, plaintext, keyContext string) (string, error) {
	key, err := s.keys.GetActiveKey(ctx, keyContext)
	if err != nil {
		return "", s.fail(ctx, domain.OperationEncrypt, keyContext, nil, err)
	}
	defer keycrypt.Wipe(key.Key)

	blob, err := keycrypt.Seal(key.Version, key.Key, []byte(plaintext))
	if err != nil {
		return "", s.fail(ctx, domain.OperationEncrypt, keyContext, &key.RecordID, err)
	}

	s.usage.Record(ctx, &key.RecordID, domain.OperationEncrypt, keyContext, identifier(ctx), nil)
	return keycrypt.Encode(blob), nil
}

// Decrypt opens a blob produced by Encrypt using exactly the key version it
// embeds, whether or not that version is still active.
func (s *Service) Decrypt(ctx context.Context, text, keyContext string) (string, error) {
	blob, err := keycrypt.Decode(text)
	if err != nil {
		return "", s.fail(ctx, domain.OperationDecrypt, keyContext, nil, err)
	}

	version, err := keycrypt.ReadVersion(blob)
	if err != nil {
		return "", s.fail(ctx, domain.OperationDecrypt, keyContext, nil, err)
	}

	key, err := s.keys.GetKeyByVersion(ctx, keyContext, version)
	if err != nil {
		return "", s.fail(ctx, domain.OperationDecrypt, keyContext, resolvedID(key), err)
	}
	defer keycrypt.Wipe(key.Key)

	plaintext, err := keycrypt.Open(key.Key, blob)
	if err != nil {
		return "", s.fail(ctx, domain.OperationDecrypt, keyContext, &key.RecordID, fmt.Errorf("%s v%d: %w", keyContext, version, err))
	}

	s.usage.Record(ctx, &key.RecordID, domain.OperationDecrypt, keyContext, identifier(ctx), nil)
	return string(plaintext), nil
}

// fail records the failed attempt and returns err wrapped with the operation.
func (s *Service) fail(ctx context.Context, op domain.Operation, keyContext string, keyID *uuid.UUID, err error) error {
	s.usage.Record(ctx, keyID, op, keyContext, identifier(ctx), err)
	s.log.WarnContext(ctx, "envelope operation failed",
		slog.String("operation", op.String()),
		slog.String("context", keyContext),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

// resolvedID is nil unless the key record was found.
func resolvedID(key keyring.VersionKey) *uuid.UUID {
	if key.RecordID == uuid.Nil {
		return nil
	}
	return &key.RecordID
}

func identifier(ctx context.Context) *string {
	if id, ok := ctxutil.IdentifierFromCtx(ctx); ok {
		return &id
	}
	return nil
}
