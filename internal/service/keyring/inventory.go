package keyring

import (
	"context"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
	"github.com/heartmarshall/keycustody-backend/internal/keycrypt"
)

// ListVersions returns every version of keyContext, newest first, without key material.
func (s *Service) ListVersions(ctx context.Context, keyContext string) ([]KeyInfo, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return nil, err
	}

	records, err := s.keys.ListByContext(ctx, keyContext)
	if err != nil {
		return nil, storeError("list key versions", err)
	}

	infos := make([]KeyInfo, len(records))
	for i, rec := range records {
		infos[i] = toKeyInfo(rec)
	}
	return infos, nil
}

// Snapshot exports every key record with its wrapped material. The snapshot
// is only useful together with the master key it was wrapped under.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	records, err := s.keys.ListAll(ctx)
	if err != nil {
		return Snapshot{}, storeError("list keys", err)
	}

	snap := Snapshot{
		TakenAt:   s.now().UTC(),
		MasterKey: s.master.Fingerprint(),
		Records:   make([]SnapshotRecord, len(records)),
	}
	for i, rec := range records {
		snap.Records[i] = SnapshotRecord{KeyInfo: toKeyInfo(rec), WrappedKey: rec.WrappedKey}
	}
	return snap, nil
}

// Verify unwraps every stored key with the configured master key. Failures
// usually mean the passphrase changed since the keys were wrapped.
func (s *Service) Verify(ctx context.Context) (VerifyReport, error) {
	records, err := s.keys.ListAll(ctx)
	if err != nil {
		return VerifyReport{}, storeError("list keys", err)
	}

	var report VerifyReport
	for _, rec := range records {
		report.Checked++
		raw, err := s.master.Unwrap(rec.WrappedKey)
		if err != nil {
			report.Failures = append(report.Failures, VerifyFailure{Context: rec.Context, Version: rec.Version, Err: err})
			continue
		}
		keycrypt.Wipe(raw)
	}
	return report, nil
}

func toKeyInfo(rec domain.KeyRecord) KeyInfo {
	return KeyInfo{
		ID:            rec.ID,
		Context:       rec.Context,
		Version:       rec.Version,
		Active:        rec.Active,
		ExpiresAt:     rec.ExpiresAt,
		CreatedAt:     rec.CreatedAt,
		DeactivatedAt: rec.DeactivatedAt,
		Notes:         rec.Notes,
	}
}
