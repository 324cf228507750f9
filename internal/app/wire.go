package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres"
	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres/keystore"
	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres/usagelog"
	"github.com/heartmarshall/keycustody-backend/internal/config"
	"github.com/heartmarshall/keycustody-backend/internal/keycrypt"
	"github.com/heartmarshall/keycustody-backend/internal/service/envelope"
	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
	"github.com/heartmarshall/keycustody-backend/internal/service/usage"
)

// Components is the wired key custody subsystem.
type Components struct {
	Pool     *pgxpool.Pool
	Master   keycrypt.MasterKey
	Keyring  *keyring.Service
	Ledger   *usage.Ledger
	Envelope *envelope.Service
}

// Close releases the database pool.
func (c *Components) Close() {
	c.Pool.Close()
}

// Wire derives the master key, connects to Postgres and builds the services.
// The caller owns the returned Components and must Close them.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	master, err := keycrypt.NewMasterKey(cfg.Crypto.KDF, cfg.Crypto.MasterPassphrase, []byte(cfg.Crypto.KDFSalt))
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	txm := postgres.NewTxManager(pool)

	keys, err := keyring.NewService(logger, keystore.New(pool), txm, master, cfg.Keyring)
	if err != nil {
		pool.Close()
		return nil, err
	}

	ledger := usage.NewLedger(logger, usagelog.New(pool))

	logger.Info("key custody wired",
		slog.String("kdf", kdfName(cfg.Crypto.KDF)),
		slog.String("master_key", master.Fingerprint()),
	)

	return &Components{
		Pool:     pool,
		Master:   master,
		Keyring:  keys,
		Ledger:   ledger,
		Envelope: envelope.NewService(logger, keys, ledger),
	}, nil
}

func kdfName(kdf string) string {
	if kdf == "" {
		return keycrypt.KDFSHA256
	}
	return kdf
}
