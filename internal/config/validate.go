package config

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
	"github.com/heartmarshall/keycustody-backend/internal/keycrypt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Crypto.validate(); err != nil {
		return fmt.Errorf("crypto: %w", err)
	}

	if err := c.Keyring.validate(); err != nil {
		return fmt.Errorf("keyring: %w", err)
	}

	if c.Backup.Enabled() && strings.TrimSpace(c.Backup.Region) == "" {
		return fmt.Errorf("backup: region is required when bucket is set")
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database: min_conns (%d) must not exceed max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	return nil
}

func (c *CryptoConfig) validate() error {
	if c.MasterPassphrase == "" {
		return fmt.Errorf("master_passphrase is required: %w", domain.ErrConfiguration)
	}

	switch c.KDF {
	case keycrypt.KDFSHA256:
	case keycrypt.KDFArgon2id:
		if len(c.KDFSalt) < keycrypt.MinSaltLen {
			return fmt.Errorf("kdf_salt must be at least %d bytes for argon2id (got %d): %w",
				keycrypt.MinSaltLen, len(c.KDFSalt), domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("kdf must be %q or %q (got %q): %w", keycrypt.KDFSHA256, keycrypt.KDFArgon2id, c.KDF, domain.ErrConfiguration)
	}

	return nil
}

func (k *KeyringConfig) validate() error {
	if k.DefaultKeepCount < 1 {
		return fmt.Errorf("default_keep_count must be >= 1 (got %d)", k.DefaultKeepCount)
	}
	if k.RotationInterval < 0 {
		return fmt.Errorf("rotation_interval must be >= 0 (got %v)", k.RotationInterval)
	}
	if k.KeyTTL < 0 {
		return fmt.Errorf("key_ttl must be >= 0 (got %v)", k.KeyTTL)
	}
	// A key that expires before the next scheduled rotation leaves a window
	// where encryption falls back to on-demand provisioning.
	if k.KeyTTL > 0 && k.RotationInterval > 0 && k.KeyTTL <= k.RotationInterval {
		return fmt.Errorf("key_ttl (%v) must exceed rotation_interval (%v)", k.KeyTTL, k.RotationInterval)
	}

	contexts, err := ParseContexts(k.RotationContextsRaw)
	if err != nil {
		return fmt.Errorf("rotation_contexts: %w", err)
	}
	k.RotationContexts = contexts

	return nil
}

// ParseContexts parses a comma-separated list of keyring context names
// (e.g. "EmailPassword,ApiTokens"). Duplicates are dropped; an empty string
// returns a nil slice.
func ParseContexts(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	contexts := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		if err := domain.ValidateContext(p); err != nil {
			return nil, fmt.Errorf("context %q: %w", p, err)
		}
		seen[p] = true
		contexts = append(contexts, p)
	}

	return contexts, nil
}
