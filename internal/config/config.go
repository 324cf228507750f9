package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Keyring  KeyringConfig  `yaml:"keyring"`
	Backup   BackupConfig   `yaml:"backup"`
}

// ServerConfig holds HTTP server settings for the health endpoints.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"    env:"DATABASE_CONNECT_TIMEOUT"    env-default:"30s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CryptoConfig holds the master key source. The passphrase is consumed once
// at startup and never logged.
type CryptoConfig struct {
	MasterPassphrase string `yaml:"master_passphrase" env:"CRYPTO_MASTER_PASSPHRASE" env-required:"true"`
	KDF              string `yaml:"kdf"               env:"CRYPTO_KDF"               env-default:"sha256"`
	KDFSalt          string `yaml:"kdf_salt"          env:"CRYPTO_KDF_SALT"`
}

// KeyringConfig holds key lifecycle settings.
type KeyringConfig struct {
	DefaultKeepCount    int           `yaml:"default_keep_count" env:"KEYRING_DEFAULT_KEEP_COUNT" env-default:"2"`
	RotationInterval    time.Duration `yaml:"rotation_interval"  env:"KEYRING_ROTATION_INTERVAL"  env-default:"0s"`
	RotationContextsRaw string        `yaml:"rotation_contexts"  env:"KEYRING_ROTATION_CONTEXTS"  env-default:"EmailPassword"`
	KeyTTL              time.Duration `yaml:"key_ttl"            env:"KEYRING_KEY_TTL"            env-default:"0s"`

	// RotationContexts is parsed from RotationContextsRaw during validation.
	RotationContexts []string `yaml:"-" env:"-"`
}

// BackupConfig holds the S3 destination for wrapped-key snapshots.
// An empty Bucket disables backups.
type BackupConfig struct {
	Bucket          string `yaml:"bucket"            env:"BACKUP_S3_BUCKET"`
	Region          string `yaml:"region"            env:"BACKUP_S3_REGION"            env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint"          env:"BACKUP_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id"     env:"BACKUP_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"BACKUP_S3_SECRET_ACCESS_KEY"`
	Prefix          string `yaml:"prefix"            env:"BACKUP_S3_PREFIX"            env-default:"keycustody"`
	UsePathStyle    bool   `yaml:"use_path_style"    env:"BACKUP_S3_USE_PATH_STYLE"    env-default:"false"`
}

// Enabled reports whether a backup destination is configured.
func (c BackupConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// RotationEnabled reports whether the daemon should rotate on a schedule.
func (c KeyringConfig) RotationEnabled() bool {
	return c.RotationInterval > 0 && len(c.RotationContexts) > 0
}
