// Package config loads trustctl configuration from a YAML file, a .env file
// and TRUSTCORE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRUSTCORE_"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log struct {
		// dev | prod
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	CA struct {
		// Store is "file" (Dir holds ca.crt and ca.key) or "memory".
		Store         string        `yaml:"store"`
		Dir           string        `yaml:"dir"`
		CommonName    string        `yaml:"common_name"`
		Organization  string        `yaml:"organization"`
		RootValidity  time.Duration `yaml:"root_validity"`
		LeafValidity  time.Duration `yaml:"leaf_validity"`
		KeyBits       int           `yaml:"key_bits"`
		PassphraseEnv string        `yaml:"passphrase_env"` // name of the variable holding the root key passphrase
	} `yaml:"ca"`

	Challenge struct {
		TTL       time.Duration `yaml:"ttl"`
		Retention time.Duration `yaml:"retention"`
		Store     string        `yaml:"store"` // memory | redis
		Redis     Redis         `yaml:"redis"`
	} `yaml:"challenge"`

	Revocation struct {
		Store    string `yaml:"store"` // memory | redis | postgres
		Redis    Redis  `yaml:"redis"`
		Postgres struct {
			DSN          string `yaml:"dsn"`
			EnsureSchema bool   `yaml:"ensure_schema"`
		} `yaml:"postgres"`
	} `yaml:"revocation"`

	KeyGen struct {
		Workers int `yaml:"workers"`
	} `yaml:"keygen"`
}

// Redis addresses one Redis deployment.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads path (optional), applies defaults and environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}

	// Relative CA directories are resolved against the config file.
	if path != "" && c.CA.Dir != "" && !filepath.IsAbs(c.CA.Dir) {
		c.CA.Dir = filepath.Clean(filepath.Join(filepath.Dir(path), c.CA.Dir))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Env == "" {
		c.Log.Env = "prod"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.CA.Store == "" {
		c.CA.Store = StoreFile
	}
	if c.CA.Dir == "" {
		c.CA.Dir = "trustcore-ca"
	}
	if c.CA.CommonName == "" {
		c.CA.CommonName = "trustcore root CA"
	}
	if c.CA.RootValidity == 0 {
		c.CA.RootValidity = 10 * 365 * 24 * time.Hour
	}
	if c.CA.LeafValidity == 0 {
		c.CA.LeafValidity = 365 * 24 * time.Hour
	}
	if c.CA.KeyBits == 0 {
		c.CA.KeyBits = 2048
	}
	if c.Challenge.TTL == 0 {
		c.Challenge.TTL = 2 * time.Minute
	}
	if c.Challenge.Retention == 0 {
		c.Challenge.Retention = 5 * time.Minute
	}
	if c.Challenge.Store == "" {
		c.Challenge.Store = StoreMemory
	}
	if c.Challenge.Redis.Prefix == "" {
		c.Challenge.Redis.Prefix = "trustcore:challenge:"
	}
	if c.Revocation.Store == "" {
		c.Revocation.Store = StoreMemory
	}
	if c.KeyGen.Workers == 0 {
		c.KeyGen.Workers = 2
	}
}

// Validate checks value ranges and that every selected store is configured.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Log.Env {
	case "dev", "prod":
	default:
		add("log.env must be dev or prod, got %q", c.Log.Env)
	}
	switch c.CA.Store {
	case StoreFile:
		if c.CA.Dir == "" {
			add("ca.dir is required for the file store")
		}
	case StoreMemory:
	default:
		add("ca.store must be file or memory, got %q", c.CA.Store)
	}
	if c.CA.KeyBits < 2048 {
		add("ca.key_bits must be at least 2048, got %d", c.CA.KeyBits)
	}
	if c.CA.RootValidity <= 0 || c.CA.LeafValidity <= 0 {
		add("ca validity periods must be positive")
	}
	if c.CA.LeafValidity > c.CA.RootValidity {
		add("ca.leaf_validity %s exceeds ca.root_validity %s", c.CA.LeafValidity, c.CA.RootValidity)
	}
	if c.Challenge.TTL <= 0 || c.Challenge.Retention < 0 {
		add("challenge.ttl must be positive and challenge.retention non-negative")
	}
	switch c.Challenge.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Challenge.Redis.Addr == "" {
			add("challenge.redis.addr is required for the redis store")
		}
	default:
		add("challenge.store must be memory or redis, got %q", c.Challenge.Store)
	}
	switch c.Revocation.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Revocation.Redis.Addr == "" {
			add("revocation.redis.addr is required for the redis store")
		}
	case StorePostgres:
		if c.Revocation.Postgres.DSN == "" {
			add("revocation.postgres.dsn is required for the postgres store")
		}
	default:
		add("revocation.store must be memory, redis or postgres, got %q", c.Revocation.Store)
	}
	if c.KeyGen.Workers < 1 {
		add("keygen.workers must be at least 1, got %d", c.KeyGen.Workers)
	}
	return errors.Join(errs...)
}

// Passphrase returns the root key passphrase, or nil when none is configured.
func (c *Config) Passphrase() []byte {
	if c.CA.PassphraseEnv == "" {
		return nil
	}
	if v := os.Getenv(c.CA.PassphraseEnv); v != "" {
		return []byte(v)
	}
	return nil
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func (c *Config) applyEnvOverrides() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := getEnvStr(key); ok {
			*dst = v
		}
	}
	lower := func(key string, dst *string) {
		if v, ok := getEnvStr(key); ok {
			*dst = strings.ToLower(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := getEnvStr(key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = i
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := getEnvStr(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	// LOG
	lower("ENV", &c.Log.Env)
	lower("LOG_LEVEL", &c.Log.Level)

	// CA
	lower("CA_STORE", &c.CA.Store)
	str("CA_DIR", &c.CA.Dir)
	str("CA_COMMON_NAME", &c.CA.CommonName)
	str("CA_ORGANIZATION", &c.CA.Organization)
	dur("CA_ROOT_VALIDITY", &c.CA.RootValidity)
	dur("CA_LEAF_VALIDITY", &c.CA.LeafValidity)
	integer("CA_KEY_BITS", &c.CA.KeyBits)
	str("CA_PASSPHRASE_ENV", &c.CA.PassphraseEnv)

	// CHALLENGE
	dur("CHALLENGE_TTL", &c.Challenge.TTL)
	dur("CHALLENGE_RETENTION", &c.Challenge.Retention)
	lower("CHALLENGE_STORE", &c.Challenge.Store)
	str("CHALLENGE_REDIS_ADDR", &c.Challenge.Redis.Addr)
	str("CHALLENGE_REDIS_PASSWORD", &c.Challenge.Redis.Password)
	integer("CHALLENGE_REDIS_DB", &c.Challenge.Redis.DB)
	str("CHALLENGE_REDIS_PREFIX", &c.Challenge.Redis.Prefix)

	// REVOCATION
	lower("REVOCATION_STORE", &c.Revocation.Store)
	str("REVOCATION_REDIS_ADDR", &c.Revocation.Redis.Addr)
	str("REVOCATION_REDIS_PASSWORD", &c.Revocation.Redis.Password)
	integer("REVOCATION_REDIS_DB", &c.Revocation.Redis.DB)
	str("REVOCATION_POSTGRES_DSN", &c.Revocation.Postgres.DSN)
	if v, ok := getEnvStr("REVOCATION_POSTGRES_ENSURE_SCHEMA"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %sREVOCATION_POSTGRES_ENSURE_SCHEMA: %v", ErrInvalid, EnvPrefix, err))
		} else {
			c.Revocation.Postgres.EnsureSchema = b
		}
	}

	// KEYGEN
	integer("KEYGEN_WORKERS", &c.KeyGen.Workers)

	return errors.Join(errs...)
}
