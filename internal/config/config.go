package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

var ownCodePattern = regexp.MustCompile(`^\d{4}$`)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	HTTPPort       string
	StorageBackend string
	DatabaseURL    string
	RedisURL       string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	OwnBankCode    string
	OwnBankName    string
	OwnBankLegalID string
	BINRules       string

	RemoteTimeout      time.Duration
	IdempotencyTTL     time.Duration
	SweepInterval      time.Duration
	PublicRateLimitRPS int
	AdminRateLimitRPS  int
	LogLevel           string
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	bindEnv(v, "port", "PORT", "SWITCH_PORT")
	bindEnv(v, "storage_backend", "STORAGE_BACKEND", "SWITCH_STORAGE_BACKEND")
	bindEnv(v, "database_url", "DATABASE_URL", "SWITCH_DATABASE_URL")
	bindEnv(v, "redis_url", "REDIS_URL", "SWITCH_REDIS_URL")
	bindEnv(v, "jwt_secret", "JWT_SECRET", "SWITCH_JWT_SECRET")
	bindEnv(v, "jwt_issuer", "JWT_ISSUER", "SWITCH_JWT_ISSUER")
	bindEnv(v, "jwt_audience", "JWT_AUDIENCE", "SWITCH_JWT_AUDIENCE")
	bindEnv(v, "own_bank_code", "OWN_BANK_CODE", "SWITCH_OWN_BANK_CODE")
	bindEnv(v, "own_bank_name", "OWN_BANK_NAME", "SWITCH_OWN_BANK_NAME")
	bindEnv(v, "own_bank_legal_id", "OWN_BANK_LEGAL_ID", "SWITCH_OWN_BANK_LEGAL_ID")
	bindEnv(v, "bin_rules", "BIN_RULES", "SWITCH_BIN_RULES")
	bindEnv(v, "remote_timeout", "REMOTE_TIMEOUT", "SWITCH_REMOTE_TIMEOUT")
	bindEnv(v, "idempotency_ttl", "IDEMPOTENCY_TTL", "SWITCH_IDEMPOTENCY_TTL")
	bindEnv(v, "sweep_interval", "SWEEP_INTERVAL", "SWITCH_SWEEP_INTERVAL")
	bindEnv(v, "public_rate_limit_rps", "PUBLIC_RATE_LIMIT_RPS", "SWITCH_PUBLIC_RATE_LIMIT_RPS")
	bindEnv(v, "admin_rate_limit_rps", "ADMIN_RATE_LIMIT_RPS", "SWITCH_ADMIN_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "SWITCH_LOG_LEVEL")

	v.SetDefault("port", "8080")
	v.SetDefault("storage_backend", BackendMemory)
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "interswitch")
	v.SetDefault("jwt_audience", "interswitch-admin")
	v.SetDefault("own_bank_code", "0001")
	v.SetDefault("own_bank_name", "Banco Austral")
	v.SetDefault("own_bank_legal_id", "J-10000001-0")
	v.SetDefault("bin_rules", "")
	v.SetDefault("remote_timeout", "15s")
	v.SetDefault("idempotency_ttl", "24h")
	v.SetDefault("sweep_interval", "10m")
	v.SetDefault("public_rate_limit_rps", 50)
	v.SetDefault("admin_rate_limit_rps", 10)
	v.SetDefault("log_level", "info")

	remoteTimeout, err := time.ParseDuration(v.GetString("remote_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMOTE_TIMEOUT: %w", err)
	}
	ttl, err := time.ParseDuration(v.GetString("idempotency_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	sweepInterval, err := time.ParseDuration(v.GetString("sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}

	cfg := &Config{
		HTTPPort:           v.GetString("port"),
		StorageBackend:     strings.ToLower(v.GetString("storage_backend")),
		DatabaseURL:        v.GetString("database_url"),
		RedisURL:           v.GetString("redis_url"),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTIssuer:          v.GetString("jwt_issuer"),
		JWTAudience:        v.GetString("jwt_audience"),
		OwnBankCode:        v.GetString("own_bank_code"),
		OwnBankName:        v.GetString("own_bank_name"),
		OwnBankLegalID:     v.GetString("own_bank_legal_id"),
		BINRules:           v.GetString("bin_rules"),
		RemoteTimeout:      remoteTimeout,
		IdempotencyTTL:     ttl,
		SweepInterval:      sweepInterval,
		PublicRateLimitRPS: max(v.GetInt("public_rate_limit_rps"), 1),
		AdminRateLimitRPS:  max(v.GetInt("admin_rate_limit_rps"), 1),
		LogLevel:           v.GetString("log_level"),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if !ownCodePattern.MatchString(cfg.OwnBankCode) {
		return nil, fmt.Errorf("OWN_BANK_CODE must be exactly 4 digits")
	}
	if cfg.StorageBackend != BackendMemory && cfg.StorageBackend != BackendPostgres {
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q", BackendMemory, BackendPostgres)
	}
	if cfg.StorageBackend == BackendPostgres && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	if cfg.RemoteTimeout <= 0 {
		return nil, fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if cfg.IdempotencyTTL <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
