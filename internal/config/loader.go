package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"agentforge/internal/logging"
)

// Load reads configuration from environment variables, optionally overlaid
// by a local .env file, per spec §4.1/§6.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	cfg.Environment = firstNonEmpty(envTrim("ENVIRONMENT"), "development")

	cfg.OpenAIAPIKey = envTrim("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = envTrim("OPENAI_BASE_URL")

	cfg.RedisHost = envTrim("REDIS_HOST")
	cfg.RedisPort = envTrim("REDIS_PORT")
	if v := envTrim("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = n
		}
	}

	cfg.QdrantURL = envTrim("QDRANT_URL")
	cfg.QdrantAPIKey = envTrim("QDRANT_API_KEY")

	cfg.DatabaseURL = normalizeDatabaseURL(envTrim("DATABASE_URL"))

	cfg.JWTSecret = envTrim("JWT_SECRET")
	cfg.JWTIssuer = firstNonEmpty(envTrim("JWT_ISSUER"), "agentforge")
	cfg.JWTAccessTTLMins = 15
	if v := envTrim("JWT_ACCESS_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.JWTAccessTTLMins = n
		}
	}

	if v := envTrim("ENCRYPTION_KEY"); v != "" {
		key, err := deriveKey(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
		}
		cfg.EncryptionKey = key
	}

	cfg.AgentsDir = firstNonEmpty(envTrim("AGENTS_DIR"), "data/agents")

	cfg.RedisQueueName = firstNonEmpty(envTrim("REDIS_QUEUE_NAME"), "agentforge:jobs")
	cfg.RedisStreamName = firstNonEmpty(envTrim("REDIS_STREAM_NAME"), "agentforge:jobs")

	cfg.MigrateOnStartup = isTruthy(envTrim("MIGRATE_ON_STARTUP"))

	cfg.AccessToken = envTrim("ACCESS_TOKEN")

	logging.SetLevel(firstNonEmpty(envTrim("LOG_LEVEL"), "info"))

	if cfg.OpenAIAPIKey == "" {
		logging.From(nil).Warn().Msg("config_missing_openai_api_key")
	}
	if cfg.JWTSecret == "" && cfg.AccessToken == "" {
		logging.From(nil).Warn().Msg("config_no_auth_secret_configured_dev_mode")
	}

	return cfg, nil
}

// normalizeDatabaseURL strips a leading "psql " prefix and surrounding
// quotes, per spec §4.1/§6.
func normalizeDatabaseURL(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "psql ")
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			v = v[1 : len(v)-1]
		}
	}
	return v
}

// isTruthy matches spec §6's MIGRATE_ON_STARTUP truthy strings.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// envTrim looks name up case-insensitively: the upper-cased name is tried
// first, then any environment variable whose name matches ignoring case.
func envTrim(name string) string {
	name = strings.ToUpper(name)
	if v, ok := os.LookupEnv(name); ok {
		return strings.TrimSpace(v)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
