package config

import (
	"log/slog"
	"os"
)

// Config captures process-level configuration for the party registry. All
// knobs come from the environment so entrypoints stay lean.
type Config struct {
	Addr          string
	CorpusDir     string
	RegistryPath  string
	AuditLogPath  string
	JWTSigningKey string
	LogFormat     string
	LogLevel      slog.Level
}

// FromEnv builds a Config from environment variables with local-friendly
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("PARTYREG_ADDR", ":8080"),
		CorpusDir:     envOr("PARTYREG_CORPUS_DIR", "data/transactions"),
		RegistryPath:  envOr("PARTYREG_REGISTRY_PATH", "data/party_registry.json"),
		AuditLogPath:  envOr("PARTYREG_AUDIT_LOG", "data/party_registry_audit.jsonl"),
		LogFormat:     envOr("PARTYREG_LOG_FORMAT", "text"),
		JWTSigningKey: os.Getenv("PARTYREG_JWT_SIGNING_KEY"),
	}
	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden anywhere that matters.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	switch os.Getenv("PARTYREG_LOG_LEVEL") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
