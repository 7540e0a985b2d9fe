package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	ArchivePath string
	SessionDir  string
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string
}

func Load() Config {
	return Config{
		Port:        envInt("ARBOR_PORT", 8760),
		ArchivePath: envStr("ARBOR_ARCHIVE", "conversations.json"),
		SessionDir:  envStr("ARBOR_SESSIONS", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("ARBOR_API_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
