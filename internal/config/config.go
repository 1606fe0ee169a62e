package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment    string
	AdminPort      string
	GatewayPorts   []int
	DatabasePath   string
	BaseDomain     string
	AdminSubdomain string

	// Session cookie settings for anonymous client identities.
	CookieSecret   string
	CookieTTLHours int

	// Response code served to blocked clients.
	BlockedStatus int

	// Outbound forwarding activity timeout in seconds.
	ForwardTimeoutSecs int

	// Retention for idle client identities, in days. 0 disables the job.
	IdentityRetentionDays int
}

// Load reads env vars and falls back to defaults so the gateway can boot
// with zero configuration outside of production.
func Load() (Config, error) {
	cfg := Config{
		Environment:           getEnv("GW_ENV", "development"),
		AdminPort:             getEnv("GW_ADMIN_PORT", "8080"),
		DatabasePath:          getEnv("GW_DB_PATH", filepath.Join("data", "gatewarden.db")),
		BaseDomain:            getEnv("GW_BASE_DOMAIN", "localhost"),
		AdminSubdomain:        getEnv("GW_ADMIN_SUBDOMAIN", "admin"),
		CookieSecret:          getEnv("GW_COOKIE_SECRET", ""),
		CookieTTLHours:        getEnvInt("GW_COOKIE_TTL_HOURS", 24*30),
		BlockedStatus:         getEnvInt("GW_BLOCKED_STATUS", 401),
		ForwardTimeoutSecs:    getEnvInt("GW_FORWARD_TIMEOUT_SECS", 100),
		IdentityRetentionDays: getEnvInt("GW_IDENTITY_RETENTION_DAYS", 0),
	}

	ports, err := parsePorts(getEnv("GW_GATEWAY_PORTS", "8081"))
	if err != nil {
		return Config{}, err
	}
	cfg.GatewayPorts = ports

	if cfg.CookieSecret == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("GW_COOKIE_SECRET is required in production")
		}
		cfg.CookieSecret = "gatewarden-dev-secret"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the gateway runs with production hardening.
func (c Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func parsePorts(raw string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid gateway port %q", part)
		}
		ports = append(ports, p)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no gateway ports configured")
	}
	return ports, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
