// Package config loads xmlget defaults from the environment. Command-line
// flags override anything set here.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Request timeout, pass-through to the HTTP client.
	Timeout time.Duration

	// User-Agent override. Empty keeps the mocked browser agent.
	UserAgent string

	// MockBrowser controls whether a browser User-Agent is sent at all.
	MockBrowser bool

	// Convention is the default XML-to-JSON convention.
	Convention string
}

func Load() Config {
	cfg := Config{
		Timeout:     envDuration("XMLGET_TIMEOUT", 30*time.Second),
		UserAgent:   os.Getenv("XMLGET_USER_AGENT"),
		MockBrowser: envBool("XMLGET_MOCK_BROWSER", true),
		Convention:  envOr("XMLGET_CONVENTION", "badgerfish"),
	}

	if cfg.Timeout < 0 {
		cfg.Timeout = 30 * time.Second
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
