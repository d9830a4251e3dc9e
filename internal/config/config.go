// Package config loads CLI configuration for lazyrpc from a jsonc file
// merged with environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"
)

// Config is the lazyrpc CLI configuration.
type Config struct {
	// Endpoint is the WebSocket JSON-RPC endpoint URL.
	Endpoint string `json:"endpoint"`
	// DialTimeoutMS bounds the WebSocket handshake, in milliseconds.
	DialTimeoutMS int `json:"dialTimeoutMs"`
	// LogLevel is DEBUG, INFO, WARN, ERROR, or FATAL.
	LogLevel string `json:"logLevel"`
	// PrettyLogs enables human-readable console logging.
	PrettyLogs bool `json:"prettyLogs"`
	// Headers are sent during the WebSocket handshake.
	Headers map[string]string `json:"headers,omitempty"`
}

// DialTimeout returns the handshake bound as a duration, zero when unset.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

// Load reads lazyrpc.json or lazyrpc.jsonc from directory (first match
// wins), then applies LAZYRPC_* environment overrides. A missing file is
// not an error; a malformed one is.
func Load(directory string) (*Config, error) {
	cfg := &Config{LogLevel: "INFO"}

	for _, name := range []string{"lazyrpc.json", "lazyrpc.jsonc"} {
		path := filepath.Join(directory, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		break
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LAZYRPC_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("LAZYRPC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LAZYRPC_DIAL_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.DialTimeoutMS = ms
		}
	}
	if v := os.Getenv("LAZYRPC_PRETTY_LOGS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.PrettyLogs = b
		}
	}
}
