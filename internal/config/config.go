// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	DataRoot   string
	GitTimeout time.Duration
}

// ReposRoot returns the directory holding the canonical bare stores.
func (c *Config) ReposRoot() string {
	return filepath.Join(c.DataRoot, "repos")
}

// WorkspacesRoot returns the directory holding per-user working copies.
func (c *Config) WorkspacesRoot() string {
	return filepath.Join(c.DataRoot, "workspaces")
}

// Load reads configuration from environment variables and returns a validated Config.
// Optional variables with defaults: GITSERVE_LISTEN_ADDR (127.0.0.1:8080),
// GITSERVE_DB_PATH (gitserve.db), GITSERVE_DATA_ROOT (./data),
// GITSERVE_GIT_TIMEOUT (60s, per git invocation).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("GITSERVE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "gitserve.db"
	if v, ok := os.LookupEnv("GITSERVE_DB_PATH"); ok {
		dbPath = v
	}

	dataRoot := "data"
	if v, ok := os.LookupEnv("GITSERVE_DATA_ROOT"); ok {
		dataRoot = v
	}

	gitTimeout := 60 * time.Second
	if v, ok := os.LookupEnv("GITSERVE_GIT_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GITSERVE_GIT_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("GITSERVE_GIT_TIMEOUT must be positive, got %q", v)
		}
		gitTimeout = parsed
	}

	return &Config{
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		DataRoot:   dataRoot,
		GitTimeout: gitTimeout,
	}, nil
}
