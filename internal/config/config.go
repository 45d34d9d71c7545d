// Package config loads the server's configuration from a YAML file, the way
// the teacher's config package does, with MINIREDIS_* environment variables
// layered on top for values that matter most in container deployments.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minidb/goredis/internal/log"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Databases   int               `yaml:"databases"`
	MaxClients  int               `yaml:"max_clients"`
	MaxMemory   int64             `yaml:"max_memory"`
	Eviction    string            `yaml:"eviction"` // noeviction|lru|lfu|random|ttl
	IdleTimeout time.Duration     `yaml:"idle_timeout"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	AOF         AOFConfig         `yaml:"aof"`
	Log         log.Config        `yaml:"log"`
	Pool        PoolConfig        `yaml:"pool"`
}

// ServerConfig describes the TCP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// SnapshotConfig describes RDB-style snapshot persistence.
type SnapshotConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Filename string        `yaml:"filename"`
	Interval time.Duration `yaml:"interval"`
}

// AOFConfig describes append-only log persistence.
type AOFConfig struct {
	Enabled         bool   `yaml:"is_enable"`
	Filename        string `yaml:"filename"`
	AppendFsync     string `yaml:"append_fsync"` // always|everysec|no
	RewriteMinSize  int64  `yaml:"rewrite_min_size"`
	RewritePercent  int    `yaml:"rewrite_percent"`
}

// PoolConfig sizes the shared goroutine pool.
type PoolConfig struct {
	Size int `yaml:"size"`
}

// Default returns the built-in defaults, documented here rather than left
// implicit: 16 databases, no eviction, AOF everysec, snapshot every 5m.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Address: "0.0.0.0:6379"},
		Databases:  16,
		MaxClients: 10000,
		MaxMemory:  0,
		Eviction:   "noeviction",
		IdleTimeout: 0,
		Snapshot: SnapshotConfig{
			Enabled:  true,
			Filename: "dump.rdb",
			Interval: 5 * time.Minute,
		},
		AOF: AOFConfig{
			Enabled:        true,
			Filename:       "appendonly.aof",
			AppendFsync:    "everysec",
			RewriteMinSize: 64 * 1024,
			RewritePercent: 100,
		},
		Log: log.Config{
			Level:   "info",
			Console: true,
		},
		Pool: PoolConfig{Size: 5000},
	}
}

// Load reads path (if it exists) over the defaults, then applies
// MINIREDIS_*-prefixed environment overrides for the fields operators most
// commonly need to flip without editing the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err == nil {
			defer file.Close()
			decoder := yaml.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil {
				return nil, err
			}
		}
		// A missing config file is not an error: defaults apply, matching
		// the teacher's init() which swallows os.Open failure.
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINIREDIS_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MINIREDIS_DATABASES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Databases = n
		}
	}
	if v := os.Getenv("MINIREDIS_MAX_CLIENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxClients = n
		}
	}
	if v := os.Getenv("MINIREDIS_EVICTION"); v != "" {
		cfg.Eviction = strings.ToLower(v)
	}
	if v := os.Getenv("MINIREDIS_AOF_FSYNC"); v != "" {
		cfg.AOF.AppendFsync = strings.ToLower(v)
	}
	if v := os.Getenv("MINIREDIS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
