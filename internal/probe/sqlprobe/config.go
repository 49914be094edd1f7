// File path: internal/probe/sqlprobe/config.go
package sqlprobe

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the pooled connection the probe issues read-only queries
// over. Shaped after internal/sqlite's Config/LoadConfig/Merge pattern.
type Config struct {
	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	DefaultDeadline time.Duration
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.MaxOpenConns > 0 {
		result.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		result.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		result.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if override.ConnMaxIdleTime > 0 {
		result.ConnMaxIdleTime = override.ConnMaxIdleTime
	}
	if override.DefaultDeadline > 0 {
		result.DefaultDeadline = override.DefaultDeadline
	}
	return result
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 16
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 15 * time.Minute
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.DefaultDeadline <= 0 {
		c.DefaultDeadline = 10 * time.Second
	}
}

// LoadConfig builds a Config from WORKORDER_PROBE_* environment variables,
// falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if v := strings.TrimSpace(os.Getenv("WORKORDER_PROBE_MAX_OPEN_CONNS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse WORKORDER_PROBE_MAX_OPEN_CONNS: %w", err)
		}
		cfg.MaxOpenConns = n
	}
	if v := strings.TrimSpace(os.Getenv("WORKORDER_PROBE_MAX_IDLE_CONNS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse WORKORDER_PROBE_MAX_IDLE_CONNS: %w", err)
		}
		cfg.MaxIdleConns = n
	}
	if v := strings.TrimSpace(os.Getenv("WORKORDER_PROBE_CONN_MAX_LIFETIME")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse WORKORDER_PROBE_CONN_MAX_LIFETIME: %w", err)
		}
		cfg.ConnMaxLifetime = d
	}
	if v := strings.TrimSpace(os.Getenv("WORKORDER_PROBE_CONN_MAX_IDLE_TIME")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse WORKORDER_PROBE_CONN_MAX_IDLE_TIME: %w", err)
		}
		cfg.ConnMaxIdleTime = d
	}
	if v := strings.TrimSpace(os.Getenv("WORKORDER_PROBE_DEADLINE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse WORKORDER_PROBE_DEADLINE: %w", err)
		}
		cfg.DefaultDeadline = d
	}
	cfg.applyDefaults()
	return cfg, nil
}
