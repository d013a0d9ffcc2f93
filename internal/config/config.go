// Package config loads the server's YAML configuration, grounded on the
// teacher's server.yaml / yaml.v3 decode pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration loaded from server.yaml.
type Config struct {
	ListenPort           string `yaml:"listen_port"`
	AuthFile             string `yaml:"auth_file"`
	NumWorkers           int    `yaml:"num_workers"`
	QueueBuffers         int    `yaml:"queue_buffers"`
	LeaderboardPageSize  int    `yaml:"leaderboard_page_size"`
	TimePollerHz         int    `yaml:"time_poller_hz"`
	QueuePollIntervalMs  int    `yaml:"queue_poll_interval_ms"`
	MineSeedMode         string `yaml:"mine_seed_mode"` // "random" | "fixed"
	MineSeed             int64  `yaml:"mine_seed"`
	LogLevel             string `yaml:"log_level"`
}

// Defaults, applied to any zero-valued field left after loading.
const (
	DefaultListenPort          = "12345"
	DefaultAuthFile            = "Authentication.txt"
	DefaultNumWorkers          = 10
	DefaultQueueBuffers        = 8
	DefaultLeaderboardPageSize = 10
	DefaultTimePollerHz        = 75
	DefaultQueuePollIntervalMs = 1000
	DefaultMineSeedMode        = "random"
	DefaultMineSeed            = 42
	DefaultLogLevel            = "info"
)

// Load reads and decodes path, applying defaults for any field left at its
// zero value so a partial or missing server.yaml still boots the server.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: invalid %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenPort == "" {
		c.ListenPort = DefaultListenPort
	}
	if c.AuthFile == "" {
		c.AuthFile = DefaultAuthFile
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = DefaultNumWorkers
	}
	if c.QueueBuffers == 0 {
		c.QueueBuffers = DefaultQueueBuffers
	}
	if c.LeaderboardPageSize == 0 {
		c.LeaderboardPageSize = DefaultLeaderboardPageSize
	}
	if c.TimePollerHz == 0 {
		c.TimePollerHz = DefaultTimePollerHz
	}
	if c.QueuePollIntervalMs == 0 {
		c.QueuePollIntervalMs = DefaultQueuePollIntervalMs
	}
	if c.MineSeedMode == "" {
		c.MineSeedMode = DefaultMineSeedMode
	}
	if c.MineSeed == 0 {
		c.MineSeed = DefaultMineSeed
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}
