// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Bridge configures the websocket connection to the wallet signing bridge.
type Bridge struct {
	URL              string `yaml:"url"`
	DialTimeoutMs    int    `yaml:"dial_timeout_ms"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

// Backend points at the marketplace REST collaborator (uploads, re-indexing, auctions).
type Backend struct {
	BaseURL string `yaml:"base_url"`
}

// Swap selects the quoting strategy and its tuning knobs.
type Swap struct {
	Strategy      string `yaml:"strategy"` // aggregator|direct
	AggregatorURL string `yaml:"aggregator_url"`
	SlippageBps   int64  `yaml:"slippage_bps"`
	Referrer      string `yaml:"referrer"`
	DeadlineSecs  int64  `yaml:"deadline_secs"`
}

// Chain holds the default chain selection; contract addresses live in the chain registry.
type Chain struct {
	DefaultChainID uint64 `yaml:"default_chain_id"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Bridge  Bridge  `yaml:"bridge"`
	Backend Backend `yaml:"backend"`
	Swap    Swap    `yaml:"swap"`
	Chain   Chain   `yaml:"chain"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
