package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "nftmarket-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.MetricsAddr != ":9109" {
		t.Fatalf("unexpected App.MetricsAddr: %s", cfg.App.MetricsAddr)
	}
	if cfg.Bridge.URL != "ws://localhost:8546/wallet" {
		t.Fatalf("unexpected Bridge.URL: %s", cfg.Bridge.URL)
	}
	if cfg.Bridge.DialTimeoutMs != 5000 {
		t.Fatalf("unexpected Bridge.DialTimeoutMs: %d", cfg.Bridge.DialTimeoutMs)
	}
	if cfg.Bridge.RequestTimeoutMs != 30000 {
		t.Fatalf("unexpected Bridge.RequestTimeoutMs: %d", cfg.Bridge.RequestTimeoutMs)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Fatalf("unexpected Backend.BaseURL: %s", cfg.Backend.BaseURL)
	}
	if cfg.Swap.Strategy != "aggregator" {
		t.Fatalf("unexpected Swap.Strategy: %s", cfg.Swap.Strategy)
	}
	if cfg.Swap.AggregatorURL != "https://api.testnets.relay.link/quote/v2" {
		t.Fatalf("unexpected Swap.AggregatorURL: %s", cfg.Swap.AggregatorURL)
	}
	if cfg.Swap.SlippageBps != 50 {
		t.Fatalf("unexpected Swap.SlippageBps: %d", cfg.Swap.SlippageBps)
	}
	if cfg.Swap.Referrer != "relay.link/swap" {
		t.Fatalf("unexpected Swap.Referrer: %s", cfg.Swap.Referrer)
	}
	if cfg.Swap.DeadlineSecs != 1200 {
		t.Fatalf("unexpected Swap.DeadlineSecs: %d", cfg.Swap.DeadlineSecs)
	}
	if cfg.Chain.DefaultChainID != 11155111 {
		t.Fatalf("unexpected Chain.DefaultChainID: %d", cfg.Chain.DefaultChainID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
