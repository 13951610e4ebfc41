// Package config provides centralized configuration for the custody
// daemon. All chain endpoints, central wallets, and sweep thresholds
// are defined here; no hardcoded endpoints should exist elsewhere.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// NetworkType represents the network (mainnet or testnet).
type NetworkType string

const (
	NetworkMainnet NetworkType = "mainnet"
	NetworkTestnet NetworkType = "testnet"
)

// Config holds all configuration for the custody daemon.
type Config struct {
	// NetworkType is the network type (mainnet or testnet).
	NetworkType NetworkType `yaml:"network_type"`

	// Storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Exchange is the external liquidity venue.
	Exchange ExchangeConfig `yaml:"exchange"`

	// Coins holds per-coin chain access and sweep settings.
	Coins map[string]CoinConfig `yaml:"coins"`

	// Jobs holds the background timer intervals.
	Jobs JobsConfig `yaml:"jobs"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	// DataDir is the directory for the database and config.
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
}

// ExchangeConfig holds venue API settings.
type ExchangeConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// DepositAddrs overrides the venue deposit address per coin.
	DepositAddrs map[string]string `yaml:"deposit_addrs,omitempty"`
}

// CoinConfig holds chain access and sweep settings for one coin.
type CoinConfig struct {
	// Electrum servers (UTXO coins), host:port.
	ElectrumServers []string `yaml:"electrum_servers,omitempty"`
	ElectrumTLS     bool     `yaml:"electrum_tls,omitempty"`

	// RPCEndpoint is the node endpoint (EVM JSON-RPC, TronGrid REST,
	// Solana JSON-RPC).
	RPCEndpoint string `yaml:"rpc_endpoint,omitempty"`

	// ExplorerAPI serves address history (Etherscan-style for EVM) and
	// the read fallback for UTXO coins (Esplora-style).
	ExplorerAPI string `yaml:"explorer_api,omitempty"`
	ExplorerKey string `yaml:"explorer_key,omitempty"`

	// CentralWallet is the hot wallet deposits are forwarded to.
	CentralWallet string `yaml:"central_wallet"`

	// CentralKey is the hot wallet's hex key material.
	CentralKey string `yaml:"central_key"`

	// MinSweepAmount is the sweep threshold in coin units.
	MinSweepAmount string `yaml:"min_sweep_amount"`
}

// JobsConfig holds background timer intervals in seconds.
type JobsConfig struct {
	PollIntervalSec     int `yaml:"poll_interval_sec"`
	MergeIntervalSec    int `yaml:"merge_interval_sec"`
	HotSweepIntervalSec int `yaml:"hot_sweep_interval_sec"`
}

// IsTestnet returns true if running on testnet.
func (c *Config) IsTestnet() bool {
	return c.NetworkType == NetworkTestnet
}

// MinSweep returns a coin's sweep threshold as an exact decimal. A
// missing or malformed value disables sweeping for the coin.
func (cc *CoinConfig) MinSweep() decimal.Decimal {
	if cc.MinSweepAmount == "" {
		return decimal.Zero
	}
	threshold, err := decimal.NewFromString(cc.MinSweepAmount)
	if err != nil {
		return decimal.Zero
	}
	return threshold
}

// DefaultConfig returns a Config with public endpoints and conservative
// sweep thresholds. Central wallets must be filled in before sweeping
// does anything.
func DefaultConfig() *Config {
	return &Config{
		NetworkType: NetworkMainnet,
		Storage: StorageConfig{
			DataDir: "~/.custody",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Exchange: ExchangeConfig{
			BaseURL: "http://localhost:8090",
		},
		Coins: map[string]CoinConfig{
			"BTC": {
				ElectrumServers: []string{"electrum.blockstream.info:50002"},
				ElectrumTLS:     true,
				ExplorerAPI:     "https://blockstream.info/api",
				MinSweepAmount:  "0.0001",
			},
			"LTC": {
				ElectrumServers: []string{"electrum-ltc.bysh.me:50002"},
				ElectrumTLS:     true,
				MinSweepAmount:  "0.01",
			},
			"DOGE": {
				ElectrumServers: []string{"electrum1.cipig.net:20060"},
				MinSweepAmount:  "10",
			},
			"ETH": {
				RPCEndpoint:    "https://ethereum-rpc.publicnode.com",
				ExplorerAPI:    "https://api.etherscan.io/api",
				MinSweepAmount: "0.005",
			},
			"BNB": {
				RPCEndpoint:    "https://bsc-rpc.publicnode.com",
				ExplorerAPI:    "https://api.bscscan.com/api",
				MinSweepAmount: "0.01",
			},
			"TRX": {
				RPCEndpoint:    "https://api.trongrid.io",
				MinSweepAmount: "10",
			},
			"SOL": {
				RPCEndpoint:    "https://api.mainnet-beta.solana.com",
				MinSweepAmount: "0.05",
			},
			"USDT": {MinSweepAmount: "10"},
			"USDC": {MinSweepAmount: "10"},
		},
		Jobs: JobsConfig{
			PollIntervalSec:     60,
			MergeIntervalSec:    300,
			HotSweepIntervalSec: 600,
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// Load loads configuration from a YAML file in dataDir. If the file
// doesn't exist, it creates one with default values.
func Load(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Custody Daemon Configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	// 0600: coin configs carry hot wallet key material.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the full path to the config file for a data dir.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
