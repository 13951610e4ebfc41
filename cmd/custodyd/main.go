// Package main provides the custodyd daemon - deposit observation and
// sweep automation for a multi-currency exchange.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ankerid/custody/internal/adapter"
	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/config"
	"github.com/ankerid/custody/internal/custody"
	"github.com/ankerid/custody/internal/electrum"
	"github.com/ankerid/custody/internal/exchange"
	"github.com/ankerid/custody/internal/jobs"
	"github.com/ankerid/custody/internal/ledger"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/internal/sweep"
	"github.com/ankerid/custody/internal/watcher"
	"github.com/ankerid/custody/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir        = flag.String("data-dir", "~/.custody", "Data directory")
		configFile     = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		testnet        = flag.Bool("testnet", false, "Run on testnet (separate chains and data)")
		logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion    = flag.Bool("version", false, "Show version and exit")
		generateMaster = flag.Bool("generate-master", false, "Generate a master mnemonic and per-chain hot wallet addresses, then exit")
	)
	flag.Parse()

	// Set up logging (initial, may be overridden by config)
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})

	if *showVersion {
		log.Infof("custodyd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	chainNet := chain.Mainnet
	if *testnet {
		chainNet = chain.Testnet
	}

	if *generateMaster {
		if err := generateMasterWallets(chainNet); err != nil {
			log.Fatal("Failed to generate master wallets", "error", err)
		}
		os.Exit(0)
	}

	// Determine data directory (testnet uses subdirectory)
	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}

	// Load or create config file
	var cfg *config.Config
	var err error

	if *configFile != "" {
		// Use specified config file
		cfg, err = config.Load(filepath.Dir(*configFile))
	} else {
		// Use default config location in data directory
		cfg, err = config.Load(effectiveDataDir)
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Apply CLI overrides (CLI flags take precedence over config file)
	cfg.Logging.Level = *logLevel
	cfg.Storage.DataDir = effectiveDataDir

	// Set network type
	if *testnet {
		cfg.NetworkType = config.NetworkTestnet
	} else {
		cfg.NetworkType = config.NetworkMainnet
	}

	// Update logging with config level
	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})

	log.Info("Config loaded", "path", config.ConfigPath(effectiveDataDir))

	// Initialize the ledger
	store, err := ledger.Open(cfg.Storage.DataDir)
	if err != nil {
		log.Fatal("Failed to open ledger", "error", err)
	}
	defer store.Close()
	log.Info("Ledger opened", "path", expandPath(cfg.Storage.DataDir))

	// Build chain adapters for every configured coin
	facade, err := buildFacade(cfg, chainNet, log)
	if err != nil {
		log.Fatal("Failed to build chain adapters", "error", err)
	}
	log.Info("Chain adapters ready", "coins", facade.Symbols())

	// Venue client, sweeper, watcher
	venue := exchange.New(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.DepositAddrs)
	sweeper := sweep.New(facade, venue, cfg, log)
	w := watcher.New(facade, store, venue, sweeper, cfg, log)

	// Background jobs
	runner := jobs.New(w, sweeper, facade.Symbols(), cfg.Jobs, log)
	if err := runner.Start(); err != nil {
		log.Fatal("Failed to start background jobs", "error", err)
	}

	printBanner(log, cfg, facade)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	// Graceful shutdown: stop the timers, let in-flight cycles drain,
	// then close the ledger via the deferred Close.
	runner.Stop()

	log.Info("Goodbye!")
}

// buildFacade constructs one adapter per configured coin and registers
// token networks on top of their base-chain adapters.
func buildFacade(cfg *config.Config, network chain.Network, log *logging.Logger) (*custody.Facade, error) {
	facade := custody.NewFacade(log)

	evmAdapters := make(map[string]*adapter.EVMAdapter)
	tronAdapters := make(map[string]*adapter.TronAdapter)

	for _, symbol := range chain.List() {
		cc, configured := cfg.Coins[symbol]
		if !configured {
			continue
		}
		params, ok := chain.Get(symbol, network)
		if !ok {
			continue
		}

		switch params.Family {
		case chain.FamilyUTXO:
			if len(cc.ElectrumServers) == 0 {
				return nil, fmt.Errorf("%s: no electrum servers configured", symbol)
			}
			client := electrum.NewClient(cc.ElectrumServers, cc.ElectrumTLS, 0)
			var fallback *adapter.EsploraClient
			if cc.ExplorerAPI != "" {
				fallback = adapter.NewEsploraFallback(cc.ExplorerAPI)
			}
			facade.Register(symbol, adapter.NewUTXOAdapter(params, client, fallback, log))

		case chain.FamilyEVM:
			backend, err := adapter.DialEVM(cc.RPCEndpoint)
			if err != nil {
				return nil, fmt.Errorf("%s: dial %s: %w", symbol, cc.RPCEndpoint, err)
			}
			var history *adapter.EtherscanClient
			if cc.ExplorerAPI != "" {
				history = adapter.NewEtherscanClient(cc.ExplorerAPI, cc.ExplorerKey)
			}
			evm := adapter.NewEVMAdapter(params, backend, history, log)
			evmAdapters[symbol] = evm
			facade.Register(symbol, evm)

		case chain.FamilyTron:
			if cc.RPCEndpoint == "" {
				return nil, fmt.Errorf("%s: no RPC endpoint configured", symbol)
			}
			tron := adapter.NewTronAdapter(params, cc.RPCEndpoint, log)
			tronAdapters[symbol] = tron
			facade.Register(symbol, tron)

		case chain.FamilySolana:
			if cc.RPCEndpoint == "" {
				return nil, fmt.Errorf("%s: no RPC endpoint configured", symbol)
			}
			facade.Register(symbol, adapter.NewSolanaAdapter(params, cc.RPCEndpoint, log))
		}
	}

	// Token coins ride the base-chain adapters built above. Networks
	// whose base chain is not configured are skipped.
	for _, symbol := range chain.ListByFamily(chain.FamilyToken) {
		if _, configured := cfg.Coins[symbol]; !configured {
			continue
		}
		params, ok := chain.Get(symbol, network)
		if !ok {
			continue
		}
		for i := range params.Networks {
			net := &params.Networks[i]
			if evm, ok := evmAdapters[net.Base]; ok {
				facade.RegisterToken(symbol, net.Code, adapter.NewERC20Adapter(symbol, net, evm, log))
				continue
			}
			if tron, ok := tronAdapters[net.Base]; ok {
				facade.RegisterToken(symbol, net.Code, adapter.NewTRC20Adapter(symbol, net, tron, log))
				continue
			}
			log.Warn("token network skipped, base chain not configured",
				"coin", symbol, "network", net.Code, "base", net.Base)
		}
	}

	return facade, nil
}

// generateMasterWallets prints a fresh master mnemonic and the derived
// hot wallet address and key for every base chain. The output goes to
// stdout so it can be captured at provisioning time; nothing is stored.
func generateMasterWallets(network chain.Network) error {
	mnemonic, err := signer.GenerateMasterMnemonic()
	if err != nil {
		return err
	}

	fmt.Println("Master mnemonic (write this down, it is shown once):")
	fmt.Println()
	fmt.Printf("  %s\n", mnemonic)
	fmt.Println()
	fmt.Println("Hot wallet per chain (central_wallet / central_key for config.yaml):")
	fmt.Println()

	for _, symbol := range chain.List() {
		params, ok := chain.Get(symbol, network)
		if !ok || params.IsToken() {
			continue
		}
		s, err := signer.DeriveCoinSigner(mnemonic, params)
		if err != nil {
			return fmt.Errorf("%s: %w", symbol, err)
		}
		address, err := codec.DeriveAddress(params, s.Bytes())
		if err != nil {
			return fmt.Errorf("%s: %w", symbol, err)
		}
		fmt.Printf("  %-5s %s\n", symbol, address)
		fmt.Printf("        key: %s\n", s.Hex())
	}
	return nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

func printBanner(log *logging.Logger, cfg *config.Config, facade *custody.Facade) {
	networkLabel := "mainnet"
	if cfg.IsTestnet() {
		networkLabel = "TESTNET"
	}

	log.Info("")
	log.Info("=================================================")
	log.Infof("  Custody Daemon (%s)", networkLabel)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Coins: %v", facade.Symbols())
	log.Infof("  Venue: %s", cfg.Exchange.BaseURL)
	log.Infof("  Poll: %ds | Merge: %ds | Hot sweep: %ds",
		cfg.Jobs.PollIntervalSec, cfg.Jobs.MergeIntervalSec, cfg.Jobs.HotSweepIntervalSec)
	log.Infof("  Data dir: %s", expandPath(cfg.Storage.DataDir))
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
