package chain

import (
	"testing"
)

func TestAllCoinsRegistered(t *testing.T) {
	expectedCoins := []string{"BTC", "LTC", "DOGE", "ETH", "BNB", "TRX", "SOL", "USDT", "USDC"}

	for _, symbol := range expectedCoins {
		if !IsSupported(symbol) {
			t.Errorf("expected %s to be registered", symbol)
		}
	}
}

func TestBitcoinMainnet(t *testing.T) {
	params, ok := Get("BTC", Mainnet)
	if !ok {
		t.Fatal("BTC mainnet should be registered")
	}

	if params.Symbol != "BTC" {
		t.Errorf("Symbol = %s, want BTC", params.Symbol)
	}
	if params.Family != FamilyUTXO {
		t.Errorf("Family = %s, want utxo", params.Family)
	}
	if params.Decimals != 8 {
		t.Errorf("Decimals = %d, want 8", params.Decimals)
	}
	if params.PubKeyHashAddrID != 0x00 {
		t.Errorf("PubKeyHashAddrID = 0x%X, want 0x00", params.PubKeyHashAddrID)
	}
	if params.ScriptHashAddrID != 0x05 {
		t.Errorf("ScriptHashAddrID = 0x%X, want 0x05", params.ScriptHashAddrID)
	}
}

func TestBitcoinTestnet(t *testing.T) {
	params, ok := Get("BTC", Testnet)
	if !ok {
		t.Fatal("BTC testnet should be registered")
	}

	if params.CoinType != 1 {
		t.Errorf("Testnet CoinType = %d, want 1", params.CoinType)
	}
	if params.PubKeyHashAddrID != 0x6F {
		t.Errorf("PubKeyHashAddrID = 0x%X, want 0x6F", params.PubKeyHashAddrID)
	}
}

func TestEVMCoins(t *testing.T) {
	evmCoins := []struct {
		symbol  string
		chainID uint64
	}{
		{"ETH", 1},
		{"BNB", 56},
	}

	for _, tc := range evmCoins {
		params, ok := Get(tc.symbol, Mainnet)
		if !ok {
			t.Errorf("%s mainnet should be registered", tc.symbol)
			continue
		}
		if params.ChainID != tc.chainID {
			t.Errorf("%s ChainID = %d, want %d", tc.symbol, params.ChainID, tc.chainID)
		}
		if params.Family != FamilyEVM {
			t.Errorf("%s Family = %s, want evm", tc.symbol, params.Family)
		}
		if params.Decimals != 18 {
			t.Errorf("%s Decimals = %d, want 18", tc.symbol, params.Decimals)
		}
	}
}

func TestTronMainnet(t *testing.T) {
	params, ok := Get("TRX", Mainnet)
	if !ok {
		t.Fatal("TRX mainnet should be registered")
	}

	if params.Family != FamilyTron {
		t.Errorf("Family = %s, want tron", params.Family)
	}
	if params.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", params.Decimals)
	}
	if params.PubKeyHashAddrID != 0x41 {
		t.Errorf("PubKeyHashAddrID = 0x%X, want 0x41", params.PubKeyHashAddrID)
	}
}

func TestSolanaMainnet(t *testing.T) {
	params, ok := Get("SOL", Mainnet)
	if !ok {
		t.Fatal("SOL mainnet should be registered")
	}

	if params.Family != FamilySolana {
		t.Errorf("Family = %s, want solana", params.Family)
	}
	if params.CoinType != 501 {
		t.Errorf("CoinType = %d, want 501", params.CoinType)
	}
	if params.Decimals != 9 {
		t.Errorf("Decimals = %d, want 9", params.Decimals)
	}
}

func TestDerivationPath(t *testing.T) {
	params, _ := Get("BTC", Mainnet)

	// m/44'/0'/0'/0/0
	path := params.DerivationPath(0, 0, 0)
	expected := []uint32{
		44 + 0x80000000, // 44'
		0 + 0x80000000,  // 0'
		0 + 0x80000000,  // 0'
		0,               // 0
		0,               // 0
	}

	if len(path) != len(expected) {
		t.Fatalf("path length = %d, want %d", len(path), len(expected))
	}

	for i, v := range expected {
		if path[i] != v {
			t.Errorf("path[%d] = %d, want %d", i, path[i], v)
		}
	}
}

func TestListByFamily(t *testing.T) {
	utxoCoins := ListByFamily(FamilyUTXO)
	if len(utxoCoins) != 3 {
		t.Errorf("expected 3 utxo coins, got %d: %v", len(utxoCoins), utxoCoins)
	}

	evmCoins := ListByFamily(FamilyEVM)
	if len(evmCoins) != 2 {
		t.Errorf("expected 2 evm coins, got %d: %v", len(evmCoins), evmCoins)
	}

	tronCoins := ListByFamily(FamilyTron)
	if len(tronCoins) != 1 {
		t.Errorf("expected 1 tron coin, got %d", len(tronCoins))
	}

	solCoins := ListByFamily(FamilySolana)
	if len(solCoins) != 1 {
		t.Errorf("expected 1 solana coin, got %d", len(solCoins))
	}
}

func TestUnsupportedCoin(t *testing.T) {
	if IsSupported("INVALID") {
		t.Error("INVALID should not be supported")
	}

	_, ok := Get("INVALID", Mainnet)
	if ok {
		t.Error("Get(INVALID) should return false")
	}
}

func TestGetByChainID(t *testing.T) {
	tests := []struct {
		chainID uint64
		network Network
		symbol  string
	}{
		{1, Mainnet, "ETH"},
		{56, Mainnet, "BNB"},
		{11155111, Testnet, "ETH"},
	}

	for _, tc := range tests {
		params, ok := GetByChainID(tc.chainID, tc.network)
		if !ok {
			t.Errorf("chainID %d should be registered", tc.chainID)
			continue
		}
		if params.Symbol != tc.symbol {
			t.Errorf("chainID %d symbol = %s, want %s", tc.chainID, params.Symbol, tc.symbol)
		}
	}

	_, ok := GetByChainID(99999, Mainnet)
	if ok {
		t.Error("chainID 99999 should not exist")
	}
}

func TestUTXOParamsByVersion(t *testing.T) {
	tests := []struct {
		version byte
		symbol  string
	}{
		{0x00, "BTC"},
		{0x05, "BTC"},
		{0x30, "LTC"},
		{0x1E, "DOGE"},
	}

	for _, tc := range tests {
		params, ok := UTXOParamsByVersion(tc.version, Mainnet)
		if !ok {
			t.Errorf("version 0x%X should match a registered coin", tc.version)
			continue
		}
		if params.Symbol != tc.symbol {
			t.Errorf("version 0x%X symbol = %s, want %s", tc.version, params.Symbol, tc.symbol)
		}
	}

	_, ok := UTXOParamsByVersion(0xFF, Mainnet)
	if ok {
		t.Error("version 0xFF should not match any coin")
	}
}

func TestTokenNetworks(t *testing.T) {
	usdtTests := []struct {
		code     string
		base     string
		contract string
		decimals uint8
	}{
		{"ERC20", "ETH", "0xdAC17F958D2ee523a2206206994597C13D831ec7", 6},
		{"TRC20", "TRX", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", 6},
		{"BEP20", "BNB", "0x55d398326f99059fF775485246999027B3197955", 18}, // BSC USDT has 18 decimals
	}

	params, ok := Get("USDT", Mainnet)
	if !ok {
		t.Fatal("USDT mainnet should be registered")
	}
	if !params.IsToken() {
		t.Fatal("USDT should be a token coin")
	}

	for _, tc := range usdtTests {
		net, ok := params.NetworkByCode(tc.code)
		if !ok {
			t.Errorf("USDT should settle on %s", tc.code)
			continue
		}
		if net.Base != tc.base {
			t.Errorf("USDT %s base = %s, want %s", tc.code, net.Base, tc.base)
		}
		if net.Contract != tc.contract {
			t.Errorf("USDT %s contract = %s, want %s", tc.code, net.Contract, tc.contract)
		}
		if net.Decimals != tc.decimals {
			t.Errorf("USDT %s decimals = %d, want %d", tc.code, net.Decimals, tc.decimals)
		}
	}

	if nets := TokenNetworks("BTC", Mainnet); nets != nil {
		t.Errorf("BTC should have no token networks, got %v", nets)
	}
	if nets := TokenNetworks("NONEXISTENT", Mainnet); nets != nil {
		t.Errorf("unknown symbol should have no token networks, got %v", nets)
	}

	tokens := Tokens(Mainnet)
	if len(tokens) != 2 {
		t.Errorf("expected 2 token coins, got %d: %v", len(tokens), tokens)
	}
}
