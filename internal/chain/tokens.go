package chain

func init() {
	// ==========================================================================
	// Token coins
	//
	// Tokens are registered like any other coin but carry no chain of their
	// own: every balance, deposit and sweep is served by the base coin's
	// adapter against the contract listed for the network.
	// ==========================================================================

	// Tether USD
	Register("USDT", Mainnet, &Params{
		Symbol:   "USDT",
		Name:     "Tether USD",
		Family:   FamilyToken,
		Decimals: 6,

		Networks: []TokenNetwork{
			{Code: "ERC20", Base: "ETH", Contract: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
			{Code: "TRC20", Base: "TRX", Contract: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Decimals: 6},
			{Code: "BEP20", Base: "BNB", Contract: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18}, // BSC USDT has 18 decimals
		},
	})

	// USD Coin
	Register("USDC", Mainnet, &Params{
		Symbol:   "USDC",
		Name:     "USD Coin",
		Family:   FamilyToken,
		Decimals: 6,

		Networks: []TokenNetwork{
			{Code: "ERC20", Base: "ETH", Contract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
			{Code: "TRC20", Base: "TRX", Contract: "TEkxiTehnzSmSe2XqrBj4w32RUN966rdz8", Decimals: 6},
			{Code: "BEP20", Base: "BNB", Contract: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18},
		},
	})

	// Testnet token registrations point at the Sepolia / Nile deployments
	// used by the staging environment.
	Register("USDT", Testnet, &Params{
		Symbol:   "USDT",
		Name:     "Tether USD (testnet)",
		Family:   FamilyToken,
		Decimals: 6,

		Networks: []TokenNetwork{
			{Code: "ERC20", Base: "ETH", Contract: "0x7169D38820dfd117C3FA1f22a697dBA58d90BA06", Decimals: 6},
			{Code: "TRC20", Base: "TRX", Contract: "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf", Decimals: 6},
		},
	})
}

// Tokens returns the symbols of all registered token coins.
func Tokens(network Network) []string {
	var symbols []string
	for symbol, nets := range registry {
		if params, ok := nets[network]; ok && params.IsToken() {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// TokenNetworks returns the settlement networks for a token coin, or nil
// if the symbol is not a registered token.
func TokenNetworks(symbol string, network Network) []TokenNetwork {
	params, ok := Get(symbol, network)
	if !ok || !params.IsToken() {
		return nil
	}
	return params.Networks
}
