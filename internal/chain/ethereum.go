package chain

func init() {
	// ==========================================================================
	// Ethereum
	// ==========================================================================

	// Ethereum Mainnet (chainID 1)
	Register("ETH", Mainnet, &Params{
		Symbol:   "ETH",
		Name:     "Ethereum",
		Family:   FamilyEVM,
		Decimals: 18,

		CoinType: 60,

		ChainID: 1,
	})

	// Ethereum Sepolia Testnet (chainID 11155111)
	Register("ETH", Testnet, &Params{
		Symbol:   "ETH",
		Name:     "Ethereum Sepolia",
		Family:   FamilyEVM,
		Decimals: 18,

		CoinType: 60,

		ChainID: 11155111,
	})

	// ==========================================================================
	// BNB Smart Chain
	// ==========================================================================

	// BSC Mainnet (chainID 56)
	Register("BNB", Mainnet, &Params{
		Symbol:   "BNB",
		Name:     "BNB Smart Chain",
		Family:   FamilyEVM,
		Decimals: 18,

		CoinType: 60,

		ChainID: 56,
	})

	// BSC Testnet (chainID 97)
	Register("BNB", Testnet, &Params{
		Symbol:   "BNB",
		Name:     "BNB Smart Chain Testnet",
		Family:   FamilyEVM,
		Decimals: 18,

		CoinType: 60,

		ChainID: 97,
	})
}
