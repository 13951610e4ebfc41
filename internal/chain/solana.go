package chain

func init() {
	// Solana Mainnet
	Register("SOL", Mainnet, &Params{
		Symbol:   "SOL",
		Name:     "Solana",
		Family:   FamilySolana,
		Decimals: 9,

		CoinType: 501,
	})

	// Solana Devnet
	Register("SOL", Testnet, &Params{
		Symbol:   "SOL",
		Name:     "Solana Devnet",
		Family:   FamilySolana,
		Decimals: 9,

		CoinType: 501,
	})
}
