package chain

func init() {
	// Tron Mainnet
	Register("TRX", Mainnet, &Params{
		Symbol:   "TRX",
		Name:     "Tron",
		Family:   FamilyTron,
		Decimals: 6,

		CoinType: 195,

		// Tron addresses are Base58Check with a 0x41 version byte
		PubKeyHashAddrID: 0x41, // T...
	})

	// Tron Nile Testnet
	Register("TRX", Testnet, &Params{
		Symbol:   "TRX",
		Name:     "Tron Nile",
		Family:   FamilyTron,
		Decimals: 6,

		CoinType: 195,

		PubKeyHashAddrID: 0x41,
	})
}
