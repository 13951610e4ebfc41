package chain

func init() {
	// Dogecoin Mainnet
	Register("DOGE", Mainnet, &Params{
		Symbol:   "DOGE",
		Name:     "Dogecoin",
		Family:   FamilyUTXO,
		Decimals: 8,

		CoinType: 3,

		PubKeyHashAddrID: 0x1E, // D...
		ScriptHashAddrID: 0x16, // 9 or A
		WIF:              0x9E,
	})

	// Dogecoin Testnet
	Register("DOGE", Testnet, &Params{
		Symbol:   "DOGE",
		Name:     "Dogecoin Testnet",
		Family:   FamilyUTXO,
		Decimals: 8,

		CoinType: 1,

		PubKeyHashAddrID: 0x71, // n...
		ScriptHashAddrID: 0xC4,
		WIF:              0xF1,
	})
}
