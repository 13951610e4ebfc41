package adapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/pkg/logging"
)

const (
	// tronFeeReserve is held back from every TRX sweep to cover
	// bandwidth burn (2 TRX in sun).
	tronFeeReserve = 2_000_000

	// trc20FeeLimit caps the TRX burned by a token transfer (100 TRX in
	// sun). The account must hold at least this much TRX before a token
	// sweep is attempted.
	trc20FeeLimit = 100_000_000

	tronHistoryLimit = 50
)

// TronAdapter serves TRX custody through a TronGrid-compatible HTTP API.
type TronAdapter struct {
	params  *chain.Params
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewTronAdapter creates an adapter for Tron.
func NewTronAdapter(params *chain.Params, baseURL string, log *logging.Logger) *TronAdapter {
	return &TronAdapter{
		params:  params,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.Component(params.Symbol + "-adapter"),
	}
}

// Balance returns the TRX balance of an address in sun.
func (a *TronAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	hexAddr, err := codec.TronAddressToHex(address)
	if err != nil {
		return nil, err
	}

	var account struct {
		Balance uint64 `json:"balance"`
	}
	err = a.post(ctx, "/wallet/getaccount", map[string]interface{}{
		"address": hexAddr,
	}, &account)
	if err != nil {
		return nil, err
	}
	// Unfunded accounts come back as an empty object.
	return new(big.Int).SetUint64(account.Balance), nil
}

// Transactions returns recent TRX transfers touching an address.
func (a *TronAdapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	hexAddr, err := codec.TronAddressToHex(address)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data []struct {
			TxID    string `json:"txID"`
			RawData struct {
				Contract []struct {
					Type      string `json:"type"`
					Parameter struct {
						Value struct {
							Amount       uint64 `json:"amount"`
							OwnerAddress string `json:"owner_address"`
							ToAddress    string `json:"to_address"`
						} `json:"value"`
					} `json:"parameter"`
				} `json:"contract"`
			} `json:"raw_data"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/transactions?limit=%d", address, tronHistoryLimit)
	if err := a.get(ctx, path, &body); err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(body.Data))
	for _, item := range body.Data {
		for _, contract := range item.RawData.Contract {
			if contract.Type != "TransferContract" {
				continue
			}
			value := contract.Parameter.Value
			side := SideSentTo
			if strings.EqualFold(value.ToAddress, hexAddr) {
				side = SideDeposit
			}
			txs = append(txs, Tx{
				Hash:   item.TxID,
				Side:   side,
				Amount: new(big.Int).SetUint64(value.Amount),
			})
			break
		}
	}
	return txs, nil
}

// tronTx is the transaction envelope returned by createtransaction and
// accepted back by broadcasttransaction.
type tronTx struct {
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Visible    bool            `json:"visible,omitempty"`
	Signature  []string        `json:"signature,omitempty"`
}

// SweepAll transfers the balance minus the bandwidth reserve to the
// target address.
func (a *TronAdapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	fromHex, err := codec.TronAddressToHex(from.Address)
	if err != nil {
		return nil, err
	}
	toHex, err := codec.TronAddressToHex(to)
	if err != nil {
		return nil, err
	}

	balance, err := a.Balance(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Sub(balance, big.NewInt(tronFeeReserve))
	if amount.Sign() <= 0 {
		a.log.Warn("balance does not cover the fee reserve, leaving funds in place",
			"address", from.Address, "sun", balance)
		return big.NewInt(0), nil
	}

	var tx tronTx
	err = a.post(ctx, "/wallet/createtransaction", map[string]interface{}{
		"owner_address": fromHex,
		"to_address":    toHex,
		"amount":        amount.Uint64(),
	}, &tx)
	if err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, fmt.Errorf("%w: createtransaction returned no txID", ErrBroadcastFailed)
	}

	if err := a.signAndBroadcast(ctx, &tx, from.Signer); err != nil {
		return nil, err
	}

	a.log.Info("sweep broadcast", "tx", tx.TxID, "from", from.Address, "to", to, "sun", amount)
	return amount, nil
}

// signAndBroadcast signs the transaction ID hash and submits the
// envelope. The txID is the SHA-256 of the raw transaction, which is
// exactly what Tron expects to be signed.
func (a *TronAdapter) signAndBroadcast(ctx context.Context, tx *tronTx, s *signer.Signer) error {
	rawData, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return fmt.Errorf("invalid raw_data_hex: %w", err)
	}
	hash := sha256.Sum256(rawData)

	sig, err := s.SignRecoverable(hash[:])
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signature = []string{hex.EncodeToString(sig)}

	var result struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := a.post(ctx, "/wallet/broadcasttransaction", tx, &result); err != nil {
		return err
	}
	if !result.Result {
		return fmt.Errorf("%w: %s %s", ErrBroadcastFailed, result.Code, decodeTronMessage(result.Message))
	}
	return nil
}

// decodeTronMessage renders the hex-encoded error detail TronGrid returns.
func decodeTronMessage(message string) string {
	if decoded, err := hex.DecodeString(message); err == nil {
		return string(decoded)
	}
	return message
}

// GenerateWallet creates a fresh Tron deposit wallet.
func (a *TronAdapter) GenerateWallet() (Account, error) {
	s, err := signer.NewRandom()
	if err != nil {
		return Account{}, err
	}
	address, err := codec.DeriveAddress(a.params, s.Bytes())
	if err != nil {
		return Account{}, err
	}
	return Account{Address: address, Signer: s}, nil
}

func (a *TronAdapter) post(ctx context.Context, path string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, result)
}

func (a *TronAdapter) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	return a.do(req, result)
}

func (a *TronAdapter) do(req *http.Request, result interface{}) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tron api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

var _ Adapter = (*TronAdapter)(nil)

// TRC20Adapter serves a token contract on Tron through the smart
// contract trigger endpoints.
type TRC20Adapter struct {
	base     *TronAdapter
	contract string // Base58Check contract address
	symbol   string
	log      *logging.Logger
}

// NewTRC20Adapter creates a token adapter on top of a base Tron adapter.
func NewTRC20Adapter(tokenSymbol string, network *chain.TokenNetwork, base *TronAdapter, log *logging.Logger) *TRC20Adapter {
	return &TRC20Adapter{
		base:     base,
		contract: network.Contract,
		symbol:   tokenSymbol,
		log:      log.Component(tokenSymbol + "-" + network.Code + "-adapter"),
	}
}

// Balance returns the token balance of an address via balanceOf.
func (a *TRC20Adapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	ownerHex, err := codec.TronAddressToHex(address)
	if err != nil {
		return nil, err
	}
	contractHex, err := codec.TronAddressToHex(a.contract)
	if err != nil {
		return nil, err
	}

	var result struct {
		ConstantResult []string `json:"constant_result"`
	}
	err = a.base.post(ctx, "/wallet/triggerconstantcontract", map[string]interface{}{
		"owner_address":     ownerHex,
		"contract_address":  contractHex,
		"function_selector": "balanceOf(address)",
		"parameter":         tronABIAddress(ownerHex),
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.ConstantResult) == 0 {
		return big.NewInt(0), nil
	}

	raw, err := hex.DecodeString(result.ConstantResult[0])
	if err != nil {
		return nil, fmt.Errorf("invalid balanceOf result: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// Transactions returns token transfers touching an address.
func (a *TRC20Adapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	var body struct {
		Data []struct {
			TransactionID string `json:"transaction_id"`
			From          string `json:"from"`
			To            string `json:"to"`
			Value         string `json:"value"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/transactions/trc20?contract_address=%s&limit=%d",
		address, a.contract, tronHistoryLimit)
	if err := a.base.get(ctx, path, &body); err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(body.Data))
	for _, item := range body.Data {
		value, ok := new(big.Int).SetString(item.Value, 10)
		if !ok {
			continue
		}
		side := SideSentTo
		if item.To == address {
			side = SideDeposit
		}
		txs = append(txs, Tx{Hash: item.TransactionID, Side: side, Amount: value})
	}
	return txs, nil
}

// SweepAll transfers the full token balance to the target address. The
// account must hold enough TRX to cover the fee limit; token transfers
// burn TRX when the account has no energy.
func (a *TRC20Adapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	tokenBalance, err := a.Balance(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	if tokenBalance.Sign() == 0 {
		return big.NewInt(0), nil
	}

	trxBalance, err := a.base.Balance(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	if trxBalance.Cmp(big.NewInt(trc20FeeLimit)) < 0 {
		return nil, fmt.Errorf("%w: need %d sun, have %s", ErrInsufficientGas, trc20FeeLimit, trxBalance)
	}

	fromHex, err := codec.TronAddressToHex(from.Address)
	if err != nil {
		return nil, err
	}
	toHex, err := codec.TronAddressToHex(to)
	if err != nil {
		return nil, err
	}
	contractHex, err := codec.TronAddressToHex(a.contract)
	if err != nil {
		return nil, err
	}

	var result struct {
		Transaction tronTx `json:"transaction"`
	}
	err = a.base.post(ctx, "/wallet/triggersmartcontract", map[string]interface{}{
		"owner_address":     fromHex,
		"contract_address":  contractHex,
		"function_selector": "transfer(address,uint256)",
		"parameter":         tronABIAddress(toHex) + tronABIUint(tokenBalance),
		"fee_limit":         trc20FeeLimit,
		"call_value":        0,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Transaction.TxID == "" {
		return nil, fmt.Errorf("%w: triggersmartcontract returned no transaction", ErrBroadcastFailed)
	}

	if err := a.base.signAndBroadcast(ctx, &result.Transaction, from.Signer); err != nil {
		return nil, err
	}

	a.log.Info("token sweep broadcast", "tx", result.Transaction.TxID, "from", from.Address, "to", to, "units", tokenBalance)
	return tokenBalance, nil
}

// GenerateWallet creates a deposit wallet on the base chain; tokens and
// TRX share the same address.
func (a *TRC20Adapter) GenerateWallet() (Account, error) {
	return a.base.GenerateWallet()
}

// tronABIAddress encodes a 41-prefixed hex address as a 32-byte ABI word
// (prefix stripped, left padded).
func tronABIAddress(hexAddr string) string {
	raw, _ := hex.DecodeString(hexAddr)
	if len(raw) == 21 {
		raw = raw[1:]
	}
	return hex.EncodeToString(abiPad(raw, 32))
}

// tronABIUint encodes an integer as a 32-byte ABI word.
func tronABIUint(value *big.Int) string {
	return hex.EncodeToString(abiPad(value.Bytes(), 32))
}

var _ Adapter = (*TRC20Adapter)(nil)
