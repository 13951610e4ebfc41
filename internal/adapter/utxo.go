package adapter

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/electrum"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/pkg/logging"
)

// Electrum server responses arrive through this surface so tests can
// substitute a fake.
type electrumAPI interface {
	GetBalance(ctx context.Context, scriptHash string) (*electrum.Balance, error)
	GetHistory(ctx context.Context, scriptHash string) ([]electrum.HistoryItem, error)
	ListUnspent(ctx context.Context, scriptHash string) ([]electrum.Unspent, error)
	GetTransaction(ctx context.Context, txID string) (*electrum.Transaction, error)
	Broadcast(ctx context.Context, rawHex string) (string, error)
	EstimateFee(ctx context.Context, blocks int) (float64, error)
	RelayFee(ctx context.Context) (float64, error)
}

var _ electrumAPI = (*electrum.Client)(nil)

const (
	// dustThreshold is the minimum output value relay policy accepts.
	dustThreshold = 546

	// Legacy P2PKH size estimates in vbytes.
	txBaseSize     = 10
	p2pkhInputSize = 148
	outputSize     = 34
)

// UTXOAdapter serves Bitcoin-family coins through Electrum, with an
// optional Esplora REST fallback for reads.
type UTXOAdapter struct {
	params   *chain.Params
	electrum electrumAPI
	fallback *EsploraClient
	log      *logging.Logger
}

// NewUTXOAdapter creates an adapter for a UTXO coin. fallback may be nil.
func NewUTXOAdapter(params *chain.Params, client electrumAPI, fallback *EsploraClient, log *logging.Logger) *UTXOAdapter {
	return &UTXOAdapter{
		params:   params,
		electrum: client,
		fallback: fallback,
		log:      log.Component(params.Symbol + "-adapter"),
	}
}

// NewEsploraFallback creates the REST fallback client for an adapter.
func NewEsploraFallback(baseURL string) *EsploraClient {
	return newEsploraClient(baseURL)
}

// Balance returns the confirmed balance of an address in satoshi.
func (a *UTXOAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	scriptHash, err := codec.AddressToScriptHash(a.params, address)
	if err != nil {
		return nil, err
	}

	balance, err := a.electrum.GetBalance(ctx, scriptHash)
	if err == nil {
		return new(big.Int).SetUint64(balance.Confirmed), nil
	}

	if a.fallback == nil {
		return nil, err
	}
	a.log.Warn("electrum balance failed, using REST fallback", "address", address, "err", err)
	sats, ferr := a.fallback.AddressBalance(ctx, address)
	if ferr != nil {
		return nil, fmt.Errorf("electrum and fallback both failed: %v; %w", err, ferr)
	}
	return new(big.Int).SetUint64(sats), nil
}

// Transactions returns the observed history of an address. A transaction
// paying the address is a deposit for the sum of the matching outputs;
// anything else in the history spent from it.
func (a *UTXOAdapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	scriptHash, err := codec.AddressToScriptHash(a.params, address)
	if err != nil {
		return nil, err
	}

	history, err := a.electrum.GetHistory(ctx, scriptHash)
	if err != nil {
		if a.fallback == nil {
			return nil, err
		}
		a.log.Warn("electrum history failed, using REST fallback", "address", address, "err", err)
		return a.fallback.AddressTxs(ctx, address)
	}

	txs := make([]Tx, 0, len(history))
	for _, item := range history {
		tx, err := a.electrum.GetTransaction(ctx, item.TxHash)
		if err != nil {
			a.log.Warn("failed to fetch transaction, skipping", "tx", item.TxHash, "err", err)
			continue
		}
		txs = append(txs, classifyUTXOTx(tx, address))
	}
	return txs, nil
}

// classifyUTXOTx decides deposit vs spend for one verbose transaction.
func classifyUTXOTx(tx *electrum.Transaction, address string) Tx {
	received := big.NewInt(0)
	total := big.NewInt(0)
	for i := range tx.Vout {
		sats := coinToSats(tx.Vout[i].Value)
		total.Add(total, sats)
		for _, payee := range tx.Vout[i].PayeeAddresses() {
			if payee == address {
				received.Add(received, sats)
				break
			}
		}
	}

	if received.Sign() > 0 {
		return Tx{Hash: tx.TxID, Side: SideDeposit, Amount: received}
	}
	return Tx{Hash: tx.TxID, Side: SideSentTo, Amount: total}
}

// coinToSats converts a verbose-transaction coin value to satoshi.
func coinToSats(value float64) *big.Int {
	return decimal.NewFromFloat(value).Shift(8).Round(0).BigInt()
}

// SweepAll spends every unspent output of the account to the target
// address in a single transaction with no change output.
func (a *UTXOAdapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	scriptHash, err := codec.AddressToScriptHash(a.params, from.Address)
	if err != nil {
		return nil, err
	}

	unspent, err := a.electrum.ListUnspent(ctx, scriptHash)
	if err != nil {
		return nil, err
	}
	if len(unspent) == 0 {
		return big.NewInt(0), nil
	}

	feeRate, err := a.feeRate(ctx)
	if err != nil {
		return nil, err
	}

	rawHex, sent, err := a.buildSweepTx(from, to, unspent, feeRate)
	if errors.Is(err, ErrInsufficientFunds) {
		a.log.Warn("inputs do not cover the fee, leaving funds in place",
			"address", from.Address, "utxos", len(unspent))
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}

	txID, err := a.electrum.Broadcast(ctx, rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	a.log.Info("sweep broadcast", "tx", txID, "from", from.Address, "to", to, "sats", sent)
	return new(big.Int).SetUint64(sent), nil
}

// feeRate returns the fee rate in sat/vB. Falls back from the one-block
// estimate to the REST recommended fee to the relay fee to a floor of
// 1 sat/vB.
func (a *UTXOAdapter) feeRate(ctx context.Context) (uint64, error) {
	estimate, err := a.electrum.EstimateFee(ctx, 1)
	if err != nil {
		if a.fallback == nil {
			return 0, err
		}
		a.log.Warn("electrum fee estimate failed, using REST fallback", "err", err)
		estimate = 0
	}
	if estimate <= 0 && a.fallback != nil {
		if rec, rerr := a.fallback.RecommendedFee(ctx); rerr == nil && rec > 0 {
			return rec, nil
		}
	}
	if estimate <= 0 {
		if relay, rerr := a.electrum.RelayFee(ctx); rerr == nil && relay > 0 {
			estimate = relay
		}
	}
	if estimate <= 0 {
		return 1, nil
	}
	// coin/kB to sat/vB, rounded up. Converted through decimal: float
	// math turns 0.00002*1e8/1000 into 2.0000000000000004 and the ceil
	// would overshoot by a full sat/vB.
	return uint64(decimal.NewFromFloat(estimate).Shift(5).Ceil().IntPart()), nil
}

// buildSweepTx assembles and signs a transaction spending all inputs to
// a single output, fee deducted from the swept value.
func (a *UTXOAdapter) buildSweepTx(from Account, to string, unspent []electrum.Unspent, feeRate uint64) (string, uint64, error) {
	tx := wire.NewMsgTx(wire.TxVersion)

	var totalInput uint64
	for _, u := range unspent {
		txHash, err := chainhash.NewHashFromStr(u.TxHash)
		if err != nil {
			return "", 0, fmt.Errorf("invalid txid %s: %w", u.TxHash, err)
		}
		txIn := wire.NewTxIn(wire.NewOutPoint(txHash, u.TxPos), nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum - 2 // Enable RBF
		tx.AddTxIn(txIn)
		totalInput += u.Value
	}

	vsize := uint64(txBaseSize + len(unspent)*p2pkhInputSize + outputSize)
	fee := vsize * feeRate
	if totalInput <= fee+dustThreshold {
		return "", 0, ErrInsufficientFunds
	}
	sent := totalInput - fee

	destScript, err := codec.AddressToScript(a.params, to)
	if err != nil {
		return "", 0, fmt.Errorf("invalid destination address: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(int64(sent), destScript))

	senderScript, err := codec.AddressToScript(a.params, from.Address)
	if err != nil {
		return "", 0, fmt.Errorf("invalid sender address: %w", err)
	}

	privKey := from.Signer.Secp()
	for i := range tx.TxIn {
		sig, err := txscript.SignatureScript(tx, i, senderScript, txscript.SigHashAll, privKey, true)
		if err != nil {
			return "", 0, fmt.Errorf("failed to sign input %d: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = sig
	}

	return serializeTx(tx), sent, nil
}

// serializeTx renders a signed transaction as broadcast-ready hex.
func serializeTx(tx *wire.MsgTx) string {
	var buf bytes.Buffer
	tx.Serialize(&buf)
	return hex.EncodeToString(buf.Bytes())
}

// GenerateWallet creates a fresh P2PKH deposit wallet.
func (a *UTXOAdapter) GenerateWallet() (Account, error) {
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

var _ Adapter = (*UTXOAdapter)(nil)
