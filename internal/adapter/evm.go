package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/pkg/logging"
)

// gasCeiling is the maximum gas a plain transfer may estimate to. A
// higher estimate means the recipient runs code on receipt; sweeping
// into an unknown contract is never worth the risk.
const gasCeiling = 150000

// ethBackend is the node surface the adapter needs. *ethclient.Client
// satisfies it; tests substitute a fake.
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ ethBackend = (*ethclient.Client)(nil)

// EVMAdapter serves native-coin custody on any EVM chain.
type EVMAdapter struct {
	params  *chain.Params
	backend ethBackend
	history *EtherscanClient
	log     *logging.Logger
}

// NewEVMAdapter creates an adapter for an EVM coin. history may be nil
// when no explorer API is configured; Transactions then returns an error.
func NewEVMAdapter(params *chain.Params, backend ethBackend, history *EtherscanClient, log *logging.Logger) *EVMAdapter {
	return &EVMAdapter{
		params:  params,
		backend: backend,
		history: history,
		log:     log.Component(params.Symbol + "-adapter"),
	}
}

// DialEVM connects to an EVM JSON-RPC endpoint.
func DialEVM(rpcURL string) (*ethclient.Client, error) {
	return ethclient.Dial(rpcURL)
}

// Balance returns the address balance in wei.
func (a *EVMAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !codec.ValidateEVMAddress(address) {
		return nil, ErrInvalidAddress
	}
	return a.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// Transactions returns the explorer-observed history of an address.
func (a *EVMAdapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	if a.history == nil {
		return nil, fmt.Errorf("no explorer API configured for %s", a.params.Symbol)
	}
	items, err := a.history.TxList(ctx, address)
	if err != nil {
		return nil, err
	}
	return classifyEVMTxs(items, address), nil
}

// classifyEVMTxs maps explorer rows to deposit/spend sides.
func classifyEVMTxs(items []etherscanTx, address string) []Tx {
	lower := strings.ToLower(address)
	txs := make([]Tx, 0, len(items))
	for _, item := range items {
		value, ok := new(big.Int).SetString(item.Value, 10)
		if !ok {
			continue
		}
		side := SideSentTo
		if strings.ToLower(item.To) == lower {
			side = SideDeposit
		}
		txs = append(txs, Tx{Hash: item.Hash, Side: side, Amount: value})
	}
	return txs
}

// SweepAll transfers the full balance minus gas to the target address.
// Gas is estimated against the real recipient so contract wallets that
// burn extra gas are caught before anything is signed.
func (a *EVMAdapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	if !codec.ValidateEVMAddress(to) {
		return nil, ErrInvalidAddress
	}

	fromAddr := common.HexToAddress(from.Address)
	toAddr := common.HexToAddress(to)

	balance, err := a.backend.BalanceAt(ctx, fromAddr, nil)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}

	gasPrice, err := a.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gas, err := a.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  fromAddr,
		To:    &toAddr,
		Value: balance,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}
	if gas > gasCeiling {
		return nil, fmt.Errorf("%w: estimated %d", ErrGasCeiling, gas)
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
	value := new(big.Int).Sub(balance, gasCost)
	if value.Sign() <= 0 {
		a.log.Warn("balance does not cover gas, leaving funds in place",
			"address", from.Address, "wei", balance, "gas_cost", gasCost)
		return big.NewInt(0), nil
	}

	nonce, err := a.backend.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &toAddr,
		Value:    value,
	})

	chainID := new(big.Int).SetUint64(a.params.ChainID)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), from.Signer.Secp().ToECDSA())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	a.log.Info("sweep broadcast", "tx", signed.Hash().Hex(), "from", from.Address, "to", to, "wei", value)
	return value, nil
}

// GenerateWallet creates a fresh EVM deposit wallet.
func (a *EVMAdapter) GenerateWallet() (Account, error) {
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

var _ Adapter = (*EVMAdapter)(nil)
