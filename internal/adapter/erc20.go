package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/pkg/logging"
)

// ERC-20 function selectors.
var (
	selectorTransfer  = []byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
	selectorBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
)

// ERC20Adapter serves a token contract on an EVM chain. It shares the
// base chain's node backend; only the call payloads differ.
type ERC20Adapter struct {
	base     *EVMAdapter
	contract common.Address
	symbol   string
	log      *logging.Logger
}

// NewERC20Adapter creates a token adapter on top of a base EVM adapter.
func NewERC20Adapter(tokenSymbol string, network *chain.TokenNetwork, base *EVMAdapter, log *logging.Logger) *ERC20Adapter {
	return &ERC20Adapter{
		base:     base,
		contract: common.HexToAddress(network.Contract),
		symbol:   tokenSymbol,
		log:      log.Component(tokenSymbol + "-" + network.Code + "-adapter"),
	}
}

// EncodeTransfer builds calldata for transfer(to, amount).
func EncodeTransfer(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, selectorTransfer...)
	data = append(data, abiPad(to.Bytes(), 32)...)
	data = append(data, abiPad(amount.Bytes(), 32)...)
	return data
}

// EncodeBalanceOf builds calldata for balanceOf(owner).
func EncodeBalanceOf(owner common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, selectorBalanceOf...)
	data = append(data, abiPad(owner.Bytes(), 32)...)
	return data
}

// Balance returns the token balance of an address in token units.
func (a *ERC20Adapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !codec.ValidateEVMAddress(address) {
		return nil, ErrInvalidAddress
	}

	result, err := a.base.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &a.contract,
		Data: EncodeBalanceOf(common.HexToAddress(address)),
	}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

// Transactions returns the token transfer history of an address.
func (a *ERC20Adapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	if a.base.history == nil {
		return nil, fmt.Errorf("no explorer API configured for %s", a.symbol)
	}
	items, err := a.base.history.TokenTxList(ctx, address, strings.ToLower(a.contract.Hex()))
	if err != nil {
		return nil, err
	}
	return classifyEVMTxs(items, address), nil
}

// SweepAll transfers the full token balance to the target address. The
// account must already hold base coin for gas: token sweeps never mix in
// a gas top-up, they just report the shortfall.
func (a *ERC20Adapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	if !codec.ValidateEVMAddress(to) {
		return nil, ErrInvalidAddress
	}

	tokenBalance, err := a.Balance(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	if tokenBalance.Sign() == 0 {
		return big.NewInt(0), nil
	}

	fromAddr := common.HexToAddress(from.Address)
	data := EncodeTransfer(common.HexToAddress(to), tokenBalance)

	gasPrice, err := a.base.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gas, err := a.base.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: fromAddr,
		To:   &a.contract,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %w", err)
	}
	if gas > gasCeiling {
		return nil, fmt.Errorf("%w: estimated %d", ErrGasCeiling, gas)
	}

	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
	baseBalance, err := a.base.backend.BalanceAt(ctx, fromAddr, nil)
	if err != nil {
		return nil, err
	}
	if baseBalance.Cmp(gasCost) < 0 {
		return nil, fmt.Errorf("%w: need %s wei, have %s", ErrInsufficientGas, gasCost, baseBalance)
	}

	nonce, err := a.base.backend.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &a.contract,
		Value:    big.NewInt(0),
		Data:     data,
	})

	chainID := new(big.Int).SetUint64(a.base.params.ChainID)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), from.Signer.Secp().ToECDSA())
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.base.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	a.log.Info("token sweep broadcast", "tx", signed.Hash().Hex(), "from", from.Address, "to", to, "units", tokenBalance)
	return tokenBalance, nil
}

// GenerateWallet creates a deposit wallet on the base chain; tokens and
// the base coin share the same address.
func (a *ERC20Adapter) GenerateWallet() (Account, error) {
	return a.base.GenerateWallet()
}

var _ Adapter = (*ERC20Adapter)(nil)
