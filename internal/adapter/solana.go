package adapter

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/mr-tron/base58"

	"github.com/ankerid/custody/internal/chain"
	"github.com/ankerid/custody/internal/codec"
	"github.com/ankerid/custody/internal/signer"
	"github.com/ankerid/custody/pkg/logging"
)

const (
	// solanaBaseFee is the flat per-signature fee in lamports.
	solanaBaseFee = 5000

	solanaHistoryLimit = 50

	// Confirmation polling for sweeps.
	solanaConfirmInterval = 3 * time.Second
	solanaConfirmTimeout  = 45 * time.Second
)

// systemTransferIndex is the system program's transfer instruction index.
const systemTransferIndex = 2

// SolanaAdapter serves SOL custody through the node JSON-RPC API.
type SolanaAdapter struct {
	params *chain.Params
	rpc    *solanaRPC
	log    *logging.Logger
}

// NewSolanaAdapter creates an adapter for Solana.
func NewSolanaAdapter(params *chain.Params, endpoint string, log *logging.Logger) *SolanaAdapter {
	return &SolanaAdapter{
		params: params,
		rpc:    newSolanaRPC(endpoint),
		log:    log.Component(params.Symbol + "-adapter"),
	}
}

// Balance returns the lamport balance of an address.
func (a *SolanaAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	if err := codec.ValidateSolanaAddress(address); err != nil {
		return nil, err
	}
	lamports, err := a.rpc.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(lamports), nil
}

// Transactions inspects recent signatures for system transfers touching
// the address. Anything that is not a plain transfer is ignored.
func (a *SolanaAdapter) Transactions(ctx context.Context, address string) ([]Tx, error) {
	if err := codec.ValidateSolanaAddress(address); err != nil {
		return nil, err
	}

	signatures, err := a.rpc.GetSignaturesForAddress(ctx, address, solanaHistoryLimit)
	if err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(signatures))
	for _, sig := range signatures {
		if sig.Err != nil {
			continue
		}
		parsed, err := a.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			a.log.Warn("failed to fetch transaction, skipping", "signature", sig.Signature, "err", err)
			continue
		}

		for _, inst := range parsed.Transaction.Message.Instructions {
			if inst.Program != "system" || inst.Parsed.Type != "transfer" {
				continue
			}
			info := inst.Parsed.Info
			var side Side
			switch address {
			case info.Destination:
				side = SideDeposit
			case info.Source:
				side = SideSentTo
			default:
				continue
			}
			txs = append(txs, Tx{
				Hash:   sig.Signature,
				Side:   side,
				Amount: new(big.Int).SetUint64(info.Lamports),
			})
			break
		}
	}
	return txs, nil
}

// SweepAll transfers the balance minus the flat fee to the target
// address and waits for the signature to confirm.
func (a *SolanaAdapter) SweepAll(ctx context.Context, from Account, to string) (*big.Int, error) {
	if err := codec.ValidateSolanaAddress(to); err != nil {
		return nil, err
	}

	balance, err := a.rpc.GetBalance(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	if balance <= solanaBaseFee {
		a.log.Warn("balance does not cover the base fee, leaving funds in place",
			"address", from.Address, "lamports", balance)
		return big.NewInt(0), nil
	}
	lamports := balance - solanaBaseFee

	blockhash, err := a.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	txBase64, err := buildTransferTx(from.Signer, from.Address, to, lamports, blockhash)
	if err != nil {
		return nil, err
	}

	signature, err := a.rpc.SendTransaction(ctx, txBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	if err := a.waitForConfirmation(ctx, signature); err != nil {
		return nil, err
	}

	a.log.Info("sweep confirmed", "tx", signature, "from", from.Address, "to", to, "lamports", lamports)
	return new(big.Int).SetUint64(lamports), nil
}

// waitForConfirmation polls signature status until the cluster reports
// the transaction confirmed.
func (a *SolanaAdapter) waitForConfirmation(ctx context.Context, signature string) error {
	deadline := time.Now().Add(solanaConfirmTimeout)
	for {
		statuses, err := a.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) == 1 {
			switch statuses[0] {
			case "confirmed", "finalized":
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrNotConfirmed, signature)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(solanaConfirmInterval):
		}
	}
}

// buildTransferTx assembles and signs a legacy transaction carrying a
// single system transfer instruction.
func buildTransferTx(s *signer.Signer, from, to string, lamports uint64, blockhash string) (string, error) {
	fromKey, err := base58.Decode(from)
	if err != nil {
		return "", fmt.Errorf("invalid source address: %w", err)
	}
	toKey, err := base58.Decode(to)
	if err != nil {
		return "", fmt.Errorf("invalid destination address: %w", err)
	}
	hashBytes, err := base58.Decode(blockhash)
	if err != nil || len(hashBytes) != 32 {
		return "", fmt.Errorf("invalid blockhash %q", blockhash)
	}

	systemProgram := make([]byte, 32)

	// Message header: 1 required signature, 0 readonly signed,
	// 1 readonly unsigned (the system program).
	message := []byte{1, 0, 1}

	// Account keys
	message = append(message, shortvecLen(3)...)
	message = append(message, fromKey...)
	message = append(message, toKey...)
	message = append(message, systemProgram...)

	message = append(message, hashBytes...)

	// Instruction data: u32 transfer index, u64 lamports.
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	// One instruction: program index 2, accounts [0, 1].
	message = append(message, shortvecLen(1)...)
	message = append(message, 2)
	message = append(message, shortvecLen(2)...)
	message = append(message, 0, 1)
	message = append(message, shortvecLen(len(data))...)
	message = append(message, data...)

	signature := s.SignEd25519(message)

	tx := shortvecLen(1)
	tx = append(tx, signature...)
	tx = append(tx, message...)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// shortvecLen encodes a length in Solana's compact-u16 form.
func shortvecLen(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}

// GenerateWallet creates a fresh Solana deposit wallet.
func (a *SolanaAdapter) GenerateWallet() (Account, error) {
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

var _ Adapter = (*SolanaAdapter)(nil)
