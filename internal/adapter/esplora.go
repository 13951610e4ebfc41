package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// EsploraClient reads address state from an Esplora-compatible REST API
// (blockstream.info, mempool.space). It only ever serves as a read
// fallback: broadcasts always go through Electrum so a half-working
// explorer cannot split the sweep path.
type EsploraClient struct {
	baseURL string
	client  *http.Client
}

func newEsploraClient(baseURL string) *EsploraClient {
	return &EsploraClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// get performs a GET request and decodes the JSON response.
func (e *EsploraClient) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

type esploraAddressInfo struct {
	ChainStats struct {
		FundedTxoSum uint64 `json:"funded_txo_sum"`
		SpentTxoSum  uint64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// AddressBalance returns the confirmed balance in satoshi.
func (e *EsploraClient) AddressBalance(ctx context.Context, address string) (uint64, error) {
	var info esploraAddressInfo
	if err := e.get(ctx, "/address/"+address, &info); err != nil {
		return 0, err
	}
	return info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum, nil
}

type esploraTx struct {
	TxID string `json:"txid"`
	Vout []struct {
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		Value               uint64 `json:"value"`
	} `json:"vout"`
}

// AddressTxs returns the recent history of an address, classified the
// same way as the Electrum path.
func (e *EsploraClient) AddressTxs(ctx context.Context, address string) ([]Tx, error) {
	var raw []esploraTx
	if err := e.get(ctx, "/address/"+address+"/txs", &raw); err != nil {
		return nil, err
	}

	txs := make([]Tx, 0, len(raw))
	for _, tx := range raw {
		received := big.NewInt(0)
		total := big.NewInt(0)
		for _, out := range tx.Vout {
			total.Add(total, new(big.Int).SetUint64(out.Value))
			if out.ScriptPubKeyAddress == address {
				received.Add(received, new(big.Int).SetUint64(out.Value))
			}
		}
		if received.Sign() > 0 {
			txs = append(txs, Tx{Hash: tx.TxID, Side: SideDeposit, Amount: received})
		} else {
			txs = append(txs, Tx{Hash: tx.TxID, Side: SideSentTo, Amount: total})
		}
	}
	return txs, nil
}

// RecommendedFee returns the fastest-confirmation fee rate in sat/vB
// from the /v1/fees/recommended endpoint, where available.
func (e *EsploraClient) RecommendedFee(ctx context.Context) (uint64, error) {
	var fees struct {
		FastestFee uint64 `json:"fastestFee"`
	}
	if err := e.get(ctx, "/v1/fees/recommended", &fees); err != nil {
		return 0, err
	}
	if fees.FastestFee == 0 {
		return 1, nil
	}
	return fees.FastestFee, nil
}
