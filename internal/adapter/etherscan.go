package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// EtherscanClient reads transaction history from an Etherscan-style
// account API. EVM nodes have no address index, so history always comes
// from an explorer.
type EtherscanClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewEtherscanClient creates a history client for an explorer API.
func NewEtherscanClient(baseURL, apiKey string) *EtherscanClient {
	return &EtherscanClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type etherscanTx struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// TxList returns native-coin transactions for an address, newest first.
func (e *EtherscanClient) TxList(ctx context.Context, address string) ([]etherscanTx, error) {
	return e.query(ctx, url.Values{
		"module":  {"account"},
		"action":  {"txlist"},
		"address": {address},
		"sort":    {"desc"},
	})
}

// TokenTxList returns token transfers for an address and contract.
func (e *EtherscanClient) TokenTxList(ctx context.Context, address, contract string) ([]etherscanTx, error) {
	return e.query(ctx, url.Values{
		"module":          {"account"},
		"action":          {"tokentx"},
		"address":         {address},
		"contractaddress": {contract},
		"sort":            {"desc"},
	})
}

func (e *EtherscanClient) query(ctx context.Context, params url.Values) ([]etherscanTx, error) {
	if e.apiKey != "" {
		params.Set("apikey", e.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var body struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	// "No transactions found" arrives as status 0 with an empty result.
	var txs []etherscanTx
	if err := json.Unmarshal(body.Result, &txs); err != nil {
		if body.Status == "0" {
			return nil, nil
		}
		return nil, fmt.Errorf("explorer error: %s", body.Message)
	}
	return txs, nil
}
