package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// solanaRPC is a minimal JSON-RPC 2.0 client for Solana nodes.
type solanaRPC struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

func newSolanaRPC(endpoint string) *solanaRPC {
	return &solanaRPC{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type solanaRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *solanaRPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC request and decodes the result.
func (s *solanaRPC) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      s.requestID.Add(1),
		"method":  method,
		"params":  params,
	}
	data, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana rpc returned status %d", resp.StatusCode)
	}

	var body struct {
		Result json.RawMessage `json:"result"`
		Error  *solanaRPCError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.Error != nil {
		return body.Error
	}

	if result != nil {
		if err := json.Unmarshal(body.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetBalance returns the lamport balance of an address.
func (s *solanaRPC) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	err := s.call(ctx, "getBalance", []interface{}{address}, &result)
	return result.Value, err
}

type solanaSignature struct {
	Signature string `json:"signature"`
	Err       any    `json:"err"`
}

// GetSignaturesForAddress returns recent signatures, newest first.
func (s *solanaRPC) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]solanaSignature, error) {
	var result []solanaSignature
	err := s.call(ctx, "getSignaturesForAddress", []interface{}{
		address,
		map[string]interface{}{"limit": limit},
	}, &result)
	return result, err
}

// solanaParsedTx carries the jsonParsed transaction fields the watcher
// inspects.
type solanaParsedTx struct {
	Transaction struct {
		Message struct {
			Instructions []struct {
				Program string `json:"program"`
				Parsed  struct {
					Type string `json:"type"`
					Info struct {
						Source      string `json:"source"`
						Destination string `json:"destination"`
						Lamports    uint64 `json:"lamports"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

// GetTransaction returns a transaction in jsonParsed encoding.
func (s *solanaRPC) GetTransaction(ctx context.Context, signature string) (*solanaParsedTx, error) {
	var result solanaParsedTx
	err := s.call(ctx, "getTransaction", []interface{}{
		signature,
		map[string]interface{}{"encoding": "jsonParsed", "maxSupportedTransactionVersion": 0},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLatestBlockhash returns a recent blockhash for transaction building.
func (s *solanaRPC) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	err := s.call(ctx, "getLatestBlockhash", []interface{}{}, &result)
	return result.Value.Blockhash, err
}

// SendTransaction submits a base64-encoded signed transaction.
func (s *solanaRPC) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	var signature string
	err := s.call(ctx, "sendTransaction", []interface{}{
		txBase64,
		map[string]interface{}{"encoding": "base64", "skipPreflight": true},
	}, &signature)
	return signature, err
}

// GetSignatureStatuses returns the confirmation status of signatures.
func (s *solanaRPC) GetSignatureStatuses(ctx context.Context, signatures []string) ([]string, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	err := s.call(ctx, "getSignatureStatuses", []interface{}{signatures}, &result)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, len(result.Value))
	for i, v := range result.Value {
		if v != nil {
			statuses[i] = v.ConfirmationStatus
		}
	}
	return statuses, nil
}
