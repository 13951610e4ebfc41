// Package electrum implements a minimal ElectrumX protocol client:
// newline-delimited JSON-RPC 2.0 over TCP or TLS.
//
// The client opens a fresh connection for every operation and closes it
// when the response arrives. Scan cycles are minutes apart, so holding a
// session open buys nothing and long-lived connections to public servers
// tend to rot.
package electrum

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

var (
	// ErrNoServers indicates no Electrum server accepted the connection.
	ErrNoServers = errors.New("no electrum server reachable")

	// ErrProtocol wraps transport or parse failures.
	ErrProtocol = errors.New("electrum protocol error")

	// ErrServer wraps an error object returned by the server.
	ErrServer = errors.New("electrum server error")
)

// Balance is the confirmed/unconfirmed pair returned by get_balance.
type Balance struct {
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed int64  `json:"unconfirmed"`
}

// HistoryItem is one entry from get_history.
type HistoryItem struct {
	TxHash string `json:"tx_hash"`
	Height int64  `json:"height"`
}

// Unspent is one entry from listunspent.
type Unspent struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Value  uint64 `json:"value"`
	Height int64  `json:"height"`
}

// ScriptPubKey describes where a transaction output pays to. Servers
// return either the single address field or the legacy list.
type ScriptPubKey struct {
	Hex       string   `json:"hex"`
	Address   string   `json:"address"`
	Addresses []string `json:"addresses"`
}

// TxOut is one output of a verbose transaction.
type TxOut struct {
	Value        float64      `json:"value"` // coin units, not smallest units
	N            uint32       `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// PayeeAddresses returns the addresses an output pays to, covering both
// the modern single-address and the legacy list form of the field.
func (o *TxOut) PayeeAddresses() []string {
	if o.ScriptPubKey.Address != "" {
		return []string{o.ScriptPubKey.Address}
	}
	return o.ScriptPubKey.Addresses
}

// Transaction is a verbose transaction as served by ElectrumX.
type Transaction struct {
	TxID          string  `json:"txid"`
	Hex           string  `json:"hex"`
	Confirmations int64   `json:"confirmations"`
	Vout          []TxOut `json:"vout"`
}

// Client talks to one Electrum server set.
type Client struct {
	servers   []string
	useTLS    bool
	timeout   time.Duration
	requestID atomic.Uint64
}

// NewClient creates a client for the given servers ("host:port").
func NewClient(servers []string, useTLS bool, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		servers: servers,
		useTLS:  useTLS,
		timeout: timeout,
	}
}

// GetBalance returns the confirmed and unconfirmed balance of a script hash.
func (c *Client) GetBalance(ctx context.Context, scriptHash string) (*Balance, error) {
	var balance Balance
	if err := c.call(ctx, "blockchain.scripthash.get_balance", []interface{}{scriptHash}, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetHistory returns the transaction history of a script hash.
func (c *Client) GetHistory(ctx context.Context, scriptHash string) ([]HistoryItem, error) {
	var history []HistoryItem
	if err := c.call(ctx, "blockchain.scripthash.get_history", []interface{}{scriptHash}, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// ListUnspent returns the unspent outputs of a script hash.
func (c *Client) ListUnspent(ctx context.Context, scriptHash string) ([]Unspent, error) {
	var unspent []Unspent
	if err := c.call(ctx, "blockchain.scripthash.listunspent", []interface{}{scriptHash}, &unspent); err != nil {
		return nil, err
	}
	return unspent, nil
}

// GetTransaction returns a transaction in verbose form.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, "blockchain.transaction.get", []interface{}{txID, true}, &tx); err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		tx.TxID = txID
	}
	return &tx, nil
}

// Broadcast submits a raw transaction and returns its txid.
func (c *Client) Broadcast(ctx context.Context, rawHex string) (string, error) {
	var txID string
	if err := c.call(ctx, "blockchain.transaction.broadcast", []interface{}{rawHex}, &txID); err != nil {
		return "", err
	}
	return txID, nil
}

// EstimateFee returns the fee estimate for confirmation within the given
// number of blocks, in coin/kB. Servers return -1 when they cannot estimate.
func (c *Client) EstimateFee(ctx context.Context, blocks int) (float64, error) {
	var fee float64
	if err := c.call(ctx, "blockchain.estimatefee", []interface{}{blocks}, &fee); err != nil {
		return 0, err
	}
	return fee, nil
}

// RelayFee returns the server's minimum relay fee in coin/kB.
func (c *Client) RelayFee(ctx context.Context) (float64, error) {
	var fee float64
	if err := c.call(ctx, "blockchain.relayfee", []interface{}{}, &fee); err != nil {
		return 0, err
	}
	return fee, nil
}

// call dials a server, performs a single request, and closes the
// connection. Servers are tried in order until one accepts.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	id := c.requestID.Add(1)
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	// A hung server must not stall the scan loop: every read and write
	// carries an explicit deadline.
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: write: %v", ErrProtocol, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrProtocol, err)
	}

	var response struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      uint64          `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if response.Error != nil {
		return fmt.Errorf("%w: %d %s", ErrServer, response.Error.Code, response.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(response.Result, result); err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
	}
	return nil
}

// dial connects to the first reachable server.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var lastErr error
	for _, server := range c.servers {
		dialer := &net.Dialer{Timeout: c.timeout}

		var conn net.Conn
		var err error
		if c.useTLS {
			conn, err = tls.DialWithDialer(dialer, "tcp", server, &tls.Config{
				MinVersion: tls.VersionTLS12,
			})
		} else {
			conn, err = dialer.DialContext(ctx, "tcp", server)
		}
		if err != nil {
			lastErr = err
			continue
		}
		return conn, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrNoServers, lastErr)
}
