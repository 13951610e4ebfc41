// Package exchange talks to the external liquidity venue's REST API.
// The custody daemon only needs three things from it: the withdrawal
// fee per coin, the venue-side aggregate balance, and where to send
// hot-wallet funds.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoDepositAddress indicates the venue has no deposit address
	// configured for a coin; hot moves for that coin stay parked.
	ErrNoDepositAddress = errors.New("no deposit address for coin")
)

// Client is a read-mostly REST client for the venue API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client

	// Static per-coin deposit addresses from configuration, consulted
	// before the API.
	depositAddrs map[string]string
}

// New creates a venue client. depositAddrs may be nil.
func New(baseURL, apiKey string, depositAddrs map[string]string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		depositAddrs: depositAddrs,
	}
}

// WithdrawalFee returns the venue's withdrawal fee for a coin, in coin
// units. Deposits are credited net of this fee.
func (c *Client) WithdrawalFee(ctx context.Context, coin string) (decimal.Decimal, error) {
	var body struct {
		Fee string `json:"withdrawal_fee"`
	}
	if err := c.get(ctx, "/api/v1/fees", url.Values{"coin": {coin}}, &body); err != nil {
		return decimal.Zero, err
	}
	fee, err := decimal.NewFromString(body.Fee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("venue returned bad fee %q: %w", body.Fee, err)
	}
	return fee, nil
}

// AggregateBalance returns the venue-side balance held for a coin, in
// coin units. Pending ledger credit is only merged once this covers it.
func (c *Client) AggregateBalance(ctx context.Context, coin string) (decimal.Decimal, error) {
	var body struct {
		Available string `json:"available"`
	}
	if err := c.get(ctx, "/api/v1/balance", url.Values{"coin": {coin}}, &body); err != nil {
		return decimal.Zero, err
	}
	balance, err := decimal.NewFromString(body.Available)
	if err != nil {
		return decimal.Zero, fmt.Errorf("venue returned bad balance %q: %w", body.Available, err)
	}
	return balance, nil
}

// DepositAddress returns where hot-wallet funds for a coin should be
// sent. Configured addresses win over the API lookup.
func (c *Client) DepositAddress(ctx context.Context, coin string) (string, error) {
	if addr, ok := c.depositAddrs[coin]; ok && addr != "" {
		return addr, nil
	}

	var body struct {
		Address string `json:"address"`
	}
	if err := c.get(ctx, "/api/v1/deposit-address", url.Values{"coin": {coin}}, &body); err != nil {
		return "", err
	}
	if body.Address == "" {
		return "", fmt.Errorf("%w: %s", ErrNoDepositAddress, coin)
	}
	return body.Address, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("venue api returned status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
