package electrum

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"
)

// startFakeServer runs a newline JSON-RPC server that answers each method
// from the given map. Every connection serves a single request, matching
// the client's connect-per-operation behavior.
func startFakeServer(t *testing.T, responses map[string]interface{}) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()

				line, err := bufio.NewReader(conn).ReadBytes('\n')
				if err != nil {
					return
				}

				var req struct {
					ID     uint64        `json:"id"`
					Method string        `json:"method"`
					Params []interface{} `json:"params"`
				}
				if err := json.Unmarshal(line, &req); err != nil {
					return
				}

				resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
				if result, ok := responses[req.Method]; ok {
					resp["result"] = result
				} else {
					resp["error"] = map[string]interface{}{"code": -32601, "message": "unknown method"}
				}

				data, _ := json.Marshal(resp)
				conn.Write(append(data, '\n'))
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestGetBalance(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{
		"blockchain.scripthash.get_balance": map[string]interface{}{
			"confirmed":   150000,
			"unconfirmed": -5000,
		},
	})

	c := NewClient([]string{addr}, false, 5*time.Second)
	balance, err := c.GetBalance(context.Background(), "aabb")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.Confirmed != 150000 {
		t.Errorf("confirmed = %d, want 150000", balance.Confirmed)
	}
	if balance.Unconfirmed != -5000 {
		t.Errorf("unconfirmed = %d, want -5000", balance.Unconfirmed)
	}
}

func TestGetHistoryAndTransaction(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{
		"blockchain.scripthash.get_history": []interface{}{
			map[string]interface{}{"tx_hash": "txa", "height": 100},
			map[string]interface{}{"tx_hash": "txb", "height": 0},
		},
		"blockchain.transaction.get": map[string]interface{}{
			"txid":          "txa",
			"confirmations": 3,
			"vout": []interface{}{
				map[string]interface{}{
					"value": 0.0015,
					"n":     0,
					"scriptPubKey": map[string]interface{}{
						"address": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
					},
				},
			},
		},
	})

	c := NewClient([]string{addr}, false, 5*time.Second)

	history, err := c.GetHistory(context.Background(), "aabb")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].TxHash != "txa" || history[0].Height != 100 {
		t.Errorf("history[0] = %+v", history[0])
	}

	tx, err := c.GetTransaction(context.Background(), "txa")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if len(tx.Vout) != 1 {
		t.Fatalf("vout length = %d, want 1", len(tx.Vout))
	}
	payees := tx.Vout[0].PayeeAddresses()
	if len(payees) != 1 || payees[0] != "1BoatSLRHtKNngkdXEeobR76b53LETtpyT" {
		t.Errorf("payees = %v", payees)
	}
	if tx.Vout[0].Value != 0.0015 {
		t.Errorf("value = %v, want 0.0015", tx.Vout[0].Value)
	}
}

func TestPayeeAddressesLegacyForm(t *testing.T) {
	out := TxOut{}
	out.ScriptPubKey.Addresses = []string{"addr1", "addr2"}
	payees := out.PayeeAddresses()
	if len(payees) != 2 {
		t.Errorf("payees = %v, want legacy list", payees)
	}
}

func TestBroadcast(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{
		"blockchain.transaction.broadcast": "deadbeef",
	})

	c := NewClient([]string{addr}, false, 5*time.Second)
	txID, err := c.Broadcast(context.Background(), "0100")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if txID != "deadbeef" {
		t.Errorf("txID = %s, want deadbeef", txID)
	}
}

func TestEstimateFeeAndRelayFee(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{
		"blockchain.estimatefee": 0.00012,
		"blockchain.relayfee":    0.00001,
	})

	c := NewClient([]string{addr}, false, 5*time.Second)

	fee, err := c.EstimateFee(context.Background(), 1)
	if err != nil {
		t.Fatalf("EstimateFee: %v", err)
	}
	if fee != 0.00012 {
		t.Errorf("fee = %v, want 0.00012", fee)
	}

	relay, err := c.RelayFee(context.Background())
	if err != nil {
		t.Fatalf("RelayFee: %v", err)
	}
	if relay != 0.00001 {
		t.Errorf("relay fee = %v, want 0.00001", relay)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{})

	c := NewClient([]string{addr}, false, 5*time.Second)
	_, err := c.GetBalance(context.Background(), "aabb")
	if !errors.Is(err, ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
}

func TestNoServersReachable(t *testing.T) {
	c := NewClient([]string{"127.0.0.1:1"}, false, 500*time.Millisecond)
	_, err := c.GetBalance(context.Background(), "aabb")
	if !errors.Is(err, ErrNoServers) {
		t.Errorf("err = %v, want ErrNoServers", err)
	}
}

func TestServerFallback(t *testing.T) {
	addr := startFakeServer(t, map[string]interface{}{
		"blockchain.relayfee": 0.00001,
	})

	// First server is dead, second answers.
	c := NewClient([]string{"127.0.0.1:1", addr}, false, 2*time.Second)
	relay, err := c.RelayFee(context.Background())
	if err != nil {
		t.Fatalf("RelayFee: %v", err)
	}
	if relay != 0.00001 {
		t.Errorf("relay fee = %v", relay)
	}
}
