package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func newRPCServer(t *testing.T, handle func(method string, input []byte) (any, error)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var input []byte
		if req.Method == "eth_call" && len(req.Params) > 0 {
			var call map[string]string
			_ = json.Unmarshal(req.Params[0], &call)
			raw := call["input"]
			if raw == "" {
				raw = call["data"]
			}
			input, _ = hexutil.Decode(raw)
		}
		result, err := handle(req.Method, input)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if err != nil {
			resp["error"] = map[string]any{"code": -32000, "message": err.Error()}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEVMClientBalanceOf(t *testing.T) {
	initParsedABIs()
	balanceSelector := parsedERC20ABI.Methods["balanceOf"].ID
	srv := newRPCServer(t, func(method string, input []byte) (any, error) {
		if method != "eth_call" {
			return nil, fmt.Errorf("unexpected method %s", method)
		}
		if len(input) < 4 || !strings.EqualFold(hexutil.Encode(input[:4]), hexutil.Encode(balanceSelector)) {
			return nil, errors.New("unexpected selector")
		}
		return hexutil.Encode(word(big.NewInt(1_500_000))), nil
	})

	c, err := NewEVMClient(context.Background(), srv.URL, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	got, err := c.BalanceOf(context.Background(), "0x55d398326f99059fF775485246999027B3197955", "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if got.Cmp(big.NewInt(1_500_000)) != 0 {
		t.Errorf("balance = %s, want 1500000", got)
	}
}

func TestEVMClientUserAccountData(t *testing.T) {
	hf, _ := new(big.Int).SetString("1500000000000000000", 10)
	srv := newRPCServer(t, func(method string, _ []byte) (any, error) {
		var out []byte
		for _, v := range []*big.Int{big.NewInt(200_000_000_00), big.NewInt(100_000_000_00), big.NewInt(0), big.NewInt(8000), big.NewInt(7500), hf} {
			out = append(out, word(v)...)
		}
		return hexutil.Encode(out), nil
	})

	c, err := NewEVMClient(context.Background(), srv.URL, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	data, err := c.UserAccountData(context.Background(), "0x6807dc923806fE8Fd134338EABCA509979a7e0cB", "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("UserAccountData: %v", err)
	}
	if data.TotalCollateralBase.Int64() != 20_000_000_000 {
		t.Errorf("collateral = %s", data.TotalCollateralBase)
	}
	if data.HealthFactor.Cmp(hf) != 0 {
		t.Errorf("health factor = %s", data.HealthFactor)
	}
	if data.LTV.Int64() != 7500 {
		t.Errorf("ltv = %s", data.LTV)
	}
}

func TestEVMClientLatestBlock(t *testing.T) {
	srv := newRPCServer(t, func(method string, _ []byte) (any, error) {
		if method != "eth_blockNumber" {
			return nil, fmt.Errorf("unexpected method %s", method)
		}
		return "0x2a", nil
	})
	c, err := NewEVMClient(context.Background(), srv.URL, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	n, err := c.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock: %v", err)
	}
	if n != 42 {
		t.Errorf("block = %d, want 42", n)
	}
}

func TestEVMClientRateLimitedLogs(t *testing.T) {
	srv := newRPCServer(t, func(method string, _ []byte) (any, error) {
		return nil, errors.New("exceed maximum block range: 50000")
	})
	c, err := NewEVMClient(context.Background(), srv.URL, time.Second, time.Second)
	if err != nil {
		t.Fatalf("NewEVMClient: %v", err)
	}
	_, err = c.ScanLendingTransactions(context.Background(), "0x6807dc923806fE8Fd134338EABCA509979a7e0cB", "0x1111111111111111111111111111111111111111", 1, 100)
	if !errors.Is(err, entity.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", rpc.HTTPError{StatusCode: 429, Status: "429 Too Many Requests"}, true},
		{"http 500", rpc.HTTPError{StatusCode: 500, Status: "500 Internal Server Error"}, false},
		{"message", errors.New("Rate limit reached"), true},
		{"wrapped sentinel", fmt.Errorf("scan: %w", entity.ErrRateLimited), true},
		{"other", errors.New("execution reverted"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestProviderSharesClientPerURL(t *testing.T) {
	srv := newRPCServer(t, func(string, []byte) (any, error) { return "0x1", nil })
	defer srv.Close()

	p := NewEVMClientProvider(configloader.PerformanceConfig{RPCCallTimeoutSeconds: 1}, logger.NewNop())
	defer p.Close()

	var wg sync.WaitGroup
	got := make([]port.BlockchainClient, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.GetClient(context.Background(), srv.URL)
			if err != nil {
				t.Errorf("GetClient: %v", err)
				return
			}
			got[i] = c
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatal("expected one shared client for the same URL")
		}
	}

	other, err := p.GetClient(context.Background(), srv.URL+"/other")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if other == got[0] {
		t.Error("different URLs must not share a client")
	}
}

func TestProviderDialError(t *testing.T) {
	p := NewEVMClientProvider(configloader.PerformanceConfig{}, logger.NewNop())
	if _, err := p.GetClient(context.Background(), "unknown-scheme://x"); err == nil {
		t.Fatal("expected dial error")
	}
}
