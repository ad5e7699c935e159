package service

import (
	"context"
	"math"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"

	ethmath "github.com/ethereum/go-ethereum/common/math"
)

func TestGetBalanceFailover(t *testing.T) {
	good := &fakeClient{balances: map[string]*big.Int{
		strings.ToLower(usdtAToken): big.NewInt(0).Mul(big.NewInt(123456), big.NewInt(1_000_000_000_000_000)),
	}}
	tests := []struct {
		name      string
		clients   map[string]port.BlockchainClient
		want      float64
		wantCalls []string
	}{
		{
			name:      "first endpoint answers",
			clients:   map[string]port.BlockchainClient{"rpc-a": good, "rpc-b": good, "rpc-c": good},
			want:      123.456,
			wantCalls: []string{"rpc-a"},
		},
		{
			name:      "third endpoint answers after two failures",
			clients:   map[string]port.BlockchainClient{"rpc-b": &fakeClient{balanceErr: errEndpointDown}, "rpc-c": good},
			want:      123.456,
			wantCalls: []string{"rpc-a", "rpc-b", "rpc-c"},
		},
		{
			name:      "all endpoints fail",
			clients:   map[string]port.BlockchainClient{"rpc-c": &fakeClient{balanceErr: errEndpointDown}},
			want:      0,
			wantCalls: []string{"rpc-a", "rpc-b", "rpc-c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeClientProvider{clients: tt.clients}
			svc := NewBalanceService(newFakeRegistry(testChain("rpc-a", "rpc-b", "rpc-c")), provider, nopLogger, 0)

			got := svc.GetBalance(context.Background(), testWallet, usdtAToken, 18, "bsc")
			if got != tt.want {
				t.Errorf("GetBalance = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(provider.calls, tt.wantCalls) {
				t.Errorf("endpoint calls = %v, want %v", provider.calls, tt.wantCalls)
			}
		})
	}
}

func TestGetBalanceUnknownChain(t *testing.T) {
	svc := NewBalanceService(newFakeRegistry(testChain()), &fakeClientProvider{}, nopLogger, 0)
	if got := svc.GetBalance(context.Background(), testWallet, usdtAToken, 18, "polygon"); got != 0 {
		t.Errorf("GetBalance = %v, want 0", got)
	}
}

func TestEndpointHealthMemoDemotesFailedEndpoint(t *testing.T) {
	good := &fakeClient{balances: map[string]*big.Int{strings.ToLower(usdtAToken): wei(5)}}
	provider := &fakeClientProvider{clients: map[string]port.BlockchainClient{"rpc-b": good, "rpc-c": good}}
	svc := NewBalanceService(newFakeRegistry(testChain("rpc-a", "rpc-b", "rpc-c")), provider, nopLogger, time.Minute)

	if got := svc.GetBalance(context.Background(), testWallet, usdtAToken, 18, "bsc"); got != 5 {
		t.Fatalf("first GetBalance = %v, want 5", got)
	}
	provider.reset()

	if got := svc.GetBalance(context.Background(), testWallet, usdtAToken, 18, "bsc"); got != 5 {
		t.Fatalf("second GetBalance = %v, want 5", got)
	}
	if want := []string{"rpc-b"}; !reflect.DeepEqual(provider.calls, want) {
		t.Errorf("calls after demotion = %v, want %v", provider.calls, want)
	}
}

func TestEndpointHealthOrder(t *testing.T) {
	var disabled *endpointHealth
	urls := []string{"a", "b", "c"}
	if got := disabled.order(urls); !reflect.DeepEqual(got, urls) {
		t.Errorf("disabled order = %v", got)
	}

	h := newEndpointHealth(time.Minute)
	h.markFailed("a")
	if got, want := h.order(urls), []string{"b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	h.markHealthy("a")
	if got := h.order(urls); !reflect.DeepEqual(got, urls) {
		t.Errorf("order after recovery = %v", got)
	}
}

func TestGetAccountHealth(t *testing.T) {
	hf, _ := new(big.Int).SetString("1500000000000000000", 10)
	tests := []struct {
		name string
		data *entity.UserAccountData
		want entity.AccountHealth
	}{
		{
			name: "with debt",
			data: &entity.UserAccountData{
				TotalCollateralBase: big.NewInt(20_000_000_000),
				TotalDebtBase:       big.NewInt(10_000_000_000),
				HealthFactor:        hf,
			},
			want: entity.AccountHealth{HealthFactor: 1.5, TotalCollateralUSD: 200, TotalDebtUSD: 100},
		},
		{
			name: "no debt",
			data: &entity.UserAccountData{
				TotalCollateralBase: big.NewInt(20_000_000_000),
				TotalDebtBase:       big.NewInt(0),
				HealthFactor:        new(big.Int).Set(ethmath.MaxBig256),
			},
			want: entity.AccountHealth{HealthFactor: math.Inf(1), TotalCollateralUSD: 200},
		},
		{
			name: "all endpoints fail",
			want: entity.UnknownAccountHealth(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeClientProvider{clients: map[string]port.BlockchainClient{"rpc-a": &fakeClient{accountData: tt.data}}}
			svc := NewBalanceService(newFakeRegistry(testChain()), provider, nopLogger, 0)
			got := svc.GetAccountHealth(context.Background(), testWallet, "bsc")
			if got != tt.want {
				t.Errorf("GetAccountHealth = %+v, want %+v", got, tt.want)
			}
		})
	}
}
