package networkdefinition

import (
	"errors"
	"testing"

	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"
	"aave_pnl/internal/pkg/logger"
)

func newTestRegistry(t *testing.T) *ChainRegistry {
	t.Helper()
	r, err := NewChainRegistry(logger.NewNop(), BuiltinChains())
	if err != nil {
		t.Fatalf("NewChainRegistry: %v", err)
	}
	return r
}

func TestGetChainConfig(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		in      string
		wantID  uint64
		wantErr bool
	}{
		{in: "bsc", wantID: 56},
		{in: "BSC", wantID: 56},
		{in: "56", wantID: 56},
		{in: "base", wantID: 8453},
		{in: "8453", wantID: 8453},
		{in: "ethereum", wantErr: true},
		{in: "1", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg, err := r.GetChainConfig(tt.in)
			if tt.wantErr {
				var unsupported *entity.UnsupportedChainError
				if !errors.As(err, &unsupported) {
					t.Fatalf("expected UnsupportedChainError, got %v", err)
				}
				if entity.KindOf(err) != entity.KindUnsupportedChain {
					t.Fatalf("kind = %q", entity.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("GetChainConfig(%q): %v", tt.in, err)
			}
			if cfg.ChainID != tt.wantID {
				t.Fatalf("ChainID = %d, want %d", cfg.ChainID, tt.wantID)
			}
		})
	}
}

func TestGetChainConfigReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	cfg, _ := r.GetChainConfig("bsc")
	cfg.Tokens[0].Symbol = "MUTATED"
	cfg.RPCURLs[0] = "http://mutated"

	again, _ := r.GetChainConfig("bsc")
	if again.Tokens[0].Symbol != "USDT" || again.RPCURLs[0] == "http://mutated" {
		t.Fatal("registry state was mutated through a returned config")
	}
}

func TestNewChainRegistryRejectsDuplicateSymbols(t *testing.T) {
	def := BSC()
	def.Tokens = append(def.Tokens, entity.TokenDescriptor{Symbol: "usdt", UnderlyingAddress: "0x1"})

	_, err := NewChainRegistry(logger.NewNop(), []entity.ChainConfig{def})
	var cfgErr *entity.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNewChainRegistryRequiresEndpoints(t *testing.T) {
	def := Base()
	def.RPCURLs = nil
	if _, err := NewChainRegistry(logger.NewNop(), []entity.ChainConfig{def}); err == nil {
		t.Fatal("expected error for chain without RPC endpoints")
	}
}

func TestApplyOverrides(t *testing.T) {
	defs := ApplyOverrides(BuiltinChains(), []configloader.ChainOverride{
		{Identifier: "BSC", RPCURLs: []string{"http://localhost:8545"}, LogScanWindow: 42},
	})
	for _, d := range defs {
		switch d.Identifier {
		case "bsc":
			if len(d.RPCURLs) != 1 || d.RPCURLs[0] != "http://localhost:8545" || d.LogScanWindow != 42 {
				t.Fatalf("override not applied: %+v", d)
			}
		case "base":
			if len(d.RPCURLs) != len(Base().RPCURLs) {
				t.Fatal("base should be untouched")
			}
		}
	}
}

func TestChainConfigLookups(t *testing.T) {
	bsc := BSC()
	tok, ok := bsc.TokenByUnderlying("0x55D398326F99059FF775485246999027B3197955")
	if !ok || tok.Symbol != "USDT" {
		t.Fatalf("TokenByUnderlying = %+v, %v", tok, ok)
	}
	if !bsc.IsLendingContract("0x6807DC923806FE8FD134338EABCA509979A7E0CB") {
		t.Fatal("pool address should be a lending contract")
	}
	if bsc.IsLendingContract("") {
		t.Fatal("empty address must not match")
	}
}
