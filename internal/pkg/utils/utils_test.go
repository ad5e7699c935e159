package utils

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{name: "nil", amount: nil, decimals: 18, want: "0"},
		{name: "18 decimals", amount: big.NewInt(1234500000000000000), decimals: 18, want: "1.2345"},
		{name: "6 decimals", amount: big.NewInt(2500000), decimals: 6, want: "2.5"},
		{name: "no decimals", amount: big.NewInt(42), decimals: 0, want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBigInt(tt.amount, tt.decimals); got != tt.want {
				t.Fatalf("FormatBigInt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToFloatUSDT(t *testing.T) {
	raw, _ := new(big.Int).SetString("123456000000000000000", 10)
	if got := ToFloat(raw, 18); got != 123.456 {
		t.Fatalf("ToFloat() = %v, want 123.456", got)
	}
}

func TestLoadTokensFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bsc.json")
	body := `[{"symbol":"USDT","underlyingAddress":"0x55d398326f99059fF775485246999027B3197955","aTokenAddress":"0xa9251ca9DE909CB71783723713B21E4233fbf1B1","debtTokenAddress":"0xF8bb2Be50647447Fb355e3a77b81be4db64107cd","decimals":18}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	tokens, err := LoadTokensFromJSON(path)
	if err != nil {
		t.Fatalf("LoadTokensFromJSON: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Symbol != "USDT" || tokens[0].Decimals != 18 {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("AAVE_PNL_TEST_ENV", "set")
	if got := GetEnv("AAVE_PNL_TEST_ENV", "fallback"); got != "set" {
		t.Fatalf("GetEnv() = %q", got)
	}
	if got := GetEnv("AAVE_PNL_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv() = %q", got)
	}
}
