package walletloader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
)

func TestWallets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.txt")
	body := "# team wallets\n" +
		"0x1111111111111111111111111111111111111111\n" +
		"\n" +
		"0xnothex base\n" +
		"0x2222222222222222222222222222222222222222, base, treasury hot  # moved in May\n" +
		"0x1111111111111111111111111111111111111111\n" +
		"0x1111111111111111111111111111111111111111 BSC\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	var skipped int
	src := NewFileSource(path, func(msg string, _ ...any) { skipped++ })
	wallets, err := src.Wallets()
	if err != nil {
		t.Fatalf("Wallets: %v", err)
	}
	if len(wallets) != 3 {
		t.Fatalf("wallets = %+v, want 3", wallets)
	}
	if wallets[0].Chain != "" {
		t.Errorf("first wallet chain = %q, want empty", wallets[0].Chain)
	}
	if w := wallets[1]; w.Address != "0x2222222222222222222222222222222222222222" || w.Chain != "base" || w.Label != "treasury hot" {
		t.Errorf("second wallet = %+v", w)
	}
	if wallets[2].Chain != "bsc" {
		t.Errorf("third wallet chain = %q, want bsc", wallets[2].Chain)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestWalletsMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.txt"), nil)
	if _, err := src.Wallets(); err == nil {
		t.Fatal("expected error")
	}
}

type staticSource struct {
	wallets []entity.Wallet
	err     error
}

func (s staticSource) Wallets() ([]entity.Wallet, error) { return s.wallets, s.err }

func TestCollect(t *testing.T) {
	const (
		a = "0x1111111111111111111111111111111111111111"
		b = "0x2222222222222222222222222222222222222222"
		c = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	)
	tests := []struct {
		name      string
		addresses []string
		src       port.WalletSource
		want      []entity.Wallet
		wantErr   bool
	}{
		{
			name:      "flags only get the default chain",
			addresses: []string{" " + a + " "},
			want:      []entity.Wallet{{Address: a, Chain: "base"}},
		},
		{
			name:      "flags then file, file chain kept",
			addresses: []string{a},
			src:       staticSource{wallets: []entity.Wallet{{Address: b, Chain: "bsc", Label: "ops"}, {Address: b}}},
			want: []entity.Wallet{
				{Address: a, Chain: "base"},
				{Address: b, Chain: "bsc", Label: "ops"},
				{Address: b, Chain: "base"},
			},
		},
		{
			name:      "same address and chain deduplicated case-insensitively",
			addresses: []string{c, "0x" + strings.ToUpper(c[2:])},
			src:       staticSource{wallets: []entity.Wallet{{Address: c, Chain: "base"}}},
			want:      []entity.Wallet{{Address: c, Chain: "base"}},
		},
		{name: "nothing given", wantErr: true},
		{name: "malformed flag address", addresses: []string{"0x123"}, wantErr: true},
		{name: "source error", src: staticSource{err: errors.New("disk gone")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(tt.addresses, tt.src, "BASE")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Collect() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Collect: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Collect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCollectNoWalletsIsInvalidInput(t *testing.T) {
	_, err := Collect(nil, nil, "bsc")
	if entity.KindOf(err) != entity.KindInvalidInput {
		t.Fatalf("kind = %s, want %s", entity.KindOf(err), entity.KindInvalidInput)
	}
}
