package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"aave_pnl/internal/infrastructure/configloader"

	"github.com/urfave/cli/v2"
)

func cliContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := newApp()
	set := flag.NewFlagSet(app.Name, flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply %v: %v", f.Names(), err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cli.NewContext(app, set, nil)
}

func TestCollectWallets(t *testing.T) {
	const (
		a = "0x1111111111111111111111111111111111111111"
		b = "0x2222222222222222222222222222222222222222"
	)
	dir := t.TempDir()
	listed := filepath.Join(dir, "listed.txt")
	if err := os.WriteFile(listed, []byte(b+" bsc treasury\n"+a+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	configured := filepath.Join(dir, "configured.txt")
	if err := os.WriteFile(configured, []byte(b+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &configloader.Config{Data: configloader.DataConfig{WalletsFile: configured}}

	tests := []struct {
		name    string
		args    []string
		want    []string // address@chain
		wantErr bool
	}{
		{
			name: "repeated wallet flags with chain flag",
			args: []string{"--chain", "base", "--wallet", a, "-w", b, "--wallet", a},
			want: []string{a + "@base", b + "@base"},
		},
		{
			name: "flags and wallets file merged",
			args: []string{"--wallet", a, "--wallets-file", listed},
			want: []string{a + "@bsc", b + "@bsc"},
		},
		{
			name: "configured file used when no wallet flag is given",
			args: []string{"--chain", "base"},
			want: []string{b + "@base"},
		},
		{
			name:    "invalid address rejected",
			args:    []string{"--wallet", "0xnothex"},
			wantErr: true,
		},
		{
			name:    "missing wallets file",
			args:    []string{"--wallets-file", filepath.Join(dir, "missing.txt")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectWallets(cliContext(t, tt.args...), cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("collectWallets() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("collectWallets: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("collectWallets() = %+v, want %v", got, tt.want)
			}
			for i, w := range got {
				if w.Address+"@"+w.Chain != tt.want[i] {
					t.Errorf("wallet %d = %s@%s, want %s", i, w.Address, w.Chain, tt.want[i])
				}
			}
		})
	}
}

func TestNewAppFlags(t *testing.T) {
	c := cliContext(t)
	if c.String("chain") != "bsc" || c.String("mode") != "live" || c.String("out") != "out" {
		t.Errorf("defaults = chain %q mode %q out %q", c.String("chain"), c.String("mode"), c.String("out"))
	}
	if c.Bool("xlsx") || c.Bool("share") {
		t.Error("xlsx and share must default to off")
	}
}
