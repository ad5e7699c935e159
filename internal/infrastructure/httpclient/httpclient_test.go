package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/infrastructure/configloader"

	"go.uber.org/zap"
)

func TestCoinGeckoSimplePrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "tether,wbnb" {
			t.Errorf("ids = %q", got)
		}
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo" {
			t.Errorf("api key header = %q", got)
		}
		_, _ = io.WriteString(w, `{"tether":{"usd":1.001},"wbnb":{"usd":600.5}}`)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(configloader.CoinGeckoConfig{BaseURL: srv.URL, APIKey: "demo"}, zap.NewNop())
	prices, err := c.SimplePrices(context.Background(), []string{"tether", "wbnb"})
	if err != nil {
		t.Fatalf("SimplePrices: %v", err)
	}
	if prices["wbnb"] != 600.5 || prices["tether"] != 1.001 {
		t.Errorf("prices = %v", prices)
	}
}

func TestCoinGeckoHistoricalPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/wbnb/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "05-03-2024" {
			t.Errorf("date = %q", got)
		}
		_, _ = io.WriteString(w, `{"id":"wbnb","market_data":{"current_price":{"usd":410.25,"eur":380}}}`)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(configloader.CoinGeckoConfig{BaseURL: srv.URL}, zap.NewNop())
	at := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	price, err := c.HistoricalPrice(context.Background(), "wbnb", at)
	if err != nil {
		t.Fatalf("HistoricalPrice: %v", err)
	}
	if price != 410.25 {
		t.Errorf("price = %v, want 410.25", price)
	}
}

func TestCoinGeckoRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(configloader.CoinGeckoConfig{BaseURL: srv.URL}, zap.NewNop())
	_, err := c.HistoricalPrice(context.Background(), "wbnb", time.Now())
	if !errors.Is(err, entity.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestCoinGeckoMissingMarketData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"wbnb"}`)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(configloader.CoinGeckoConfig{BaseURL: srv.URL}, zap.NewNop())
	if _, err := c.HistoricalPrice(context.Background(), "wbnb", time.Now()); err == nil {
		t.Fatal("expected error for missing market data")
	}
}

func TestExplorerAccountTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for k, want := range map[string]string{
			"chainid": "56", "module": "account", "action": "txlist",
			"startblock": "0", "endblock": "99999999", "sort": "asc", "apikey": "key",
		} {
			if got := q.Get(k); got != want {
				t.Errorf("%s = %q, want %q", k, got, want)
			}
		}
		_, _ = io.WriteString(w, `{"status":"1","message":"OK","result":[
			{"blockNumber":"100","timeStamp":"1700000000","hash":"0xa","from":"0x1","to":"0xpool","input":"0x617ba037","isError":"0"},
			{"blockNumber":"101","timeStamp":"1700000100","hash":"0xb","from":"0x1","to":"0xpool","input":"0x","isError":"1"}]}`)
	}))
	defer srv.Close()

	c := NewExplorerClient(configloader.ExplorerConfig{APIKey: "key"}, zap.NewNop())
	chain := entity.ChainConfig{ChainID: 56, Identifier: "bsc", ExplorerAPIURL: srv.URL}
	txs, err := c.AccountTransactions(context.Background(), chain, "txlist", "0x1111111111111111111111111111111111111111", 0)
	if err != nil {
		t.Fatalf("AccountTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("txs = %+v, want 1 successful tx", txs)
	}
	if txs[0].BlockNumber != 100 || !txs[0].Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("tx = %+v", txs[0])
	}
}

func TestExplorerNonOKStatus(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		rateLimited bool
	}{
		{"no transactions", `{"status":"0","message":"No transactions found","result":[]}`, false},
		{"invalid key", `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, false},
		{"rate limit", `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseExplorerResponse([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, entity.ErrRateLimited); got != tt.rateLimited {
				t.Errorf("rate limited = %v, want %v (%v)", got, tt.rateLimited, err)
			}
		})
	}
}

func TestExplorerWithoutURL(t *testing.T) {
	c := NewExplorerClient(configloader.ExplorerConfig{}, zap.NewNop())
	if _, err := c.AccountTransactions(context.Background(), entity.ChainConfig{Identifier: "x"}, "txlist", "0x1", 0); err == nil {
		t.Fatal("expected error")
	}
}

var testSummary = entity.ReportSummary{
	WalletAddress:   "0x1234567890abcdef1234567890abcdef12345678",
	Chain:           "bsc",
	CurrentNetWorth: 1234.5,
	TotalPnL:        -20,
	PnLPercentage:   -1.6,
	SuppliedTotal:   2000,
	BorrowedTotal:   765.5,
}

func TestDiscordNotConfigured(t *testing.T) {
	c := NewDiscordClient(configloader.DiscordConfig{}, zap.NewNop())
	if c.IsConfigured() {
		t.Fatal("expected unconfigured client")
	}
	res := c.Notify(context.Background(), testSummary, nil)
	if res.Success || res.Reason != ReasonNotConfigured {
		t.Errorf("result = %+v", res)
	}
}

func TestDiscordPostsMultipartCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/chan/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot token" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		payload := r.FormValue("payload_json")
		if !strings.Contains(payload, "attachment://aave-pnl-0x123456.png") {
			t.Errorf("payload_json = %s", payload)
		}
		if !strings.Contains(payload, `"color":16729156`) {
			t.Errorf("expected loss color in %s", payload)
		}
		files := r.MultipartForm.File["files[0]"]
		if len(files) != 1 || files[0].Filename != "aave-pnl-0x123456.png" {
			t.Errorf("files = %+v", files)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"id":"1"}`)
	}))
	defer srv.Close()

	c := NewDiscordClient(configloader.DiscordConfig{BaseURL: srv.URL, BotToken: "token", ChannelID: "chan"}, zap.NewNop())
	res := c.Notify(context.Background(), testSummary, []byte{0x89, 'P', 'N', 'G'})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
}

func TestDiscordStatusReasons(t *testing.T) {
	tests := []struct {
		status int
		reason string
	}{
		{http.StatusUnauthorized, ReasonInvalidToken},
		{http.StatusForbidden, ReasonMissingPermissions},
		{http.StatusNotFound, ReasonChannelNotFound},
		{http.StatusTooManyRequests, ReasonRateLimited},
		{http.StatusBadRequest, ReasonUnexpectedStatus},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"nope"}`)
			}))
			defer srv.Close()

			c := NewDiscordClient(configloader.DiscordConfig{BaseURL: srv.URL, BotToken: "t", ChannelID: "c"}, zap.NewNop())
			res := c.Notify(context.Background(), testSummary, nil)
			if res.Success || res.Reason != tt.reason {
				t.Errorf("result = %+v, want reason %s", res, tt.reason)
			}
		})
	}
}

func TestBuildEmbedProfit(t *testing.T) {
	s := testSummary
	s.TotalPnL = 1500
	s.PnLPercentage = 12.5
	s.BorrowedTotal = 0
	e := buildEmbed(s, time.Unix(0, 0))
	if e.Color != profitColor {
		t.Errorf("color = %x", e.Color)
	}
	if len(e.Fields) != 3 {
		t.Errorf("fields = %d, want 3 without borrowed", len(e.Fields))
	}
	if e.Fields[1].Value != "+$1,500.00 (+12.50%)" {
		t.Errorf("pnl field = %q", e.Fields[1].Value)
	}
	if !strings.Contains(e.Title, "BSC") {
		t.Errorf("title = %q", e.Title)
	}
}
