package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Alias1177/NovaAnalyst/models"
)

const twoPairs = `{
	"schemaVersion":"1.0.0",
	"pairs":[
		{
			"chainId":"ethereum","dexId":"uniswap","pairAddress":"0xaaa",
			"baseToken":{"address":"0x6982","name":"Pepe","symbol":"PEPE"},
			"quoteToken":{"address":"0xc02a","name":"Wrapped Ether","symbol":"WETH"},
			"priceNative":"0.000000004","priceUsd":"0.00001234",
			"txns":{"h24":{"buys":900,"sells":400}},
			"volume":{"h24":250000,"h1":10000},
			"priceChange":{"h24":7.5},
			"liquidity":{"usd":1500000,"base":100,"quote":200},
			"fdv":5000000000,"marketCap":4900000000
		},
		{
			"chainId":"ethereum","dexId":"sushiswap","pairAddress":"0xbbb",
			"baseToken":{"address":"0x6982","name":"Pepe","symbol":"PEPE"},
			"quoteToken":{"address":"0xdac1","name":"Tether","symbol":"USDT"},
			"priceNative":"0.0000123","priceUsd":"0.0000123",
			"txns":{"h24":{"buys":10,"sells":12}},
			"volume":{"h24":900000},
			"priceChange":{"h24":-1.5}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientOptions{
		BaseURL:         server.URL,
		RequestTimeout:  2 * time.Second,
		RequestsPerMin:  600,
		MaxRetryTimeout: time.Second,
	})
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}
}

func TestTokenPairs(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, twoPairs)
	})

	meta, err := client.TokenPairs(context.Background(), "0x6982")
	if err != nil {
		t.Fatalf("TokenPairs() error = %v", err)
	}
	if path != "/dex/tokens/0x6982" {
		t.Errorf("path = %q", path)
	}
	if meta.PairsCount != 2 || len(meta.Pairs) != 2 || meta.SchemaVersion != "1.0.0" {
		t.Fatalf("meta = %+v", meta)
	}

	first := meta.Pairs[0]
	if first.PriceUSD != 0.00001234 || first.PriceNative != 0.000000004 {
		t.Errorf("prices = %v %v", first.PriceUSD, first.PriceNative)
	}
	if first.Txns.H24.Buys != 900 || first.Txns.H24.Sells != 400 {
		t.Errorf("txns = %+v", first.Txns.H24)
	}
	if first.BaseToken.Symbol != "PEPE" || first.QuoteToken.Symbol != "WETH" {
		t.Errorf("tokens = %+v %+v", first.BaseToken, first.QuoteToken)
	}

	if meta.MostLiquidPair == nil || meta.MostLiquidPair.PairAddress != "0xaaa" {
		t.Errorf("MostLiquidPair = %+v", meta.MostLiquidPair)
	}
	if meta.HighestVolumePair == nil || meta.HighestVolumePair.PairAddress != "0xbbb" {
		t.Errorf("HighestVolumePair = %+v", meta.HighestVolumePair)
	}
	// A pair without liquidity decodes to zero
	if meta.Pairs[1].Liquidity.USD != 0 {
		t.Errorf("missing liquidity = %v", meta.Pairs[1].Liquidity.USD)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "null pairs", body: `{"schemaVersion":"1.0.0","pairs":null}`, wantErr: models.ErrNotFound},
		{name: "empty pairs", body: `{"pairs":[]}`, wantErr: models.ErrNotFound},
		{name: "bad price", body: `{"pairs":[{"pairAddress":"0x1","priceUsd":"abc"}]}`, wantErr: models.ErrMalformedPayload},
		{name: "truncated body", body: `{"pairs":[`, wantErr: models.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, respond(tt.body))

			meta, err := client.Search(context.Background(), "pepe")
			if meta != nil {
				t.Errorf("meta = %+v, want nil", meta)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var upstream *models.UpstreamError
			if !errors.As(err, &upstream) || upstream.Source != "dexscreener" || upstream.Op != "search" {
				t.Errorf("error = %#v, want dexscreener search UpstreamError", err)
			}
		})
	}
}

func TestPairsByChain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dex/pairs/ethereum/0xaaa" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"schemaVersion":"1.0.0","pairs":null,"pair":{"pairAddress":"0xaaa","priceUsd":"1.5","liquidity":{"usd":10}}}`)
	})

	meta, err := client.PairsByChain(context.Background(), "ethereum", "0xaaa")
	if err != nil {
		t.Fatalf("PairsByChain() error = %v", err)
	}
	if meta.PairsCount != 1 || meta.MostLiquidPair.PriceUSD != 1.5 {
		t.Errorf("meta = %+v", meta)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, respond(`{"pairs":[]}`))
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() with no pairs = %v, want nil", err)
	}

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if err := down.Ping(context.Background()); err == nil {
		t.Error("Ping() against a failing API returned nil")
	}
}
