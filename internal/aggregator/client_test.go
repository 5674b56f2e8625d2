package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"stark-wallet/internal/account"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/starknet"
)

// fakeExecutor records the calls Execute receives.
type fakeExecutor struct {
	address *big.Int
	calls   []starknet.Call
	txHash  string
}

func (f *fakeExecutor) Address() *big.Int { return f.address }

func (f *fakeExecutor) Execute(_ context.Context, calls []starknet.Call, _ *account.ExecuteOpts) (string, error) {
	f.calls = append(f.calls, calls...)
	return f.txHash, nil
}

func TestFetchQuotes(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v2/quotes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"sellTokenAddress": r.URL.Query().Get("sellTokenAddress"),
			"buyTokenAddress":  r.URL.Query().Get("buyTokenAddress"),
			"sellAmount":       r.URL.Query().Get("sellAmount"),
			"takerAddress":     r.URL.Query().Get("takerAddress"),
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"quoteId":          "q-best",
				"sellTokenAddress": "0x1",
				"buyTokenAddress":  "0x2",
				"sellAmount":       "0x3e8",
				"buyAmount":        "0x7d0",
				"routes":           []map[string]string{{"name": "JediSwap"}},
			},
			{
				"quoteId":          "q-worse",
				"sellTokenAddress": "0x1",
				"buyTokenAddress":  "0x2",
				"sellAmount":       "0x3e8",
				"buyAmount":        "0x7cf",
				"routes":           []map[string]string{},
			},
		})
	}))
	defer srv.Close()

	a := NewHTTPAggregator(srv.URL, zerolog.Nop())
	quotes, err := a.FetchQuotes(context.Background(), QuoteRequest{
		SellToken:    "0x1",
		BuyToken:     "0x2",
		SellAmount:   big.NewInt(1000),
		TakerAddress: "0xabc",
	})
	if err != nil {
		t.Fatalf("FetchQuotes failed: %v", err)
	}

	if gotQuery["sellAmount"] != "0x3e8" {
		t.Errorf("sellAmount sent as %q, want hex 0x3e8", gotQuery["sellAmount"])
	}
	if gotQuery["takerAddress"] != "0xabc" {
		t.Errorf("takerAddress sent as %q", gotQuery["takerAddress"])
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	if quotes[0].QuoteID != "q-best" || quotes[0].BuyAmount.Int64() != 2000 {
		t.Errorf("first quote wrong: %+v", quotes[0])
	}
	if len(quotes[0].Routes) != 1 || quotes[0].Routes[0] != "JediSwap" {
		t.Errorf("routes wrong: %v", quotes[0].Routes)
	}
}

func TestFetchQuotesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	a := NewHTTPAggregator(srv.URL, zerolog.Nop())
	_, err := a.FetchQuotes(context.Background(), QuoteRequest{
		SellToken: "0x1", BuyToken: "0x2", SellAmount: big.NewInt(1), TakerAddress: "0xabc",
	})
	if !errors.Is(err, ErrNoQuotes) {
		t.Fatalf("got %v, want ErrNoQuotes", err)
	}
}

func TestExecuteSwapSubmitsBuildCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v2/build" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode build request: %v", err)
		}
		if body["quoteId"] != "q-1" {
			t.Errorf("quoteId: got %q", body["quoteId"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"calls": []map[string]interface{}{
				{
					"contractAddress": "0x111",
					"entrypoint":      "approve",
					"calldata":        []string{"0x222", "0x3e8", "0x0"},
				},
				{
					"contractAddress": "0x222",
					"entrypoint":      "swap",
					"calldata":        []string{"0x3e8"},
				},
			},
		})
	}))
	defer srv.Close()

	a := NewHTTPAggregator(srv.URL, zerolog.Nop())
	taker := &fakeExecutor{address: big.NewInt(0xabc), txHash: "0xfeed"}

	hash, err := a.ExecuteSwap(context.Background(), taker, domain.Quote{
		QuoteID:    "q-1",
		SellToken:  "0x1",
		BuyToken:   "0x2",
		SellAmount: big.NewInt(1000),
		BuyAmount:  big.NewInt(2000),
	})
	if err != nil {
		t.Fatalf("ExecuteSwap failed: %v", err)
	}
	if hash != "0xfeed" {
		t.Errorf("tx hash: got %s", hash)
	}
	if len(taker.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(taker.calls))
	}
	if taker.calls[0].To.Int64() != 0x111 || len(taker.calls[0].Calldata) != 3 {
		t.Errorf("approve call wrong: %+v", taker.calls[0])
	}
}

func TestExecuteSwapQuoteExpired(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status int
		body   string
	}{
		{"gone status", http.StatusGone, `{"error":"quote unavailable"}`},
		{"expired body", http.StatusBadRequest, `{"error":"Quote expired"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			a := NewHTTPAggregator(srv.URL, zerolog.Nop())
			taker := &fakeExecutor{address: big.NewInt(0xabc)}

			_, err := a.ExecuteSwap(context.Background(), taker, domain.Quote{QuoteID: "q-1"})
			if !errors.Is(err, ErrQuoteExpired) {
				t.Fatalf("got %v, want ErrQuoteExpired", err)
			}
			if len(taker.calls) != 0 {
				t.Errorf("expired quote must not reach the account, got %d calls", len(taker.calls))
			}
		})
	}
}

func TestExecuteSwapBuildNotRetried(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAggregator(srv.URL, zerolog.Nop())
	taker := &fakeExecutor{address: big.NewInt(0xabc)}

	if _, err := a.ExecuteSwap(context.Background(), taker, domain.Quote{QuoteID: "q-1"}); err == nil {
		t.Fatal("expected build error")
	}
	if requests != 1 {
		t.Errorf("build called %d times, must be exactly once", requests)
	}
}
