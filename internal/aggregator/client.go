package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
)

// HTTPAggregator implements Aggregator against the aggregator's REST API.
type HTTPAggregator struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option configures HTTPAggregator.
type Option func(*HTTPAggregator)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *HTTPAggregator) { a.client = client }
}

// WithMaxRetries sets retry attempts for the read-only quote fetch.
func WithMaxRetries(n int) Option {
	return func(a *HTTPAggregator) { a.maxRetries = n }
}

// NewHTTPAggregator creates an aggregator client.
func NewHTTPAggregator(baseURL string, logger zerolog.Logger, opts ...Option) *HTTPAggregator {
	a := &HTTPAggregator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logger.With().Str("component", "aggregator").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ Aggregator = (*HTTPAggregator)(nil)

// quoteResponse is one quote entry from the API.
type quoteResponse struct {
	QuoteID    string   `json:"quoteId"`
	SellToken  string   `json:"sellTokenAddress"`
	BuyToken   string   `json:"buyTokenAddress"`
	SellAmount string   `json:"sellAmount"` // hex
	BuyAmount  string   `json:"buyAmount"`  // hex
	Routes     []struct {
		Name string `json:"name"`
	} `json:"routes"`
}

// FetchQuotes returns current quotes for the pair, best first. The fetch is
// read-only, so transport failures get a bounded retry.
func (a *HTTPAggregator) FetchQuotes(ctx context.Context, req QuoteRequest) ([]domain.Quote, error) {
	q := url.Values{}
	q.Set("sellTokenAddress", req.SellToken)
	q.Set("buyTokenAddress", req.BuyToken)
	q.Set("sellAmount", "0x"+req.SellAmount.Text(16))
	q.Set("takerAddress", req.TakerAddress)

	endpoint := a.baseURL + "/swap/v2/quotes?" + q.Encode()

	var raw []quoteResponse
	if err := a.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("%w: fetch quotes %s->%s amount %s: %v",
			ErrAggregator, req.SellToken, req.BuyToken, req.SellAmount, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s->%s amount %s",
			ErrNoQuotes, req.SellToken, req.BuyToken, req.SellAmount)
	}

	quotes := make([]domain.Quote, 0, len(raw))
	for _, r := range raw {
		quote, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAggregator, err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

func (r quoteResponse) toDomain() (domain.Quote, error) {
	sell, ok := new(big.Int).SetString(strings.TrimPrefix(r.SellAmount, "0x"), 16)
	if !ok {
		return domain.Quote{}, fmt.Errorf("malformed sellAmount %q", r.SellAmount)
	}
	buy, ok := new(big.Int).SetString(strings.TrimPrefix(r.BuyAmount, "0x"), 16)
	if !ok {
		return domain.Quote{}, fmt.Errorf("malformed buyAmount %q", r.BuyAmount)
	}

	routes := make([]string, 0, len(r.Routes))
	for _, rt := range r.Routes {
		routes = append(routes, rt.Name)
	}
	return domain.Quote{
		QuoteID:    r.QuoteID,
		SellToken:  r.SellToken,
		BuyToken:   r.BuyToken,
		SellAmount: sell,
		BuyAmount:  buy,
		Routes:     routes,
	}, nil
}

// buildResponse is the swap build result: the calls the taker must submit.
type buildResponse struct {
	Calls []struct {
		ContractAddress string   `json:"contractAddress"`
		EntryPoint      string   `json:"entrypoint"`
		Calldata        []string `json:"calldata"`
	} `json:"calls"`
}

// ExecuteSwap builds the swap transaction for the quote (second round trip)
// and submits it through the taker's account. The build call is never
// retried: by the time it could be, the quote may already be stale.
func (a *HTTPAggregator) ExecuteSwap(ctx context.Context, taker Executor, quote domain.Quote) (string, error) {
	body, err := json.Marshal(map[string]string{
		"quoteId":      quote.QuoteID,
		"takerAddress": starkcurve.ToHex(taker.Address()),
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal build request: %v", ErrAggregator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/swap/v2/build", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAggregator, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: build swap: %v", ErrAggregator, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read build response: %v", ErrAggregator, err)
	}

	if resp.StatusCode == http.StatusGone || isQuoteExpiredBody(respBody) {
		return "", fmt.Errorf("%w: quote %s (%s->%s, sell %s)",
			ErrQuoteExpired, quote.QuoteID, quote.SellToken, quote.BuyToken, quote.SellAmount)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: build swap status %d: %s", ErrAggregator, resp.StatusCode, respBody)
	}

	var build buildResponse
	if err := json.Unmarshal(respBody, &build); err != nil {
		return "", fmt.Errorf("%w: unmarshal build response: %v", ErrAggregator, err)
	}
	if len(build.Calls) == 0 {
		return "", fmt.Errorf("%w: build returned no calls for quote %s", ErrAggregator, quote.QuoteID)
	}

	calls := make([]starknet.Call, 0, len(build.Calls))
	for _, c := range build.Calls {
		call, err := starknet.ParseCall(c.ContractAddress, c.EntryPoint, c.Calldata)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAggregator, err)
		}
		calls = append(calls, call)
	}

	a.logger.Info().
		Str("quote", quote.QuoteID).
		Int("calls", len(calls)).
		Msg("executing swap")

	return taker.Execute(ctx, calls, nil)
}

func isQuoteExpiredBody(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "quote expired")
}

// getJSON issues a GET with bounded retries on transport failures only.
func (a *HTTPAggregator) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, body)
			continue
		}

		return json.Unmarshal(body, out)
	}
	return lastErr
}
