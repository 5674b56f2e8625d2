package bridge

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

	"stark-wallet/internal/observability"
	"stark-wallet/internal/starknet"
)

// DefaultTimeout bounds each router round trip.
const DefaultTimeout = 30 * time.Second

// HTTPRouter implements Router against the routing service's REST API.
type HTTPRouter struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// Option configures HTTPRouter.
type Option func(*HTTPRouter)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *HTTPRouter) { r.client = client }
}

// NewHTTPRouter creates a router client.
func NewHTTPRouter(baseURL string, logger zerolog.Logger, opts ...Option) *HTTPRouter {
	r := &HTTPRouter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger.With().Str("component", "bridge").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Router = (*HTTPRouter)(nil)

func pairValues(pair TradePair) url.Values {
	q := url.Values{}
	q.Set("srcChainId", pair.SrcChain)
	q.Set("dstChainId", pair.DstChain)
	q.Set("srcTokenSymbol", pair.SrcToken)
	q.Set("dstTokenSymbol", pair.DstToken)
	return q
}

// GetSendBounds returns min/max sendable amounts for the pair.
func (r *HTTPRouter) GetSendBounds(ctx context.Context, pair TradePair) (Bounds, error) {
	var raw struct {
		Min string `json:"min"`
		Max string `json:"max"`
	}
	if err := r.getJSON(ctx, "/router/bounds", pairValues(pair), &raw); err != nil {
		return Bounds{}, fmt.Errorf("%w: bounds %s->%s: %v", ErrBridge, pair.SrcChain, pair.DstChain, err)
	}

	min, err := parseAmount(raw.Min)
	if err != nil {
		return Bounds{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	max, err := parseAmount(raw.Max)
	if err != nil {
		return Bounds{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	return Bounds{Min: min, Max: max}, nil
}

// Simulate returns the effective send and expected receive amounts.
func (r *HTTPRouter) Simulate(ctx context.Context, pair TradePair, amount *big.Int) (Simulation, error) {
	q := pairValues(pair)
	q.Set("amount", amount.String())

	var raw struct {
		SendAmount    string `json:"sendAmount"`
		ReceiveAmount string `json:"receiveAmount"`
	}
	if err := r.getJSON(ctx, "/router/simulate", q, &raw); err != nil {
		return Simulation{}, fmt.Errorf("%w: simulate amount %s: %v", ErrBridge, amount, err)
	}

	send, err := parseAmount(raw.SendAmount)
	if err != nil {
		return Simulation{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	recv, err := parseAmount(raw.ReceiveAmount)
	if err != nil {
		return Simulation{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	return Simulation{SendAmount: send, ReceiveAmount: recv}, nil
}

// rawCallResponse is a router-built contract call.
type rawCallResponse struct {
	ContractAddress string   `json:"contractAddress"`
	EntryPoint      string   `json:"entrypoint"`
	Calldata        []string `json:"calldata"`
}

// CreateApprove builds the token approval call for the router.
func (r *HTTPRouter) CreateApprove(ctx context.Context, pair TradePair, owner string, amount *big.Int) (starknet.Call, error) {
	return r.createCall(ctx, "/router/approve", map[string]string{
		"srcChainId":     pair.SrcChain,
		"dstChainId":     pair.DstChain,
		"srcTokenSymbol": pair.SrcToken,
		"dstTokenSymbol": pair.DstToken,
		"owner":          owner,
		"amount":         amount.String(),
	})
}

// CreateTransaction builds the bridging transfer call.
func (r *HTTPRouter) CreateTransaction(ctx context.Context, pair TradePair, from, to string, amount *big.Int) (starknet.Call, error) {
	return r.createCall(ctx, "/router/transaction", map[string]string{
		"srcChainId":     pair.SrcChain,
		"dstChainId":     pair.DstChain,
		"srcTokenSymbol": pair.SrcToken,
		"dstTokenSymbol": pair.DstToken,
		"from":           from,
		"to":             to,
		"amount":         amount.String(),
	})
}

func (r *HTTPRouter) createCall(ctx context.Context, path string, payload map[string]string) (starknet.Call, error) {
	observability.RecordBridgeRequest(path)

	body, err := json.Marshal(payload)
	if err != nil {
		return starknet.Call{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return starknet.Call{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return starknet.Call{}, fmt.Errorf("%w: %s: %v", ErrBridge, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return starknet.Call{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	if resp.StatusCode != http.StatusOK {
		return starknet.Call{}, fmt.Errorf("%w: %s status %d: %s", ErrBridge, path, resp.StatusCode, respBody)
	}

	var raw struct {
		Raw rawCallResponse `json:"raw"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return starknet.Call{}, fmt.Errorf("%w: unmarshal %s: %v", ErrBridge, path, err)
	}

	call, err := starknet.ParseCall(raw.Raw.ContractAddress, raw.Raw.EntryPoint, raw.Raw.Calldata)
	if err != nil {
		return starknet.Call{}, fmt.Errorf("%w: %v", ErrBridge, err)
	}
	return call, nil
}

// GetTransactionStatus reports the bridge-side status of a transaction.
func (r *HTTPRouter) GetTransactionStatus(ctx context.Context, txHash, chain string) (string, error) {
	q := url.Values{}
	q.Set("hash", txHash)
	q.Set("chainId", chain)

	var raw struct {
		Status string `json:"status"`
	}
	if err := r.getJSON(ctx, "/router/status", q, &raw); err != nil {
		return "", fmt.Errorf("%w: status of %s on %s: %v", ErrBridge, txHash, chain, err)
	}
	return raw.Status, nil
}

func (r *HTTPRouter) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	observability.RecordBridgeRequest(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}
