package starknet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"stark-wallet/internal/observability"
	"stark-wallet/internal/starkcurve"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultPollInterval = 3 * time.Second
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	pollInterval time.Duration
	statusSub    StatusSubscriber
	requestID    atomic.Uint64
}

// StatusSubscriber delivers transaction status updates out of band; the
// WebSocket client implements it. When unset, WaitForTransaction polls.
// The returned cancel func releases the subscription and must be called
// once the caller stops reading the channel.
type StatusSubscriber interface {
	SubscribeTransactionStatus(ctx context.Context, txHash string) (<-chan string, func(), error)
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for read calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.pollInterval = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithStatusSubscriber enables subscription-based confirmation waits with
// polling as fallback.
func WithStatusSubscriber(sub StatusSubscriber) ClientOption {
	return func(c *HTTPClient) {
		c.statusSub = sub
	}
}

// NewHTTPClient creates a new node RPC client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// mapNodeError translates node error codes into sentinel errors.
func mapNodeError(err *rpcError) error {
	switch {
	case err.Code == codeContractNotFound,
		strings.Contains(err.Message, "Contract not found"):
		return ErrContractNotFound
	case err.Code == codeTxnNotFound,
		strings.Contains(err.Message, "Transaction hash not found"):
		return ErrTxnNotFound
	}
	return err
}

// call performs a read-only JSON-RPC call with retries and exponential
// backoff on transport failures. Node-level errors are never retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.callOnce(ctx, method, params, result)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// callOnce performs exactly one JSON-RPC round trip. Submission methods go
// through here directly: once a transaction may have reached the node it
// must never be resent.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("http request: %w", err)}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &transientError{fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &transientError{fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode != http.StatusOK {
		return &transientError{fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return mapNodeError(rpcResp.Error)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// transientError marks transport-level failures eligible for retry.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

// ChainID returns the network's chain id.
func (c *HTTPClient) ChainID(ctx context.Context) (*big.Int, error) {
	var result string
	if err := c.call(ctx, "starknet_chainId", nil, &result); err != nil {
		return nil, err
	}
	return starkcurve.FromHex(result)
}

// GetClassHashAt returns the class hash at address, or ErrContractNotFound.
func (c *HTTPClient) GetClassHashAt(ctx context.Context, address *big.Int) (*big.Int, error) {
	params := []interface{}{"latest", starkcurve.ToHex(address)}

	var result string
	if err := c.call(ctx, "starknet_getClassHashAt", params, &result); err != nil {
		return nil, err
	}
	return starkcurve.FromHex(result)
}

// CallContract executes a read-only contract call at the latest block.
func (c *HTTPClient) CallContract(ctx context.Context, call Call) ([]*big.Int, error) {
	params := []interface{}{
		map[string]interface{}{
			"contract_address":     starkcurve.ToHex(call.To),
			"entry_point_selector": starkcurve.ToHex(call.Selector),
			"calldata":             starkcurve.ToHexSlice(call.Calldata),
		},
		"latest",
	}

	var result []string
	if err := c.call(ctx, "starknet_call", params, &result); err != nil {
		return nil, err
	}

	out := make([]*big.Int, len(result))
	for i, s := range result {
		v, err := starkcurve.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("parse return data: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

// GetNonce returns the account's next nonce.
func (c *HTTPClient) GetNonce(ctx context.Context, address *big.Int) (*big.Int, error) {
	params := []interface{}{"latest", starkcurve.ToHex(address)}

	var result string
	if err := c.call(ctx, "starknet_getNonce", params, &result); err != nil {
		return nil, err
	}
	return starkcurve.FromHex(result)
}

// invokeJSON renders an invoke transaction for the wire.
func invokeJSON(txn InvokeTxn) map[string]interface{} {
	return map[string]interface{}{
		"type":           "INVOKE",
		"version":        "0x1",
		"sender_address": starkcurve.ToHex(txn.SenderAddress),
		"calldata":       starkcurve.ToHexSlice(txn.Calldata),
		"max_fee":        starkcurve.ToHex(txn.MaxFee),
		"nonce":          starkcurve.ToHex(txn.Nonce),
		"signature":      starkcurve.ToHexSlice(txn.Signature),
	}
}

// deployAccountJSON renders a deploy-account transaction for the wire.
func deployAccountJSON(txn DeployAccountTxn) map[string]interface{} {
	return map[string]interface{}{
		"type":                  "DEPLOY_ACCOUNT",
		"version":               "0x1",
		"class_hash":            starkcurve.ToHex(txn.ClassHash),
		"contract_address_salt": starkcurve.ToHex(txn.ContractAddressSalt),
		"constructor_calldata":  starkcurve.ToHexSlice(txn.ConstructorCalldata),
		"max_fee":               starkcurve.ToHex(txn.MaxFee),
		"nonce":                 starkcurve.ToHex(txn.Nonce),
		"signature":             starkcurve.ToHexSlice(txn.Signature),
	}
}

// feeEstimateResult is the raw RPC fee estimation entry.
type feeEstimateResult struct {
	GasConsumed string `json:"gas_consumed"`
	GasPrice    string `json:"gas_price"`
	OverallFee  string `json:"overall_fee"`
}

func parseFeeEstimate(raw feeEstimateResult) (*FeeEstimate, error) {
	overall, err := starkcurve.FromHex(raw.OverallFee)
	if err != nil {
		return nil, fmt.Errorf("parse overall_fee: %w", err)
	}
	est := &FeeEstimate{OverallFee: overall}
	if raw.GasConsumed != "" {
		if est.GasConsumed, err = starkcurve.FromHex(raw.GasConsumed); err != nil {
			return nil, fmt.Errorf("parse gas_consumed: %w", err)
		}
	}
	if raw.GasPrice != "" {
		if est.GasPrice, err = starkcurve.FromHex(raw.GasPrice); err != nil {
			return nil, fmt.Errorf("parse gas_price: %w", err)
		}
	}
	return est, nil
}

func (c *HTTPClient) estimateFee(ctx context.Context, txnJSON map[string]interface{}) (*FeeEstimate, error) {
	params := []interface{}{
		[]interface{}{txnJSON},
		"latest",
	}

	var result []feeEstimateResult
	if err := c.call(ctx, "starknet_estimateFee", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty fee estimation result")
	}
	return parseFeeEstimate(result[0])
}

// EstimateInvokeFee estimates the fee of an invoke transaction.
func (c *HTTPClient) EstimateInvokeFee(ctx context.Context, txn InvokeTxn) (*FeeEstimate, error) {
	return c.estimateFee(ctx, invokeJSON(txn))
}

// EstimateDeployAccountFee estimates the fee of a deploy-account transaction.
func (c *HTTPClient) EstimateDeployAccountFee(ctx context.Context, txn DeployAccountTxn) (*FeeEstimate, error) {
	return c.estimateFee(ctx, deployAccountJSON(txn))
}

// AddInvokeTransaction submits a signed invoke transaction. Single attempt:
// resubmitting risks a duplicate on-chain submission.
func (c *HTTPClient) AddInvokeTransaction(ctx context.Context, txn InvokeTxn) (string, error) {
	params := []interface{}{invokeJSON(txn)}

	var result struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := c.callOnce(ctx, "starknet_addInvokeTransaction", params, &result); err != nil {
		return "", err
	}
	return result.TransactionHash, nil
}

// AddDeployAccountTransaction submits a signed deploy-account transaction.
// Single attempt, same reasoning as invoke.
func (c *HTTPClient) AddDeployAccountTransaction(ctx context.Context, txn DeployAccountTxn) (string, string, error) {
	params := []interface{}{deployAccountJSON(txn)}

	var result struct {
		TransactionHash string `json:"transaction_hash"`
		ContractAddress string `json:"contract_address"`
	}
	if err := c.callOnce(ctx, "starknet_addDeployAccountTransaction", params, &result); err != nil {
		return "", "", err
	}
	return result.TransactionHash, result.ContractAddress, nil
}

// receiptResult is the raw RPC receipt.
type receiptResult struct {
	TransactionHash string `json:"transaction_hash"`
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status"`
	RevertReason    string `json:"revert_reason"`
}

// GetTransactionReceipt fetches a receipt, or ErrTxnNotFound while pending
// entry into the node's view.
func (c *HTTPClient) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	params := []interface{}{txHash}

	var result receiptResult
	if err := c.call(ctx, "starknet_getTransactionReceipt", params, &result); err != nil {
		return nil, err
	}
	return &Receipt{
		TransactionHash: result.TransactionHash,
		FinalityStatus:  result.FinalityStatus,
		ExecutionStatus: result.ExecutionStatus,
		RevertReason:    result.RevertReason,
	}, nil
}

// WaitForTransaction blocks until the transaction reaches a terminal status
// or the bounded timeout elapses. Prefers the status subscription when one
// is configured, falling back to receipt polling.
func (c *HTTPClient) WaitForTransaction(ctx context.Context, txHash string, timeout time.Duration) (*Receipt, error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.statusSub != nil {
		receipt, err := c.waitViaSubscription(waitCtx, txHash)
		if err == nil {
			observability.RecordConfirmation(time.Since(start).Seconds())
			return receipt, nil
		}
		if waitCtx.Err() != nil {
			return nil, ErrTimeout
		}
		// Subscription failed for another reason: fall through to polling.
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetTransactionReceipt(waitCtx, txHash)
		switch {
		case err == nil && receipt.Terminal():
			observability.RecordConfirmation(time.Since(start).Seconds())
			return receipt, nil
		case err != nil && !errors.Is(err, ErrTxnNotFound) && waitCtx.Err() == nil:
			return nil, err
		}

		select {
		case <-waitCtx.Done():
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}
}

// waitViaSubscription waits on the WebSocket status stream, then fetches
// the final receipt over HTTP.
func (c *HTTPClient) waitViaSubscription(ctx context.Context, txHash string) (*Receipt, error) {
	statusCh, cancel, err := c.statusSub.SubscribeTransactionStatus(ctx, txHash)
	if err != nil {
		return nil, err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil, ErrTimeout
		case status, ok := <-statusCh:
			if !ok {
				return nil, fmt.Errorf("status subscription closed")
			}
			switch status {
			case StatusAcceptedOnL2, StatusAcceptedOnL1, StatusRejected:
				return c.GetTransactionReceipt(ctx, txHash)
			}
		}
	}
}
