// Package wallet orchestrates custodial wallet operations: creation,
// balance reads, transfers, swaps, bridging and account upgrades. All
// value-moving operations run through a single code path that rebuilds the
// signing account from encrypted custody, ensures the account contract is
// deployed and serializes submissions per address.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stark-wallet/internal/account"
	"stark-wallet/internal/aggregator"
	"stark-wallet/internal/bridge"
	"stark-wallet/internal/custody"
	"stark-wallet/internal/deploy"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/intent"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
	"stark-wallet/internal/storage"
)

// UpgradeFeeMultiplier is the fixed safety multiplier applied to the
// estimated fee of an account upgrade transaction.
const UpgradeFeeMultiplier = 50

// Service is the wallet orchestration core.
type Service struct {
	store      storage.WalletStore
	audit      storage.AuditStore
	cipher     *custody.Cipher
	rpc        starknet.Client
	gatekeeper *deploy.Gatekeeper
	agg        aggregator.Aggregator
	router     bridge.Router
	parser     intent.Parser
	assets     *domain.AssetRegistry

	chainID        *big.Int
	classHash      *big.Int
	confirmTimeout time.Duration
	logger         zerolog.Logger

	// submitMu serializes submissions per account address. Reads bypass it.
	lockMu   sync.Mutex
	submitMu map[string]*sync.Mutex
}

// Config carries the service dependencies.
type Config struct {
	Store      storage.WalletStore
	Audit      storage.AuditStore
	Cipher     *custody.Cipher
	RPC        starknet.Client
	Gatekeeper *deploy.Gatekeeper
	Aggregator aggregator.Aggregator
	Router     bridge.Router
	Parser     intent.Parser
	Assets     *domain.AssetRegistry

	ChainID        *big.Int
	ClassHash      *big.Int
	ConfirmTimeout time.Duration
	Logger         zerolog.Logger
}

// NewService creates the orchestration service.
func NewService(cfg Config) *Service {
	return &Service{
		store:          cfg.Store,
		audit:          cfg.Audit,
		cipher:         cfg.Cipher,
		rpc:            cfg.RPC,
		gatekeeper:     cfg.Gatekeeper,
		agg:            cfg.Aggregator,
		router:         cfg.Router,
		parser:         cfg.Parser,
		assets:         cfg.Assets,
		chainID:        cfg.ChainID,
		classHash:      cfg.ClassHash,
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         cfg.Logger.With().Str("component", "wallet").Logger(),
		submitMu:       make(map[string]*sync.Mutex),
	}
}

// CreateWallet generates a fresh key pair, derives the deterministic account
// address and persists the wallet with the private key encrypted. The
// account contract is not deployed here; deployment is deferred to the
// first outbound operation.
func (s *Service) CreateWallet(ctx context.Context, email, externalUserID string) (*domain.Wallet, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: empty external user id", ErrInvalidInput)
	}

	kp, err := account.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	address := account.DeriveAddress(kp.PublicKey, s.classHash)

	encrypted, err := s.cipher.Encrypt(kp.PrivateKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encrypt private key: %w", err)
	}

	w := &domain.Wallet{
		Email:               email,
		ExternalUserID:      externalUserID,
		PublicKey:           starkcurve.ToHex(kp.PublicKey),
		EncryptedPrivateKey: encrypted,
		Address:             starkcurve.ToHex(address),
		CreatedAt:           time.Now().UnixMilli(),
	}
	if err := s.store.Insert(ctx, w); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}

	observability.RecordWalletCreated()
	s.logger.Info().
		Str("external_user_id", externalUserID).
		Str("address", w.Address).
		Msg("wallet created")
	s.appendAudit(ctx, &domain.AuditRecord{
		Operation:      "wallet_created",
		ExternalUserID: externalUserID,
		Address:        w.Address,
		Status:         "ok",
	})
	return w, nil
}

// GetWallet retrieves a wallet by external user id.
func (s *Service) GetWallet(ctx context.Context, externalUserID string) (*domain.Wallet, error) {
	return s.store.GetByExternalUserID(ctx, externalUserID)
}

// GetBalance reads the token balance of the user's account address. The
// read works whether or not the account contract is deployed, since the
// balance lives in the token contract.
func (s *Service) GetBalance(ctx context.Context, externalUserID, symbol string) (decimal.Decimal, error) {
	w, err := s.store.GetByExternalUserID(ctx, externalUserID)
	if err != nil {
		return decimal.Zero, err
	}
	asset, err := s.assets.Get(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	token, err := starkcurve.FromHex(asset.TokenAddress)
	if err != nil {
		return decimal.Zero, fmt.Errorf("token address: %w", err)
	}
	owner, err := starkcurve.FromHex(w.Address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account address: %w", err)
	}

	result, err := s.rpc.CallContract(ctx, starknet.Call{
		To:       token,
		Selector: starkcurve.Selector("balanceOf"),
		Calldata: []*big.Int{owner},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance call: %w", err)
	}
	if len(result) < 2 {
		return decimal.Zero, fmt.Errorf("balance call returned %d felts, want 2", len(result))
	}

	return FromBaseUnits(CombineUint256(result[0], result[1]), asset.Decimals), nil
}

// Transfer sends tokens to the stated destination. The account is deployed
// first if needed, then a single transfer invoke is submitted and awaited.
func (s *Service) Transfer(ctx context.Context, externalUserID string, in domain.TransferIntent) (*domain.TxResult, error) {
	start := time.Now()

	asset, err := s.assets.Get(in.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := ToBaseUnits(in.Amount, asset.Decimals)
	if err != nil {
		return nil, err
	}
	dest, err := starkcurve.FromHex(in.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrInvalidInput, err)
	}
	token, err := starkcurve.FromHex(asset.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("token address: %w", err)
	}

	w, acct, err := s.loadAccount(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	low, high := SplitUint256(amount)
	call := starknet.Call{
		To:       token,
		Selector: starkcurve.Selector("transfer"),
		Calldata: []*big.Int{dest, low, high},
	}

	receipt, txHash, err := s.submit(ctx, acct, []starknet.Call{call}, nil)
	if err != nil {
		observability.RecordOperationError("transfer", errorClass(err))
		return nil, err
	}

	observability.RecordOperation("transfer", receipt.FinalityStatus, time.Since(start).Seconds())
	s.logger.Info().
		Str("external_user_id", externalUserID).
		Str("asset", asset.Symbol).
		Str("tx", txHash).
		Str("status", receipt.FinalityStatus).
		Msg("transfer submitted")
	s.appendAudit(ctx, &domain.AuditRecord{
		Operation:      "transfer",
		ExternalUserID: externalUserID,
		Address:        w.Address,
		Asset:          asset.Symbol,
		Amount:         amount.String(),
		TransactionID:  txHash,
		Status:         receipt.FinalityStatus,
	})
	return &domain.TxResult{TransactionID: txHash, Status: receipt.FinalityStatus}, nil
}

// FetchSwapQuotes returns current quotes for the pair without executing
// anything. Quotes are fetched fresh on every call.
func (s *Service) FetchSwapQuotes(ctx context.Context, externalUserID string, in domain.SwapIntent) ([]domain.Quote, error) {
	req, _, err := s.swapRequest(ctx, externalUserID, in)
	if err != nil {
		return nil, err
	}
	quotes, err := s.agg.FetchQuotes(ctx, *req)
	if err != nil {
		return nil, err
	}
	observability.RecordQuoteFetched()
	return quotes, nil
}

// Swap exchanges tokens through the aggregator: fetch fresh quotes, take
// the best and execute it immediately. On ErrQuoteExpired the whole swap
// must be restarted by the caller; no stale quote is ever reused.
func (s *Service) Swap(ctx context.Context, externalUserID string, in domain.SwapIntent) (*domain.TxResult, error) {
	start := time.Now()

	req, w, err := s.swapRequest(ctx, externalUserID, in)
	if err != nil {
		return nil, err
	}

	acct, err := s.openAccount(w)
	if err != nil {
		return nil, err
	}
	if err := s.gatekeeper.DeployIfNeeded(ctx, acct); err != nil {
		return nil, err
	}

	unlock := s.lockAddress(w.Address)
	defer unlock()

	quotes, err := s.agg.FetchQuotes(ctx, *req)
	if err != nil {
		return nil, err
	}
	observability.RecordQuoteFetched()
	if len(quotes) == 0 {
		return nil, aggregator.ErrNoQuotes
	}
	best := quotes[0]

	txHash, err := s.agg.ExecuteSwap(ctx, acct, best)
	if err != nil {
		if errorClass(err) == "quote_expired" {
			observability.RecordQuoteExpired()
		}
		observability.RecordOperationError("swap", errorClass(err))
		return nil, err
	}
	observability.RecordSubmission("invoke")

	receipt, err := s.rpc.WaitForTransaction(ctx, txHash, s.confirmTimeout)
	if err != nil {
		return nil, fmt.Errorf("await swap %s: %w", txHash, err)
	}

	observability.RecordOperation("swap", receipt.FinalityStatus, time.Since(start).Seconds())
	s.logger.Info().
		Str("external_user_id", externalUserID).
		Str("quote", best.QuoteID).
		Str("tx", txHash).
		Str("status", receipt.FinalityStatus).
		Msg("swap executed")
	s.appendAudit(ctx, &domain.AuditRecord{
		Operation:      "swap",
		ExternalUserID: externalUserID,
		Address:        w.Address,
		Asset:          in.SellAsset,
		CounterAsset:   in.BuyAsset,
		Amount:         req.SellAmount.String(),
		TransactionID:  txHash,
		Status:         receipt.FinalityStatus,
	})
	return &domain.TxResult{TransactionID: txHash, Status: receipt.FinalityStatus}, nil
}

// Bridge moves the asset to another chain through the external router. The
// bridged amount is the router's reported minimum for the pair; approve and
// transfer are submitted as one atomic multicall.
func (s *Service) Bridge(ctx context.Context, externalUserID string, in domain.BridgeIntent) (*domain.TxResult, error) {
	start := time.Now()

	asset, err := s.assets.Get(in.Asset)
	if err != nil {
		return nil, err
	}
	pair := bridge.TradePair{
		SrcChain: in.SourceChain,
		DstChain: in.DestChain,
		SrcToken: asset.Symbol,
		DstToken: asset.Symbol,
	}

	w, acct, err := s.loadAccount(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	bounds, err := s.router.GetSendBounds(ctx, pair)
	if err != nil {
		return nil, err
	}
	sim, err := s.router.Simulate(ctx, pair, bounds.Min)
	if err != nil {
		return nil, err
	}

	approve, err := s.router.CreateApprove(ctx, pair, w.Address, sim.SendAmount)
	if err != nil {
		return nil, err
	}
	transfer, err := s.router.CreateTransaction(ctx, pair, w.Address, w.Address, sim.SendAmount)
	if err != nil {
		return nil, err
	}

	receipt, txHash, err := s.submit(ctx, acct, []starknet.Call{approve, transfer}, nil)
	if err != nil {
		observability.RecordOperationError("bridge", errorClass(err))
		return nil, err
	}

	status := receipt.FinalityStatus
	if !receipt.Succeeded() {
		status = receipt.ExecutionStatus
	}

	observability.RecordOperation("bridge", status, time.Since(start).Seconds())
	s.logger.Info().
		Str("external_user_id", externalUserID).
		Str("asset", asset.Symbol).
		Str("src", in.SourceChain).
		Str("dst", in.DestChain).
		Str("tx", txHash).
		Str("status", status).
		Msg("bridge submitted")
	s.appendAudit(ctx, &domain.AuditRecord{
		Operation:      "bridge",
		ExternalUserID: externalUserID,
		Address:        w.Address,
		Asset:          asset.Symbol,
		Amount:         sim.SendAmount.String(),
		TransactionID:  txHash,
		Status:         status,
	})
	return &domain.TxResult{TransactionID: txHash, Status: status}, nil
}

// GetBridgeStatus reports the router-side status of a bridge transaction.
func (s *Service) GetBridgeStatus(ctx context.Context, txHash, chain string) (string, error) {
	if txHash == "" {
		return "", fmt.Errorf("%w: empty transaction hash", ErrInvalidInput)
	}
	return s.router.GetTransactionStatus(ctx, txHash, chain)
}

// UpgradeAccount invokes the account contract's upgrade entry point with
// the new class hash, applying the fixed upgrade fee multiplier.
func (s *Service) UpgradeAccount(ctx context.Context, externalUserID, newClassHash string) (*domain.TxResult, error) {
	start := time.Now()

	target, err := starkcurve.FromHex(newClassHash)
	if err != nil {
		return nil, fmt.Errorf("%w: class hash: %v", ErrInvalidInput, err)
	}

	w, acct, err := s.loadAccount(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	call := starknet.Call{
		To:       acct.Address(),
		Selector: starkcurve.Selector("upgrade"),
		Calldata: []*big.Int{target},
	}

	receipt, txHash, err := s.submit(ctx, acct, []starknet.Call{call}, &account.ExecuteOpts{
		FeeMultiplier: UpgradeFeeMultiplier,
	})
	if err != nil {
		observability.RecordOperationError("upgrade", errorClass(err))
		return nil, err
	}

	observability.RecordOperation("upgrade", receipt.FinalityStatus, time.Since(start).Seconds())
	s.logger.Info().
		Str("external_user_id", externalUserID).
		Str("class_hash", newClassHash).
		Str("tx", txHash).
		Msg("account upgraded")
	s.appendAudit(ctx, &domain.AuditRecord{
		Operation:      "upgrade",
		ExternalUserID: externalUserID,
		Address:        w.Address,
		TransactionID:  txHash,
		Status:         receipt.FinalityStatus,
	})
	return &domain.TxResult{TransactionID: txHash, Status: receipt.FinalityStatus}, nil
}

// ProcessPrompt parses a free-form prompt into intents and executes them in
// order. A prompt with no actionable intent returns an empty result and no
// error; nothing is executed on guesswork.
func (s *Service) ProcessPrompt(ctx context.Context, externalUserID, prompt string) ([]domain.TxResult, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("%w: intent parsing not configured", ErrInvalidInput)
	}

	intents, err := s.parser.Parse(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("parse prompt: %w", err)
	}

	var results []domain.TxResult
	for _, in := range intents {
		var res *domain.TxResult
		switch v := in.(type) {
		case domain.TransferIntent:
			res, err = s.Transfer(ctx, externalUserID, v)
		case domain.SwapIntent:
			res, err = s.Swap(ctx, externalUserID, v)
		case domain.BridgeIntent:
			res, err = s.Bridge(ctx, externalUserID, v)
		default:
			err = fmt.Errorf("%w: unsupported intent %s", ErrInvalidInput, in.Kind())
		}
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// swapRequest validates a swap intent and resolves it into an aggregator
// request. No chain calls happen here.
func (s *Service) swapRequest(ctx context.Context, externalUserID string, in domain.SwapIntent) (*aggregator.QuoteRequest, *domain.Wallet, error) {
	sell, err := s.assets.Get(in.SellAsset)
	if err != nil {
		return nil, nil, err
	}
	buy, err := s.assets.Get(in.BuyAsset)
	if err != nil {
		return nil, nil, err
	}
	if sell.Symbol == buy.Symbol {
		return nil, nil, fmt.Errorf("%w: cannot swap %s for itself", ErrInvalidInput, sell.Symbol)
	}
	amount, err := ToBaseUnits(in.SellAmount, sell.Decimals)
	if err != nil {
		return nil, nil, err
	}

	w, err := s.store.GetByExternalUserID(ctx, externalUserID)
	if err != nil {
		return nil, nil, err
	}

	return &aggregator.QuoteRequest{
		SellToken:    sell.TokenAddress,
		BuyToken:     buy.TokenAddress,
		SellAmount:   amount,
		TakerAddress: w.Address,
	}, w, nil
}

// loadAccount fetches the wallet, rebuilds the signing account from
// encrypted custody and ensures the account contract is deployed.
func (s *Service) loadAccount(ctx context.Context, externalUserID string) (*domain.Wallet, *account.Account, error) {
	w, err := s.store.GetByExternalUserID(ctx, externalUserID)
	if err != nil {
		return nil, nil, err
	}

	acct, err := s.openAccount(w)
	if err != nil {
		return nil, nil, err
	}
	if err := s.gatekeeper.DeployIfNeeded(ctx, acct); err != nil {
		return nil, nil, err
	}
	return w, acct, nil
}

// openAccount decrypts the stored key and rederives the account. The
// address is recomputed from the key, never trusted from storage.
func (s *Service) openAccount(w *domain.Wallet) (*account.Account, error) {
	raw, err := s.cipher.Decrypt(w.EncryptedPrivateKey)
	if err != nil {
		return nil, err
	}
	priv := new(big.Int).SetBytes(raw)

	acct, err := account.New(s.rpc, s.chainID, s.classHash, priv)
	if err != nil {
		return nil, err
	}
	if derived := starkcurve.ToHex(acct.Address()); derived != w.Address {
		return nil, fmt.Errorf("stored address %s does not match derived %s", w.Address, derived)
	}
	return acct, nil
}

// submit serializes per-address submission, executes the multicall and
// awaits a terminal receipt. The submission itself is attempted exactly
// once; only the wait can time out.
func (s *Service) submit(ctx context.Context, acct *account.Account, calls []starknet.Call, opts *account.ExecuteOpts) (*starknet.Receipt, string, error) {
	unlock := s.lockAddress(starkcurve.ToHex(acct.Address()))
	defer unlock()

	txHash, err := acct.Execute(ctx, calls, opts)
	if err != nil {
		return nil, "", err
	}
	observability.RecordSubmission("invoke")

	receipt, err := s.rpc.WaitForTransaction(ctx, txHash, s.confirmTimeout)
	if err != nil {
		return nil, "", fmt.Errorf("await %s: %w", txHash, err)
	}
	return receipt, txHash, nil
}

// lockAddress takes the per-address submission lock and returns its
// release func.
func (s *Service) lockAddress(addr string) func() {
	s.lockMu.Lock()
	mu, ok := s.submitMu[addr]
	if !ok {
		mu = &sync.Mutex{}
		s.submitMu[addr] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// appendAudit writes the trail entry; audit failures are logged, never
// surfaced to the caller after a successful submission.
func (s *Service) appendAudit(ctx context.Context, r *domain.AuditRecord) {
	if s.audit == nil {
		return
	}
	r.Timestamp = time.Now().UnixMilli()
	if err := s.audit.Append(ctx, r); err != nil {
		s.logger.Error().Err(err).Str("operation", r.Operation).Msg("audit append failed")
	}
}

func errorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, custody.ErrDecrypt):
		return "custody"
	case errors.Is(err, deploy.ErrDeploymentFailed):
		return "deployment"
	case errors.Is(err, aggregator.ErrQuoteExpired):
		return "quote_expired"
	case errors.Is(err, aggregator.ErrNoQuotes):
		return "no_quotes"
	case errors.Is(err, starknet.ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "other"
	}
}
