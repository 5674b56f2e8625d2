package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stark-wallet/internal/aggregator"
	"stark-wallet/internal/custody"
	"stark-wallet/internal/deploy"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/storage"
	"stark-wallet/internal/wallet"
)

// api exposes the wallet service over HTTP.
type api struct {
	svc    *wallet.Service
	logger zerolog.Logger
}

func newAPI(svc *wallet.Service, logger zerolog.Logger) *api {
	return &api{svc: svc, logger: logger.With().Str("component", "api").Logger()}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /wallets", a.handleCreateWallet)
	mux.HandleFunc("GET /wallets/{userID}", a.handleGetWallet)
	mux.HandleFunc("GET /wallets/{userID}/balance", a.handleGetBalance)
	mux.HandleFunc("POST /wallets/{userID}/transfer", a.handleTransfer)
	mux.HandleFunc("GET /wallets/{userID}/quotes", a.handleQuotes)
	mux.HandleFunc("POST /wallets/{userID}/swap", a.handleSwap)
	mux.HandleFunc("POST /wallets/{userID}/bridge", a.handleBridge)
	mux.HandleFunc("POST /wallets/{userID}/upgrade", a.handleUpgrade)
	mux.HandleFunc("POST /wallets/{userID}/prompt", a.handlePrompt)
	mux.HandleFunc("GET /bridge/status", a.handleBridgeStatus)

	return mux
}

// walletResponse omits the encrypted key material.
type walletResponse struct {
	Email          string `json:"email"`
	ExternalUserID string `json:"externalUserId"`
	PublicKey      string `json:"publicKey"`
	Address        string `json:"address"`
	CreatedAt      int64  `json:"createdAt"`
}

func toWalletResponse(w *domain.Wallet) walletResponse {
	return walletResponse{
		Email:          w.Email,
		ExternalUserID: w.ExternalUserID,
		PublicKey:      w.PublicKey,
		Address:        w.Address,
		CreatedAt:      w.CreatedAt,
	}
}

func (a *api) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email          string `json:"email"`
		ExternalUserID string `json:"externalUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}

	created, err := a.svc.CreateWallet(r.Context(), req.Email, req.ExternalUserID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toWalletResponse(created))
}

func (a *api) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	found, err := a.svc.GetWallet(r.Context(), r.PathValue("userID"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toWalletResponse(found))
}

func (a *api) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.svc.GetBalance(r.Context(), r.PathValue("userID"), r.URL.Query().Get("symbol"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

func (a *api) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		Symbol      string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}

	res, err := a.svc.Transfer(r.Context(), r.PathValue("userID"), domain.TransferIntent{
		Destination: req.Destination,
		Amount:      amount,
		Asset:       req.Symbol,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func swapIntentFromRequest(sellSymbol, buySymbol, amount string) (domain.SwapIntent, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.SwapIntent{}, wallet.ErrInvalidInput
	}
	return domain.SwapIntent{
		SellAsset:  sellSymbol,
		BuyAsset:   buySymbol,
		SellAmount: parsed,
	}, nil
}

func (a *api) handleQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in, err := swapIntentFromRequest(q.Get("sellSymbol"), q.Get("buySymbol"), q.Get("amount"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	quotes, err := a.svc.FetchSwapQuotes(r.Context(), r.PathValue("userID"), in)
	if err != nil {
		a.writeError(w, err)
		return
	}

	type quoteResponse struct {
		QuoteID    string   `json:"quoteId"`
		SellAmount string   `json:"sellAmount"`
		BuyAmount  string   `json:"buyAmount"`
		Routes     []string `json:"routes"`
	}
	out := make([]quoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		out = append(out, quoteResponse{
			QuoteID:    quote.QuoteID,
			SellAmount: quote.SellAmount.String(),
			BuyAmount:  quote.BuyAmount.String(),
			Routes:     quote.Routes,
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *api) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SellSymbol string `json:"sellSymbol"`
		BuySymbol  string `json:"buySymbol"`
		Amount     string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}
	in, err := swapIntentFromRequest(req.SellSymbol, req.BuySymbol, req.Amount)
	if err != nil {
		a.writeError(w, err)
		return
	}

	res, err := a.svc.Swap(r.Context(), r.PathValue("userID"), in)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *api) handleBridge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string `json:"symbol"`
		SrcChain string `json:"srcChain"`
		DstChain string `json:"dstChain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}

	res, err := a.svc.Bridge(r.Context(), r.PathValue("userID"), domain.BridgeIntent{
		Asset:       req.Symbol,
		SourceChain: req.SrcChain,
		DestChain:   req.DstChain,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *api) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassHash string `json:"classHash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}

	res, err := a.svc.UpgradeAccount(r.Context(), r.PathValue("userID"), req.ClassHash)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *api) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, wallet.ErrInvalidInput)
		return
	}

	results, err := a.svc.ProcessPrompt(r.Context(), r.PathValue("userID"), req.Prompt)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if results == nil {
		results = []domain.TxResult{}
	}
	a.writeJSON(w, http.StatusOK, results)
}

func (a *api) handleBridgeStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := a.svc.GetBridgeStatus(r.Context(), q.Get("hash"), q.Get("chain"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("encode response")
	}
}

// writeError maps service errors to HTTP status codes. Internal detail,
// custody errors included, never reaches the response body.
func (a *api) writeError(w http.ResponseWriter, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, wallet.ErrInvalidInput), errors.Is(err, domain.ErrUnknownAsset),
		errors.Is(err, storage.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		status, msg = http.StatusNotFound, "wallet not found"
	case errors.Is(err, storage.ErrDuplicateKey):
		status, msg = http.StatusConflict, "wallet already exists"
	case errors.Is(err, aggregator.ErrQuoteExpired):
		status, msg = http.StatusConflict, "quote expired, retry the swap"
	case errors.Is(err, aggregator.ErrNoQuotes):
		status, msg = http.StatusUnprocessableEntity, "no quotes available"
	case errors.Is(err, deploy.ErrDeploymentFailed):
		status, msg = http.StatusBadGateway, "account deployment failed"
	case errors.Is(err, custody.ErrDecrypt):
		status, msg = http.StatusInternalServerError, "internal error"
	default:
		status, msg = http.StatusInternalServerError, "internal error"
	}

	if status >= 500 {
		a.logger.Error().Err(err).Msg("request failed")
	}
	a.writeJSON(w, status, map[string]string{"error": msg})
}
