package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arvestapp/arvest-backend/internal/api/httpx"
	"github.com/arvestapp/arvest-backend/internal/api/validate"
	"github.com/arvestapp/arvest-backend/internal/gateway"
	"github.com/arvestapp/arvest-backend/internal/middleware"
	"github.com/arvestapp/arvest-backend/internal/models"
	"github.com/arvestapp/arvest-backend/internal/money"
	"github.com/arvestapp/arvest-backend/internal/repository"
	"github.com/arvestapp/arvest-backend/internal/services"
)

type WalletHandler struct {
	wallets *services.WalletService
}

func NewWalletHandler(wallets *services.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// walletView renders the stored minor units as a display amount so
// clients never do their own division.
type walletView struct {
	models.Wallet
	Display string `json:"balance_display"`
}

func (h *WalletHandler) Current(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	wal, err := h.wallets.Current(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "WALLET_NOT_FOUND", "wallet not found", nil)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load wallet", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, walletView{Wallet: wal, Display: money.Format(wal.Balance)})
}

func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	txns, err := h.wallets.History(r.Context(), uid, limit, offset)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load transactions", nil)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"limit":        limit,
		"offset":       offset,
	})
}

func (h *WalletHandler) AddBeneficiary(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req struct {
		AccountNumber string `json:"account_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := validate.Collect(validate.Digits("account_number", req.AccountNumber, 10)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "validation failed", err.(validate.Errs))
		return
	}
	if err := h.wallets.AddBeneficiary(r.Context(), uid, req.AccountNumber); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no wallet with that account number", nil)
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "BENEFICIARY_FAILED", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

func (h *WalletHandler) RemoveBeneficiary(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	accountNumber := chi.URLParam(r, "accountNumber")
	if err := validate.Collect(validate.Digits("account_number", accountNumber, 10)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "validation failed", err.(validate.Errs))
		return
	}
	if err := h.wallets.RemoveBeneficiary(r.Context(), uid, accountNumber); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "no wallet with that account number", nil)
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "BENEFICIARY_FAILED", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *WalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req struct {
		Amount  string `json:"amount"`
		Gateway string `json:"gateway"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil || amount <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "amount must be a positive decimal", nil)
		return
	}

	quote, err := h.wallets.InitiateFunding(r.Context(), uid, amount, req.Gateway)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnknownProvider):
			httpx.WriteError(w, http.StatusBadRequest, "UNKNOWN_GATEWAY", "unknown payment gateway", nil)
		case errors.Is(err, gateway.ErrAmountOutOfRange):
			httpx.WriteReason(w, "AMOUNT_OUT_OF_RANGE", "amount is outside the gateway's limits")
		case errors.Is(err, repository.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "WALLET_NOT_FOUND", "wallet not found", nil)
		default:
			httpx.WriteError(w, http.StatusBadGateway, "GATEWAY_ERROR", "could not initiate funding", nil)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quote)
}
