package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arvestapp/arvest-backend/internal/api/httpx"
	"github.com/arvestapp/arvest-backend/internal/api/validate"
	"github.com/arvestapp/arvest-backend/internal/middleware"
	"github.com/arvestapp/arvest-backend/internal/money"
	"github.com/arvestapp/arvest-backend/internal/pending"
)

// PendingHandler fronts the two-phase withdrawal and transfer flows:
// request issues a one-time code, confirm redeems it.
type PendingHandler struct {
	svc *pending.Service
}

func NewPendingHandler(svc *pending.Service) *PendingHandler {
	return &PendingHandler{svc: svc}
}

func (h *PendingHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req struct {
		Amount        string `json:"amount"`
		BankCode      string `json:"bank_code"`
		AccountNumber string `json:"account_number"`
		Gateway       string `json:"gateway"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := validate.Collect(
		validate.Required("bank_code", req.BankCode),
		validate.Digits("account_number", req.AccountNumber, 10),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "validation failed", err.(validate.Errs))
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil || amount <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "amount must be a positive decimal", nil)
		return
	}

	res, err := h.svc.RequestWithdrawal(r.Context(), uid, amount, req.BankCode, req.AccountNumber, req.Gateway)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not process request", nil)
		return
	}
	if !res.Success {
		httpx.WriteReason(w, string(res.Reason), res.Message)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}

func (h *PendingHandler) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req struct {
		Amount           string `json:"amount"`
		RecipientAccount string `json:"recipient_account"`
		Note             string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := validate.Collect(
		validate.Digits("recipient_account", req.RecipientAccount, 10),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "validation failed", err.(validate.Errs))
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil || amount <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "amount must be a positive decimal", nil)
		return
	}

	res, err := h.svc.RequestTransfer(r.Context(), uid, amount, req.RecipientAccount, req.Note)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not process request", nil)
		return
	}
	if !res.Success {
		httpx.WriteReason(w, string(res.Reason), res.Message)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}

func (h *PendingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity", nil)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := validate.Collect(validate.Digits("code", req.Code, 6)); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "validation failed", err.(validate.Errs))
		return
	}

	res, err := h.svc.Confirm(r.Context(), uid, req.Code)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not confirm action", nil)
		return
	}
	if !res.Success {
		httpx.WriteReason(w, string(res.Reason), res.Message)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
