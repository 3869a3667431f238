package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arvestapp/arvest-backend/internal/money"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

type Flutterwave struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewFlutterwave(secretKey string) *Flutterwave {
	return &Flutterwave{
		secretKey: secretKey,
		baseURL:   flutterwaveBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *Flutterwave) Name() string           { return "FLUTTERWAVE" }
func (f *Flutterwave) Fee(amount int64) int64 { return flutterwaveFees.Fee(amount) }
func (f *Flutterwave) Limits() (int64, int64) {
	return flutterwaveFees.MinAmount, flutterwaveFees.MaxAmount
}

type flwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *Flutterwave) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("flutterwave %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env flwEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("flutterwave %s: decode: %w", path, err)
	}
	if env.Status != "success" {
		return fmt.Errorf("flutterwave %s: %s", path, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (f *Flutterwave) InitializeTransaction(ctx context.Context, req InitRequest) (InitResponse, error) {
	if !flutterwaveFees.InRange(req.AmountMinor) {
		return InitResponse{}, ErrAmountOutOfRange
	}
	// Flutterwave takes major-unit amounts.
	payload := map[string]any{
		"amount":   money.Format(req.AmountMinor),
		"currency": req.Currency,
		"tx_ref":   req.Reference,
		"customer": map[string]string{"email": req.Email},
		"meta":     req.Metadata,
	}
	var data struct {
		Link string `json:"link"`
	}
	if err := f.do(ctx, http.MethodPost, "/payments", payload, &data); err != nil {
		return InitResponse{}, err
	}
	return InitResponse{RedirectURL: data.Link, Reference: req.Reference}, nil
}

func (f *Flutterwave) RecurringCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if !flutterwaveFees.InRange(req.AmountMinor) {
		return ChargeResult{}, ErrAmountOutOfRange
	}
	payload := map[string]any{
		"token":    req.Authorization,
		"amount":   money.Format(req.AmountMinor),
		"currency": req.Currency,
		"email":    req.Email,
		"tx_ref":   req.Reference,
	}
	var data struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
	}
	if err := f.do(ctx, http.MethodPost, "/tokenized-charges", payload, &data); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{
		Reference: data.TxRef,
		Charged:   data.Status == "successful",
		Message:   data.Status,
	}, nil
}

func (f *Flutterwave) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	payload := map[string]string{
		"account_number": accountNumber,
		"account_bank":   bankCode,
	}
	var data struct {
		AccountName string `json:"account_name"`
	}
	if err := f.do(ctx, http.MethodPost, "/accounts/resolve", payload, &data); err != nil {
		return "", err
	}
	return data.AccountName, nil
}
