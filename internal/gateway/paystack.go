package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const paystackBaseURL = "https://api.paystack.co"

type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(secretKey string) *Paystack {
	return &Paystack{
		secretKey: secretKey,
		baseURL:   paystackBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *Paystack) Name() string           { return "PAYSTACK" }
func (p *Paystack) Fee(amount int64) int64 { return paystackFees.Fee(amount) }
func (p *Paystack) Limits() (int64, int64) { return paystackFees.MinAmount, paystackFees.MaxAmount }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("paystack %s: decode: %w", path, err)
	}
	if !env.Status {
		return fmt.Errorf("paystack %s: %s", path, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func (p *Paystack) InitializeTransaction(ctx context.Context, req InitRequest) (InitResponse, error) {
	if !paystackFees.InRange(req.AmountMinor) {
		return InitResponse{}, ErrAmountOutOfRange
	}
	payload := map[string]any{
		"amount":    req.AmountMinor,
		"currency":  req.Currency,
		"email":     req.Email,
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return InitResponse{}, err
	}
	return InitResponse{RedirectURL: data.AuthorizationURL, Reference: data.Reference}, nil
}

func (p *Paystack) RecurringCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if !paystackFees.InRange(req.AmountMinor) {
		return ChargeResult{}, ErrAmountOutOfRange
	}
	payload := map[string]any{
		"authorization_code": req.Authorization,
		"amount":             req.AmountMinor,
		"currency":           req.Currency,
		"email":              req.Email,
		"reference":          req.Reference,
		"metadata":           req.Metadata,
	}
	var data struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Message   string `json:"gateway_response"`
	}
	if err := p.do(ctx, http.MethodPost, "/transaction/charge_authorization", payload, &data); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{
		Reference: data.Reference,
		Charged:   data.Status == "success",
		Message:   data.Message,
	}, nil
}

func (p *Paystack) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)
	var data struct {
		AccountName string `json:"account_name"`
	}
	if err := p.do(ctx, http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &data); err != nil {
		return "", err
	}
	return data.AccountName, nil
}
