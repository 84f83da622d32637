package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/astimpay-bridge/internal/obs"
)

const apiKeyHeader = "API-KEY"

// APIClient talks to the AstimPay panel API. Timeouts live on the underlying
// http.Client; this layer adds no retry logic.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient builds a client for the given panel URL and brand API key.
func NewAPIClient(apiURL, apiKey string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createPaymentBody struct {
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	Amount       string          `json:"amount"`
	Currency     string          `json:"currency"`
	Metadata     SessionMetadata `json:"metadata"`
	RedirectURL  string          `json:"redirect_url"`
	CancelURL    string          `json:"cancel_url"`
	WebhookURL   string          `json:"webhook_url"`
	ExchangeRate float64         `json:"exchange_rate,omitempty"`
}

// CreatePayment opens a payment session and returns the payer-facing URL.
func (c *APIClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentSession, error) {
	body := createPaymentBody{
		FullName:     req.PayerName,
		Email:        req.PayerEmail,
		Amount:       formatAmount(req.Amount),
		Currency:     req.Currency,
		Metadata:     req.Metadata,
		RedirectURL:  req.SuccessURL,
		CancelURL:    req.CancelURL,
		WebhookURL:   req.NotifyURL,
		ExchangeRate: req.ExchangeRate,
	}
	var session PaymentSession
	if err := c.postJSON(ctx, "/api/checkout-v2", body, &session); err != nil {
		return PaymentSession{}, err
	}
	return session, nil
}

// VerifyPayment asks the provider for the authoritative state of an invoice.
func (c *APIClient) VerifyPayment(ctx context.Context, invoiceID string) (Confirmation, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return Confirmation{}, fmt.Errorf("invoice id is required")
	}
	var payload Confirmation
	if err := c.postJSON(ctx, "/api/verify-payment", map[string]string{"invoice_id": invoiceID}, &payload); err != nil {
		return Confirmation{}, err
	}
	return payload, nil
}

func (c *APIClient) postJSON(ctx context.Context, path string, body any, out any) (err error) {
	if c.baseURL == "" || c.apiKey == "" {
		return fmt.Errorf("astimpay client not configured")
	}
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		if obs.ProviderRequestTotal != nil {
			obs.ProviderRequestTotal.WithLabelValues(path, result).Inc()
		}
	}()
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, providerMessage(payload))
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func providerMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		return body.Message
	}
	trimmed := strings.TrimSpace(string(payload))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
