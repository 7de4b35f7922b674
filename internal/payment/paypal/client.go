package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
)

type Config struct {
	BaseURL   string
	ClientID  string
	Secret    string
	Currency  string
	ReturnURL string
	CancelURL string
	Timeout   time.Duration
}

const defaultTimeout = 15 * time.Second

// Client wraps the PayPal REST payments API. An OAuth access token is
// fetched per call; PayPal tokens are cheap and caching them across
// restarts is not worth the complexity here.
type Client struct {
	log        *slog.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Client{
		log:        log,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ service.PaymentProvider = (*Client)(nil)

func (c *Client) Name() string {
	return models.PaymentMethodPayPal
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("paypal token request failed", slog.Any("error", err))
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("paypal token request failed", slog.Int("status", resp.StatusCode))
		return "", fmt.Errorf("paypal token request failed with status code: %d", resp.StatusCode)
	}
	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("paypal returned an empty access token")
	}
	return token.AccessToken, nil
}

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type transaction struct {
	Amount        amount `json:"amount"`
	Description   string `json:"description"`
	InvoiceNumber string `json:"invoice_number"`
}

type createPaymentRequest struct {
	Intent       string        `json:"intent"`
	Payer        payer         `json:"payer"`
	RedirectURLs redirectURLs  `json:"redirect_urls"`
	Transactions []transaction `json:"transactions"`
}

type payer struct {
	PaymentMethod string `json:"payment_method"`
}

type redirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paymentResource struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Links []link `json:"links"`
}

// CreatePayment registers the charge and returns the buyer approval URL.
// The PayPal-Request-Id header is derived from the transaction id, so
// retrying the same order never creates a second PayPal payment.
func (c *Client) CreatePayment(ctx context.Context, payReq service.PaymentRequest) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(createPaymentRequest{
		Intent: "sale",
		Payer:  payer{PaymentMethod: "paypal"},
		RedirectURLs: redirectURLs{
			ReturnURL: c.cfg.ReturnURL,
			CancelURL: c.cfg.CancelURL,
		},
		Transactions: []transaction{{
			Amount: amount{
				Total:    payReq.Amount.StringFixed(2),
				Currency: c.cfg.Currency,
			},
			Description:   payReq.Description,
			InvoiceNumber: payReq.TransactionID,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/payments/payment", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("PayPal-Request-Id", uuid.NewSHA1(uuid.NameSpaceOID, []byte(payReq.TransactionID)).String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("paypal payment request failed", slog.Any("error", err))
		return "", fmt.Errorf("paypal payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.log.Error("paypal payment request failed", slog.Int("status", resp.StatusCode))
		return "", fmt.Errorf("paypal payment request failed with status code: %d", resp.StatusCode)
	}
	var payment paymentResource
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return "", fmt.Errorf("failed to decode payment response: %w", err)
	}
	for _, l := range payment.Links {
		if l.Rel == "approval_url" {
			return l.Href, nil
		}
	}
	return "", fmt.Errorf("paypal response contains no approval url")
}

type paymentList struct {
	Payments []paymentResource `json:"payments"`
}

// VerifyPayment looks the payment up by invoice number and maps the
// PayPal state onto the local status constants.
func (c *Client) VerifyPayment(ctx context.Context, transactionID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{"invoice_number": {transactionID}, "count": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/payments/payment?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("paypal lookup request failed", slog.Any("error", err))
		return "", fmt.Errorf("paypal lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("paypal lookup request failed", slog.Int("status", resp.StatusCode))
		return "", fmt.Errorf("paypal lookup request failed with status code: %d", resp.StatusCode)
	}
	var list paymentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(list.Payments) == 0 {
		return models.PaymentStatusPending, nil
	}

	switch list.Payments[0].State {
	case "approved", "completed":
		return models.PaymentStatusCompleted, nil
	case "failed", "expired":
		return models.PaymentStatusFailed, nil
	case "canceled", "cancelled":
		return models.PaymentStatusCancelled, nil
	default:
		return models.PaymentStatusPending, nil
	}
}
