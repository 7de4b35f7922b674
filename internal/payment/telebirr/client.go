package telebirr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
)

// Config carries the merchant credentials and URLs for the Telebirr
// gateway. It is injected at construction, never read from globals.
type Config struct {
	APIURL    string
	AppID     string
	AppKey    string
	ShortCode string
	NotifyURL string
	ReturnURL string
	Timeout   time.Duration
}

const defaultTimeout = 15 * time.Second

// Client talks to the Telebirr payment gateway over HTTP. Every transport,
// status or decoding failure comes back as an error value.
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
	return &Client{
		log:        log,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ service.PaymentProvider = (*Client)(nil)

func (c *Client) Name() string {
	return models.PaymentMethodTelebirr
}

// payload is the inner payment order, carried base64-encoded in the
// request envelope.
type payload struct {
	OutTradeNo  string `json:"outTradeNo"`
	Subject     string `json:"subject"`
	TotalAmount string `json:"totalAmount"`
	ShortCode   string `json:"shortCode"`
	NotifyURL   string `json:"notifyUrl"`
	ReturnURL   string `json:"returnUrl"`
	Body        string `json:"body"`
}

type envelope struct {
	AppID string `json:"appId"`
	Data  string `json:"data"`
	Sign  string `json:"sign"`
}

type createResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	Message    string `json:"message"`
}

// sign computes the sha256 hex digest of appId + data + appKey.
func (c *Client) sign(data string) string {
	sum := sha256.Sum256([]byte(c.cfg.AppID + data + c.cfg.AppKey))
	return hex.EncodeToString(sum[:])
}

// CreatePayment registers the charge and returns the hosted payment URL.
func (c *Client) CreatePayment(ctx context.Context, req service.PaymentRequest) (string, error) {
	data, err := json.Marshal(payload{
		OutTradeNo:  req.TransactionID,
		Subject:     req.Subject,
		TotalAmount: req.Amount.StringFixed(2),
		ShortCode:   c.cfg.ShortCode,
		NotifyURL:   c.cfg.NotifyURL,
		ReturnURL:   c.cfg.ReturnURL,
		Body:        req.Description,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode payment payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	var resp createResponse
	if err := c.post(ctx, c.cfg.APIURL, envelope{
		AppID: c.cfg.AppID,
		Data:  encoded,
		Sign:  c.sign(encoded),
	}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		if resp.Message == "" {
			resp.Message = "payment initiation failed"
		}
		return "", fmt.Errorf("telebirr rejected payment: %s", resp.Message)
	}
	return resp.PaymentURL, nil
}

type verifyRequest struct {
	OutTradeNo string `json:"outTradeNo"`
	AppID      string `json:"appId"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VerifyPayment asks the gateway for the final status of a transaction.
func (c *Client) VerifyPayment(ctx context.Context, transactionID string) (string, error) {
	var resp verifyResponse
	if err := c.post(ctx, c.cfg.APIURL+"/verify", verifyRequest{
		OutTradeNo: transactionID,
		AppID:      c.cfg.AppID,
	}, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case models.PaymentStatusCompleted, models.PaymentStatusFailed,
		models.PaymentStatusCancelled, models.PaymentStatusPending:
		return resp.Status, nil
	}
	// older gateway versions only report the success flag
	if resp.Success {
		return models.PaymentStatusCompleted, nil
	}
	return models.PaymentStatusFailed, nil
}

func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("telebirr request failed", slog.String("url", url), slog.Any("error", err))
		return fmt.Errorf("telebirr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("telebirr request failed", slog.String("url", url), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("telebirr request failed with status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode telebirr response: %w", err)
	}
	return nil
}
