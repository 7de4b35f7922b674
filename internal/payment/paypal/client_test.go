package paypal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curecom/curecom/internal/domain/models"
	"github.com/curecom/curecom/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(baseURL string) *Client {
	return New(testLogger(), Config{
		BaseURL:   baseURL,
		ClientID:  "client-id",
		Secret:    "client-secret",
		Currency:  "USD",
		ReturnURL: "https://shop.example/payment/return",
		CancelURL: "https://shop.example/cart",
	})
}

func tokenHandler(t *testing.T) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))

		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "test-token",
			"token_type":   "Bearer",
		})
	}
}

func TestCreatePayment_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		wantRequestID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("42")).String()
		assert.Equal(t, wantRequestID, r.Header.Get("PayPal-Request-Id"))

		var body createPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sale", body.Intent)
		assert.Equal(t, "paypal", body.Payer.PaymentMethod)
		assert.Equal(t, "https://shop.example/payment/return", body.RedirectURLs.ReturnURL)
		require.Len(t, body.Transactions, 1)
		assert.Equal(t, "109.98", body.Transactions[0].Amount.Total)
		assert.Equal(t, "USD", body.Transactions[0].Amount.Currency)
		assert.Equal(t, "42", body.Transactions[0].InvoiceNumber)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(paymentResource{
			ID:    "PAY-1",
			State: "created",
			Links: []link{
				{Href: "https://api.paypal.example/self", Rel: "self", Method: "GET"},
				{Href: "https://paypal.example/approve?token=abc", Rel: "approval_url", Method: "REDIRECT"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	redirect, err := client.CreatePayment(context.Background(), service.PaymentRequest{
		TransactionID: "42",
		Amount:        decimal.RequireFromString("109.98"),
		Description:   "order #42",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://paypal.example/approve?token=abc", redirect)
}

func TestCreatePayment_NoApprovalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(paymentResource{ID: "PAY-1", State: "created"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreatePayment(context.Background(), service.PaymentRequest{
		TransactionID: "42",
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no approval url")
}

func TestCreatePayment_TokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreatePayment(context.Background(), service.PaymentRequest{
		TransactionID: "42",
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 401")
}

func TestVerifyPayment_MapsStates(t *testing.T) {
	tests := []struct {
		name       string
		state      string
		wantStatus string
	}{
		{name: "approved", state: "approved", wantStatus: models.PaymentStatusCompleted},
		{name: "completed", state: "completed", wantStatus: models.PaymentStatusCompleted},
		{name: "failed", state: "failed", wantStatus: models.PaymentStatusFailed},
		{name: "expired", state: "expired", wantStatus: models.PaymentStatusFailed},
		{name: "canceled", state: "canceled", wantStatus: models.PaymentStatusCancelled},
		{name: "created stays pending", state: "created", wantStatus: models.PaymentStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
			mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "42", r.URL.Query().Get("invoice_number"))
				assert.Equal(t, "1", r.URL.Query().Get("count"))

				json.NewEncoder(w).Encode(paymentList{
					Payments: []paymentResource{{ID: "PAY-1", State: tt.state}},
				})
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			client := newTestClient(srv.URL)
			status, err := client.VerifyPayment(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestVerifyPayment_UnknownInvoiceIsPending(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v1/payments/payment", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(paymentList{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL)
	status, err := client.VerifyPayment(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, status)
}
