package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := &config.Config{Paystack: config.PaystackConfig{BaseURL: srv.URL, SecretKey: "sk_test", TimeoutSeconds: timeout}}
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestInitializeTransaction_SendsSplitAndMetadata(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/initialize", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ndz_1"}}`))
	}, 5)

	res, err := c.InitializeTransaction(context.Background(), InitializeTransactionRequest{
		Email:             "c1@example.com",
		Amount:            1500000,
		Reference:         "ndz_1",
		Metadata:          map[string]any{"job_id": "j1"},
		Subaccount:        "ACCT_x",
		Bearer:            "account",
		TransactionCharge: 300000,
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
	require.Equal(t, "abc", res.AccessCode)

	require.Equal(t, "ACCT_x", got["subaccount"])
	require.Equal(t, "account", got["bearer"])
	require.EqualValues(t, 300000, got["transaction_charge"])
	require.Equal(t, "j1", got["metadata"].(map[string]any)["job_id"])
}

func TestInitializeTransaction_OmitsSplitWithoutSubaccount(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"data":{"authorization_url":"u","access_code":"a"}}`))
	}, 5)

	_, err := c.InitializeTransaction(context.Background(), InitializeTransactionRequest{Email: "e", Amount: 100, Reference: "r"})
	require.NoError(t, err)
	require.NotContains(t, got, "subaccount")
	require.NotContains(t, got, "transaction_charge")
}

func TestInitializeTransaction_FailuresAreGatewayUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"status":false,"message":"upstream"}`))
		},
		"status false": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
		},
		"bad key": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
		},
		"throttled": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":false,"message":"Too many requests"}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h, 5)
			_, err := c.InitializeTransaction(context.Background(), InitializeTransactionRequest{Reference: "r"})
			require.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
		})
	}
}

func TestInitializeTransaction_RequestRejectionIsValidation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid Split code"}`))
	}, 5)

	_, err := c.InitializeTransaction(context.Background(), InitializeTransactionRequest{Reference: "r", Subaccount: "ACCT_bad"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.NotErrorIs(t, err, apperr.ErrGatewayUnavailable)
	require.Equal(t, "payment gateway rejected the request: Invalid Split code", apperr.PublicMessage(err))

	_, err = c.CreateSubaccount(context.Background(), CreateSubaccountRequest{BusinessName: "x", BankCode: "000"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestInitializeTransaction_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 5)
	c.http.Timeout = 50 * time.Millisecond

	_, err := c.InitializeTransaction(context.Background(), InitializeTransactionRequest{Reference: "r"})
	require.ErrorIs(t, err, apperr.ErrGatewayUnavailable)
}

func TestCreateSubaccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subaccount", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "058", body["settlement_bank"])
		_, _ = w.Write([]byte(`{"status":true,"data":{"subaccount_code":"ACCT_123","business_name":"Ade Tiles"}}`))
	}, 5)

	sub, err := c.CreateSubaccount(context.Background(), CreateSubaccountRequest{BusinessName: "Ade Tiles", BankCode: "058", AccountNumber: "0123456789", PercentageCharge: 80})
	require.NoError(t, err)
	require.Equal(t, "ACCT_123", sub.SubaccountCode)
}
