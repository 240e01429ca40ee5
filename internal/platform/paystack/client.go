package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
)

// Gateway is the subset of the Paystack API the platform uses.
type Gateway interface {
	InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error)
	CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*Subaccount, error)
}

type InitializeTransactionRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
	Metadata    any    `json:"metadata,omitempty"`
	// split settlement; the platform keeps TransactionCharge
	Subaccount        string `json:"subaccount,omitempty"`
	Bearer            string `json:"bearer,omitempty"`
	TransactionCharge int64  `json:"transaction_charge,omitempty"`
}

type InitializeTransactionResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type CreateSubaccountRequest struct {
	BusinessName     string  `json:"business_name"`
	BankCode         string  `json:"settlement_bank"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
}

type Subaccount struct {
	SubaccountCode string `json:"subaccount_code"`
	BusinessName   string `json:"business_name"`
	AccountNumber  string `json:"account_number"`
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Client is a Paystack REST client. Every call is bounded by the configured timeout.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	log       *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	timeout := cfg.Paystack.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.Paystack.BaseURL, "/"),
		secretKey: cfg.Paystack.SecretKey,
		http:      &http.Client{Timeout: timeout},
		log:       log,
	}
}

func (c *Client) InitializeTransaction(ctx context.Context, req InitializeTransactionRequest) (*InitializeTransactionResult, error) {
	var out InitializeTransactionResult
	if err := c.post(ctx, "/transaction/initialize", req, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" {
		return nil, apperr.GatewayUnavailable(fmt.Errorf("initialize transaction: empty authorization url"))
	}
	return &out, nil
}

func (c *Client) CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*Subaccount, error) {
	var out Subaccount
	if err := c.post(ctx, "/subaccount", req, &out); err != nil {
		return nil, err
	}
	if out.SubaccountCode == "" {
		return nil, apperr.GatewayUnavailable(fmt.Errorf("create subaccount: empty subaccount code"))
	}
	return &out, nil
}

// post sends body and decodes the data field. A 4xx reply naming a problem
// with the request is a validation error and is not worth retrying. Transport
// failures, timeouts, 5xx, 429, auth failures and malformed replies are
// gateway_unavailable.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	start := time.Now()
	log := logctx.FromCtx(ctx, c.log)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal paystack request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build paystack request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	defer metrics.ObserveSince("paystack", path, start)
	if err != nil {
		log.Warnw("paystack_request_failed", "path", path, "err", err)
		metrics.Event("paystack_call", "transport_error")
		return apperr.GatewayUnavailable(fmt.Errorf("paystack %s: %w", path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.Event("paystack_call", "transport_error")
		return apperr.GatewayUnavailable(fmt.Errorf("paystack %s: read body: %w", path, err))
	}

	env := envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warnw("paystack_bad_response", "path", path, "status", resp.StatusCode)
		metrics.Event("paystack_call", "bad_response")
		return apperr.GatewayUnavailable(fmt.Errorf("paystack %s: http %d: undecodable body", path, resp.StatusCode))
	}
	if rejectsRequest(resp.StatusCode) {
		log.Warnw("paystack_rejected", "path", path, "status", resp.StatusCode, "message", env.Message)
		metrics.Event("paystack_call", "rejected")
		return apperr.Validation("payment gateway rejected the request: %s", env.Message)
	}
	if resp.StatusCode/100 != 2 || !env.Status {
		log.Warnw("paystack_failed", "path", path, "status", resp.StatusCode, "message", env.Message)
		metrics.Event("paystack_call", "failed")
		return apperr.GatewayUnavailable(fmt.Errorf("paystack %s: http %d: %s", path, resp.StatusCode, env.Message))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		metrics.Event("paystack_call", "bad_response")
		return apperr.GatewayUnavailable(fmt.Errorf("paystack %s: decode data: %w", path, err))
	}
	metrics.Event("paystack_call", "ok")
	return nil
}

func rejectsRequest(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

var Module = fx.Options(
	fx.Provide(
		NewClient,
		func(c *Client) Gateway { return c },
	),
)
