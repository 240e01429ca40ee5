package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	mw "github.com/nextdigitalzone/jobdesk/internal/app/api/middleware"
	"github.com/nextdigitalzone/jobdesk/internal/app/api/server"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/artisanstats"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	nh "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_handler"
	notificationlog "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_log"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/servicetest"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/statistics"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const jwtSecret = "test-jwt-secret"

type envelope struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    json.RawMessage          `json:"data"`
}

type api struct {
	t      *testing.T
	env    *servicetest.Env
	gw     *servicetest.Gateway
	router *gin.Engine
	tokens map[string]string
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)
	env := servicetest.NewEnv(t)
	env.Config.Auth.JWTSecret = jwtSecret
	gw := &servicetest.Gateway{}
	payments := env.Payments(t, gw)

	limiters, err := ratelimit.NewLimiters(env.Config)
	require.NoError(t, err)
	v, err := vault.New(env.DB, env.Log, env.Config)
	require.NoError(t, err)
	logs := notificationlog.New(env.DB, env.Log)
	t.Cleanup(logs.Wait)
	stats := artisanstats.New(env.DB, env.Log, env.Config)
	t.Cleanup(stats.Stop)

	r := gin.New()
	r.Use(mw.TraceMiddleware())
	server.RegisterRoutes(r, server.RouteParams{
		Log:          env.Log,
		Config:       env.Config,
		DB:           env.DB,
		Limiters:     limiters,
		Ledger:       env.Ledger,
		Payment:      payments,
		Matcher:      env.Matcher,
		Dispute:      dispute.New(dispute.Params{DB: env.DB, Log: env.Log, Ledger: env.Ledger}),
		Vault:        v,
		NotifHandler: nh.NewNotificationHandler(env.Config, logs, payments, env.Log),
		ArtisanStats: stats,
		Sweeper:      sweeper.New(env.DB, env.Log, env.Config, env.Ledger),
		Statistics:   statistics.New(env.DB),
		Audit:        audit.New(env.DB, env.Log),
	})

	a := &api{t: t, env: env, gw: gw, router: r, tokens: map[string]string{}}
	for _, actor := range []types.Actor{servicetest.Admin, servicetest.Customer, servicetest.Artisan, servicetest.Stranger} {
		tok, err := mw.SignToken(jwtSecret, actor, time.Hour)
		require.NoError(t, err)
		a.tokens[actor.ID] = tok
	}
	return a
}

func (a *api) do(method, path string, as *types.Actor, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+a.tokens[as.ID])
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// ok asserts a 200 envelope and decodes its data into out.
func (a *api) ok(method, path string, as *types.Actor, body any, out any) {
	a.t.Helper()
	w, env := a.do(method, path, as, body)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(a.t, response.APIResponseCodeOK, env.Code)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
}

func (a *api) status(method, path string, as *types.Actor, body any) int {
	a.t.Helper()
	w, _ := a.do(method, path, as, body)
	return w.Code
}

func (a *api) webhook(p *models.Payment) []byte {
	a.t.Helper()
	meta, err := json.Marshal(p.Metadata.Data())
	require.NoError(a.t, err)
	body, err := json.Marshal(map[string]any{
		"event": paystack.EventChargeSuccess,
		"data": map[string]any{
			"id":        4099260516,
			"reference": p.GatewayReference,
			"amount":    p.Amount,
			"currency":  "NGN",
			"status":    "success",
			"paid_at":   "2026-03-02T09:30:00.000Z",
			"metadata":  json.RawMessage(meta),
		},
	})
	require.NoError(a.t, err)
	return body
}

var (
	admin    = &servicetest.Admin
	customer = &servicetest.Customer
	artisan  = &servicetest.Artisan
	stranger = &servicetest.Stranger
)

func TestJobLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)

	var profile models.ArtisanProfile
	a.ok(http.MethodPut, "/api/v1/artisans/me", artisan, map[string]any{
		"full_name": "Ade Plumbing", "location": servicetest.LagosIsland, "service_radius_km": 15,
	}, &profile)
	require.True(t, profile.IsAvailable)

	var job models.Job
	a.ok(http.MethodPost, "/api/v1/jobs", customer, map[string]any{
		"title": "Fix leaking kitchen sink", "address": "12 Marina Rd", "location": servicetest.LagosIsland,
	}, &job)
	require.Equal(t, types.JobStatusPending, job.Status)
	base := "/api/v1/jobs/" + job.ID

	var nearby []struct {
		DistanceKM float64 `json:"distance_km"`
	}
	a.ok(http.MethodPost, "/api/v1/artisans/nearby", customer, map[string]any{"point": servicetest.LagosIsland}, &nearby)
	require.Len(t, nearby, 1)

	require.Equal(t, http.StatusForbidden, a.status(http.MethodPost, base+"/assign", artisan, map[string]any{"artisan_id": artisan.ID}))
	a.ok(http.MethodPost, base+"/assign", admin, map[string]any{"artisan_id": artisan.ID}, &job)
	require.Equal(t, types.JobStatusAssigned, job.Status)

	a.ok(http.MethodPost, base+"/quote", artisan, map[string]any{"amount": 1500000}, &job)
	a.ok(http.MethodPost, base+"/accept", customer, nil, &job)
	require.Equal(t, types.JobStatusPriceAgreed, job.Status)

	var init struct {
		PaymentID        string `json:"payment_id"`
		AuthorizationURL string `json:"authorization_url"`
		CommissionAmount int64  `json:"commission_amount"`
	}
	a.ok(http.MethodPost, "/api/v1/payments/initialize", customer, map[string]any{
		"job_id": job.ID, "payment_type": types.PaymentTypeJobPayment, "amount": 1500000,
	}, &init)
	require.True(t, strings.HasPrefix(init.AuthorizationURL, "https://checkout.paystack.test/"))
	require.Equal(t, int64(300000), init.CommissionAmount)
	require.Equal(t, types.JobStatusPriceAgreed, a.env.Job(t, job.ID).Status)

	body := a.webhook(a.env.Payment(t, init.PaymentID))
	w, _ := a.do(http.MethodPost, "/api/v2/payment/webhook/paystack", nil, body,
		"x-paystack-signature", paystack.Sign(a.env.Config.Paystack.SecretKey, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, types.JobStatusPaymentEscrowed, a.env.Job(t, job.ID).Status)

	a.ok(http.MethodPost, base+"/start", artisan, nil, &job)
	a.ok(http.MethodPost, base+"/complete", artisan, nil, &job)
	require.Equal(t, types.JobStatusCompleted, job.Status)
	require.Equal(t, http.StatusForbidden, a.status(http.MethodPost, base+"/confirm", stranger, nil))
	a.ok(http.MethodPost, base+"/confirm", customer, nil, &job)
	require.Equal(t, types.JobStatusConfirmed, job.Status)
	require.NotNil(t, job.GuaranteeExpiresAt)

	var payments []models.Payment
	a.ok(http.MethodGet, base+"/payments", customer, nil, &payments)
	require.Len(t, payments, 1)
	require.Equal(t, types.PaymentStatusReleased, payments[0].Status)

	var history []models.JobStatusHistory
	a.ok(http.MethodGet, base+"/history", artisan, nil, &history)
	require.Len(t, history, 8)
	require.Equal(t, types.JobStatusConfirmed, history[len(history)-1].NewStatus)

	a.ok(http.MethodPost, base+"/review", customer, map[string]any{"rating": 5, "comment": "tidy work"}, nil)
	require.Equal(t, http.StatusConflict, a.status(http.MethodPost, base+"/review", customer, map[string]any{"rating": 4}))

	var verification struct {
		Consistent  bool `json:"consistent"`
		Transitions int  `json:"transitions"`
	}
	a.ok(http.MethodGet, "/api/v1/admin/jobs/"+job.ID+"/verify", admin, nil, &verification)
	require.True(t, verification.Consistent)
	require.Equal(t, 7, verification.Transitions)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)
	job := a.env.PendingJob(t)
	base := "/api/v1/jobs/" + job.ID

	w, env := a.do(http.MethodGet, "/api/v1/jobs", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, response.APIResponseCodeUnauthenticated, env.Code)

	w, env = a.do(http.MethodGet, "/api/v1/jobs/missing", customer, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, response.APIResponseCodeNotFound, env.Code)

	require.Equal(t, http.StatusForbidden, a.status(http.MethodGet, base, stranger, nil))
	require.Equal(t, http.StatusConflict, a.status(http.MethodPost, base+"/accept", customer, nil))
	require.Equal(t, http.StatusBadRequest, a.status(http.MethodPost, "/api/v1/jobs", customer, map[string]any{"address": "no title"}))
	require.Equal(t, http.StatusBadRequest, a.status(http.MethodPost, "/api/v1/artisans/nearby", customer, map[string]any{"point": map[string]any{"latitude": 95}}))
	require.Equal(t, http.StatusForbidden, a.status(http.MethodPost, "/api/v1/admin/sweep", artisan, nil))

	priced := a.env.PriceAgreedJob(t, 500000)
	a.gw.Err = errors.New("connection reset by peer")
	w, env = a.do(http.MethodPost, "/api/v1/payments/initialize", customer, map[string]any{
		"job_id": priced.ID, "payment_type": types.PaymentTypeJobPayment, "amount": 500000,
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, response.APIResponseCodeServiceUnavailable, env.Code)
	require.NotContains(t, env.Message, "connection reset")
}

func TestPaystackWebhookRoute(t *testing.T) {
	a := newAPI(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"JD-unknown","amount":100,"currency":"NGN"}}`)

	w, env := a.do(http.MethodPost, "/api/v2/payment/webhook/paystack", nil, body, "x-paystack-signature", "deadbeef")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, response.APIResponseCodeUnauthenticated, env.Code)

	w, env = a.do(http.MethodPost, "/api/v2/payment/webhook/paystack", nil, body,
		"x-paystack-signature", paystack.Sign(a.env.Config.Paystack.SecretKey, body))
	require.Equal(t, http.StatusOK, w.Code)
	var res nh.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, models.PaymentNotificationLogStatusIgnored, res.Status)
}

func TestIdentitySubmitAndReveal(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodPost, "/api/v1/identity", nil, map[string]any{"full_name": "Chiamaka Obi", "nin": "12345678901"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), "12345678901")
	var rec models.IdentityRecord
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	require.Equal(t, "*******8901", rec.NINMasked)

	path := "/api/v1/admin/identity/" + rec.ID + "/reveal"
	require.Equal(t, http.StatusForbidden, a.status(http.MethodPost, path, customer, map[string]any{"justification": "curious"}))
	require.Equal(t, http.StatusBadRequest, a.status(http.MethodPost, path, admin, map[string]any{}))

	w, env = a.do(http.MethodPost, path, admin, map[string]any{"justification": "chargeback investigation"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var got vault.Revealed
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, "12345678901", got.NIN)

	var audits []models.AdminAuditLog
	a.ok(http.MethodPost, "/api/v1/admin/audit_logs/list", admin, map[string]any{"target_id": rec.ID}, &audits)
	require.Len(t, audits, 1)
	require.Equal(t, models.AuditActionRevealNIN, audits[0].Action)
}

func TestAdminSweepAndStatistics(t *testing.T) {
	a := newAPI(t)
	job := a.env.PendingJob(t)
	a.env.Clock.Advance(24*time.Hour + time.Minute)

	var report sweeper.Report
	a.ok(http.MethodPost, "/api/v1/admin/sweep", admin, nil, &report)
	require.Equal(t, 1, report.Cancelled)
	require.Equal(t, types.JobStatusCancelled, a.env.Job(t, job.ID).Status)

	var stats statistics.Response
	a.ok(http.MethodPost, "/api/v1/admin/statistics", admin, map[string]any{
		"from":       a.env.Clock.Now().Add(-72 * time.Hour),
		"to":         a.env.Clock.Now(),
		"data_items": []map[string]any{{"id": statistics.StatisticTypeJobStatusBreakdown}},
	}, &stats)
	breakdown := stats.DataItems[statistics.StatisticTypeJobStatusBreakdown]
	require.Len(t, breakdown, 1)
	require.Equal(t, string(types.JobStatusCancelled), breakdown[0].Label)
	require.Equal(t, int64(1), breakdown[0].Value)
}
