package servicetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// Gateway records requests instead of calling Paystack.
type Gateway struct {
	mu          sync.Mutex
	Err         error
	Initialized []paystack.InitializeTransactionRequest
	Subaccounts []paystack.CreateSubaccountRequest
}

func (g *Gateway) InitializeTransaction(_ context.Context, req paystack.InitializeTransactionRequest) (*paystack.InitializeTransactionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Initialized = append(g.Initialized, req)
	return &paystack.InitializeTransactionResult{
		AuthorizationURL: "https://checkout.paystack.test/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *Gateway) CreateSubaccount(_ context.Context, req paystack.CreateSubaccountRequest) (*paystack.Subaccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Subaccounts = append(g.Subaccounts, req)
	return &paystack.Subaccount{
		SubaccountCode: fmt.Sprintf("ACCT_%d", len(g.Subaccounts)),
		BusinessName:   req.BusinessName,
		AccountNumber:  req.AccountNumber,
	}, nil
}

func (g *Gateway) LastInitialized() paystack.InitializeTransactionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Initialized[len(g.Initialized)-1]
}

// Payments builds the payment service over the env with gw as the gateway.
func (e *Env) Payments(t testing.TB, gw paystack.Gateway) *payment.Service {
	t.Helper()
	limiters, err := ratelimit.NewLimiters(e.Config)
	require.NoError(t, err)
	return payment.New(payment.Params{
		DB:       e.DB,
		Log:      e.Log,
		Config:   e.Config,
		Ledger:   e.Ledger,
		Gateway:  gw,
		Limiters: limiters,
	})
}

func (e *Env) Payment(t testing.TB, id string) *models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, e.DB.Where("id = ?", id).First(&p).Error)
	return &p
}

// SettlementFor builds the settlement the gateway would report for p.
func SettlementFor(p *models.Payment) payment.Settlement {
	meta := p.Metadata.Data()
	return payment.Settlement{
		Reference:     p.GatewayReference,
		Amount:        p.Amount,
		Currency:      p.Currency,
		TransactionID: "4099260516",
		JobID:         meta.JobID,
		PaymentType:   meta.PaymentType,
		CustomerID:    meta.CustomerID,
		ArtisanID:     meta.ArtisanID,
	}
}

// EscrowedJob drives a job to payment_escrowed through initialize and settlement.
func (e *Env) EscrowedJob(t testing.TB, svc *payment.Service, quote int64) (*models.Job, *models.Payment) {
	t.Helper()
	ctx := context.Background()
	job := e.PriceAgreedJob(t, quote)
	res, err := svc.Initialize(ctx, Customer, payment.InitializeRequest{
		JobID: job.ID, PaymentType: types.PaymentTypeJobPayment, Amount: quote,
	})
	require.NoError(t, err)
	p := e.Payment(t, res.PaymentID)
	_, err = svc.ApplySettlement(ctx, SettlementFor(p))
	require.NoError(t, err)
	return e.Job(t, job.ID), e.Payment(t, p.ID)
}

// ConfirmedJob drives a job to confirmed without an escrow payment.
func (e *Env) ConfirmedJob(t testing.TB, svc *payment.Service, quote int64) *models.Job {
	t.Helper()
	job := e.CompletedJob(t, quote)
	job, err := svc.Release(context.Background(), Customer, job.ID)
	require.NoError(t, err)
	return job
}
