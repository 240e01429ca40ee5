package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type InitializeRequest struct {
	JobID       string            `json:"job_id" binding:"required"`
	PaymentType types.PaymentType `json:"payment_type" binding:"required"`
	Amount      int64             `json:"amount" binding:"required"`
}

type InitializeResult struct {
	PaymentID        string `json:"payment_id"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           int64  `json:"amount"`
	CommissionAmount int64  `json:"commission_amount"`
	ArtisanAmount    int64  `json:"artisan_amount"`
	Split            bool   `json:"split"`
}

// Initialize records a pending payment and asks the gateway for an
// authorization handle. Job state is never changed here.
func (s *Service) Initialize(ctx context.Context, actor types.Actor, req InitializeRequest) (*InitializeResult, error) {
	start := time.Now()
	defer metrics.ObserveSince("payment", "initialize", start)
	log := logctx.FromCtx(ctx, s.log)

	if actor.Role != types.RoleCustomer || actor.ID == "" {
		return nil, apperr.Unauthorized("only customers can pay for jobs")
	}
	if _, err := s.limiter.Take(ctx, actor.ID); err != nil {
		metrics.Event("payment_initialize", "rate_limited")
		log.Warnw("payment_initialize_rate_limited", "customer_id", actor.ID, "err", err)
		return nil, err
	}
	if !req.PaymentType.IsValid() {
		return nil, apperr.Validation("unknown payment type %q", req.PaymentType)
	}
	if req.Amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}

	var payment *models.Payment
	var subaccount string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := ledger.LoadJobTx(ctx, tx, req.JobID)
		if err != nil {
			return err
		}
		if !job.IsCustomer(actor.ID) {
			return apperr.Unauthorized("only the job's customer can pay for it")
		}
		if required := req.PaymentType.RequiredJobStatus(); job.Status != required {
			return apperr.InvalidTransition("%s payments need the job in %s, job is %s", req.PaymentType, required, job.Status)
		}
		if job.ArtisanID == nil || *job.ArtisanID == "" {
			return apperr.InvalidTransition("job has no assigned artisan")
		}
		if expected := expectedAmount(job, req.PaymentType); req.Amount != expected {
			return apperr.Validation("amount %d does not match the agreed %s of %d", req.Amount, req.PaymentType, expected)
		}
		if req.PaymentType == types.PaymentTypeJobPayment {
			if err := ensureNoLivePayment(ctx, tx, job.ID); err != nil {
				return err
			}
		}

		var profile models.ArtisanProfile
		err = tx.Where("user_id = ?", *job.ArtisanID).First(&profile).Error
		switch {
		case err == nil:
			subaccount = lo.FromPtr(profile.PayoutAccountRef)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load artisan profile: %w", err)
		}

		payment = newPendingPayment(job, req, subaccount, s.now())
		if err := tx.Create(payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.InvalidTransition("a payment for this job is already in progress")
			}
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.Event("payment_initialize", string(apperr.KindOf(err)))
		return nil, err
	}

	gwReq := paystack.InitializeTransactionRequest{
		Email:       fmt.Sprintf("%s@%s", actor.ID, s.cfg.Paystack.EmailDomain),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Reference:   payment.GatewayReference,
		CallbackURL: s.cfg.Paystack.CallbackURL,
		Metadata:    payment.Metadata.Data(),
	}
	if subaccount != "" {
		gwReq.Subaccount = subaccount
		gwReq.Bearer = "account"
		gwReq.TransactionCharge = payment.CommissionAmount
	}
	res, err := s.gateway.InitializeTransaction(ctx, gwReq)
	if err != nil {
		if delErr := s.discardPending(ctx, payment.ID); delErr != nil {
			log.Errorw("payment_discard_failed", "payment_id", payment.ID, "err", delErr)
		}
		log.Warnw("payment_gateway_failed", "payment_id", payment.ID, "job_id", payment.JobID, "err", err)
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.GatewayUnavailable(err)
		}
		metrics.Event("payment_initialize", string(apperr.KindOf(err)))
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]any{
		"authorization_url": res.AuthorizationURL,
		"access_code":       res.AccessCode,
		"updated_at":        s.now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store authorization handle: %w", err)
	}

	metrics.Event("payment_initialize", "ok")
	log.Infow("payment_initialized",
		"payment_id", payment.ID,
		"job_id", payment.JobID,
		"payment_type", payment.PaymentType,
		"amount", payment.Amount,
		"reference", payment.GatewayReference,
		"split", subaccount != "")
	return &InitializeResult{
		PaymentID:        payment.ID,
		Reference:        payment.GatewayReference,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Amount:           payment.Amount,
		CommissionAmount: payment.CommissionAmount,
		ArtisanAmount:    payment.ArtisanAmount,
		Split:            subaccount != "",
	}, nil
}

func expectedAmount(job *models.Job, t types.PaymentType) int64 {
	if t == types.PaymentTypeInspectionFee {
		return lo.FromPtr(job.InspectionFee)
	}
	return lo.FromPtr(job.QuotedAmount)
}

func ensureNoLivePayment(ctx context.Context, tx *gorm.DB, jobID string) error {
	var live int64
	err := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("job_id = ? AND payment_type = ? AND status IN ?", jobID, types.PaymentTypeJobPayment,
			[]types.PaymentStatus{types.PaymentStatusPending, types.PaymentStatusHeld}).
		Count(&live).Error
	if err != nil {
		return fmt.Errorf("failed to check live payments: %w", err)
	}
	if live > 0 {
		return apperr.InvalidTransition("a payment for this job is already in progress")
	}
	return nil
}

func newPendingPayment(job *models.Job, req InitializeRequest, subaccount string, now time.Time) *models.Payment {
	commission, artisan := Split(req.Amount, job.CommissionPercent)
	p := &models.Payment{
		ID:                tool.GenerateUUIDV7(),
		JobID:             job.ID,
		CustomerID:        job.CustomerID,
		ArtisanID:         *job.ArtisanID,
		PaymentType:       req.PaymentType,
		Status:            types.PaymentStatusPending,
		Currency:          DefaultCurrency,
		Amount:            req.Amount,
		CommissionAmount:  commission,
		ArtisanAmount:     artisan,
		CommissionPercent: job.CommissionPercent,
		GatewayReference:  tool.GeneratePaymentReference(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if subaccount != "" {
		p.SubaccountCode = &subaccount
	}
	p.Metadata = datatypes.NewJSONType(models.PaymentMetadata{
		PaymentID:        p.ID,
		JobID:            p.JobID,
		PaymentType:      p.PaymentType,
		CustomerID:       p.CustomerID,
		ArtisanID:        p.ArtisanID,
		CommissionAmount: p.CommissionAmount,
		ArtisanAmount:    p.ArtisanAmount,
	})
	return p
}

// discardPending removes a pending row the gateway never accepted.
func (s *Service) discardPending(ctx context.Context, paymentID string) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND status = ?", paymentID, types.PaymentStatusPending).
		Delete(&models.Payment{}).Error
}
