package payment

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// Settlement is a gateway confirmation that a charge succeeded.
type Settlement struct {
	Reference     string
	Amount        int64
	Currency      string
	PaidAt        time.Time
	TransactionID string

	JobID       string
	PaymentType types.PaymentType
	CustomerID  string
	ArtisanID   string
}

type SettlementOutcome string

const (
	SettlementApplied          SettlementOutcome = "applied"
	SettlementDuplicate        SettlementOutcome = "duplicate"
	SettlementUnknownReference SettlementOutcome = "unknown_reference"
	SettlementJobNotAdvanced   SettlementOutcome = "job_not_advanced"
)

type SettlementResult struct {
	Outcome   SettlementOutcome `json:"outcome"`
	PaymentID string            `json:"payment_id,omitempty"`
	JobID     string            `json:"job_id,omitempty"`
	JobStatus types.JobStatus   `json:"job_status,omitempty"`
}

// ApplySettlement moves the payment matched by reference to its settled
// status and advances the job, in one transaction. A payment that is already
// settled makes the call a no-op. A job that has left the expected state keeps
// the payment update and gets an annotation instead of a transition.
func (s *Service) ApplySettlement(ctx context.Context, st Settlement) (*SettlementResult, error) {
	log := logctx.FromCtx(ctx, s.log)
	result := &SettlementResult{}
	var job *models.Job
	var from, to types.JobStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadPaymentByReference(ctx, tx, st.Reference)
		if err != nil {
			return err
		}
		if p == nil {
			result.Outcome = SettlementUnknownReference
			return nil
		}
		result.PaymentID, result.JobID = p.ID, p.JobID
		if err := checkAgreement(p, st); err != nil {
			return err
		}
		if p.Status.IsSettled() {
			result.Outcome = SettlementDuplicate
			return nil
		}

		settled := p.PaymentType.SettledStatus()
		paidAt := st.PaidAt
		if paidAt.IsZero() {
			paidAt = s.now()
		}
		updates := map[string]any{
			"status":     settled,
			"paid_at":    paidAt,
			"updated_at": s.now(),
		}
		if st.TransactionID != "" {
			updates["transfer_code"] = st.TransactionID
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, types.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to settle payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// a concurrent delivery settled it first
			result.Outcome = SettlementDuplicate
			return nil
		}

		from, to = p.PaymentType.SettledJobTransition()
		current, err := ledger.LoadJobTx(ctx, tx, p.JobID)
		if err != nil {
			return err
		}
		changedBy := st.CustomerID
		if changedBy == "" {
			changedBy = p.CustomerID
		}
		note := fmt.Sprintf("Payment of %s %s", ledger.FormatNaira(st.Amount), settledPhrase(p.PaymentType))

		if current.Status != from {
			result.Outcome = SettlementJobNotAdvanced
			result.JobStatus = current.Status
			metrics.Event("payment_settlement", string(SettlementJobNotAdvanced))
			log.Errorw("payment_settled_job_not_advanced",
				"payment_id", p.ID, "job_id", p.JobID, "expected", from, "actual", current.Status)
			return s.ledger.AnnotateTx(ctx, tx, current, changedBy,
				fmt.Sprintf("%s; job not advanced from %s", note, current.Status))
		}

		jobUpdates := map[string]any{}
		if p.PaymentType == types.PaymentTypeJobPayment {
			jobUpdates["final_amount"] = st.Amount
		}
		job, err = s.ledger.ApplyTx(ctx, tx, ledger.Transition{
			JobID:   p.JobID,
			From:    from,
			To:      to,
			ActorID: changedBy,
			Note:    note,
			Updates: jobUpdates,
		})
		if err != nil {
			return err
		}
		result.Outcome = SettlementApplied
		result.JobStatus = job.Status
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConsistencyViolation {
			metrics.Event("payment_consistency_violation", "settlement")
			log.Errorw("payment_consistency_violation", "reference", st.Reference, "err", err)
		}
		return nil, err
	}
	if job != nil {
		s.ledger.Notify(ctx, job, from, to)
	}
	metrics.Event("payment_settlement", string(result.Outcome))
	log.Infow("payment_settlement", "reference", st.Reference, "outcome", result.Outcome,
		"payment_id", result.PaymentID, "job_id", result.JobID)
	return result, nil
}

func settledPhrase(t types.PaymentType) string {
	if t == types.PaymentTypeJobPayment {
		return "held in escrow"
	}
	return "received for inspection"
}

// checkAgreement compares the gateway metadata with the stored payment.
func checkAgreement(p *models.Payment, st Settlement) error {
	if st.JobID == "" || st.PaymentType == "" {
		return apperr.ConsistencyViolation("settlement for %s carries no job metadata", st.Reference)
	}
	mismatch := func(field, got, want string) error {
		return apperr.ConsistencyViolation("settlement %s disagrees on %s: gateway %q, payment %q", st.Reference, field, got, want)
	}
	if st.JobID != p.JobID {
		return mismatch("job_id", st.JobID, p.JobID)
	}
	if st.PaymentType != p.PaymentType {
		return mismatch("payment_type", string(st.PaymentType), string(p.PaymentType))
	}
	if st.CustomerID != "" && st.CustomerID != p.CustomerID {
		return mismatch("customer_id", st.CustomerID, p.CustomerID)
	}
	if st.ArtisanID != "" && st.ArtisanID != p.ArtisanID {
		return mismatch("artisan_id", st.ArtisanID, p.ArtisanID)
	}
	if st.Amount != p.Amount {
		return mismatch("amount", fmt.Sprint(st.Amount), fmt.Sprint(p.Amount))
	}
	return nil
}
