package payment

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// Release is the customer's confirmation of completed work. The held escrow
// payment, if any, is released and the job moves to confirmed with its
// guarantee window opened.
func (s *Service) Release(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	log := logctx.FromCtx(ctx, s.log)
	if actor.Role != types.RoleCustomer {
		return nil, apperr.Unauthorized("only the job's customer can confirm completion")
	}

	var job *models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ledger.LoadJobTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !current.IsCustomer(actor.ID) {
			return apperr.Unauthorized("only the job's customer can confirm completion")
		}
		if current.Status != types.JobStatusCompleted {
			return apperr.InvalidTransition("job is %s, only completed jobs can be confirmed", current.Status)
		}

		var held []*models.Payment
		err = tx.Where("job_id = ? AND payment_type = ? AND status = ?", jobID, types.PaymentTypeJobPayment, types.PaymentStatusHeld).
			Find(&held).Error
		if err != nil {
			return fmt.Errorf("failed to load held payments: %w", err)
		}
		if len(held) > 1 {
			metrics.Event("payment_consistency_violation", "multiple_held")
			log.Errorw("payment_consistency_violation", "job_id", jobID, "held_payments", len(held))
			return apperr.ConsistencyViolation("job %s has %d held payments", jobID, len(held))
		}

		now := s.now()
		note := "completion confirmed; no escrow payment"
		if len(held) == 1 {
			p := held[0]
			res := tx.Model(&models.Payment{}).
				Where("id = ? AND status = ?", p.ID, types.PaymentStatusHeld).
				Updates(map[string]any{
					"status":      types.PaymentStatusReleased,
					"released_at": now,
					"updated_at":  now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to release payment: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.InvalidTransition("payment %s is no longer held", p.ID)
			}
			note = fmt.Sprintf("completion confirmed; %s released from escrow", ledger.FormatNaira(p.Amount))
		}

		job, err = s.ledger.ApplyTx(ctx, tx, ledger.Transition{
			JobID:   jobID,
			From:    types.JobStatusCompleted,
			To:      types.JobStatusConfirmed,
			ActorID: actor.ID,
			Note:    note,
			Updates: map[string]any{
				"confirmed_at":         now,
				"guarantee_expires_at": now.Add(s.cfg.Escrow.GuaranteePeriod()),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Notify(ctx, job, types.JobStatusCompleted, types.JobStatusConfirmed)
	log.Infow("payment_released", "job_id", jobID, "guarantee_expires_at", job.GuaranteeExpiresAt)
	return job, nil
}

type RefundRequest struct {
	PaymentID string `json:"-"`
	Note      string `json:"note"`
	SourceIP  string `json:"-"`
}

// Refund records that an admin refunded a payment on a disputed job. The
// gateway refund itself happens outside this system.
func (s *Service) Refund(ctx context.Context, actor types.Actor, req RefundRequest) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can refund payments")
	}
	note := strings.TrimSpace(req.Note)

	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadPayment(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		job, err := ledger.LoadJobTx(ctx, tx, p.JobID)
		if err != nil {
			return err
		}
		if job.Status != types.JobStatusDisputed {
			return apperr.InvalidTransition("job is %s, refunds need a disputed job", job.Status)
		}
		if !p.Status.CanAdvanceTo(types.PaymentStatusRefunded) {
			return apperr.InvalidTransition("payment is %s and cannot be refunded", p.Status)
		}

		now := s.now()
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, p.Status).
			Updates(map[string]any{
				"status":      types.PaymentStatusRefunded,
				"refunded_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to refund payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("payment %s changed concurrently", p.ID)
		}

		historyNote := fmt.Sprintf("payment of %s refunded", ledger.FormatNaira(p.Amount))
		if note != "" {
			historyNote += ": " + note
		}
		if err := s.ledger.AnnotateTx(ctx, tx, job, actor.ID, historyNote); err != nil {
			return err
		}
		_, err = audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionRefundPayment,
			TargetType: models.AuditTargetPayment,
			TargetID:   p.ID,
			SourceIP:   req.SourceIP,
			Details: map[string]any{
				"job_id":      p.JobID,
				"amount":      p.Amount,
				"from_status": string(p.Status),
				"note":        note,
			},
			At: now,
		})
		if err != nil {
			return err
		}
		payment, err = loadPayment(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Event("payment_refund", "ok")
	logctx.FromCtx(ctx, s.log).Infow("payment_refunded", "payment_id", payment.ID, "job_id", payment.JobID, "admin_id", actor.ID)
	return payment, nil
}

// ListForJob returns the job's payments oldest first to anyone who may view the job.
func (s *Service) ListForJob(ctx context.Context, actor types.Actor, jobID string) ([]*models.Payment, error) {
	if _, err := s.ledger.Get(ctx, actor, jobID); err != nil {
		return nil, err
	}
	var rows []*models.Payment
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return rows, nil
}
