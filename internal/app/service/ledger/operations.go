package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type CreateJobRequest struct {
	CategoryID  *string        `json:"category_id"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Address     string         `json:"address"`
	Location    types.GeoPoint `json:"location"`
}

func (s *Service) CreateJob(ctx context.Context, actor types.Actor, req CreateJobRequest) (*models.Job, error) {
	if actor.Role != types.RoleCustomer || actor.ID == "" {
		return nil, apperr.Unauthorized("only customers can create jobs")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if !req.Location.Valid() {
		return nil, apperr.Validation("location is out of range")
	}

	now := s.now()
	job := &models.Job{
		ID:                tool.GenerateUUIDV7(),
		CustomerID:        actor.ID,
		CategoryID:        req.CategoryID,
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		Address:           req.Address,
		Latitude:          req.Location.Latitude,
		Longitude:         req.Location.Longitude,
		Status:            types.JobStatusPending,
		CommissionPercent: s.cfg.Escrow.CommissionPercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		return s.appendHistory(ctx, tx, job.ID, nil, types.JobStatusPending, actor.ID, "job created", now)
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("job_created", "job_id", job.ID, "customer_id", actor.ID)
	s.Notify(ctx, job, "", types.JobStatusPending)
	return job, nil
}

// AssignArtisan is admin only; the artisan must be available and cover the job location.
func (s *Service) AssignArtisan(ctx context.Context, actor types.Actor, jobID, artisanUserID string) (*models.Job, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can assign artisans")
	}
	if artisanUserID == "" {
		return nil, apperr.Validation("artisan_id is required")
	}

	var job *models.Job
	var from types.JobStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		from = current.Status
		if !from.CanTransitionTo(types.JobStatusAssigned) {
			return apperr.InvalidTransition("job is %s, only pending jobs can be assigned", from)
		}
		if err := s.eligibility.Eligible(ctx, tx, artisanUserID, current.Location()); err != nil {
			return err
		}
		job, err = s.ApplyTx(ctx, tx, Transition{
			JobID:   jobID,
			From:    from,
			To:      types.JobStatusAssigned,
			ActorID: actor.ID,
			Note:    "artisan assigned by admin",
			Updates: map[string]any{
				"artisan_id":        artisanUserID,
				"assigned_by":       models.AssignedByAdmin,
				"admin_assigner_id": actor.ID,
				"assigned_at":       s.now(),
			},
		})
		if err != nil {
			return err
		}
		_, err = audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionAssignArtisan,
			TargetType: models.AuditTargetJob,
			TargetID:   jobID,
			Details:    map[string]any{"artisan_id": artisanUserID},
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, job, from, types.JobStatusAssigned)
	return job, nil
}

// SubmitQuote moves an assigned (or inspected) job to quoted.
func (s *Service) SubmitQuote(ctx context.Context, actor types.Actor, jobID string, amount int64) (*models.Job, error) {
	if amount <= 0 {
		return nil, apperr.Validation("quoted amount must be positive")
	}
	job, err := s.jobForArtisan(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusAssigned && job.Status != types.JobStatusInspectionPaid {
		return nil, apperr.InvalidTransition("job is %s, quotes are accepted after assignment or a paid inspection", job.Status)
	}
	return s.Apply(ctx, Transition{
		JobID:   jobID,
		From:    job.Status,
		To:      types.JobStatusQuoted,
		ActorID: actor.ID,
		Note:    fmt.Sprintf("quote submitted: %s", FormatNaira(amount)),
		Updates: map[string]any{"quoted_amount": amount},
	})
}

// RequestInspection asks for a paid inspection before a firm quote.
func (s *Service) RequestInspection(ctx context.Context, actor types.Actor, jobID string, fee, estimate int64) (*models.Job, error) {
	if fee <= 0 {
		return nil, apperr.Validation("inspection fee must be positive")
	}
	if estimate <= 0 {
		return nil, apperr.Validation("estimated amount must be positive")
	}
	job, err := s.jobForArtisan(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, Transition{
		JobID:   jobID,
		From:    job.Status,
		To:      types.JobStatusInspectionRequested,
		ActorID: actor.ID,
		Note:    fmt.Sprintf("inspection requested: fee %s, estimate %s", FormatNaira(fee), FormatNaira(estimate)),
		Updates: map[string]any{
			"requires_inspection": true,
			"inspection_fee":      fee,
			"quoted_amount":       estimate,
		},
	})
}

func (s *Service) AcceptQuote(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	job, err := s.jobForCustomer(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.QuotedAmount == nil || *job.QuotedAmount <= 0 {
		return nil, apperr.InvalidTransition("job has no quote to accept")
	}
	return s.Apply(ctx, Transition{
		JobID:   jobID,
		From:    job.Status,
		To:      types.JobStatusPriceAgreed,
		ActorID: actor.ID,
		Note:    fmt.Sprintf("quote accepted: %s", FormatNaira(*job.QuotedAmount)),
	})
}

// StartWork needs the job payment in escrow first.
func (s *Service) StartWork(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	job, err := s.jobForArtisan(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusPaymentEscrowed {
		return nil, apperr.InvalidTransition("job is %s, work starts once payment is escrowed", job.Status)
	}
	return s.Apply(ctx, Transition{
		JobID:   jobID,
		From:    types.JobStatusPaymentEscrowed,
		To:      types.JobStatusInProgress,
		ActorID: actor.ID,
		Note:    "work started",
	})
}

type CompleteRequest struct {
	BeforePhotos []string `json:"before_photos"`
	AfterPhotos  []string `json:"after_photos"`
}

func (s *Service) MarkCompleted(ctx context.Context, actor types.Actor, jobID string, req CompleteRequest) (*models.Job, error) {
	job, err := s.jobForArtisan(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.JobStatusPaymentEscrowed && job.Status != types.JobStatusInProgress {
		return nil, apperr.InvalidTransition("job is %s, only escrowed or in-progress jobs can be completed", job.Status)
	}
	updates := map[string]any{"completed_at": s.now()}
	if len(req.BeforePhotos) > 0 {
		updates["before_photos"] = datatypes.JSONSlice[string](lo.Compact(req.BeforePhotos))
	}
	if len(req.AfterPhotos) > 0 {
		updates["after_photos"] = datatypes.JSONSlice[string](lo.Compact(req.AfterPhotos))
	}
	return s.Apply(ctx, Transition{
		JobID:   jobID,
		From:    job.Status,
		To:      types.JobStatusCompleted,
		ActorID: actor.ID,
		Note:    "work marked completed",
		Updates: updates,
	})
}

// CancelJob is an admin action from any state that has a cancel edge.
// Held escrow stays held; refunds go through the dispute path.
func (s *Service) CancelJob(ctx context.Context, actor types.Actor, jobID, reason string) (*models.Job, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can cancel jobs")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("cancellation reason is required")
	}

	var job *models.Job
	var from types.JobStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		from = current.Status
		job, err = s.ApplyTx(ctx, tx, cancelTransition(jobID, from, actor.ID, reason, s.now()))
		if err != nil {
			return err
		}
		if err := s.warnHeldEscrow(ctx, tx, jobID); err != nil {
			return err
		}
		_, err = audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionCancelJob,
			TargetType: models.AuditTargetJob,
			TargetID:   jobID,
			Details:    map[string]any{"reason": reason, "from_status": string(from)},
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, job, from, types.JobStatusCancelled)
	return job, nil
}

// CancelUnassigned is the timeout cancellation driven by the sweeper.
func (s *Service) CancelUnassigned(ctx context.Context, jobID, reason string) (*models.Job, error) {
	return s.Apply(ctx, cancelTransition(jobID, types.JobStatusPending, types.SystemActorID, reason, s.now()))
}

func cancelTransition(jobID string, from types.JobStatus, actorID, reason string, at time.Time) Transition {
	return Transition{
		JobID:   jobID,
		From:    from,
		To:      types.JobStatusCancelled,
		ActorID: actorID,
		Note:    reason,
		Updates: map[string]any{
			"cancellation_reason": reason,
			"cancelled_at":        at,
		},
	}
}

func (s *Service) warnHeldEscrow(ctx context.Context, tx *gorm.DB, jobID string) error {
	var held int64
	err := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("job_id = ? AND payment_type = ? AND status = ?", jobID, types.PaymentTypeJobPayment, types.PaymentStatusHeld).
		Count(&held).Error
	if err != nil {
		return fmt.Errorf("failed to check escrow on cancel: %w", err)
	}
	if held > 0 {
		logctx.FromCtx(ctx, s.log).Warnw("job_cancelled_with_held_escrow", "job_id", jobID, "held_payments", held)
	}
	return nil
}

func (s *Service) jobForArtisan(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	job, err := loadJob(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if actor.Role != types.RoleArtisan || !job.IsArtisan(actor.ID) {
		return nil, apperr.Unauthorized("only the assigned artisan can do this")
	}
	return job, nil
}

func (s *Service) jobForCustomer(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	job, err := loadJob(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if actor.Role != types.RoleCustomer || !job.IsCustomer(actor.ID) {
		return nil, apperr.Unauthorized("only the job's customer can do this")
	}
	return job, nil
}

// FormatNaira renders kobo as a naira amount, e.g. 1500000 => "₦15,000.00".
func FormatNaira(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign = "-"
		kobo = -kobo
	}
	whole := fmt.Sprintf("%d", kobo/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s₦%s.%02d", sign, b.String(), kobo%100)
}
