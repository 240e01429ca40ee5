package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// ReviewObserver is told about new reviews so artisan ratings can be refreshed.
type ReviewObserver interface {
	ReviewCreated(ctx context.Context, review *models.Review)
}

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	ledger    *ledger.Service
	observers []ReviewObserver
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.SugaredLogger
	Ledger    *ledger.Service
	Observers []ReviewObserver `group:"review_observers"`
}

func New(p Params) *Service {
	return &Service{db: p.DB, log: p.Log, ledger: p.Ledger, observers: p.Observers}
}

// Open raises a dispute on a confirmed job inside its guarantee window and
// moves the job to disputed.
func (s *Service) Open(ctx context.Context, actor types.Actor, jobID, reason string) (*models.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	if actor.Role != types.RoleCustomer {
		return nil, apperr.Unauthorized("only the job's customer can open a dispute")
	}

	var d *models.Dispute
	var job *models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ledger.LoadJobTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if !current.IsCustomer(actor.ID) {
			return apperr.Unauthorized("only the job's customer can open a dispute")
		}
		if current.Status != types.JobStatusConfirmed {
			return apperr.InvalidTransition("job is %s, disputes need a confirmed job", current.Status)
		}
		now := s.ledger.Now()
		if current.GuaranteeExpiresAt == nil || !now.Before(*current.GuaranteeExpiresAt) {
			return apperr.InvalidTransition("the guarantee window for this job has closed")
		}

		d = &models.Dispute{
			ID:         tool.GenerateUUIDV7(),
			JobID:      jobID,
			CustomerID: current.CustomerID,
			ArtisanID:  *current.ArtisanID,
			Reason:     reason,
			Status:     types.DisputeStatusOpen,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(d).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.InvalidTransition("a dispute already exists for this job")
			}
			return fmt.Errorf("failed to create dispute: %w", err)
		}
		job, err = s.ledger.ApplyTx(ctx, tx, ledger.Transition{
			JobID:   jobID,
			From:    types.JobStatusConfirmed,
			To:      types.JobStatusDisputed,
			ActorID: actor.ID,
			Note:    "dispute opened: " + reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.ledger.Notify(ctx, job, types.JobStatusConfirmed, types.JobStatusDisputed)
	metrics.Event("dispute", "opened")
	logctx.FromCtx(ctx, s.log).Infow("dispute_opened", "dispute_id", d.ID, "job_id", jobID)
	return d, nil
}

type ResolveRequest struct {
	DisputeID string              `json:"-"`
	Status    types.DisputeStatus `json:"status" binding:"required"`
	Notes     string              `json:"notes"`
	SourceIP  string              `json:"-"`
}

// Resolve closes an open dispute. The job stays disputed; money moves only
// through an explicit refund.
func (s *Service) Resolve(ctx context.Context, actor types.Actor, req ResolveRequest) (*models.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can resolve disputes")
	}
	if !req.Status.IsResolution() {
		return nil, apperr.Validation("status must be resolved or closed")
	}

	var d *models.Dispute
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		d, err = loadDispute(ctx, tx, req.DisputeID)
		if err != nil {
			return err
		}
		if d.Status != types.DisputeStatusOpen {
			return apperr.InvalidTransition("dispute is already %s", d.Status)
		}
		now := s.ledger.Now()
		updates := map[string]any{
			"status":      req.Status,
			"resolved_by": actor.ID,
			"resolved_at": now,
			"updated_at":  now,
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			updates["resolution_notes"] = notes
		}
		res := tx.Model(&models.Dispute{}).
			Where("id = ? AND status = ?", d.ID, types.DisputeStatusOpen).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to resolve dispute: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidTransition("dispute changed concurrently")
		}
		_, err = audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionResolveDispute,
			TargetType: models.AuditTargetDispute,
			TargetID:   d.ID,
			SourceIP:   req.SourceIP,
			Details:    map[string]any{"job_id": d.JobID, "status": string(req.Status), "notes": req.Notes},
			At:         now,
		})
		if err != nil {
			return err
		}
		d, err = loadDispute(ctx, tx, d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.Event("dispute", string(req.Status))
	logctx.FromCtx(ctx, s.log).Infow("dispute_resolved", "dispute_id", d.ID, "status", d.Status, "admin_id", actor.ID)
	return d, nil
}

func (s *Service) ForJob(ctx context.Context, actor types.Actor, jobID string) (*models.Dispute, error) {
	if _, err := s.ledger.Get(ctx, actor, jobID); err != nil {
		return nil, err
	}
	var d models.Dispute
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job %s has no dispute", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	return &d, nil
}

type ListRequest struct {
	Status *types.DisputeStatus `form:"status"`
	Limit  int                  `form:"limit"`
	Offset int                  `form:"offset"`
}

func (s *Service) List(ctx context.Context, actor types.Actor, req ListRequest) ([]*models.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	q := s.db.WithContext(ctx).Model(&models.Dispute{})
	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []*models.Dispute
	if err := q.Order("created_at DESC").Limit(limit).Offset(req.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	return rows, nil
}

func loadDispute(ctx context.Context, tx *gorm.DB, id string) (*models.Dispute, error) {
	var d models.Dispute
	err := tx.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("dispute %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dispute: %w", err)
	}
	return &d, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
