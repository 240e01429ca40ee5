package ledger

import (
	"context"
	"fmt"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// scanFields are the job columns admins may filter on.
var scanFields = []string{"status", "customer_id", "artisan_id", "category_id", "created_at", "updated_at", "guarantee_expires_at", "commission_percent"}

func canView(actor types.Actor, job *models.Job) bool {
	switch actor.Role {
	case types.RoleAdmin:
		return true
	case types.RoleCustomer:
		return job.IsCustomer(actor.ID)
	case types.RoleArtisan:
		return job.IsArtisan(actor.ID)
	}
	return false
}

func (s *Service) Get(ctx context.Context, actor types.Actor, jobID string) (*models.Job, error) {
	job, err := loadJob(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, job) {
		return nil, apperr.Unauthorized("not a participant of this job")
	}
	return job, nil
}

// History returns the job's status history oldest first.
func (s *Service) History(ctx context.Context, actor types.Actor, jobID string) ([]*models.JobStatusHistory, error) {
	if _, err := s.Get(ctx, actor, jobID); err != nil {
		return nil, err
	}
	return s.history(ctx, jobID)
}

func (s *Service) history(ctx context.Context, jobID string) ([]*models.JobStatusHistory, error) {
	var rows []*models.JobStatusHistory
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load job history: %w", err)
	}
	return rows, nil
}

type ListRequest struct {
	Status *types.JobStatus `form:"status" json:"status"`
	Limit  int              `form:"limit" json:"limit"`
	Offset int              `form:"offset" json:"offset"`
}

func (r ListRequest) limit() int {
	if r.Limit <= 0 || r.Limit > 100 {
		return 20
	}
	return r.Limit
}

// ListForActor lists the jobs the actor participates in, newest first.
func (s *Service) ListForActor(ctx context.Context, actor types.Actor, req ListRequest) ([]*models.Job, error) {
	q := s.db.WithContext(ctx).Model(&models.Job{})
	switch actor.Role {
	case types.RoleCustomer:
		q = q.Where("customer_id = ?", actor.ID)
	case types.RoleArtisan:
		q = q.Where("artisan_id = ?", actor.ID)
	case types.RoleAdmin:
	default:
		return nil, apperr.Unauthorized("unknown role")
	}
	if req.Status != nil {
		q = q.Where("status = ?", *req.Status)
	}
	var jobs []*models.Job
	if err := q.Order("created_at DESC").Limit(req.limit()).Offset(req.Offset).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

type ScanRequest struct {
	Filters []*types.CommonFilter `json:"filters"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

type ScanResult struct {
	Jobs  []*models.Job `json:"jobs"`
	Total int64         `json:"total"`
}

// Scan is the admin listing with column filters.
func (s *Service) Scan(ctx context.Context, actor types.Actor, req ScanRequest) (*ScanResult, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	for _, f := range req.Filters {
		if err := f.Validate(scanFields); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}
	where := types.FiltersAnd(req.Filters)

	var out ScanResult
	if err := s.db.WithContext(ctx).Model(&models.Job{}).Where(where).Count(&out.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	limit := ListRequest{Limit: req.Limit}.limit()
	err := s.db.WithContext(ctx).Where(where).
		Order("created_at DESC").Limit(limit).Offset(req.Offset).
		Find(&out.Jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return &out, nil
}

type Verification struct {
	JobID         string          `json:"job_id"`
	CurrentStatus types.JobStatus `json:"current_status"`
	Replayed      types.JobStatus `json:"replayed_status"`
	Transitions   int             `json:"transitions"`
	Annotations   int             `json:"annotations"`
	Consistent    bool            `json:"consistent"`
	Problem       string          `json:"problem,omitempty"`
}

// VerifyHistory replays the job's history and compares it with the stored status.
func (s *Service) VerifyHistory(ctx context.Context, actor types.Actor, jobID string) (*Verification, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	job, err := loadJob(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	rows, err := s.history(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := &Verification{JobID: jobID, CurrentStatus: job.Status}
	replay, err := ReplayHistory(rows)
	out.Replayed, out.Transitions, out.Annotations = replay.Status, replay.Transitions, replay.Annotations
	switch {
	case err != nil:
		out.Problem = err.Error()
	case replay.Status != job.Status:
		out.Problem = fmt.Sprintf("history ends at %s but job is %s", replay.Status, job.Status)
	default:
		out.Consistent = true
	}
	return out, nil
}
