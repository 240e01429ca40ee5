package artisanstats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

var completedStatuses = []types.JobStatus{types.JobStatusCompleted, types.JobStatusConfirmed, types.JobStatusDisputed}

// Service keeps the artisan profile aggregates. Every refresh is a full
// recount, so running one twice or out of order converges.
type Service struct {
	db       *gorm.DB
	log      *zap.SugaredLogger
	pool     *workerpool.WorkerPool
	inflight sync.WaitGroup
	now      func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config) *Service {
	size := cfg.Workers.StatsPoolSize
	if size <= 0 {
		size = 1
	}
	return &Service{db: db, log: log, pool: workerpool.New(size), now: tool.NowUTC}
}

type counts struct {
	Total     int64
	Completed int64
	Cancelled int64
}

type rating struct {
	Average float64
	Count   int64
}

// Recompute rewrites every aggregate of the artisan in one update.
func (s *Service) Recompute(ctx context.Context, artisanUserID string) (*models.ArtisanProfile, error) {
	start := time.Now()
	defer metrics.ObserveSince("artisan_stats", "recompute", start)

	var profile models.ArtisanProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", artisanUserID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("artisan %s not found", artisanUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artisan profile: %w", err)
	}

	var c counts
	err = s.db.WithContext(ctx).Model(&models.Job{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS completed, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled",
			completedStatuses, types.JobStatusCancelled).
		Where("artisan_id = ?", artisanUserID).
		Scan(&c).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count artisan jobs: %w", err)
	}

	var r rating
	err = s.db.WithContext(ctx).Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("artisan_id = ?", artisanUserID).
		Scan(&r).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	var violations int64
	if err := s.db.WithContext(ctx).Model(&models.ArtisanViolation{}).Where("artisan_id = ?", artisanUserID).Count(&violations).Error; err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}

	now := s.now()
	updates := map[string]any{
		"total_jobs":         c.Total,
		"completed_jobs":     c.Completed,
		"cancelled_jobs":     c.Cancelled,
		"average_rating":     r.Average,
		"rating_count":       r.Count,
		"violation_count":    violations,
		"stats_refreshed_at": now,
		"updated_at":         now,
	}
	if err := s.db.WithContext(ctx).Model(&models.ArtisanProfile{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to store artisan stats: %w", err)
	}
	profile.TotalJobs = int(c.Total)
	profile.CompletedJobs = int(c.Completed)
	profile.CancelledJobs = int(c.Cancelled)
	profile.AverageRating = r.Average
	profile.RatingCount = int(r.Count)
	profile.ViolationCount = int(violations)
	profile.StatsRefreshedAt = &now
	return &profile, nil
}

// Schedule queues a recompute on the worker pool.
func (s *Service) Schedule(ctx context.Context, artisanUserID string) {
	if artisanUserID == "" {
		return
	}
	log := logctx.FromCtx(ctx, s.log)
	s.inflight.Add(1)
	s.pool.Submit(func() {
		defer s.inflight.Done()
		if _, err := s.Recompute(context.Background(), artisanUserID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return
			}
			metrics.Event("artisan_stats", "recompute_failed")
			log.Errorw("artisan_stats_recompute_failed", "artisan_id", artisanUserID, "err", err)
		}
	})
}

// JobTransitioned refreshes the assigned artisan after a committed transition.
func (s *Service) JobTransitioned(ctx context.Context, job *models.Job, _, _ types.JobStatus) {
	s.Schedule(ctx, lo.FromPtr(job.ArtisanID))
}

func (s *Service) ReviewCreated(ctx context.Context, review *models.Review) {
	s.Schedule(ctx, review.ArtisanID)
}

// Wait blocks until every scheduled recompute has run.
func (s *Service) Wait() { s.inflight.Wait() }

func (s *Service) Stop() {
	s.inflight.Wait()
	s.pool.StopWait()
}

type ViolationRequest struct {
	JobID    *string             `json:"job_id"`
	Type     types.ViolationType `json:"type" binding:"required"`
	Notes    string              `json:"notes"`
	SourceIP string              `json:"-"`
}

func (s *Service) ReportViolation(ctx context.Context, actor types.Actor, artisanUserID string, req ViolationRequest) (*models.ArtisanViolation, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can report violations")
	}
	if !req.Type.IsValid() {
		return nil, apperr.Validation("unknown violation type %q", req.Type)
	}
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.ArtisanProfile{}).Where("user_id = ?", artisanUserID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("failed to load artisan profile: %w", err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("artisan %s not found", artisanUserID)
	}

	v := &models.ArtisanViolation{
		ID:         tool.GenerateUUIDV7(),
		ArtisanID:  artisanUserID,
		JobID:      req.JobID,
		Type:       req.Type,
		ReportedBy: actor.ID,
		Notes:      lo.EmptyableToPtr(strings.TrimSpace(req.Notes)),
		CreatedAt:  s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("failed to record violation: %w", err)
		}
		_, err := audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionReportViolation,
			TargetType: models.AuditTargetArtisan,
			TargetID:   artisanUserID,
			SourceIP:   req.SourceIP,
			Details:    map[string]any{"violation_id": v.ID, "type": string(v.Type)},
			At:         v.CreatedAt,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("artisan_violation_reported", "artisan_id", artisanUserID, "type", v.Type)
	s.Schedule(ctx, artisanUserID)
	return v, nil
}

type PerformanceRequest struct {
	SortBy string `form:"sort_by"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

var performanceSort = map[string]string{
	"":               "completed_jobs DESC",
	"completed_jobs": "completed_jobs DESC",
	"average_rating": "average_rating DESC",
	"violations":     "violation_count DESC",
	"cancelled_jobs": "cancelled_jobs DESC",
}

// Performance is the admin view of artisan aggregates.
func (s *Service) Performance(ctx context.Context, actor types.Actor, req PerformanceRequest) ([]*models.ArtisanProfile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	order, ok := performanceSort[req.SortBy]
	if !ok {
		return nil, apperr.Validation("unsupported sort %q", req.SortBy)
	}
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []*models.ArtisanProfile
	err := s.db.WithContext(ctx).Order(order).Order("user_id ASC").Limit(limit).Offset(req.Offset).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artisan performance: %w", err)
	}
	return rows, nil
}

var Module = fx.Options(
	fx.Provide(
		New,
		fx.Annotate(
			func(s *Service) ledger.Observer { return s },
			fx.ResultTags(`group:"job_observers"`),
		),
		fx.Annotate(
			func(s *Service) dispute.ReviewObserver { return s },
			fx.ResultTags(`group:"review_observers"`),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Service) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			s.Stop()
			return nil
		}})
	}),
)
