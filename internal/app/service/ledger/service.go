package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// Observer is notified after a transition has committed.
type Observer interface {
	JobTransitioned(ctx context.Context, job *models.Job, from, to types.JobStatus)
}

// Eligibility checks that an artisan may be assigned to a job location.
type Eligibility interface {
	Eligible(ctx context.Context, tx *gorm.DB, artisanUserID string, point types.GeoPoint) error
}

// Transition is one compare-and-swap on a job's status. Updates carries the
// extra columns written together with the status.
type Transition struct {
	JobID   string
	From    types.JobStatus
	To      types.JobStatus
	ActorID string
	Note    string
	Updates map[string]any
}

type Service struct {
	db          *gorm.DB
	log         *zap.SugaredLogger
	cfg         *config.Config
	eligibility Eligibility
	observers   []Observer
	now         func() time.Time
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.SugaredLogger
	Config      *config.Config
	Eligibility Eligibility
	Observers   []Observer `group:"job_observers"`
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log,
		cfg:         p.Config,
		eligibility: p.Eligibility,
		observers:   p.Observers,
		now:         tool.NowUTC,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Now() time.Time { return s.now() }

// Apply runs t in its own database transaction and notifies observers on commit.
func (s *Service) Apply(ctx context.Context, t Transition) (*models.Job, error) {
	var job *models.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = s.ApplyTx(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, job, t.From, t.To)
	return job, nil
}

// ApplyTx performs the compare-and-swap and appends the history row inside
// the caller's transaction. The caller must call Notify after commit.
func (s *Service) ApplyTx(ctx context.Context, tx *gorm.DB, t Transition) (*models.Job, error) {
	log := logctx.FromCtx(ctx, s.log)
	if !t.From.CanTransitionTo(t.To) {
		metrics.Event("job_transition", "illegal_edge")
		return nil, apperr.InvalidTransition("cannot move job from %s to %s", t.From, t.To)
	}

	now := s.now()
	updates := make(map[string]any, len(t.Updates)+2)
	for k, v := range t.Updates {
		updates[k] = v
	}
	updates["status"] = t.To
	updates["updated_at"] = now

	res := tx.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", t.JobID, t.From).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update job status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := loadJob(ctx, tx, t.JobID)
		if err != nil {
			return nil, err
		}
		metrics.Event("job_transition", "lost_race")
		log.Infow("job_transition_rejected", "job_id", t.JobID, "expected", t.From, "actual", current.Status, "to", t.To)
		return nil, apperr.InvalidTransition("job status has moved on: expected %s, found %s", t.From, current.Status)
	}

	if err := s.appendHistory(ctx, tx, t.JobID, &t.From, t.To, t.ActorID, t.Note, now); err != nil {
		return nil, err
	}

	job, err := loadJob(ctx, tx, t.JobID)
	if err != nil {
		return nil, err
	}
	metrics.Event("job_transition", string(t.To))
	log.Infow("job_transition", "job_id", t.JobID, "from", t.From, "to", t.To, "actor_id", t.ActorID)
	return job, nil
}

// AnnotateTx appends a history row that does not move the job, for financial
// events such as a refund on a disputed job.
func (s *Service) AnnotateTx(ctx context.Context, tx *gorm.DB, job *models.Job, actorID, note string) error {
	status := job.Status
	return s.appendHistory(ctx, tx, job.ID, &status, status, actorID, note, s.now())
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, jobID string, from *types.JobStatus, to types.JobStatus, actorID, note string, at time.Time) error {
	row := &models.JobStatusHistory{
		ID:        tool.GenerateUUIDV7(),
		JobID:     jobID,
		OldStatus: from,
		NewStatus: to,
		ChangedBy: actorID,
		CreatedAt: at,
	}
	if note != "" {
		row.Notes = &note
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to append job status history: %w", err)
	}
	return nil
}

// Notify fans a committed transition out to observers.
func (s *Service) Notify(ctx context.Context, job *models.Job, from, to types.JobStatus) {
	if job == nil {
		return
	}
	for _, o := range s.observers {
		o.JobTransitioned(ctx, job, from, to)
	}
}

func loadJob(ctx context.Context, tx *gorm.DB, id string) (*models.Job, error) {
	var job models.Job
	err := tx.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

// LoadJobTx reads a job inside tx.
func LoadJobTx(ctx context.Context, tx *gorm.DB, id string) (*models.Job, error) {
	return loadJob(ctx, tx, id)
}
