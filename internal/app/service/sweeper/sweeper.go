package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const (
	CancelReason = "no artisan assigned within timeout"
	batchSize    = 200
)

type Report struct {
	Scanned   int `json:"scanned"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	ledger  *ledger.Service
	timeout time.Duration
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config, l *ledger.Service) *Service {
	return &Service{db: db, log: log, ledger: l, timeout: cfg.Escrow.UnassignedTimeout()}
}

// Sweep cancels pending, unassigned jobs older than the timeout. Jobs that
// moved on since the scan lose the compare-and-swap and are skipped, so
// overlapping or repeated sweeps are safe.
func (s *Service) Sweep(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Now()
	defer metrics.ObserveSince("sweeper", "sweep", start)
	log := logctx.FromCtx(ctx, s.log)
	cutoff := now.Add(-s.timeout)

	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("status = ? AND artisan_id IS NULL AND created_at < ?", types.JobStatusPending, cutoff).
		Order("created_at ASC").
		Limit(batchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale jobs: %w", err)
	}

	report := &Report{Scanned: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		_, err := s.ledger.CancelUnassigned(ctx, id, CancelReason)
		switch {
		case err == nil:
			report.Cancelled++
		case apperr.KindOf(err) == apperr.KindInvalidTransition:
			report.Skipped++
		default:
			log.Errorw("sweep_cancel_failed", "job_id", id, "err", err)
			return report, err
		}
	}
	metrics.Event("sweeper", "run")
	if report.Cancelled > 0 {
		log.Infow("sweep_completed", "scanned", report.Scanned, "cancelled", report.Cancelled, "skipped", report.Skipped)
	}
	return report, nil
}

// Runner drives Sweep on a ticker for the life of the process.
type Runner struct {
	svc      *Service
	log      *zap.SugaredLogger
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewRunner(svc *Service, l *ledger.Service, cfg *config.Config, log *zap.SugaredLogger) *Runner {
	return &Runner{svc: svc, log: log, interval: cfg.Escrow.SweepInterval(), now: l.Now}
}

func (r *Runner) Start() {
	if r.interval <= 0 {
		r.log.Warnw("sweeper_disabled", "interval", r.interval)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.svc.Sweep(ctx, r.now()); err != nil && ctx.Err() == nil {
					r.log.Errorw("sweep_failed", "err", err)
				}
			}
		}
	}()
	r.log.Infow("sweeper_started", "interval", r.interval.String())
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

var Module = fx.Options(
	fx.Provide(New),
)

// RunnerModule starts the background ticker; only the serve command wires it.
var RunnerModule = fx.Options(
	fx.Provide(NewRunner),
	fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { r.Start(); return nil },
			OnStop:  func(context.Context) error { r.Stop(); return nil },
		})
	}),
)
