package dispute_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/servicetest"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type reviewSink struct {
	mu  sync.Mutex
	got []*models.Review
}

func (r *reviewSink) ReviewCreated(_ context.Context, review *models.Review) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, review)
}

func setup(t *testing.T, observers ...dispute.ReviewObserver) (*servicetest.Env, *payment.Service, *dispute.Service) {
	env := servicetest.NewEnv(t)
	payments := env.Payments(t, &servicetest.Gateway{})
	svc := dispute.New(dispute.Params{DB: env.DB, Log: env.Log, Ledger: env.Ledger, Observers: observers})
	return env, payments, svc
}

func TestOpenDisputeWithinGuarantee(t *testing.T) {
	env, payments, svc := setup(t)
	ctx := context.Background()
	job := env.ConfirmedJob(t, payments, 800000)

	_, err := svc.Open(ctx, servicetest.Stranger, job.ID, "leak is back")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Open(ctx, servicetest.Customer, job.ID, "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	env.Clock.Advance(29 * 24 * time.Hour)
	d, err := svc.Open(ctx, servicetest.Customer, job.ID, "leak is back")
	require.NoError(t, err)
	require.Equal(t, types.DisputeStatusOpen, d.Status)
	require.Equal(t, servicetest.Artisan.ID, d.ArtisanID)
	require.Equal(t, types.JobStatusDisputed, env.Job(t, job.ID).Status)
	require.Equal(t, 1, env.HistoryTo(t, job.ID, types.JobStatusDisputed))

	_, err = svc.Open(ctx, servicetest.Customer, job.ID, "again")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := svc.ForJob(ctx, servicetest.Artisan, job.ID)
	require.NoError(t, err)
	require.Equal(t, d.ID, got.ID)
}

func TestDisputeAfterExpiry(t *testing.T) {
	env, payments, svc := setup(t)
	job := env.ConfirmedJob(t, payments, 800000)

	env.Clock.Advance(30*24*time.Hour + time.Second)
	_, err := svc.Open(context.Background(), servicetest.Customer, job.ID, "too late")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.Equal(t, types.JobStatusConfirmed, env.Job(t, job.ID).Status)

	var disputes int64
	require.NoError(t, env.DB.Model(&models.Dispute{}).Count(&disputes).Error)
	require.Zero(t, disputes)
}

func TestDisputeNeedsConfirmedJob(t *testing.T) {
	env, _, svc := setup(t)
	job := env.CompletedJob(t, 800000)
	_, err := svc.Open(context.Background(), servicetest.Customer, job.ID, "not done")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestResolveDispute(t *testing.T) {
	env, payments, svc := setup(t)
	ctx := context.Background()
	job := env.ConfirmedJob(t, payments, 800000)
	d, err := svc.Open(ctx, servicetest.Customer, job.ID, "leak is back")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, servicetest.Customer, dispute.ResolveRequest{DisputeID: d.ID, Status: types.DisputeStatusResolved})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Resolve(ctx, servicetest.Admin, dispute.ResolveRequest{DisputeID: d.ID, Status: types.DisputeStatusOpen})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Resolve(ctx, servicetest.Admin, dispute.ResolveRequest{DisputeID: "missing", Status: types.DisputeStatusClosed})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	resolved, err := svc.Resolve(ctx, servicetest.Admin, dispute.ResolveRequest{DisputeID: d.ID, Status: types.DisputeStatusResolved, Notes: "artisan revisited"})
	require.NoError(t, err)
	require.Equal(t, types.DisputeStatusResolved, resolved.Status)
	require.Equal(t, servicetest.Admin.ID, *resolved.ResolvedBy)
	require.Equal(t, "artisan revisited", *resolved.ResolutionNotes)
	require.NotNil(t, resolved.ResolvedAt)
	require.Equal(t, types.JobStatusDisputed, env.Job(t, job.ID).Status)

	_, err = svc.Resolve(ctx, servicetest.Admin, dispute.ResolveRequest{DisputeID: d.ID, Status: types.DisputeStatusClosed})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	open := types.DisputeStatusOpen
	rows, err := svc.List(ctx, servicetest.Admin, dispute.ListRequest{Status: &open})
	require.NoError(t, err)
	require.Empty(t, rows)
	rows, err = svc.List(ctx, servicetest.Admin, dispute.ListRequest{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSubmitReview(t *testing.T) {
	sink := &reviewSink{}
	env, payments, svc := setup(t, sink)
	ctx := context.Background()

	completed := env.CompletedJob(t, 800000)
	_, err := svc.SubmitReview(ctx, servicetest.Customer, completed.ID, dispute.ReviewRequest{Rating: 5})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	job, err := payments.Release(ctx, servicetest.Customer, completed.ID)
	require.NoError(t, err)

	_, err = svc.SubmitReview(ctx, servicetest.Customer, job.ID, dispute.ReviewRequest{Rating: 6})
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.SubmitReview(ctx, servicetest.Stranger, job.ID, dispute.ReviewRequest{Rating: 4})
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	review, err := svc.SubmitReview(ctx, servicetest.Customer, job.ID, dispute.ReviewRequest{Rating: 4, Comment: "tidy work"})
	require.NoError(t, err)
	require.Equal(t, servicetest.Artisan.ID, review.ArtisanID)
	require.Len(t, sink.got, 1)

	_, err = svc.SubmitReview(ctx, servicetest.Customer, job.ID, dispute.ReviewRequest{Rating: 1})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}
