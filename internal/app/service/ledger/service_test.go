package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/servicetest"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type recordedTransition struct {
	jobID    string
	from, to types.JobStatus
}

type recorder struct {
	mu  sync.Mutex
	got []recordedTransition
}

func (r *recorder) JobTransitioned(_ context.Context, job *models.Job, from, to types.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, recordedTransition{jobID: job.ID, from: from, to: to})
}

func TestApplyRejectsIllegalEdge(t *testing.T) {
	env := servicetest.NewEnv(t)
	job := env.PendingJob(t)

	_, err := env.Ledger.Apply(context.Background(), ledger.Transition{
		JobID: job.ID, From: types.JobStatusPending, To: types.JobStatusCompleted, ActorID: types.SystemActorID,
	})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.Equal(t, types.JobStatusPending, env.Job(t, job.ID).Status)
	require.Len(t, env.History(t, job.ID), 1)
}

func TestApplyLosesRaceWhenStatusMoved(t *testing.T) {
	env := servicetest.NewEnv(t)
	job := env.AssignedJob(t)

	// stale caller still believes the job is pending
	_, err := env.Ledger.Apply(context.Background(), ledger.Transition{
		JobID: job.ID, From: types.JobStatusPending, To: types.JobStatusCancelled, ActorID: types.SystemActorID,
	})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.Equal(t, types.JobStatusAssigned, env.Job(t, job.ID).Status)
	require.Equal(t, 0, env.HistoryTo(t, job.ID, types.JobStatusCancelled))
}

func TestApplyUnknownJob(t *testing.T) {
	env := servicetest.NewEnv(t)
	_, err := env.Ledger.Apply(context.Background(), ledger.Transition{
		JobID: "missing", From: types.JobStatusPending, To: types.JobStatusCancelled, ActorID: types.SystemActorID,
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApplyWritesHistoryAndNotifies(t *testing.T) {
	rec := &recorder{}
	env := servicetest.NewEnv(t, rec)
	job := env.PendingJob(t)

	updated, err := env.Ledger.Apply(context.Background(), ledger.Transition{
		JobID:   job.ID,
		From:    types.JobStatusPending,
		To:      types.JobStatusCancelled,
		ActorID: types.SystemActorID,
		Note:    "no artisan",
		Updates: map[string]any{"cancellation_reason": "no artisan"},
	})
	require.NoError(t, err)
	require.Equal(t, types.JobStatusCancelled, updated.Status)
	require.NotNil(t, updated.CancellationReason)
	require.Equal(t, "no artisan", *updated.CancellationReason)

	rows := env.History(t, job.ID)
	require.Len(t, rows, 2)
	require.Nil(t, rows[0].OldStatus)
	require.Equal(t, types.JobStatusPending, *rows[1].OldStatus)
	require.Equal(t, types.JobStatusCancelled, rows[1].NewStatus)
	require.Equal(t, types.SystemActorID, rows[1].ChangedBy)
	require.Equal(t, "no artisan", *rows[1].Notes)

	require.Len(t, rec.got, 2)
	require.Equal(t, recordedTransition{jobID: job.ID, from: "", to: types.JobStatusPending}, rec.got[0])
	require.Equal(t, recordedTransition{jobID: job.ID, from: types.JobStatusPending, to: types.JobStatusCancelled}, rec.got[1])
}

func TestFailedApplyDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	env := servicetest.NewEnv(t, rec)
	job := env.PendingJob(t)

	_, err := env.Ledger.Apply(context.Background(), ledger.Transition{
		JobID: job.ID, From: types.JobStatusAssigned, To: types.JobStatusQuoted, ActorID: types.SystemActorID,
	})
	require.Error(t, err)
	require.Len(t, rec.got, 1)
}

func TestReplayMatchesStoredStatus(t *testing.T) {
	env := servicetest.NewEnv(t)
	ctx := context.Background()
	job := env.InspectionRequestedJob(t, 500000, 2500000)

	_, err := env.Ledger.Apply(ctx, ledger.Transition{
		JobID: job.ID, From: types.JobStatusInspectionRequested, To: types.JobStatusInspectionPaid, ActorID: servicetest.Customer.ID,
	})
	require.NoError(t, err)
	_, err = env.Ledger.SubmitQuote(ctx, servicetest.Artisan, job.ID, 3000000)
	require.NoError(t, err)
	_, err = env.Ledger.AcceptQuote(ctx, servicetest.Customer, job.ID)
	require.NoError(t, err)

	replay, err := ledger.ReplayHistory(env.History(t, job.ID))
	require.NoError(t, err)
	require.Equal(t, env.Job(t, job.ID).Status, replay.Status)
	require.Equal(t, types.JobStatusPriceAgreed, replay.Status)
	require.Equal(t, 5, replay.Transitions)

	v, err := env.Ledger.VerifyHistory(ctx, servicetest.Admin, job.ID)
	require.NoError(t, err)
	require.True(t, v.Consistent)
	require.Empty(t, v.Problem)
}

func TestVerifyHistoryFlagsDrift(t *testing.T) {
	env := servicetest.NewEnv(t)
	job := env.PendingJob(t)
	// a write that bypassed the ledger
	require.NoError(t, env.DB.Model(&models.Job{}).Where("id = ?", job.ID).Update("status", types.JobStatusQuoted).Error)

	v, err := env.Ledger.VerifyHistory(context.Background(), servicetest.Admin, job.ID)
	require.NoError(t, err)
	require.False(t, v.Consistent)
	require.Equal(t, types.JobStatusPending, v.Replayed)
	require.Equal(t, types.JobStatusQuoted, v.CurrentStatus)

	_, err = env.Ledger.VerifyHistory(context.Background(), servicetest.Customer, job.ID)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestStartWork(t *testing.T) {
	env := servicetest.NewEnv(t)
	payments := env.Payments(t, &servicetest.Gateway{})
	ctx := context.Background()

	require.False(t, types.JobStatusPriceAgreed.CanTransitionTo(types.JobStatusInProgress))

	agreed := env.PriceAgreedJob(t, 800000)
	_, err := env.Ledger.StartWork(ctx, servicetest.Artisan, agreed.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.Equal(t, types.JobStatusPriceAgreed, env.Job(t, agreed.ID).Status)

	job, _ := env.EscrowedJob(t, payments, 800000)
	_, err = env.Ledger.StartWork(ctx, servicetest.Customer, job.ID)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = env.Ledger.StartWork(ctx, types.Actor{ID: "artisan-2", Role: types.RoleArtisan}, job.ID)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	started, err := env.Ledger.StartWork(ctx, servicetest.Artisan, job.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusInProgress, started.Status)
	require.Equal(t, 1, env.HistoryTo(t, job.ID, types.JobStatusInProgress))

	_, err = env.Ledger.StartWork(ctx, servicetest.Artisan, job.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.Equal(t, 1, env.HistoryTo(t, job.ID, types.JobStatusInProgress))
}
