package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/servicetest"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

func TestSweepCancelsStaleUnassignedJobs(t *testing.T) {
	env := servicetest.NewEnv(t)
	svc := sweeper.New(env.DB, env.Log, env.Config, env.Ledger)
	ctx := context.Background()

	stale := env.PendingJob(t)
	assigned := env.AssignedJob(t)
	env.Clock.Advance(2 * time.Hour)
	fresh := env.PendingJob(t)

	env.Clock.Advance(22*time.Hour + time.Minute) // stale is 24h1m old
	report, err := svc.Sweep(ctx, env.Clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, report.Cancelled)

	job := env.Job(t, stale.ID)
	require.Equal(t, types.JobStatusCancelled, job.Status)
	require.Equal(t, sweeper.CancelReason, *job.CancellationReason)
	rows := env.History(t, stale.ID)
	require.Equal(t, types.SystemActorID, rows[len(rows)-1].ChangedBy)

	require.Equal(t, types.JobStatusAssigned, env.Job(t, assigned.ID).Status)
	require.Equal(t, types.JobStatusPending, env.Job(t, fresh.ID).Status)

	// a second sweep finds nothing new
	report, err = svc.Sweep(ctx, env.Clock.Now())
	require.NoError(t, err)
	require.Zero(t, report.Cancelled)
	require.Equal(t, 1, env.HistoryTo(t, stale.ID, types.JobStatusCancelled))
}

func TestSweepBeforeTimeoutIsNoop(t *testing.T) {
	env := servicetest.NewEnv(t)
	svc := sweeper.New(env.DB, env.Log, env.Config, env.Ledger)
	job := env.PendingJob(t)

	env.Clock.Advance(23*time.Hour + 59*time.Minute)
	report, err := svc.Sweep(context.Background(), env.Clock.Now())
	require.NoError(t, err)
	require.Zero(t, report.Scanned)
	require.Equal(t, types.JobStatusPending, env.Job(t, job.ID).Status)
}

func TestRunnerStopsCleanly(t *testing.T) {
	env := servicetest.NewEnv(t)
	env.Config.Escrow.SweepIntervalMinutes = 1
	svc := sweeper.New(env.DB, env.Log, env.Config, env.Ledger)
	r := sweeper.NewRunner(svc, env.Ledger, env.Config, env.Log)
	r.Start()
	r.Stop()
}
