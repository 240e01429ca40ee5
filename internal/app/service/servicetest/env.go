// Package servicetest wires the domain services against an in-memory
// database for package tests.
package servicetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/db/dbtest"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

var (
	Admin    = types.Actor{ID: "admin-1", Role: types.RoleAdmin}
	Customer = types.Actor{ID: "customer-1", Role: types.RoleCustomer}
	Artisan  = types.Actor{ID: "artisan-1", Role: types.RoleArtisan}
	Stranger = types.Actor{ID: "customer-2", Role: types.RoleCustomer}

	LagosIsland = types.GeoPoint{Latitude: 6.4541, Longitude: 3.3947}
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t.UTC()} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

type Env struct {
	DB      *gorm.DB
	Log     *zap.SugaredLogger
	Config  *config.Config
	Clock   *Clock
	Matcher *matcher.Service
	Ledger  *ledger.Service
}

func Config() *config.Config {
	return &config.Config{
		Env:      config.EnvDev,
		Database: config.DBConfig{LogLevel: "silent"},
		Paystack: config.PaystackConfig{SecretKey: "sk_test_secret", EmailDomain: "customers.test", TimeoutSeconds: 5},
		Escrow: config.EscrowConfig{
			CommissionPercent:      20,
			GuaranteeDays:          30,
			UnassignedTimeoutHours: 24,
			SweepIntervalMinutes:   15,
		},
		Vault:     config.VaultConfig{Key: "test-vault-key"},
		RateLimit: config.RateLimitConfig{PaymentInit: "100-M", Submission: "100-M"},
		Workers:   config.WorkersConfig{StatsPoolSize: 1},
	}
}

func NewEnv(t testing.TB, observers ...ledger.Observer) *Env {
	t.Helper()
	db := dbtest.New(t)
	log := dbtest.Logger()
	cfg := Config()
	clock := NewClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	m := matcher.New(db, log)
	l := ledger.New(ledger.Params{DB: db, Log: log, Config: cfg, Eligibility: m, Observers: observers})
	l.SetClock(clock.Now)
	return &Env{DB: db, Log: log, Config: cfg, Clock: clock, Matcher: m, Ledger: l}
}

// ArtisanProfile registers an available artisan at LagosIsland.
func (e *Env) ArtisanProfile(t testing.TB, userID string, mutate ...func(*models.ArtisanProfile)) *models.ArtisanProfile {
	t.Helper()
	p := &models.ArtisanProfile{
		ID:              tool.GenerateUUIDV7(),
		UserID:          userID,
		FullName:        "Ade " + userID,
		Latitude:        LagosIsland.Latitude,
		Longitude:       LagosIsland.Longitude,
		ServiceRadiusKM: 15,
		IsAvailable:     true,
	}
	for _, fn := range mutate {
		fn(p)
	}
	require.NoError(t, e.DB.Create(p).Error)
	return p
}

func (e *Env) PendingJob(t testing.TB) *models.Job {
	t.Helper()
	job, err := e.Ledger.CreateJob(context.Background(), Customer, ledger.CreateJobRequest{
		Title:    "Fix leaking kitchen sink",
		Address:  "12 Marina Rd, Lagos Island",
		Location: LagosIsland,
	})
	require.NoError(t, err)
	return job
}

// AssignedJob creates a pending job and assigns Artisan to it.
func (e *Env) AssignedJob(t testing.TB) *models.Job {
	t.Helper()
	var count int64
	require.NoError(t, e.DB.Model(&models.ArtisanProfile{}).Where("user_id = ?", Artisan.ID).Count(&count).Error)
	if count == 0 {
		e.ArtisanProfile(t, Artisan.ID)
	}
	job := e.PendingJob(t)
	job, err := e.Ledger.AssignArtisan(context.Background(), Admin, job.ID, Artisan.ID)
	require.NoError(t, err)
	return job
}

// PriceAgreedJob drives a job to price_agreed with the given quote.
func (e *Env) PriceAgreedJob(t testing.TB, quote int64) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := e.AssignedJob(t)
	_, err := e.Ledger.SubmitQuote(ctx, Artisan, job.ID, quote)
	require.NoError(t, err)
	job, err = e.Ledger.AcceptQuote(ctx, Customer, job.ID)
	require.NoError(t, err)
	return job
}

// InspectionRequestedJob drives a job to inspection_requested.
func (e *Env) InspectionRequestedJob(t testing.TB, fee, estimate int64) *models.Job {
	t.Helper()
	job := e.AssignedJob(t)
	job, err := e.Ledger.RequestInspection(context.Background(), Artisan, job.ID, fee, estimate)
	require.NoError(t, err)
	return job
}

// CompletedJob drives a job to completed with the escrow step recorded by the
// system and no payment row, as for a settlement made off-platform.
func (e *Env) CompletedJob(t testing.TB, quote int64) *models.Job {
	t.Helper()
	ctx := context.Background()
	job := e.PriceAgreedJob(t, quote)
	_, err := e.Ledger.Apply(ctx, ledger.Transition{
		JobID:   job.ID,
		From:    types.JobStatusPriceAgreed,
		To:      types.JobStatusPaymentEscrowed,
		ActorID: types.SystemActorID,
		Note:    "settled off-platform",
		Updates: map[string]any{"final_amount": quote},
	})
	require.NoError(t, err)
	_, err = e.Ledger.StartWork(ctx, Artisan, job.ID)
	require.NoError(t, err)
	job, err = e.Ledger.MarkCompleted(ctx, Artisan, job.ID, ledger.CompleteRequest{})
	require.NoError(t, err)
	return job
}

func (e *Env) Job(t testing.TB, id string) *models.Job {
	t.Helper()
	var job models.Job
	require.NoError(t, e.DB.Where("id = ?", id).First(&job).Error)
	return &job
}

func (e *Env) History(t testing.TB, jobID string) []*models.JobStatusHistory {
	t.Helper()
	var rows []*models.JobStatusHistory
	require.NoError(t, e.DB.Where("job_id = ?", jobID).Order("created_at ASC").Order("id ASC").Find(&rows).Error)
	return rows
}

// HistoryTo counts history rows that moved the job into status.
func (e *Env) HistoryTo(t testing.TB, jobID string, status types.JobStatus) int {
	t.Helper()
	n := 0
	for _, row := range e.History(t, jobID) {
		if row.NewStatus == status && !row.IsAnnotation() {
			n++
		}
	}
	return n
}
