package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	cfgpkg "github.com/nextdigitalzone/jobdesk/pkg/config"
	gormzap "github.com/nextdigitalzone/jobdesk/pkg/gormlog"
)

// GormConfig is shared with the sqlite test database so both translate
// unique-constraint failures into gorm.ErrDuplicatedKey.
func GormConfig(l *zap.SugaredLogger, cfg *cfgpkg.Config) *gorm.Config {
	opts := gormzap.Options{}
	if cfg != nil {
		opts.SlowThreshold = time.Duration(cfg.Database.SlowThresholdMS) * time.Millisecond
		opts.Level = cfg.Database.LogLevel
	}
	return &gorm.Config{
		Logger:         gormzap.New(l, opts),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), GormConfig(l, cfg))
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// Models lists every persisted entity.
func Models() []any {
	return []any{
		&models.Job{},
		&models.JobStatusHistory{},
		&models.Payment{},
		&models.Dispute{},
		&models.Review{},
		&models.ArtisanProfile{},
		&models.ArtisanViolation{},
		&models.IdentityRecord{},
		&models.AdminAuditLog{},
		&models.PaymentNotificationLog{},
	}
}

// partialIndexes are constraints GORM tags cannot express.
var partialIndexes = []string{
	// at most one live escrow payment per job
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_payments_live_job_payment ON payments (job_id) WHERE payment_type = 'job_payment' AND status IN ('pending', 'held')`,
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			l.Errorf("create index failed: %v", err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
