package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/nextdigitalzone/jobdesk/internal/app/api/server"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/artisanstats"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
	notificationhandler "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_handler"
	notificationlog "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_log"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/statistics"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
	"github.com/nextdigitalzone/jobdesk/internal/platform/db"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logger"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// CoreModule is everything except the HTTP server and background ticker.
var CoreModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	paystack.Module,
	ratelimit.Module,
	audit.Module,
	matcher.Module,
	ledger.Module,
	payment.Module,
	notificationlog.Module,
	notificationhandler.Module,
	vault.Module,
	dispute.Module,
	sweeper.Module,
	artisanstats.Module,
	statistics.Module,
)

var Module = fx.Options(
	CoreModule,
	server.Module,
	sweeper.RunnerModule,
)
