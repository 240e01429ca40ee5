package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/docs"
	"github.com/nextdigitalzone/jobdesk/internal/app/api/handlers"
	mw "github.com/nextdigitalzone/jobdesk/internal/app/api/middleware"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/artisanstats"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
	nh "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_handler"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/statistics"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
	cfgpkg "github.com/nextdigitalzone/jobdesk/pkg/config"
	metrics "github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type RouteParams struct {
	fx.In

	Log          *zap.SugaredLogger
	Config       *cfgpkg.Config
	DB           *gorm.DB
	Limiters     *ratelimit.Limiters
	Ledger       *ledger.Service
	Payment      *payment.Service
	Matcher      *matcher.Service
	Dispute      *dispute.Service
	Vault        *vault.Service
	NotifHandler *nh.NotificationHandler
	ArtisanStats *artisanstats.Service
	Sweeper      *sweeper.Service
	Statistics   *statistics.Service
	Audit        *audit.Service
}

func NewEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg != nil && cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in RegisterRoutes
	r.Use(mw.TraceMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID", "x-paystack-signature")
	corsCfg.ExposeHeaders = []string{"X-Request-ID"}
	if cfg == nil || len(cfg.CORS.AllowOrigins) == 0 || (len(cfg.CORS.AllowOrigins) == 1 && cfg.CORS.AllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	}
	r.Use(cors.New(corsCfg))
	return r
}

// RegisterRoutes mounts every API group on r.
func RegisterRoutes(r *gin.Engine, p RouteParams) {
	log := p.Log
	logged := []gin.HandlerFunc{mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log)}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(logged...)
	handlers.RegisterHealthRoutes(pub, p.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(logged...)
	apiV1.POST("/identity", mw.RateLimitMiddleware(p.Limiters.Submission, log), handlers.ApiSubmitIdentity(p.Vault))

	authed := apiV1.Group("")
	authed.Use(mw.AuthMiddleware(p.Config.Auth.JWTSecret, log))
	handlers.RegisterJobRoutes(authed.Group("/jobs"), p.Ledger, p.Payment, p.Dispute)
	handlers.RegisterPaymentRoutes(authed.Group("/payments"), p.Payment)
	handlers.RegisterArtisanRoutes(authed.Group("/artisans"), p.Matcher)

	admin := authed.Group("/admin")
	admin.Use(mw.RequireRole(types.RoleAdmin))
	handlers.RegisterAdminRoutes(admin, handlers.AdminServices{
		Ledger:   p.Ledger,
		Payment:  p.Payment,
		Dispute:  p.Dispute,
		Vault:    p.Vault,
		Stats:    p.ArtisanStats,
		Sweeper:  p.Sweeper,
		Platform: p.Statistics,
		Audit:    p.Audit,
	})

	// Gateway callbacks
	apiV2Payment := r.Group("/api/v2/payment")
	apiV2Payment.Use(logged...)
	handlers.RegisterPaymentV2Routes(apiV2Payment, p.NotifHandler)
}

// registerMetrics instruments r and serves the scrape endpoint on its own listener.
func registerMetrics(lc fx.Lifecycle, r *gin.Engine, log *zap.SugaredLogger, cfg *cfgpkg.Config) {
	if cfg == nil || cfg.MetricsAddr == "" {
		return
	}
	p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
		ReqCntURLLabelMappingFn: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return "unmatched"
		},
		Logger: log,
	})
	p.Use(r)
	srv := p.Server(cfg.MetricsAddr)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("metrics started", "addr", cfg.MetricsAddr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("metrics server error: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine, shutdowner fx.Shutdowner) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Metrics middleware must be on the engine before any route group is created.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(registerMetrics),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(runServer),
)
