package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/artisanstats"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/statistics"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/sweeper"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
)

// AdminServices groups what the admin routes need.
type AdminServices struct {
	Ledger   *ledger.Service
	Payment  *payment.Service
	Dispute  *dispute.Service
	Vault    *vault.Service
	Stats    *artisanstats.Service
	Sweeper  *sweeper.Service
	Platform *statistics.Service
	Audit    *audit.Service
}

// @Summary      Scan jobs
// @Description  Admin job listing with column filters.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ledger.ScanRequest true "Filters"
// @Success      200  {object}  handlers.RespScanJobs
// @Router       /api/v1/admin/jobs/list [post]
func ApiScanJobs(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := l.Scan(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Verify job history
// @Description  Replays the job's history against the lifecycle and compares it with the stored status.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespVerification
// @Router       /api/v1/admin/jobs/{id}/verify [get]
func ApiVerifyJobHistory(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := l.VerifyHistory(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      List disputes
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "open, resolved or closed"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Offset"
// @Success      200  {object}  handlers.RespDisputes
// @Router       /api/v1/admin/disputes [get]
func ApiListDisputes(d *dispute.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dispute.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := d.List(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Resolve dispute
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "Dispute ID"
// @Param        request body dispute.ResolveRequest true "Resolution"
// @Success      200  {object}  handlers.RespDispute
// @Router       /api/v1/admin/disputes/{id}/resolve [post]
func ApiResolveDispute(d *dispute.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dispute.ResolveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.DisputeID = c.Param("id")
		req.SourceIP = c.ClientIP()
		out, err := d.Resolve(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Record refund
// @Description  Records that a payment on a disputed job was refunded.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true  "Payment ID"
// @Param        request body payment.RefundRequest  false "Note"
// @Success      200  {object}  handlers.RespPayment
// @Router       /api/v1/admin/payments/{id}/refund [post]
func ApiRefundPayment(p *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.RefundRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			badRequest(c, err)
			return
		}
		req.PaymentID = c.Param("id")
		req.SourceIP = c.ClientIP()
		out, err := p.Refund(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Reveal identity number
// @Description  Returns the plaintext only after the justification has been audit logged.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string              true "Identity record ID"
// @Param        request body vault.RevealRequest true "Justification"
// @Success      200  {object}  handlers.RespRevealed
// @Router       /api/v1/admin/identity/{id}/reveal [post]
func ApiRevealIdentity(v *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vault.RevealRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.RecordID = c.Param("id")
		req.SourceIP = c.ClientIP()
		out, err := v.Reveal(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		ok(c, out)
	}
}

// @Summary      Create payout account
// @Description  Registers a gateway sub-account so the artisan share settles directly.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                       true "Artisan user ID"
// @Param        request body payment.PayoutAccountRequest true "Bank details"
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/admin/artisans/{id}/payout_account [post]
func ApiCreatePayoutAccount(p *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.PayoutAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.SourceIP = c.ClientIP()
		out, err := p.CreatePayoutAccount(c.Request.Context(), actor(c), c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Report violation
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                         true "Artisan user ID"
// @Param        request body artisanstats.ViolationRequest  true "Violation"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/artisans/{id}/violations [post]
func ApiReportViolation(s *artisanstats.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req artisanstats.ViolationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.SourceIP = c.ClientIP()
		out, err := s.ReportViolation(c.Request.Context(), actor(c), c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Recompute artisan stats
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Artisan user ID"
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/admin/artisans/{id}/recompute [post]
func ApiRecomputeStats(s *artisanstats.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.Recompute(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Artisan performance
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        sort_by query string false "completed_jobs, average_rating, violations or cancelled_jobs"
// @Param        limit   query int    false "Page size"
// @Param        offset  query int    false "Offset"
// @Success      200  {object}  handlers.RespProfiles
// @Router       /api/v1/admin/artisans/performance [get]
func ApiArtisanPerformance(s *artisanstats.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req artisanstats.PerformanceRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := s.Performance(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Run auto-cancel sweep
// @Description  Cancels pending jobs that found no artisan within the timeout.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSweep
// @Router       /api/v1/admin/sweep [post]
func ApiSweep(s *sweeper.Service, l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.Sweep(c.Request.Context(), l.Now())
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Platform statistics
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.Request true "Range and items"
// @Success      200  {object}  handlers.RespStatistics
// @Router       /api/v1/admin/statistics [post]
func ApiStatistics(s *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := s.Get(c.Request.Context(), actor(c), &req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Admin audit log
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body audit.ListRequest true "Target filter"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/audit_logs/list [post]
func ApiAuditLogs(a *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req audit.ListRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := a.List(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

func RegisterAdminRoutes(r gin.IRouter, s AdminServices) {
	r.POST("/jobs/list", ApiScanJobs(s.Ledger))
	r.GET("/jobs/:id/verify", ApiVerifyJobHistory(s.Ledger))
	r.GET("/disputes", ApiListDisputes(s.Dispute))
	r.POST("/disputes/:id/resolve", ApiResolveDispute(s.Dispute))
	r.POST("/payments/:id/refund", ApiRefundPayment(s.Payment))
	r.POST("/identity/:id/reveal", ApiRevealIdentity(s.Vault))
	r.POST("/artisans/:id/payout_account", ApiCreatePayoutAccount(s.Payment))
	r.POST("/artisans/:id/violations", ApiReportViolation(s.Stats))
	r.POST("/artisans/:id/recompute", ApiRecomputeStats(s.Stats))
	r.GET("/artisans/performance", ApiArtisanPerformance(s.Stats))
	r.POST("/sweep", ApiSweep(s.Sweeper, s.Ledger))
	r.POST("/statistics", ApiStatistics(s.Platform))
	r.POST("/audit_logs/list", ApiAuditLogs(s.Audit))
}
