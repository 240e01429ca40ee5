package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/dispute"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
)

type assignRequest struct {
	ArtisanID string `json:"artisan_id" binding:"required"`
}

type quoteRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type inspectionRequest struct {
	InspectionFee   int64 `json:"inspection_fee" binding:"required"`
	EstimatedAmount int64 `json:"estimated_amount" binding:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary      Create job
// @Description  Customer posts a job request; it starts pending.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ledger.CreateJobRequest true "Job request"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs [post]
func ApiCreateJob(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.CreateJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.CreateJob(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      List own jobs
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Job status"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Offset"
// @Success      200  {object}  handlers.RespJobs
// @Router       /api/v1/jobs [get]
func ApiListJobs(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.ListRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			badRequest(c, err)
			return
		}
		jobs, err := l.ListForActor(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, jobs)
	}
}

// @Summary      Get job
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id} [get]
func ApiGetJob(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := l.Get(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Job status history
// @Description  Append-only audit trail, oldest first.
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespHistory
// @Router       /api/v1/jobs/{id}/history [get]
func ApiJobHistory(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := l.History(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, rows)
	}
}

// @Summary      Assign artisan
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "Job ID"
// @Param        request body handlers.assignRequest true "Artisan"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/assign [post]
func ApiAssignArtisan(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.AssignArtisan(c.Request.Context(), actor(c), c.Param("id"), req.ArtisanID)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Submit quote
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                true "Job ID"
// @Param        request body handlers.quoteRequest true "Quote in kobo"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/quote [post]
func ApiSubmitQuote(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req quoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.SubmitQuote(c.Request.Context(), actor(c), c.Param("id"), req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Request inspection
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                     true "Job ID"
// @Param        request body handlers.inspectionRequest true "Fee and estimate in kobo"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/inspection [post]
func ApiRequestInspection(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req inspectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.RequestInspection(c.Request.Context(), actor(c), c.Param("id"), req.InspectionFee, req.EstimatedAmount)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Accept quote
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/accept [post]
func ApiAcceptQuote(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := l.AcceptQuote(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Start work
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/start [post]
func ApiStartWork(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := l.StartWork(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Mark completed
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                  true  "Job ID"
// @Param        request body ledger.CompleteRequest  false "Photo references"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/complete [post]
func ApiMarkCompleted(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ledger.CompleteRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.MarkCompleted(c.Request.Context(), actor(c), c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Confirm completion
// @Description  Customer confirms the work; held escrow is released and the guarantee period starts.
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/confirm [post]
func ApiConfirmCompletion(p *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := p.Release(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Cancel job
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                  true "Job ID"
// @Param        request body handlers.reasonRequest  true "Reason"
// @Success      200  {object}  handlers.RespJob
// @Router       /api/v1/jobs/{id}/cancel [post]
func ApiCancelJob(l *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		job, err := l.CancelJob(c.Request.Context(), actor(c), c.Param("id"), req.Reason)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, job)
	}
}

// @Summary      Open dispute
// @Tags         Disputes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                  true "Job ID"
// @Param        request body handlers.reasonRequest  true "Reason"
// @Success      200  {object}  handlers.RespDispute
// @Router       /api/v1/jobs/{id}/dispute [post]
func ApiOpenDispute(d *dispute.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := d.Open(c.Request.Context(), actor(c), c.Param("id"), req.Reason)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Get job dispute
// @Tags         Disputes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespDispute
// @Router       /api/v1/jobs/{id}/dispute [get]
func ApiJobDispute(d *dispute.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := d.ForJob(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Review job
// @Tags         Disputes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "Job ID"
// @Param        request body dispute.ReviewRequest  true "Rating 1..5"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/jobs/{id}/review [post]
func ApiSubmitReview(d *dispute.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dispute.ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := d.SubmitReview(c.Request.Context(), actor(c), c.Param("id"), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Job payments
// @Tags         Payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Job ID"
// @Success      200  {object}  handlers.RespPayments
// @Router       /api/v1/jobs/{id}/payments [get]
func ApiJobPayments(p *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := p.ListForJob(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

func RegisterJobRoutes(r gin.IRouter, l *ledger.Service, p *payment.Service, d *dispute.Service) {
	r.POST("", ApiCreateJob(l))
	r.GET("", ApiListJobs(l))
	r.GET("/:id", ApiGetJob(l))
	r.GET("/:id/history", ApiJobHistory(l))
	r.POST("/:id/assign", ApiAssignArtisan(l))
	r.POST("/:id/quote", ApiSubmitQuote(l))
	r.POST("/:id/inspection", ApiRequestInspection(l))
	r.POST("/:id/accept", ApiAcceptQuote(l))
	r.POST("/:id/start", ApiStartWork(l))
	r.POST("/:id/complete", ApiMarkCompleted(l))
	r.POST("/:id/confirm", ApiConfirmCompletion(p))
	r.POST("/:id/cancel", ApiCancelJob(l))
	r.POST("/:id/dispute", ApiOpenDispute(d))
	r.GET("/:id/dispute", ApiJobDispute(d))
	r.POST("/:id/review", ApiSubmitReview(d))
	r.GET("/:id/payments", ApiJobPayments(p))
}
