package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/matcher"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/vault"
)

// @Summary      Initialize payment
// @Description  Creates a pending payment and returns the gateway checkout URL. Job state is untouched until the gateway confirms.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.InitializeRequest true "Payment request"
// @Success      200  {object}  handlers.RespInitialize
// @Failure      429  {object}  handlers.RespOK
// @Failure      503  {object}  handlers.RespOK
// @Router       /api/v1/payments/initialize [post]
func ApiInitializePayment(p *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.InitializeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := p.Initialize(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Find nearby artisans
// @Description  Available artisans whose own service radius covers the point, nearest first.
// @Tags         Artisans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body matcher.NearbyQuery true "Point and filters"
// @Success      200  {object}  handlers.RespCandidates
// @Router       /api/v1/artisans/nearby [post]
func ApiFindNearby(m *matcher.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req matcher.NearbyQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := m.FindNearby(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Submit identity
// @Description  Public identity submission. The identity number is stored masked and encrypted only.
// @Tags         Identity
// @Accept       json
// @Produce      json
// @Param        request body vault.SubmitIdentityRequest true "Identity"
// @Success      200  {object}  handlers.RespIdentity
// @Failure      429  {object}  handlers.RespOK
// @Router       /api/v1/identity [post]
func ApiSubmitIdentity(v *vault.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vault.SubmitIdentityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.SourceIP = c.ClientIP()
		out, err := v.SubmitIdentity(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Save own artisan profile
// @Tags         Artisans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body matcher.ProfileRequest true "Service area"
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/artisans/me [put]
func ApiUpsertProfile(m *matcher.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req matcher.ProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		out, err := m.UpsertProfile(c.Request.Context(), actor(c), req)
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

// @Summary      Get own artisan profile
// @Tags         Artisans
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespProfile
// @Router       /api/v1/artisans/me [get]
func ApiGetProfile(m *matcher.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := m.Profile(c.Request.Context(), actor(c))
		if err != nil {
			fail(c, err)
			return
		}
		ok(c, out)
	}
}

func RegisterPaymentRoutes(r gin.IRouter, p *payment.Service) {
	r.POST("/initialize", ApiInitializePayment(p))
}

func RegisterArtisanRoutes(r gin.IRouter, m *matcher.Service) {
	r.POST("/nearby", ApiFindNearby(m))
	r.GET("/me", ApiGetProfile(m))
	r.PUT("/me", ApiUpsertProfile(m))
}
