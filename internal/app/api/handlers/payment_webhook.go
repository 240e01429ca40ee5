package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	nh "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_handler"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
)

// maxWebhookBody bounds the raw body read before signature verification.
const maxWebhookBody = 1 << 20

// @Summary      Paystack Webhook
// @Description  Handles Paystack event deliveries. The x-paystack-signature header must carry the hex HMAC-SHA512 of the raw body.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        x-paystack-signature header string true "HMAC-SHA512 of the body"
// @Param        payload body string true "Paystack event"
// @Success      200  {object}  handlers.RespOK
// @Failure      401  {object}  handlers.RespOK
// @Failure      500  {object}  handlers.RespOK
// @Router       /api/v2/payment/webhook/paystack [post]
func ApiPaystackWebhook(h *nh.NotificationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			log.Warnw("webhook_paystack_read_failed", "error", err.Error())
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		res, err := h.HandlePaystack(c.Request.Context(), body, c.GetHeader("x-paystack-signature"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}
