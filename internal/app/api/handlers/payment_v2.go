package handlers

import (
	"github.com/gin-gonic/gin"

	nh "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_handler"
)

// RegisterPaymentV2Routes mounts the gateway-facing endpoints. They carry
// no bearer auth; deliveries are authenticated by signature.
func RegisterPaymentV2Routes(r gin.IRouter, notifHandler *nh.NotificationHandler) {
	r.POST("/webhook/paystack", ApiPaystackWebhook(notifHandler))
}
