package notification_handler

import (
	"context"
	"time"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// NotificationParser exposes a verified gateway delivery in provider-neutral terms.
type NotificationParser interface {
	GetProvider(ctx context.Context) types.PaymentProvider
	GetEventType(ctx context.Context) string
	GetReference(ctx context.Context) string
	GetNotificationTime(ctx context.Context) time.Time
	// GetSettlement is nil for events that do not confirm a charge.
	GetSettlement(ctx context.Context) *payment.Settlement
	GetData(ctx context.Context) any
}
