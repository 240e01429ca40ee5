package notification_handler

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	notificationlog "github.com/nextdigitalzone/jobdesk/internal/app/service/notification_log"
	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	models "github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// Settler applies a confirmed charge to payment and job state.
type Settler interface {
	ApplySettlement(ctx context.Context, st payment.Settlement) (*payment.SettlementResult, error)
}

type Result struct {
	Status     models.PaymentNotificationLogStatus `json:"status"`
	EventType  string                              `json:"event_type"`
	Reference  string                              `json:"reference,omitempty"`
	Settlement *payment.SettlementResult           `json:"settlement,omitempty"`
}

type NotificationHandler struct {
	cfg      *config.Config
	notifSvc *notificationlog.Service
	settler  Settler
	Logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewNotificationHandler(cfg *config.Config, notif *notificationlog.Service, settler Settler, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{cfg: cfg, notifSvc: notif, settler: settler, Logger: log, now: tool.NowUTC}
}

// HandlePaystack verifies and applies one webhook delivery. A nil error means
// the gateway should be acknowledged; storage failures return an error so the
// gateway retries the whole event.
func (h *NotificationHandler) HandlePaystack(ctx context.Context, body []byte, signature string) (res *Result, resErr error) {
	start := time.Now()
	defer metrics.ObserveSince("webhook", string(types.PaymentProviderPaystack), start)
	log := logctx.FromCtx(ctx, h.Logger)
	provider := string(types.PaymentProviderPaystack)
	traceID := logctx.TraceID(ctx)
	receivedAt := h.now()

	if !paystack.VerifySignature(h.cfg.Paystack.SecretKey, body, signature) {
		metrics.Event("webhook_paystack", "signature_invalid")
		log.Warnw("webhook_paystack_rejected", "reason", "signature_invalid", "bytes", len(body))
		h.notifSvc.Save(ctx, &models.PaymentNotificationLog{
			ProviderID:       provider,
			TraceID:          traceID,
			NotificationTime: receivedAt,
			Data:             rawData(body),
			Status:           models.PaymentNotificationLogStatusRejected,
		})
		return nil, apperr.New(apperr.KindSignatureInvalid, "webhook signature mismatch")
	}

	parser, err := GetPaystackNotificationParser(body, receivedAt)
	if err != nil {
		metrics.Event("webhook_paystack", "unparseable")
		log.Warnw("webhook_paystack_rejected", "reason", "unparseable", "err", err)
		h.notifSvc.Save(ctx, &models.PaymentNotificationLog{
			ProviderID:       provider,
			TraceID:          traceID,
			NotificationTime: receivedAt,
			Data:             rawData(body),
			Result:           resultJSON(map[string]any{"error": err.Error()}),
			Status:           models.PaymentNotificationLogStatusHandleFailed,
		})
		return nil, apperr.Validation("unreadable webhook payload")
	}

	res = &Result{EventType: parser.GetEventType(ctx), Reference: parser.GetReference(ctx)}
	dataBytes, _ := json.Marshal(parser.GetData(ctx))
	entry := func(status models.PaymentNotificationLogStatus, result *datatypes.JSON) *models.PaymentNotificationLog {
		return &models.PaymentNotificationLog{
			ProviderID:       provider,
			EventType:        res.EventType,
			Reference:        res.Reference,
			TraceID:          traceID,
			NotificationTime: parser.GetNotificationTime(ctx),
			Data:             datatypes.JSON(dataBytes),
			Result:           result,
			Status:           status,
		}
	}

	log.Infow("webhook_paystack_received", "event", res.EventType, "reference", res.Reference)
	h.notifSvc.Save(ctx, entry(models.PaymentNotificationLogStatusReceived, nil))

	defer func() {
		resMap := map[string]any{}
		if res != nil && res.Settlement != nil {
			resMap["settlement"] = res.Settlement
		}
		status := models.PaymentNotificationLogStatusHandled
		if res != nil && res.Status != "" {
			status = res.Status
		}
		if resErr != nil {
			resMap["error"] = resErr.Error()
			status = models.PaymentNotificationLogStatusHandleFailed
		}
		metrics.Event("webhook_paystack", string(status))
		h.notifSvc.Save(ctx, entry(status, resultJSON(resMap)))
	}()

	settlement := parser.GetSettlement(ctx)
	if settlement == nil {
		res.Status = models.PaymentNotificationLogStatusIgnored
		log.Infow("webhook_paystack_ignored", "event", res.EventType, "reference", res.Reference)
		return res, nil
	}

	outcome, err := h.settler.ApplySettlement(ctx, *settlement)
	if err != nil {
		log.Errorw("webhook_paystack_failed", "reference", res.Reference, "err", err)
		return nil, err
	}
	res.Settlement = outcome
	switch outcome.Outcome {
	case payment.SettlementUnknownReference:
		res.Status = models.PaymentNotificationLogStatusIgnored
		log.Warnw("webhook_paystack_unknown_reference", "reference", res.Reference)
	default:
		res.Status = models.PaymentNotificationLogStatusHandled
	}
	return res, nil
}

func rawData(body []byte) datatypes.JSON {
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	b, _ := json.Marshal(map[string]string{"raw": string(body)})
	return datatypes.JSON(b)
}

func resultJSON(v map[string]any) *datatypes.JSON {
	b, _ := json.Marshal(v)
	j := datatypes.JSON(b)
	return &j
}

var Module = fx.Options(
	fx.Provide(
		NewNotificationHandler,
		func(p *payment.Service) Settler { return p },
	),
)
