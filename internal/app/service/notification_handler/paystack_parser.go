package notification_handler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/payment"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type PaystackNotificationParser struct {
	event      *paystack.Event
	raw        json.RawMessage
	receivedAt time.Time
}

// GetPaystackNotificationParser parses an already verified body.
func GetPaystackNotificationParser(body []byte, receivedAt time.Time) (*PaystackNotificationParser, error) {
	ev, err := paystack.ParseEvent(body)
	if err != nil {
		return nil, err
	}
	return &PaystackNotificationParser{event: ev, raw: json.RawMessage(body), receivedAt: receivedAt}, nil
}

func (p *PaystackNotificationParser) GetProvider(context.Context) types.PaymentProvider {
	return types.PaymentProviderPaystack
}

func (p *PaystackNotificationParser) GetEventType(context.Context) string { return p.event.Event }

func (p *PaystackNotificationParser) GetReference(context.Context) string {
	return p.event.Data.Reference
}

func (p *PaystackNotificationParser) GetNotificationTime(context.Context) time.Time {
	return p.event.Data.PaidTime(p.receivedAt)
}

func (p *PaystackNotificationParser) GetSettlement(context.Context) *payment.Settlement {
	if p.event.Event != paystack.EventChargeSuccess {
		return nil
	}
	d := p.event.Data
	st := &payment.Settlement{
		Reference:   d.Reference,
		Amount:      d.Amount,
		Currency:    d.Currency,
		PaidAt:      d.PaidTime(p.receivedAt),
		JobID:       d.Metadata.JobID,
		PaymentType: types.PaymentType(d.Metadata.PaymentType),
		CustomerID:  d.Metadata.CustomerID,
		ArtisanID:   d.Metadata.ArtisanID,
	}
	if d.ID != 0 {
		st.TransactionID = strconv.FormatInt(d.ID, 10)
	}
	return st
}

func (p *PaystackNotificationParser) GetData(context.Context) any { return p.raw }
