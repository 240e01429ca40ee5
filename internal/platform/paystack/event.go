package paystack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const EventChargeSuccess = "charge.success"

type Event struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

type ChargeData struct {
	ID        int64         `json:"id"`
	Reference string        `json:"reference"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	PaidAt    string        `json:"paid_at"`
	Metadata  EventMetadata `json:"metadata"`
}

// PaidTime parses paid_at, falling back to fallback when absent or malformed.
func (d ChargeData) PaidTime(fallback time.Time) time.Time {
	if d.PaidAt == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, d.PaidAt)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// EventMetadata is the metadata attached at initialization.
type EventMetadata struct {
	PaymentID        string `json:"payment_id"`
	JobID            string `json:"job_id"`
	PaymentType      string `json:"payment_type"`
	CustomerID       string `json:"customer_id"`
	ArtisanID        string `json:"artisan_id"`
	CommissionAmount int64  `json:"commission_amount"`
	ArtisanAmount    int64  `json:"artisan_amount"`
}

// UnmarshalJSON accepts metadata as an object, a JSON-encoded string, or
// the empty string/null the gateway sends when none was attached.
func (m *EventMetadata) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	type plain EventMetadata
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	*m = EventMetadata(p)
	return nil
}

func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse paystack event: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("paystack event has no type")
	}
	return &ev, nil
}
