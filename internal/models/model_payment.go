package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

// PaymentMetadata is attached to the gateway transaction at initialization and
// echoed back in the settlement webhook.
type PaymentMetadata struct {
	PaymentID        string            `json:"payment_id"`
	JobID            string            `json:"job_id"`
	PaymentType      types.PaymentType `json:"payment_type"`
	CustomerID       string            `json:"customer_id"`
	ArtisanID        string            `json:"artisan_id"`
	CommissionAmount int64             `json:"commission_amount"`
	ArtisanAmount    int64             `json:"artisan_amount"`
}

// Payment is one monetary event on a job. Status only moves forward.
type Payment struct {
	ID          string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID       string              `gorm:"column:job_id;type:uuid;not null;index:idx_payments_job_id" json:"job_id"`
	CustomerID  string              `gorm:"column:customer_id;type:varchar(64);not null" json:"customer_id"`
	ArtisanID   string              `gorm:"column:artisan_id;type:varchar(64);not null" json:"artisan_id"`
	PaymentType types.PaymentType   `gorm:"column:payment_type;type:varchar(32);not null" json:"payment_type"`
	Status      types.PaymentStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	Currency    string              `gorm:"column:currency;type:varchar(8);not null" json:"currency"`

	// minor currency units; CommissionAmount + ArtisanAmount == Amount
	Amount            int64 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	CommissionAmount  int64 `gorm:"column:commission_amount;type:bigint;not null" json:"commission_amount"`
	ArtisanAmount     int64 `gorm:"column:artisan_amount;type:bigint;not null" json:"artisan_amount"`
	CommissionPercent int   `gorm:"column:commission_percent;not null" json:"commission_percent"`

	GatewayReference string  `gorm:"column:gateway_reference;type:varchar(128);not null;uniqueIndex:uniq_payments_gateway_reference" json:"gateway_reference"`
	AuthorizationURL *string `gorm:"column:authorization_url;type:text" json:"authorization_url"`
	AccessCode       *string `gorm:"column:access_code;type:varchar(128)" json:"access_code"`
	SubaccountCode   *string `gorm:"column:subaccount_code;type:varchar(64)" json:"subaccount_code"`
	// TransferCode is the gateway-side transaction id reported on settlement.
	TransferCode *string `gorm:"column:transfer_code;type:varchar(128)" json:"transfer_code"`

	Metadata datatypes.JSONType[PaymentMetadata] `gorm:"column:metadata;type:jsonb" json:"metadata"`

	PaidAt     *time.Time `gorm:"column:paid_at" json:"paid_at"`
	ReleasedAt *time.Time `gorm:"column:released_at" json:"released_at"`
	RefundedAt *time.Time `gorm:"column:refunded_at" json:"refunded_at"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
