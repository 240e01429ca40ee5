package models

import (
	"time"

	"gorm.io/datatypes"
)

// IdentityRecord never stores the plaintext identity number.
type IdentityRecord struct {
	ID           string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	FullName     string    `gorm:"column:full_name;type:varchar(200);not null" json:"full_name"`
	Phone        *string   `gorm:"column:phone;type:varchar(32)" json:"phone"`
	NINMasked    string    `gorm:"column:nin_masked;type:varchar(64);not null" json:"nin_masked"`
	NINEncrypted string    `gorm:"column:nin_encrypted;type:text" json:"-"`
	SubmittedIP  string    `gorm:"column:submitted_ip;type:varchar(64)" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (IdentityRecord) TableName() string { return "identity_records" }

const (
	AuditActionRevealNIN           = "reveal_nin"
	AuditActionRefundPayment       = "refund_payment"
	AuditActionResolveDispute      = "resolve_dispute"
	AuditActionCreatePayoutAccount = "create_payout_account"
	AuditActionReportViolation     = "report_violation"
	AuditActionCancelJob           = "cancel_job"
	AuditActionAssignArtisan       = "assign_artisan"

	AuditTargetIdentityRecord = "identity_record"
	AuditTargetPayment        = "payment"
	AuditTargetDispute        = "dispute"
	AuditTargetArtisan        = "artisan"
	AuditTargetJob            = "job"
)

// AdminAuditLog is insert-only.
type AdminAuditLog struct {
	ID         string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AdminID    string         `gorm:"column:admin_id;type:varchar(64);not null;index:idx_admin_audit_logs_admin_id" json:"admin_id"`
	Action     string         `gorm:"column:action;type:varchar(64);not null" json:"action"`
	TargetType string         `gorm:"column:target_type;type:varchar(64);not null" json:"target_type"`
	TargetID   string         `gorm:"column:target_id;type:varchar(64);not null;index:idx_admin_audit_logs_target_id" json:"target_id"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details"`
	SourceIP   string         `gorm:"column:source_ip;type:varchar(64)" json:"source_ip"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (AdminAuditLog) TableName() string { return "admin_audit_logs" }
