package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const AssignedByAdmin = "admin"

// Job is a unit of requested work. Rows are never deleted; cancelled is terminal.
type Job struct {
	ID          string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CustomerID  string  `gorm:"column:customer_id;type:varchar(64);not null;index:idx_jobs_customer_id" json:"customer_id"`
	ArtisanID   *string `gorm:"column:artisan_id;type:varchar(64);index:idx_jobs_artisan_id" json:"artisan_id"`
	CategoryID  *string `gorm:"column:category_id;type:varchar(64)" json:"category_id"`
	Title       string  `gorm:"column:title;type:varchar(200);not null" json:"title"`
	Description string  `gorm:"column:description;type:text" json:"description"`
	Address     string  `gorm:"column:address;type:text" json:"address"`
	Latitude    float64 `gorm:"column:latitude;type:double precision;not null" json:"latitude"`
	Longitude   float64 `gorm:"column:longitude;type:double precision;not null" json:"longitude"`

	Status             types.JobStatus `gorm:"column:status;type:varchar(32);not null;index:idx_jobs_status_created_at,priority:1" json:"status"`
	RequiresInspection bool            `gorm:"column:requires_inspection;not null" json:"requires_inspection"`
	InspectionFee      *int64          `gorm:"column:inspection_fee;type:bigint" json:"inspection_fee"`
	QuotedAmount       *int64          `gorm:"column:quoted_amount;type:bigint" json:"quoted_amount"`
	// FinalAmount is the gross amount of the confirmed escrow payment.
	FinalAmount       *int64 `gorm:"column:final_amount;type:bigint" json:"final_amount"`
	CommissionPercent int    `gorm:"column:commission_percent;not null" json:"commission_percent"`

	AssignedBy      *string    `gorm:"column:assigned_by;type:varchar(32)" json:"assigned_by"`
	AdminAssignerID *string    `gorm:"column:admin_assigner_id;type:varchar(64)" json:"admin_assigner_id"`
	AssignedAt      *time.Time `gorm:"column:assigned_at" json:"assigned_at"`

	// photo references in object storage
	BeforePhotos datatypes.JSONSlice[string] `gorm:"column:before_photos;type:jsonb" json:"before_photos"`
	AfterPhotos  datatypes.JSONSlice[string] `gorm:"column:after_photos;type:jsonb" json:"after_photos"`

	CompletedAt        *time.Time `gorm:"column:completed_at" json:"completed_at"`
	ConfirmedAt        *time.Time `gorm:"column:confirmed_at" json:"confirmed_at"`
	GuaranteeExpiresAt *time.Time `gorm:"column:guarantee_expires_at" json:"guarantee_expires_at"`
	CancellationReason *string    `gorm:"column:cancellation_reason;type:text" json:"cancellation_reason"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at" json:"cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;index:idx_jobs_status_created_at,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

func (j *Job) IsCustomer(userID string) bool {
	return j != nil && userID != "" && j.CustomerID == userID
}

func (j *Job) IsArtisan(userID string) bool {
	return j != nil && userID != "" && j.ArtisanID != nil && *j.ArtisanID == userID
}

func (j *Job) Location() types.GeoPoint {
	return types.GeoPoint{Latitude: j.Latitude, Longitude: j.Longitude}
}

// JobStatusHistory is append-only. OldStatus is nil for the creation row.
// A row with OldStatus equal to NewStatus is an annotation; it records a
// financial event on the job without moving it.
type JobStatusHistory struct {
	ID        string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID     string           `gorm:"column:job_id;type:uuid;not null;index:idx_job_status_history_job_id" json:"job_id"`
	OldStatus *types.JobStatus `gorm:"column:old_status;type:varchar(32)" json:"old_status"`
	NewStatus types.JobStatus  `gorm:"column:new_status;type:varchar(32);not null" json:"new_status"`
	ChangedBy string           `gorm:"column:changed_by;type:varchar(64);not null" json:"changed_by"`
	Notes     *string          `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt time.Time        `gorm:"column:created_at" json:"created_at"`
}

func (JobStatusHistory) TableName() string { return "job_status_history" }

func (h *JobStatusHistory) IsAnnotation() bool {
	return h.OldStatus != nil && *h.OldStatus == h.NewStatus
}
