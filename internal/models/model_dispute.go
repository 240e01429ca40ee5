package models

import (
	"time"

	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type Dispute struct {
	ID              string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID           string              `gorm:"column:job_id;type:uuid;not null;uniqueIndex:uniq_disputes_job_id" json:"job_id"`
	CustomerID      string              `gorm:"column:customer_id;type:varchar(64);not null" json:"customer_id"`
	ArtisanID       string              `gorm:"column:artisan_id;type:varchar(64);not null" json:"artisan_id"`
	Reason          string              `gorm:"column:reason;type:text;not null" json:"reason"`
	Status          types.DisputeStatus `gorm:"column:status;type:varchar(32);not null;index:idx_disputes_status" json:"status"`
	ResolutionNotes *string             `gorm:"column:resolution_notes;type:text" json:"resolution_notes"`
	ResolvedBy      *string             `gorm:"column:resolved_by;type:varchar(64)" json:"resolved_by"`
	ResolvedAt      *time.Time          `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt       time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (Dispute) TableName() string { return "disputes" }

// Review is immutable after creation.
type Review struct {
	ID         string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobID      string    `gorm:"column:job_id;type:uuid;not null;uniqueIndex:uniq_reviews_job_id" json:"job_id"`
	CustomerID string    `gorm:"column:customer_id;type:varchar(64);not null" json:"customer_id"`
	ArtisanID  string    `gorm:"column:artisan_id;type:varchar(64);not null;index:idx_reviews_artisan_id" json:"artisan_id"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	Comment    *string   `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Review) TableName() string { return "reviews" }
