package models

import (
	"time"

	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type ArtisanProfile struct {
	ID              string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID          string  `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:uniq_artisan_profiles_user_id" json:"user_id"`
	FullName        string  `gorm:"column:full_name;type:varchar(200)" json:"full_name"`
	CategoryID      *string `gorm:"column:category_id;type:varchar(64);index:idx_artisan_profiles_category_id" json:"category_id"`
	Latitude        float64 `gorm:"column:latitude;type:double precision;not null" json:"latitude"`
	Longitude       float64 `gorm:"column:longitude;type:double precision;not null" json:"longitude"`
	ServiceRadiusKM float64 `gorm:"column:service_radius_km;type:double precision;not null" json:"service_radius_km"`
	IsAvailable     bool    `gorm:"column:is_available;not null" json:"is_available"`

	// aggregates, rewritten in full by the stats recompute
	TotalJobs        int        `gorm:"column:total_jobs;not null" json:"total_jobs"`
	CompletedJobs    int        `gorm:"column:completed_jobs;not null" json:"completed_jobs"`
	CancelledJobs    int        `gorm:"column:cancelled_jobs;not null" json:"cancelled_jobs"`
	AverageRating    float64    `gorm:"column:average_rating;type:double precision;not null" json:"average_rating"`
	RatingCount      int        `gorm:"column:rating_count;not null" json:"rating_count"`
	ViolationCount   int        `gorm:"column:violation_count;not null" json:"violation_count"`
	StatsRefreshedAt *time.Time `gorm:"column:stats_refreshed_at" json:"stats_refreshed_at"`

	// PayoutAccountRef is the gateway sub-account code used for split settlement.
	PayoutAccountRef *string `gorm:"column:payout_account_ref;type:varchar(64)" json:"payout_account_ref"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ArtisanProfile) TableName() string { return "artisan_profiles" }

func (p *ArtisanProfile) Location() types.GeoPoint {
	return types.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude}
}

type ArtisanViolation struct {
	ID         string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ArtisanID  string              `gorm:"column:artisan_id;type:varchar(64);not null;index:idx_artisan_violations_artisan_id" json:"artisan_id"`
	JobID      *string             `gorm:"column:job_id;type:uuid" json:"job_id"`
	Type       types.ViolationType `gorm:"column:type;type:varchar(32);not null" json:"type"`
	ReportedBy string              `gorm:"column:reported_by;type:varchar(64);not null" json:"reported_by"`
	Notes      *string             `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt  time.Time           `gorm:"column:created_at" json:"created_at"`
}

func (ArtisanViolation) TableName() string { return "artisan_violations" }
