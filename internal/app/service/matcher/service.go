package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const (
	EarthRadiusKM = 6371.0
	DefaultLimit  = 10
	MaxLimit      = 100
)

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b types.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

type NearbyQuery struct {
	Point      types.GeoPoint `json:"point"`
	CategoryID *string        `json:"category_id"`
	Limit      int            `json:"limit"`
}

type Candidate struct {
	Profile    *models.ArtisanProfile `json:"profile"`
	DistanceKM float64                `json:"distance_km"`
}

// Rank keeps the profiles whose own service radius covers point, nearest
// first, ties broken by user id.
func Rank(point types.GeoPoint, profiles []*models.ArtisanProfile, limit int) []*Candidate {
	candidates := lo.FilterMap(profiles, func(p *models.ArtisanProfile, _ int) (*Candidate, bool) {
		d := Haversine(point, p.Location())
		return &Candidate{Profile: p, DistanceKM: d}, d <= p.ServiceRadiusKM
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKM != candidates[j].DistanceKM {
			return candidates[i].DistanceKM < candidates[j].DistanceKM
		}
		return candidates[i].Profile.UserID < candidates[j].Profile.UserID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// FindNearby scans available profiles; there is no spatial index.
func (s *Service) FindNearby(ctx context.Context, q NearbyQuery) ([]*Candidate, error) {
	if !q.Point.Valid() {
		return nil, apperr.Validation("latitude must be within [-90,90] and longitude within [-180,180]")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := s.db.WithContext(ctx).Where("is_available = ?", true)
	if q.CategoryID != nil && *q.CategoryID != "" {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	var profiles []*models.ArtisanProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load artisan profiles: %w", err)
	}

	result := Rank(q.Point, profiles, limit)
	logctx.FromCtx(ctx, s.log).Debugw("matcher_find_nearby",
		"scanned", len(profiles), "matched", len(result), "limit", limit)
	return result, nil
}

// Eligible reports whether the artisan is available and covers point. tx may
// be the caller's transaction or nil.
func (s *Service) Eligible(ctx context.Context, tx *gorm.DB, artisanUserID string, point types.GeoPoint) error {
	if tx == nil {
		tx = s.db
	}
	var profile models.ArtisanProfile
	err := tx.WithContext(ctx).Where("user_id = ?", artisanUserID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("artisan %s has no profile", artisanUserID)
	}
	if err != nil {
		return fmt.Errorf("failed to load artisan profile: %w", err)
	}
	if !profile.IsAvailable {
		return apperr.Validation("artisan %s is not available", artisanUserID)
	}
	if d := Haversine(point, profile.Location()); d > profile.ServiceRadiusKM {
		return apperr.Validation("job is %.1f km away, beyond the artisan's %.1f km service radius", d, profile.ServiceRadiusKM)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
