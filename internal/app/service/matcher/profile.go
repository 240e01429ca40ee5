package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const MaxServiceRadiusKM = 200

type ProfileRequest struct {
	FullName        string         `json:"full_name"`
	CategoryID      *string        `json:"category_id"`
	Location        types.GeoPoint `json:"location"`
	ServiceRadiusKM float64        `json:"service_radius_km" binding:"required"`
	IsAvailable     *bool          `json:"is_available"`
}

// UpsertProfile lets an artisan register or move their service area. The
// aggregate counters are owned by the stats recompute and never touched here.
func (s *Service) UpsertProfile(ctx context.Context, actor types.Actor, req ProfileRequest) (*models.ArtisanProfile, error) {
	if actor.Role != types.RoleArtisan || actor.ID == "" {
		return nil, apperr.Unauthorized("only artisans have a service profile")
	}
	if !req.Location.Valid() {
		return nil, apperr.Validation("latitude must be within [-90,90] and longitude within [-180,180]")
	}
	if req.ServiceRadiusKM <= 0 || req.ServiceRadiusKM > MaxServiceRadiusKM {
		return nil, apperr.Validation("service radius must be within (0,%d] km", MaxServiceRadiusKM)
	}

	var profile models.ArtisanProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := tool.NowUTC()
		err := tx.Where("user_id = ?", actor.ID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.ArtisanProfile{
				ID:              tool.GenerateUUIDV7(),
				UserID:          actor.ID,
				FullName:        strings.TrimSpace(req.FullName),
				CategoryID:      req.CategoryID,
				Latitude:        req.Location.Latitude,
				Longitude:       req.Location.Longitude,
				ServiceRadiusKM: req.ServiceRadiusKM,
				IsAvailable:     req.IsAvailable == nil || *req.IsAvailable,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("failed to create artisan profile: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load artisan profile: %w", err)
		}

		updates := map[string]any{
			"category_id":       req.CategoryID,
			"latitude":          req.Location.Latitude,
			"longitude":         req.Location.Longitude,
			"service_radius_km": req.ServiceRadiusKM,
			"updated_at":        now,
		}
		if name := strings.TrimSpace(req.FullName); name != "" {
			updates["full_name"] = name
		}
		if req.IsAvailable != nil {
			updates["is_available"] = *req.IsAvailable
		}
		if err := tx.Model(&models.ArtisanProfile{}).Where("id = ?", profile.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update artisan profile: %w", err)
		}
		return tx.Where("id = ?", profile.ID).First(&profile).Error
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("artisan_profile_saved",
		"artisan_id", actor.ID, "radius_km", profile.ServiceRadiusKM, "available", profile.IsAvailable)
	return &profile, nil
}

// Profile returns the artisan's own profile.
func (s *Service) Profile(ctx context.Context, actor types.Actor) (*models.ArtisanProfile, error) {
	if actor.Role != types.RoleArtisan {
		return nil, apperr.Unauthorized("only artisans have a service profile")
	}
	var profile models.ArtisanProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", actor.ID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no profile registered")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artisan profile: %w", err)
	}
	return &profile, nil
}
