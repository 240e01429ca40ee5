package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/internal/platform/paystack"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type PayoutAccountRequest struct {
	BusinessName  string `json:"business_name"`
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
	SourceIP      string `json:"-"`
}

// CreatePayoutAccount registers a gateway sub-account for the artisan so
// later payments settle the artisan share directly.
func (s *Service) CreatePayoutAccount(ctx context.Context, actor types.Actor, artisanUserID string, req PayoutAccountRequest) (*models.ArtisanProfile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("only admins can create payout accounts")
	}
	if strings.TrimSpace(req.BankCode) == "" || strings.TrimSpace(req.AccountNumber) == "" {
		return nil, apperr.Validation("bank_code and account_number are required")
	}

	var profile models.ArtisanProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", artisanUserID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("artisan %s not found", artisanUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load artisan profile: %w", err)
	}

	name := strings.TrimSpace(req.BusinessName)
	if name == "" {
		name = profile.FullName
	}
	sub, err := s.gateway.CreateSubaccount(ctx, paystack.CreateSubaccountRequest{
		BusinessName:     name,
		BankCode:         req.BankCode,
		AccountNumber:    req.AccountNumber,
		PercentageCharge: float64(s.cfg.Escrow.CommissionPercent),
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ArtisanProfile{}).Where("id = ?", profile.ID).Updates(map[string]any{
			"payout_account_ref": sub.SubaccountCode,
			"updated_at":         s.now(),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to store payout account: %w", err)
		}
		_, err = audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionCreatePayoutAccount,
			TargetType: models.AuditTargetArtisan,
			TargetID:   artisanUserID,
			SourceIP:   req.SourceIP,
			Details:    map[string]any{"subaccount_code": sub.SubaccountCode},
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	profile.PayoutAccountRef = &sub.SubaccountCode
	logctx.FromCtx(ctx, s.log).Infow("payout_account_created", "artisan_id", artisanUserID, "subaccount_code", sub.SubaccountCode)
	return &profile, nil
}
