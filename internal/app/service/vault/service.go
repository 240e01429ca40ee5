package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/audit"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/config"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/metrics"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const NINLength = 11

type Service struct {
	db     *gorm.DB
	log    *zap.SugaredLogger
	cipher *Cipher
	now    func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config) (*Service, error) {
	c, err := NewCipher(cfg.Vault.Key)
	if err != nil {
		return nil, err
	}
	return &Service{db: db, log: log, cipher: c, now: tool.NowUTC}, nil
}

type SubmitIdentityRequest struct {
	FullName string  `json:"full_name" binding:"required"`
	NIN      string  `json:"nin" binding:"required"`
	Phone    *string `json:"phone"`
	SourceIP string  `json:"-"`
}

// SubmitIdentity stores the masked and encrypted identity number. The
// plaintext is never written.
func (s *Service) SubmitIdentity(ctx context.Context, req SubmitIdentityRequest) (*models.IdentityRecord, error) {
	name := strings.TrimSpace(req.FullName)
	nin := strings.TrimSpace(req.NIN)
	if name == "" {
		return nil, apperr.Validation("full_name is required")
	}
	if len(nin) != NINLength || strings.IndexFunc(nin, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return nil, apperr.Validation("nin must be %d digits", NINLength)
	}
	sealed, err := s.cipher.Encrypt(nin)
	if err != nil {
		return nil, err
	}
	rec := &models.IdentityRecord{
		ID:           tool.GenerateUUIDV7(),
		FullName:     name,
		Phone:        lo.EmptyableToPtr(strings.TrimSpace(lo.FromPtr(req.Phone))),
		NINMasked:    Mask(nin),
		NINEncrypted: sealed,
		SubmittedIP:  req.SourceIP,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to store identity record: %w", err)
	}
	metrics.Event("vault", "submitted")
	logctx.FromCtx(ctx, s.log).Infow("identity_submitted", "record_id", rec.ID)
	return rec, nil
}

type RevealRequest struct {
	RecordID      string `json:"-"`
	Justification string `json:"justification" binding:"required"`
	SourceIP      string `json:"-"`
}

type Revealed struct {
	RecordID string `json:"record_id"`
	FullName string `json:"full_name"`
	NIN      string `json:"nin"`
}

// Reveal returns the plaintext only after the access audit row has committed.
func (s *Service) Reveal(ctx context.Context, actor types.Actor, req RevealRequest) (*Revealed, error) {
	log := logctx.FromCtx(ctx, s.log)
	if !actor.IsAdmin() {
		metrics.Event("vault", "reveal_unauthorized")
		log.Warnw("identity_reveal_denied", "record_id", req.RecordID, "actor_id", actor.ID)
		return nil, apperr.Unauthorized("admin access required")
	}
	justification := strings.TrimSpace(req.Justification)
	if justification == "" {
		return nil, apperr.Validation("justification is required")
	}

	var rec models.IdentityRecord
	err := s.db.WithContext(ctx).Where("id = ?", req.RecordID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("identity record %s not found", req.RecordID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity record: %w", err)
	}
	if rec.NINEncrypted == "" {
		return nil, apperr.NotFound("identity record %s has no sealed value", req.RecordID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := audit.Record(ctx, tx, audit.Entry{
			AdminID:    actor.ID,
			Action:     models.AuditActionRevealNIN,
			TargetType: models.AuditTargetIdentityRecord,
			TargetID:   rec.ID,
			SourceIP:   req.SourceIP,
			Details:    map[string]any{"justification": justification, "field": "nin"},
			At:         s.now(),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to audit reveal: %w", err)
	}

	nin, err := s.cipher.Decrypt(rec.NINEncrypted)
	if err != nil {
		metrics.Event("vault", "decrypt_failed")
		log.Errorw("identity_decrypt_failed", "record_id", rec.ID)
		return nil, apperr.New(apperr.KindInternal, "decryption failed")
	}
	metrics.Event("vault", "revealed")
	log.Infow("identity_revealed", "record_id", rec.ID, "admin_id", actor.ID)
	return &Revealed{RecordID: rec.ID, FullName: rec.FullName, NIN: nin}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
