package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type Entry struct {
	AdminID    string
	Action     string
	TargetType string
	TargetID   string
	SourceIP   string
	Details    map[string]any
	At         time.Time
}

// Record inserts an audit row through tx so it commits or rolls back with
// the change it describes.
func Record(ctx context.Context, tx *gorm.DB, e Entry) (*models.AdminAuditLog, error) {
	details := map[string]any{}
	for k, v := range e.Details {
		details[k] = v
	}
	at := e.At
	if at.IsZero() {
		at = tool.NowUTC()
	}
	details["timestamp"] = at.Format(time.RFC3339Nano)
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit details: %w", err)
	}
	row := &models.AdminAuditLog{
		ID:         tool.GenerateUUIDV7(),
		AdminID:    e.AdminID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Details:    datatypes.JSON(raw),
		SourceIP:   e.SourceIP,
		CreatedAt:  at,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to write audit log: %w", err)
	}
	return row, nil
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

type ListRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Limit      int    `json:"limit"`
}

func (s *Service) List(ctx context.Context, actor types.Actor, req ListRequest) ([]*models.AdminAuditLog, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Unauthorized("admin access required")
	}
	q := s.db.WithContext(ctx).Model(&models.AdminAuditLog{})
	if req.TargetType != "" {
		q = q.Where("target_type = ?", req.TargetType)
	}
	if req.TargetID != "" {
		q = q.Where("target_id = ?", req.TargetID)
	}
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []*models.AdminAuditLog
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return rows, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
