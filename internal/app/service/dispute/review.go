package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/nextdigitalzone/jobdesk/internal/app/service/ledger"
	"github.com/nextdigitalzone/jobdesk/internal/models"
	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/tool"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// SubmitReview records the customer's single, immutable rating of the artisan.
func (s *Service) SubmitReview(ctx context.Context, actor types.Actor, jobID string, req ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	if actor.Role != types.RoleCustomer {
		return nil, apperr.Unauthorized("only the job's customer can review it")
	}
	job, err := ledger.LoadJobTx(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsCustomer(actor.ID) {
		return nil, apperr.Unauthorized("only the job's customer can review it")
	}
	if !job.Status.ReachedConfirmation() {
		return nil, apperr.InvalidTransition("job is %s, reviews open after confirmation", job.Status)
	}

	review := &models.Review{
		ID:         tool.GenerateUUIDV7(),
		JobID:      jobID,
		CustomerID: job.CustomerID,
		ArtisanID:  *job.ArtisanID,
		Rating:     req.Rating,
		Comment:    lo.EmptyableToPtr(strings.TrimSpace(req.Comment)),
		CreatedAt:  s.ledger.Now(),
	}
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.InvalidTransition("this job has already been reviewed")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("review_created", "job_id", jobID, "artisan_id", review.ArtisanID, "rating", review.Rating)
	for _, o := range s.observers {
		o.ReviewCreated(ctx, review)
	}
	return review, nil
}
