package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/database"
)

type overrideApprovalRepository struct {
	db *database.DB
}

// Create implements clock.OverrideApprovalRepository.
func (r *overrideApprovalRepository) Create(ctx context.Context, approval clock.OverrideApproval) (clock.OverrideApproval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO clock_event_approvals (event_id, business_id, approved_by, approved_at, notes)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.Exec(ctx, query,
		approval.EventID, approval.BusinessID, approval.ApprovedBy, approval.ApprovedAt, approval.Notes,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return clock.OverrideApproval{}, clock.ErrOverrideAlreadyApproved
		}
		return clock.OverrideApproval{}, fmt.Errorf("failed to create override approval: %w", err)
	}

	return approval, nil
}

func NewOverrideApprovalRepository(db *database.DB) clock.OverrideApprovalRepository {
	return &overrideApprovalRepository{db: db}
}
