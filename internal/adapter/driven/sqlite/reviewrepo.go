package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewStore = (*ReviewRepo)(nil)

// ReviewRepo is the SQLite implementation of the ReviewStore port
// interface.
type ReviewRepo struct {
	db *DB
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// Upsert inserts the review or, when the reviewer already reviewed this
// pull request, overwrites their status and comment in place.
func (r *ReviewRepo) Upsert(ctx context.Context, review model.Review) error {
	const query = `
		INSERT INTO reviews (pr_id, reviewer_id, status, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pr_id, reviewer_id) DO UPDATE SET
			status = excluded.status,
			comment = excluded.comment,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.Writer.ExecContext(ctx, query,
		review.PRID, review.ReviewerID, string(review.Status), review.Comment, now, now)
	if err != nil {
		return fmt.Errorf("upsert review pr=%d reviewer=%d: %w", review.PRID, review.ReviewerID, err)
	}

	return nil
}

// ListByPR returns all reviews on the pull request ordered by reviewer.
func (r *ReviewRepo) ListByPR(ctx context.Context, prID int64) ([]model.Review, error) {
	const query = `
		SELECT id, pr_id, reviewer_id, status, comment, created_at, updated_at
		FROM reviews WHERE pr_id = ? ORDER BY reviewer_id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("list reviews pr=%d: %w", prID, err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var review model.Review
		var status, createdAt, updatedAt string
		if err := rows.Scan(&review.ID, &review.PRID, &review.ReviewerID,
			&status, &review.Comment, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		review.Status = model.ReviewStatus(status)
		if review.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if review.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

// CountApprovals returns the number of APPROVED reviews on the pull
// request.
func (r *ReviewRepo) CountApprovals(ctx context.Context, prID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE pr_id = ? AND status = 'APPROVED'`

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, prID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approvals pr=%d: %w", prID, err)
	}

	return count, nil
}
