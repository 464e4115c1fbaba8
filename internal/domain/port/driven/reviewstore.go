package driven

import (
	"context"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// ReviewStore defines the driven port for review persistence. Upsert keeps
// at most one row per (pull request, reviewer); a repeat review from the
// same reviewer overwrites status and comment rather than appending.
type ReviewStore interface {
	Upsert(ctx context.Context, review model.Review) error
	ListByPR(ctx context.Context, prID int64) ([]model.Review, error)
	CountApprovals(ctx context.Context, prID int64) (int, error)
}
