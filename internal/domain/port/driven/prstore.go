package driven

import (
	"context"
	"errors"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// Sentinel errors returned by PullRequestStore implementations.
var (
	// ErrPRNotFound indicates the requested pull request does not exist.
	ErrPRNotFound = errors.New("pull request not found")

	// ErrOpenPRExists indicates an OPEN pull request already targets the
	// same (source, target) pair in the repository.
	ErrOpenPRExists = errors.New("open pull request already exists for branch pair")
)

// PullRequestStore defines the driven port for pull request persistence.
// Create returns ErrOpenPRExists when an OPEN pull request already exists
// for the same (repository, source, target) triple. Update persists status
// transitions together with the merge metadata columns.
type PullRequestStore interface {
	Create(ctx context.Context, pr model.PullRequest) (model.PullRequest, error)
	GetByID(ctx context.Context, id int64) (*model.PullRequest, error)
	Update(ctx context.Context, pr model.PullRequest) error
	ListByRepo(ctx context.Context, repoID int64) ([]model.PullRequest, error)
}
