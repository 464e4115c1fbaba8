package driven

import (
	"context"
	"errors"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// Sentinel errors returned by RepoStore implementations.
var (
	// ErrRepoNotFound indicates the requested repository does not exist.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrRepoAlreadyExists indicates the owner already has a repository
	// with the same name.
	ErrRepoAlreadyExists = errors.New("repository already exists")
)

// RepoStore defines the driven port for repository metadata persistence.
// Create returns ErrRepoAlreadyExists on a (owner, name) collision.
// Delete returns ErrRepoNotFound if the repository does not exist; deleting
// a repository cascades to its grants, pull requests, and reviews.
type RepoStore interface {
	Create(ctx context.Context, repo model.Repository) (model.Repository, error)
	GetByID(ctx context.Context, id int64) (*model.Repository, error)
	SetPath(ctx context.Context, id int64, path string) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]model.Repository, error)
}
