package driven

import (
	"context"
	"errors"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// ErrGrantNotFound indicates no grant exists for the (repository, user)
// pair.
var ErrGrantNotFound = errors.New("collaborator grant not found")

// CollaboratorStore defines the driven port for collaborator grants.
// Upsert creates or replaces the single grant per (repository, user) pair.
// Get returns ErrGrantNotFound when no grant exists.
type CollaboratorStore interface {
	Upsert(ctx context.Context, grant model.CollaboratorGrant) error
	Get(ctx context.Context, repoID, userID int64) (*model.CollaboratorGrant, error)
	Remove(ctx context.Context, repoID, userID int64) error
	ListByRepo(ctx context.Context, repoID int64) ([]model.CollaboratorGrant, error)
}
