package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// CollabService manages collaborator grants. Mutations require the actor
// to be the owner or hold ADMIN.
type CollabService struct {
	resolver *Resolver
	users    driven.UserStore
	grants   driven.CollaboratorStore
	logger   *slog.Logger
}

// NewCollabService creates a CollabService.
func NewCollabService(resolver *Resolver, users driven.UserStore, grants driven.CollaboratorStore) *CollabService {
	return &CollabService{
		resolver: resolver,
		users:    users,
		grants:   grants,
		logger:   slog.Default(),
	}
}

// Add creates or replaces the grant for userID on the repository. The
// owner implicitly holds ADMIN and never gets a grant row.
func (s *CollabService) Add(ctx context.Context, repoID, actorID, userID int64, role model.Role) error {
	repo, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !role.Valid() {
		return model.NewError(model.KindBadRequest, "unknown role %q", role)
	}
	if repo.OwnerID == userID {
		return model.NewError(model.KindBadRequest, "the owner already holds ADMIN")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, driven.ErrUserNotFound) {
			return model.NewError(model.KindUserNotFound, "user %d does not exist", userID)
		}
		return fmt.Errorf("loading user %d: %w", userID, err)
	}

	if err := s.grants.Upsert(ctx, model.CollaboratorGrant{RepoID: repoID, UserID: userID, Role: role}); err != nil {
		return fmt.Errorf("saving grant: %w", err)
	}
	s.logger.Info("granted collaborator role", "repo", repoID, "user", userID, "role", role, "actor", actorID)
	return nil
}

// Remove deletes the grant for userID on the repository.
func (s *CollabService) Remove(ctx context.Context, repoID, actorID, userID int64) error {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.grants.Remove(ctx, repoID, userID); err != nil {
		if errors.Is(err, driven.ErrGrantNotFound) {
			return model.NewError(model.KindUserNotFound, "user %d is not a collaborator", userID)
		}
		return fmt.Errorf("removing grant: %w", err)
	}
	s.logger.Info("removed collaborator", "repo", repoID, "user", userID, "actor", actorID)
	return nil
}

// List returns every grant on the repository. Requires READ.
func (s *CollabService) List(ctx context.Context, repoID, actorID int64) ([]model.CollaboratorGrant, error) {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleRead); err != nil {
		return nil, err
	}
	grants, err := s.grants.ListByRepo(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	return grants, nil
}
