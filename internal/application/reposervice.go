package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// trunkBranch is the default branch every repository is created with.
const trunkBranch = "main"

// RepoService owns the repository lifecycle: creating the canonical bare
// store with its initial commit, reading metadata, and tearing everything
// down on deletion.
type RepoService struct {
	repos    driven.RepoStore
	resolver *Resolver
	git      driven.Git
	root     string
	logger   *slog.Logger
}

// NewRepoService creates a RepoService keeping canonical stores under
// reposRoot.
func NewRepoService(repos driven.RepoStore, resolver *Resolver, git driven.Git, reposRoot string) *RepoService {
	return &RepoService{
		repos:    repos,
		resolver: resolver,
		git:      git,
		root:     reposRoot,
		logger:   slog.Default(),
	}
}

// Create registers the repository, initializes its canonical bare store,
// and records an empty initial commit through the owner's workspace so the
// repository is never without history.
func (s *RepoService) Create(ctx context.Context, ownerID int64, name string, visibility model.Visibility) (model.Repository, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Repository{}, model.NewError(model.KindBadRequest, "repository name must not be empty")
	}
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}

	repo, err := s.repos.Create(ctx, model.Repository{OwnerID: ownerID, Name: name, Visibility: visibility})
	if err != nil {
		if errors.Is(err, driven.ErrRepoAlreadyExists) {
			return model.Repository{}, model.NewError(model.KindConflict, "repository %q already exists", name)
		}
		return model.Repository{}, fmt.Errorf("creating repository record: %w", err)
	}

	path := filepath.Join(s.root, strconv.FormatInt(repo.ID, 10)+".git")
	if err := s.git.InitBare(ctx, path, trunkBranch); err != nil {
		s.rollback(ctx, repo.ID, path)
		return model.Repository{}, opFailed(err, "initializing canonical store for %q", name)
	}
	if err := s.repos.SetPath(ctx, repo.ID, path); err != nil {
		s.rollback(ctx, repo.ID, path)
		return model.Repository{}, fmt.Errorf("recording canonical path: %w", err)
	}
	repo.Path = path

	if err := s.seedInitialCommit(ctx, repo.ID, ownerID); err != nil {
		s.rollback(ctx, repo.ID, path)
		return model.Repository{}, err
	}

	s.logger.Info("created repository", "repo", repo.ID, "name", name, "owner", ownerID)
	return repo, nil
}

// seedInitialCommit materializes the owner's workspace, records an empty
// commit, and pushes it to the canonical store.
func (s *RepoService) seedInitialCommit(ctx context.Context, repoID, ownerID int64) error {
	ws, err := s.resolver.Resolve(ctx, repoID, ownerID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	if _, err := s.git.Commit(ctx, ws.Dir, "Initial commit", ws.User.AuthorName(), ws.User.Email, true); err != nil {
		return opFailed(err, "recording initial commit")
	}
	if err := s.git.Push(ctx, ws.Dir, "origin", trunkBranch, true, false); err != nil {
		return opFailed(err, "pushing initial commit")
	}
	return nil
}

func (s *RepoService) rollback(ctx context.Context, repoID int64, path string) {
	_ = os.RemoveAll(path)
	_ = os.RemoveAll(s.resolver.WorkspacesDir(repoID))
	if err := s.repos.Delete(ctx, repoID); err != nil {
		s.logger.Error("rolling back repository record", "repo", repoID, "error", err)
	}
}

// Get returns the repository metadata after a READ check.
func (s *RepoService) Get(ctx context.Context, repoID, userID int64) (*model.Repository, error) {
	return s.resolver.Authorize(ctx, repoID, userID, model.RoleRead)
}

// List returns every repository the user owns or holds a grant on.
func (s *RepoService) List(ctx context.Context, userID int64) ([]model.Repository, error) {
	repos, err := s.repos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing repositories for user %d: %w", userID, err)
	}
	return repos, nil
}

// Delete removes the canonical store, every user workspace, and the
// metadata record with its dependent grants, pull requests, and reviews.
// Requires ADMIN.
func (s *RepoService) Delete(ctx context.Context, repoID, userID int64) error {
	repo, err := s.resolver.Authorize(ctx, repoID, userID, model.RoleAdmin)
	if err != nil {
		return err
	}

	if repo.Path != "" {
		if err := os.RemoveAll(repo.Path); err != nil {
			return fmt.Errorf("removing canonical store: %w", err)
		}
	}
	if err := os.RemoveAll(s.resolver.WorkspacesDir(repoID)); err != nil {
		return fmt.Errorf("removing workspaces: %w", err)
	}
	if err := s.repos.Delete(ctx, repoID); err != nil {
		return fmt.Errorf("deleting repository record: %w", err)
	}

	s.logger.Info("deleted repository", "repo", repoID, "actor", userID)
	return nil
}
