package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Workspace is an authorized handle to one user's working directory for a
// repository. The handle holds the per-workspace lock for its lifetime;
// callers must Close it when their operation finishes.
type Workspace struct {
	Repo model.Repository
	User model.User
	Dir  string

	release func()
}

// Close releases the workspace lock. Safe to call more than once.
func (w *Workspace) Close() {
	if w.release != nil {
		w.release()
	}
}

// Resolver is the single authorization choke point. Every engine entry
// point resolves its (repository, user, role) triple here before touching
// a working directory; no component bypasses it.
type Resolver struct {
	repos  driven.RepoStore
	users  driven.UserStore
	grants driven.CollaboratorStore
	git    driven.Git
	root   string
	locks  *pathLocker
	logger *slog.Logger
}

// NewResolver creates a Resolver materializing workspaces under
// workspacesRoot.
func NewResolver(repos driven.RepoStore, users driven.UserStore, grants driven.CollaboratorStore, git driven.Git, workspacesRoot string) *Resolver {
	return &Resolver{
		repos:  repos,
		users:  users,
		grants: grants,
		git:    git,
		root:   workspacesRoot,
		locks:  newPathLocker(),
		logger: slog.Default(),
	}
}

// Authorize checks that the repository exists and that userID may act on
// it at the required level. The owner always passes; a public repository
// passes READ checks for any user; otherwise a collaborator grant with
// role >= required is needed.
func (r *Resolver) Authorize(ctx context.Context, repoID, userID int64, required model.Role) (*model.Repository, error) {
	repo, err := r.repos.GetByID(ctx, repoID)
	if err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			return nil, model.NewError(model.KindRepoNotFound, "repository %d does not exist", repoID)
		}
		return nil, fmt.Errorf("loading repository %d: %w", repoID, err)
	}

	if repo.OwnerID == userID {
		return repo, nil
	}
	if repo.IsPublic() && required == model.RoleRead {
		return repo, nil
	}

	grant, err := r.grants.Get(ctx, repoID, userID)
	if err != nil {
		if errors.Is(err, driven.ErrGrantNotFound) {
			return nil, model.NewError(model.KindRepoAccessDenied, "user %d has no access to repository %d", userID, repoID)
		}
		return nil, fmt.Errorf("loading grant for repository %d user %d: %w", repoID, userID, err)
	}
	if !grant.Role.Satisfies(required) {
		return nil, model.NewError(model.KindRepoAccessDenied, "role %s does not satisfy required role %s", grant.Role, required)
	}
	return repo, nil
}

// Resolve authorizes the caller and returns a locked workspace handle,
// cloning the user's working copy from the canonical store on first
// access. The clone lands in a staging directory and is renamed into
// place, so a crashed or concurrent materialization never leaves a
// half-cloned workspace behind.
func (r *Resolver) Resolve(ctx context.Context, repoID, userID int64, required model.Role) (*Workspace, error) {
	repo, err := r.Authorize(ctx, repoID, userID, required)
	if err != nil {
		return nil, err
	}
	if repo.Path == "" {
		return nil, model.NewError(model.KindRepoPathNotConfigured, "repository %d has no canonical path", repoID)
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, driven.ErrUserNotFound) {
			return nil, model.NewError(model.KindUserNotFound, "user %d does not exist", userID)
		}
		return nil, fmt.Errorf("loading user %d: %w", userID, err)
	}

	release := r.locks.acquire(workspaceKey(repoID, userID))
	dir := r.workspaceDir(repoID, userID)
	if err := r.materialize(ctx, repo.Path, dir); err != nil {
		release()
		return nil, err
	}

	return &Workspace{Repo: *repo, User: *user, Dir: dir, release: release}, nil
}

// WorkspacesDir returns the directory holding every user workspace of a
// repository. Used by repository deletion.
func (r *Resolver) WorkspacesDir(repoID int64) string {
	return filepath.Join(r.root, strconv.FormatInt(repoID, 10))
}

func (r *Resolver) workspaceDir(repoID, userID int64) string {
	return filepath.Join(r.WorkspacesDir(repoID), strconv.FormatInt(userID, 10))
}

func workspaceKey(repoID, userID int64) string {
	return strconv.FormatInt(repoID, 10) + "/" + strconv.FormatInt(userID, 10)
}

// materialize clones the canonical store into dir unless it already
// exists. Runs under the workspace lock.
func (r *Resolver) materialize(ctx context.Context, canonical, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("creating workspace parent: %w", err)
	}
	staging := dir + ".tmp-" + uuid.NewString()
	if err := r.git.Clone(ctx, canonical, staging); err != nil {
		_ = os.RemoveAll(staging)
		return opFailed(err, "cloning workspace from %s", canonical)
	}
	if err := os.Rename(staging, dir); err != nil {
		_ = os.RemoveAll(staging)
		// A crashed earlier attempt may have been completed elsewhere.
		if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr == nil {
			return nil
		}
		return fmt.Errorf("activating workspace %s: %w", dir, err)
	}
	r.logger.Info("materialized workspace", "dir", dir, "canonical", canonical)
	return nil
}
