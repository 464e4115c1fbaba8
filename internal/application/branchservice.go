package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// BranchService owns branch lifecycle and merge execution in the caller's
// workspace. A merge that stops on textual conflicts is a normal result,
// never an error; only infrastructure failures and missing refs raise.
type BranchService struct {
	resolver *Resolver
	git      driven.Git
	logger   *slog.Logger
}

// NewBranchService creates a BranchService.
func NewBranchService(resolver *Resolver, git driven.Git) *BranchService {
	return &BranchService{resolver: resolver, git: git, logger: slog.Default()}
}

// List returns the checked-out branch and every local branch head.
// Requires READ.
func (s *BranchService) List(ctx context.Context, repoID, userID int64) (string, []model.BranchHead, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return "", nil, err
	}
	defer ws.Close()

	current, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		return "", nil, opFailed(err, "reading current branch")
	}
	heads, err := s.git.ListBranchHeads(ctx, ws.Dir)
	if err != nil {
		return "", nil, opFailed(err, "listing branches")
	}
	return current, heads, nil
}

// Create creates a branch from the given base, or from the checked-out
// branch when base is empty. Requires WRITE.
func (s *BranchService) Create(ctx context.Context, repoID, userID int64, name, from string) (model.BranchCreated, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.BranchCreated{}, err
	}
	defer ws.Close()

	if name == "" {
		return model.BranchCreated{}, model.NewError(model.KindBadRequest, "branch name must not be empty")
	}
	if from == "" {
		from, err = s.git.CurrentBranch(ctx, ws.Dir)
		if err != nil {
			return model.BranchCreated{}, opFailed(err, "reading current branch")
		}
	} else if ok, err := s.git.BranchExists(ctx, ws.Dir, from); err != nil {
		return model.BranchCreated{}, opFailed(err, "checking base branch %q", from)
	} else if !ok {
		return model.BranchCreated{}, branchNotFound(from)
	}

	if err := s.git.CreateBranch(ctx, ws.Dir, name, from); err != nil {
		switch {
		case isVariant(err, driven.VariantBranchExists):
			return model.BranchCreated{}, model.NewError(model.KindBranchAlreadyExists, "branch %q already exists", name)
		case isVariant(err, driven.VariantUnknownRef):
			return model.BranchCreated{}, branchNotFound(from)
		default:
			return model.BranchCreated{}, opFailed(err, "creating branch %q", name)
		}
	}

	head, err := s.git.RevParse(ctx, ws.Dir, name)
	if err != nil {
		return model.BranchCreated{}, opFailed(err, "resolving head of %q", name)
	}
	s.logger.Info("created branch", "repo", repoID, "branch", name, "from", from)
	return model.BranchCreated{Name: name, Head: head, Base: from}, nil
}

// Switch checks out the named branch. Uncommitted changes that would be
// clobbered surface as GitUncommittedChanges with the offending paths.
// Requires WRITE.
func (s *BranchService) Switch(ctx context.Context, repoID, userID int64, name string) error {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	return s.checkout(ctx, ws.Dir, name)
}

// checkout switches dir to branch name, translating the failure variants
// every caller needs.
func (s *BranchService) checkout(ctx context.Context, dir, name string) error {
	err := s.git.Checkout(ctx, dir, name)
	if err == nil {
		return nil
	}
	switch {
	case isVariant(err, driven.VariantUnknownRef):
		return branchNotFound(name)
	case isVariant(err, driven.VariantDirtyWorktree):
		return model.NewError(model.KindGitUncommittedChanges, "uncommitted changes block switching to %q", name).
			WithFiles(s.dirtyPaths(ctx, dir)).
			WithHint("commit or stash your changes first")
	default:
		return opFailed(err, "switching to branch %q", name)
	}
}

// Delete removes the named branch. Requires WRITE.
func (s *BranchService) Delete(ctx context.Context, repoID, userID int64, name string, force bool) error {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := s.git.DeleteBranch(ctx, ws.Dir, name, force); err != nil {
		switch {
		case isVariant(err, driven.VariantUnknownRef):
			return branchNotFound(name)
		case isVariant(err, driven.VariantBranchCheckedOut):
			return model.NewError(model.KindConflict, "branch %q is currently checked out", name)
		case isVariant(err, driven.VariantNotFullyMerged):
			return model.NewError(model.KindConflict, "branch %q is not fully merged", name).
				WithHint("delete with force to discard its commits")
		default:
			return opFailed(err, "deleting branch %q", name)
		}
	}
	s.logger.Info("deleted branch", "repo", repoID, "branch", name, "force", force)
	return nil
}

// Merge merges source into target (or into the checked-out branch when
// target is empty). Requires WRITE.
func (s *BranchService) Merge(ctx context.Context, repoID, userID int64, source, target string, ffOnly bool) (model.MergeResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.MergeResult{}, err
	}
	defer ws.Close()

	return s.mergeInWorkspace(ctx, ws, source, target, ffOnly, false)
}

// mergeInWorkspace runs the merge inside an already-resolved workspace.
// Unless ffOnly is set, the merge always records an explicit merge commit.
// When restore is set, a non-conflict failure after a preparatory branch
// switch checks the original branch back out before returning.
func (s *BranchService) mergeInWorkspace(ctx context.Context, ws *Workspace, source, target string, ffOnly, restore bool) (model.MergeResult, error) {
	current, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		return model.MergeResult{}, opFailed(err, "reading current branch")
	}
	if target == "" {
		target = current
	}

	for _, name := range []string{source, target} {
		ok, err := s.git.BranchExists(ctx, ws.Dir, name)
		if err != nil {
			return model.MergeResult{}, opFailed(err, "checking branch %q", name)
		}
		if !ok {
			return model.MergeResult{}, branchNotFound(name)
		}
	}

	switched := false
	if current != target {
		if err := s.checkout(ctx, ws.Dir, target); err != nil {
			return model.MergeResult{}, err
		}
		switched = true
	}
	restoreBranch := func() {
		if restore && switched {
			if err := s.git.Checkout(ctx, ws.Dir, current); err != nil {
				s.logger.Warn("restoring original branch", "branch", current, "error", err)
			}
		}
	}

	before, err := s.git.RevParse(ctx, ws.Dir, "HEAD")
	if err != nil {
		restoreBranch()
		return model.MergeResult{}, opFailed(err, "snapshotting pre-merge head")
	}

	opts := driven.MergeOptions{FFOnly: ffOnly}
	if !ffOnly {
		opts.NoFF = true
		opts.Message = fmt.Sprintf("Merge branch '%s' into %s", source, target)
	}

	result := model.MergeResult{
		From:         before,
		To:           before,
		SourceBranch: source,
		TargetBranch: target,
	}
	if err := s.git.Merge(ctx, ws.Dir, source, opts); err != nil {
		switch {
		case isVariant(err, driven.VariantMergeConflict):
			files, listErr := s.git.ConflictedFiles(ctx, ws.Dir)
			if listErr != nil {
				return model.MergeResult{}, opFailed(listErr, "listing conflicted files")
			}
			result.Success = true
			result.HasConflict = true
			result.ConflictFiles = files
			return result, nil
		case isVariant(err, driven.VariantNonFastForward) && ffOnly:
			restoreBranch()
			return model.MergeResult{}, model.NewError(model.KindFastForwardNotPossible,
				"%q is not a fast-forward of %q", source, target)
		default:
			restoreBranch()
			return model.MergeResult{}, opFailed(err, "merging %q into %q", source, target)
		}
	}

	after, err := s.git.RevParse(ctx, ws.Dir, "HEAD")
	if err != nil {
		return model.MergeResult{}, opFailed(err, "reading post-merge head")
	}
	result.Success = true
	result.FastForward = ffOnly && after != before
	result.To = after
	return result, nil
}

// dirtyPaths returns the tracked paths with uncommitted changes,
// best-effort.
func (s *BranchService) dirtyPaths(ctx context.Context, dir string) []string {
	entries, err := s.git.Status(ctx, dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if !e.IsUntracked() {
			paths = append(paths, e.Path)
		}
	}
	return paths
}
