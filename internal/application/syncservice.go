package application

import (
	"context"
	"log/slog"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// SyncService moves commits between a workspace and its origin remote.
// Pull refuses to run over uncommitted changes; the stash-guarded variant
// lives in ConflictService.
type SyncService struct {
	resolver *Resolver
	git      driven.Git
	logger   *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(resolver *Resolver, git driven.Git) *SyncService {
	return &SyncService{resolver: resolver, git: git, logger: slog.Default()}
}

// Pull fetches and merges the remote branch into the workspace. The
// returned bool is true when local and remote were already identical and
// nothing ran. A merge conflict during the pull is a normal result with
// HasConflict set. Requires WRITE.
func (s *SyncService) Pull(ctx context.Context, repoID, userID int64, branch string, ffOnly bool) (model.MergeResult, bool, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.MergeResult{}, false, err
	}
	defer ws.Close()

	dirty := s.dirtyPaths(ctx, ws.Dir)
	if len(dirty) > 0 {
		return model.MergeResult{}, false, model.NewError(model.KindGitUncommittedChanges,
			"%d uncommitted change(s) block the pull", len(dirty)).
			WithFiles(dirty).
			WithHint("commit or stash your changes, or use the stash-guarded pull")
	}

	return s.pullInWorkspace(ctx, ws, branch, ffOnly)
}

// pullInWorkspace runs the pull inside an already-resolved workspace. The
// caller has dealt with uncommitted changes.
func (s *SyncService) pullInWorkspace(ctx context.Context, ws *Workspace, branch string, ffOnly bool) (model.MergeResult, bool, error) {
	current, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		return model.MergeResult{}, false, opFailed(err, "reading current branch")
	}
	if branch == "" {
		branch = current
	}

	ok, err := s.git.HasRemote(ctx, ws.Dir, "origin")
	if err != nil {
		return model.MergeResult{}, false, opFailed(err, "checking remote")
	}
	if !ok {
		return model.MergeResult{}, false, model.NewError(model.KindRemoteEmpty, "no origin remote is configured")
	}
	if err := s.git.Fetch(ctx, ws.Dir, "origin"); err != nil {
		return model.MergeResult{}, false, opFailed(err, "fetching origin")
	}

	local, err := s.git.RevParse(ctx, ws.Dir, branch)
	if err != nil {
		if isVariant(err, driven.VariantUnknownRef) {
			return model.MergeResult{}, false, branchNotFound(branch)
		}
		return model.MergeResult{}, false, opFailed(err, "resolving %q", branch)
	}
	remote, err := s.git.RevParse(ctx, ws.Dir, "origin/"+branch)
	if err != nil {
		if isVariant(err, driven.VariantUnknownRef) {
			return model.MergeResult{}, false, model.NewError(model.KindRemoteEmpty,
				"origin has no branch %q", branch)
		}
		return model.MergeResult{}, false, opFailed(err, "resolving origin/%q", branch)
	}

	if local == remote {
		return model.MergeResult{}, true, nil
	}

	fastForward, err := s.git.IsAncestor(ctx, ws.Dir, local, remote)
	if err != nil {
		return model.MergeResult{}, false, opFailed(err, "checking ancestry")
	}
	if ffOnly && !fastForward {
		return model.MergeResult{}, false, model.NewError(model.KindFastForwardNotPossible,
			"%q has diverged from origin/%q", branch, branch)
	}

	if current != branch {
		if err := s.git.Checkout(ctx, ws.Dir, branch); err != nil {
			return model.MergeResult{}, false, opFailed(err, "switching to branch %q", branch)
		}
	}

	result := model.MergeResult{
		From:         local,
		To:           remote,
		SourceBranch: "origin/" + branch,
		TargetBranch: branch,
	}
	if err := s.git.Pull(ctx, ws.Dir, "origin", branch, ffOnly); err != nil {
		switch {
		case isVariant(err, driven.VariantMergeConflict):
			files, listErr := s.git.ConflictedFiles(ctx, ws.Dir)
			if listErr != nil {
				return model.MergeResult{}, false, opFailed(listErr, "listing conflicted files")
			}
			result.Success = true
			result.HasConflict = true
			result.ConflictFiles = files
			return result, false, nil
		case isVariant(err, driven.VariantDirtyWorktree):
			// Local files collide with incoming changes.
			return model.MergeResult{}, false, model.NewError(model.KindGitPullConflict,
				"local changes collide with incoming changes").
				WithFiles(s.dirtyPaths(ctx, ws.Dir)).
				WithHint("commit, stash, or discard the listed files and pull again")
		case isVariant(err, driven.VariantNonFastForward) && ffOnly:
			return model.MergeResult{}, false, model.NewError(model.KindFastForwardNotPossible,
				"%q has diverged from origin/%q", branch, branch)
		default:
			return model.MergeResult{}, false, opFailed(err, "pulling origin/%q", branch)
		}
	}

	after, err := s.git.RevParse(ctx, ws.Dir, "HEAD")
	if err != nil {
		return model.MergeResult{}, false, opFailed(err, "reading post-pull head")
	}
	result.Success = true
	result.FastForward = fastForward
	result.To = after
	return result, false, nil
}

// Push sends the branch to origin. An up-to-date branch with an existing
// upstream short-circuits without touching the network; a missing
// upstream triggers one automatic retry that sets it. Requires WRITE.
func (s *SyncService) Push(ctx context.Context, repoID, userID int64, branch string, force bool) (model.PushResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.PushResult{}, err
	}
	defer ws.Close()

	if branch == "" {
		branch, err = s.git.CurrentBranch(ctx, ws.Dir)
		if err != nil {
			return model.PushResult{}, opFailed(err, "reading current branch")
		}
	}
	ok, err := s.git.BranchExists(ctx, ws.Dir, branch)
	if err != nil {
		return model.PushResult{}, opFailed(err, "checking branch %q", branch)
	}
	if !ok {
		return model.PushResult{}, branchNotFound(branch)
	}
	ok, err = s.git.HasRemote(ctx, ws.Dir, "origin")
	if err != nil {
		return model.PushResult{}, opFailed(err, "checking remote")
	}
	if !ok {
		return model.PushResult{}, model.NewError(model.KindRemoteEmpty, "no origin remote is configured")
	}

	upstream, err := s.git.UpstreamOf(ctx, ws.Dir, branch)
	if err != nil {
		return model.PushResult{}, opFailed(err, "reading upstream of %q", branch)
	}
	if upstream != "" && !force {
		ahead, _, err := s.git.AheadBehind(ctx, ws.Dir, upstream, branch)
		if err != nil {
			return model.PushResult{}, opFailed(err, "counting unpushed commits")
		}
		if ahead == 0 {
			return model.PushResult{Success: true, UpToDate: true, Pushed: []string{}}, nil
		}
	}

	pushed, err := s.unpushedHashes(ctx, ws.Dir, branch, upstream)
	if err != nil {
		return model.PushResult{}, err
	}

	if err := s.git.Push(ctx, ws.Dir, "origin", branch, false, force); err != nil {
		if isVariant(err, driven.VariantNoUpstream) {
			// Retry once, setting the upstream.
			err = s.git.Push(ctx, ws.Dir, "origin", branch, true, force)
		}
		if err != nil {
			switch {
			case isVariant(err, driven.VariantNonFastForward):
				return model.PushResult{}, model.NewError(model.KindGitPushRejected,
					"origin rejected the push as non-fast-forward").
					WithHint("pull the remote changes first")
			case isVariant(err, driven.VariantAuthRequired):
				return model.PushResult{}, model.NewError(model.KindGitPushRejected,
					"origin rejected the push").
					WithHint("check your permissions on the remote")
			default:
				return model.PushResult{}, opFailed(err, "pushing %q", branch)
			}
		}
	}

	s.logger.Info("pushed branch", "repo", repoID, "user", userID, "branch", branch, "commits", len(pushed))
	return model.PushResult{Success: true, Pushed: pushed}, nil
}

// unpushedHashes lists the commits on branch that the upstream does not
// have yet, newest first. Without an upstream the whole branch history
// within the default horizon counts.
func (s *SyncService) unpushedHashes(ctx context.Context, dir, branch, upstream string) ([]string, error) {
	opts := driven.LogOptions{Refs: []string{branch}, Since: upstream, Max: defaultGraphMax}
	commits, err := s.git.Log(ctx, dir, opts)
	if err != nil {
		return nil, opFailed(err, "listing unpushed commits")
	}
	hashes := make([]string, 0, len(commits))
	for _, c := range commits {
		hashes = append(hashes, c.Hash)
	}
	return hashes, nil
}

// dirtyPaths returns the tracked paths with uncommitted changes,
// best-effort.
func (s *SyncService) dirtyPaths(ctx context.Context, dir string) []string {
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
