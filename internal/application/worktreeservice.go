package application

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// maxFilename bounds a single path component handed to the engine.
const maxFilename = 255

// WorktreeService exposes the day-to-day working tree operations: status,
// staging, committing, and resets.
type WorktreeService struct {
	resolver *Resolver
	git      driven.Git
	logger   *slog.Logger
}

// NewWorktreeService creates a WorktreeService.
func NewWorktreeService(resolver *Resolver, git driven.Git) *WorktreeService {
	return &WorktreeService{resolver: resolver, git: git, logger: slog.Default()}
}

// Status returns the three status views at once: per-file change
// classification, the full tracked file list, and an empty-repository
// flag. Requires READ.
func (s *WorktreeService) Status(ctx context.Context, repoID, userID int64) (model.StatusResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return model.StatusResult{}, err
	}
	defer ws.Close()

	entries, err := s.git.Status(ctx, ws.Dir)
	if err != nil {
		return model.StatusResult{}, opFailed(err, "reading status")
	}
	tracked, err := s.git.TrackedFiles(ctx, ws.Dir)
	if err != nil {
		return model.StatusResult{}, opFailed(err, "listing tracked files")
	}

	files := make([]model.FileChange, 0, len(entries))
	for _, e := range entries {
		files = append(files, model.FileChange{Name: e.Path, Status: e.Classify()})
	}
	return model.StatusResult{Files: files, AllFiles: tracked, IsEmpty: len(tracked) == 0}, nil
}

// AddFiles stages the given paths, or everything when the list is empty.
// An explicit list is validated file-by-file first; any missing path
// aborts the whole call with the full missing list and nothing staged.
// Requires WRITE.
func (s *WorktreeService) AddFiles(ctx context.Context, repoID, userID int64, files []string) error {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	if len(files) == 0 {
		if err := s.git.AddAll(ctx, ws.Dir); err != nil {
			return opFailed(err, "staging all changes")
		}
		return nil
	}

	var missing []string
	for _, f := range files {
		if err := validatePath(f); err != nil {
			return err
		}
		info, err := os.Stat(filepath.Join(ws.Dir, f))
		if err != nil {
			missing = append(missing, f)
			continue
		}
		if info.IsDir() {
			return model.NewError(model.KindPathIsDirectory, "%q is a directory", f)
		}
	}
	if len(missing) > 0 {
		return model.NewError(model.KindFileNotFound, "%d file(s) do not exist", len(missing)).WithFiles(missing)
	}

	if err := s.git.Add(ctx, ws.Dir, files); err != nil {
		return opFailed(err, "staging %d file(s)", len(files))
	}
	return nil
}

// Commit records the staged changes under the caller's own author
// identity, never the server's. A non-empty branch force-switches there
// first, creating or resetting it at HEAD. Requires WRITE.
func (s *WorktreeService) Commit(ctx context.Context, repoID, userID int64, message, branch string) (model.CommitResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.CommitResult{}, err
	}
	defer ws.Close()

	if message == "" {
		return model.CommitResult{}, model.NewError(model.KindBadRequest, "commit message must not be empty")
	}

	if branch != "" {
		current, err := s.git.CurrentBranch(ctx, ws.Dir)
		if err != nil {
			return model.CommitResult{}, opFailed(err, "reading current branch")
		}
		if current != branch {
			if err := s.git.ForceCheckout(ctx, ws.Dir, branch); err != nil {
				return model.CommitResult{}, opFailed(err, "switching to branch %q", branch)
			}
		}
	}

	hash, err := s.git.Commit(ctx, ws.Dir, message, ws.User.AuthorName(), ws.User.Email, false)
	if err != nil {
		if isVariant(err, driven.VariantNothingToCommit) {
			return model.CommitResult{}, model.NewError(model.KindBadRequest, "nothing to commit").
				WithHint("stage changes before committing")
		}
		return model.CommitResult{}, opFailed(err, "recording commit")
	}

	onBranch, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		return model.CommitResult{}, opFailed(err, "reading current branch")
	}
	s.logger.Info("recorded commit", "repo", repoID, "user", userID, "hash", hash, "branch", onBranch)
	return model.CommitResult{Hash: hash, Branch: onBranch, Message: message}, nil
}

// ResetToCommit moves HEAD to the given commit. hard discards working tree
// and index, soft keeps changes staged, mixed (the default) keeps them
// unstaged. Requires WRITE.
func (s *WorktreeService) ResetToCommit(ctx context.Context, repoID, userID int64, hash string, mode model.ResetMode) (model.ResetResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.ResetResult{}, err
	}
	defer ws.Close()

	if mode == "" {
		mode = model.ResetMixed
	}
	switch mode {
	case model.ResetHard, model.ResetSoft, model.ResetMixed:
	default:
		return model.ResetResult{}, model.NewError(model.KindBadRequest, "unknown reset mode %q", mode)
	}

	ok, err := s.git.CommitExists(ctx, ws.Dir, hash)
	if err != nil {
		return model.ResetResult{}, opFailed(err, "checking commit %q", hash)
	}
	if !ok {
		return model.ResetResult{}, model.NewError(model.KindCommitNotFound, "commit %q does not exist", hash)
	}

	branch, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		return model.ResetResult{}, opFailed(err, "reading current branch")
	}
	before, err := s.git.RevParse(ctx, ws.Dir, "HEAD")
	if err != nil {
		return model.ResetResult{}, opFailed(err, "snapshotting pre-reset head")
	}

	if err := s.git.Reset(ctx, ws.Dir, mode, hash); err != nil {
		return model.ResetResult{}, opFailed(err, "resetting to %q", hash)
	}

	after, err := s.git.RevParse(ctx, ws.Dir, "HEAD")
	if err != nil {
		return model.ResetResult{}, opFailed(err, "reading post-reset head")
	}
	entries, err := s.git.Status(ctx, ws.Dir)
	if err != nil {
		return model.ResetResult{}, opFailed(err, "reading post-reset status")
	}

	var modified, staged []string
	for _, e := range entries {
		if e.IsUntracked() {
			modified = append(modified, e.Path)
			continue
		}
		if e.Index != ' ' {
			staged = append(staged, e.Path)
		}
		if e.Worktree != ' ' {
			modified = append(modified, e.Path)
		}
	}

	s.logger.Info("reset workspace", "repo", repoID, "user", userID, "mode", mode, "before", before, "after", after)
	return model.ResetResult{
		Branch:   branch,
		Before:   before,
		After:    after,
		Mode:     mode,
		Modified: modified,
		Staged:   staged,
	}, nil
}

// validatePath rejects path shapes the engine never accepts.
func validatePath(path string) error {
	if path == "" {
		return model.NewError(model.KindBadRequest, "path must not be empty")
	}
	if len(filepath.Base(path)) > maxFilename {
		return model.NewError(model.KindFilenameTooLong, "filename exceeds %d characters", maxFilename)
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || clean == ".." || len(clean) >= 3 && clean[:3] == ".."+string(filepath.Separator) {
		return model.NewError(model.KindBadRequest, "path %q escapes the workspace", path)
	}
	return nil
}
