package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// ConflictService orchestrates conflict detection and recovery: resolving
// individual paths, aborting merges and rebases, and the stash-guarded
// pull and merge variants. The assistant is optional; resolution never
// depends on it.
type ConflictService struct {
	resolver  *Resolver
	branches  *BranchService
	sync      *SyncService
	git       driven.Git
	assistant driven.Assistant
	logger    *slog.Logger
}

// NewConflictService creates a ConflictService. assistant may be nil.
func NewConflictService(resolver *Resolver, branches *BranchService, sync *SyncService, git driven.Git, assistant driven.Assistant) *ConflictService {
	return &ConflictService{
		resolver:  resolver,
		branches:  branches,
		sync:      sync,
		git:       git,
		assistant: assistant,
		logger:    slog.Default(),
	}
}

// Check returns the currently conflicted paths. An empty list means no
// conflict is in progress. Requires READ.
func (s *ConflictService) Check(ctx context.Context, repoID, userID int64) (model.ConflictState, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return model.ConflictState{}, err
	}
	defer ws.Close()

	files, err := s.git.ConflictedFiles(ctx, ws.Dir)
	if err != nil {
		return model.ConflictState{}, opFailed(err, "listing conflicted files")
	}
	return model.ConflictState{HasConflict: len(files) > 0, ConflictFiles: files}, nil
}

// Resolve settles one conflicted path. ours and theirs take that side's
// blob; manual writes the supplied content. The resolved path is staged
// and the remaining conflicts reported. Requires WRITE.
func (s *ConflictService) Resolve(ctx context.Context, repoID, userID int64, path string, resolution model.Resolution, manualContent string) (model.ResolveResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.ResolveResult{}, err
	}
	defer ws.Close()

	if err := validatePath(path); err != nil {
		return model.ResolveResult{}, err
	}

	switch resolution {
	case model.ResolutionOurs, model.ResolutionTheirs:
		if err := s.git.CheckoutConflictSide(ctx, ws.Dir, resolution, path); err != nil {
			if isVariant(err, driven.VariantUnknownRef) {
				return model.ResolveResult{}, model.NewError(model.KindFileNotFound, "%q is not a conflicted path", path)
			}
			return model.ResolveResult{}, opFailed(err, "taking %s side of %q", resolution, path)
		}
	case model.ResolutionManual:
		if manualContent == "" {
			return model.ResolveResult{}, model.NewError(model.KindBadRequest, "manual resolution needs content")
		}
		if err := os.WriteFile(filepath.Join(ws.Dir, path), []byte(manualContent), 0o644); err != nil {
			return model.ResolveResult{}, fmt.Errorf("writing %q: %w", path, err)
		}
	default:
		return model.ResolveResult{}, model.NewError(model.KindBadRequest, "unknown resolution %q", resolution)
	}

	if err := s.git.Add(ctx, ws.Dir, []string{path}); err != nil {
		return model.ResolveResult{}, opFailed(err, "staging %q", path)
	}

	remaining, err := s.git.ConflictedFiles(ctx, ws.Dir)
	if err != nil {
		return model.ResolveResult{}, opFailed(err, "listing remaining conflicts")
	}
	return model.ResolveResult{Resolved: len(remaining) == 0, Remaining: remaining}, nil
}

// AbortMerge aborts the in-progress merge. Requires WRITE.
func (s *ConflictService) AbortMerge(ctx context.Context, repoID, userID int64) error {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := s.git.AbortMerge(ctx, ws.Dir); err != nil {
		return opFailed(err, "aborting merge")
	}
	return nil
}

// AbortRebase aborts the in-progress rebase. Requires WRITE.
func (s *ConflictService) AbortRebase(ctx context.Context, repoID, userID int64) error {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := s.git.AbortRebase(ctx, ws.Dir); err != nil {
		return opFailed(err, "aborting rebase")
	}
	return nil
}

// SafePull is the stash-guarded pull: uncommitted changes are stashed
// under a timestamped marker, the pull runs, and the stash is reapplied.
// A conflict while reapplying surfaces as GitStashConflict so callers can
// tell it apart from a pull conflict. Requires WRITE.
func (s *ConflictService) SafePull(ctx context.Context, repoID, userID int64, branch string, ffOnly bool) (model.MergeResult, bool, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.MergeResult{}, false, err
	}
	defer ws.Close()

	stashed := false
	if len(s.sync.dirtyPaths(ctx, ws.Dir)) > 0 {
		marker := fmt.Sprintf("gitserve-autostash-%s-%s", time.Now().UTC().Format(time.RFC3339), uuid.NewString()[:8])
		if err := s.git.Stash(ctx, ws.Dir, marker); err != nil {
			return model.MergeResult{}, false, opFailed(err, "stashing local changes")
		}
		stashed = true
		s.logger.Info("stashed local changes before pull", "repo", repoID, "user", userID, "marker", marker)
	}

	result, upToDate, pullErr := s.sync.pullInWorkspace(ctx, ws, branch, ffOnly)

	if stashed {
		if err := s.git.StashPop(ctx, ws.Dir); err != nil {
			if isVariant(err, driven.VariantMergeConflict) {
				files, listErr := s.git.ConflictedFiles(ctx, ws.Dir)
				if listErr != nil {
					files = nil
				}
				return model.MergeResult{}, false, model.NewError(model.KindGitStashConflict,
					"stashed changes conflict with the pulled history").
					WithFiles(files).
					WithHint("resolve the listed files, then drop the stash")
			}
			return model.MergeResult{}, false, opFailed(err, "reapplying stashed changes")
		}
	}

	return result, upToDate, pullErr
}

// SafeMerge merges with the same non-exceptional conflict contract as the
// branch engine, restoring the original branch when a non-conflict error
// follows a preparatory switch. Requires WRITE.
func (s *ConflictService) SafeMerge(ctx context.Context, repoID, userID int64, source, target string, ffOnly bool) (model.MergeResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleWrite)
	if err != nil {
		return model.MergeResult{}, err
	}
	defer ws.Close()

	return s.branches.mergeInWorkspace(ctx, ws, source, target, ffOnly, true)
}

// Suggest asks the optional assistant for a resolution of one conflicted
// file. Requires READ.
func (s *ConflictService) Suggest(ctx context.Context, repoID, userID int64, path string) (string, error) {
	if s.assistant == nil {
		return "", driven.ErrAssistantNotConfigured
	}

	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return "", err
	}
	defer ws.Close()

	if err := validatePath(path); err != nil {
		return "", err
	}
	content, err := os.ReadFile(filepath.Join(ws.Dir, path))
	if err != nil {
		return "", model.NewError(model.KindFileNotFound, "%q does not exist", path).WithCause(err)
	}

	suggestion, err := s.assistant.SuggestResolution(ctx, path, string(content))
	if err != nil {
		return "", fmt.Errorf("requesting suggestion for %q: %w", path, err)
	}
	return suggestion, nil
}
