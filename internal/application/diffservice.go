package application

import (
	"context"
	"log/slog"

	"github.com/Team-mobabi/backend-sub000/internal/diff"
	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// DiffReport is the structured comparison of two commits: full file
// diffs, per-file line counts, and the change-kind summary.
type DiffReport struct {
	Base    string
	Head    string
	Files   []diff.FileDiff
	Stats   []diff.Stat
	Changes []diff.NameStatus
}

// DiffService glues the raw git diff output to the diff parsers.
type DiffService struct {
	resolver *Resolver
	git      driven.Git
	logger   *slog.Logger
}

// NewDiffService creates a DiffService.
func NewDiffService(resolver *Resolver, git driven.Git) *DiffService {
	return &DiffService{resolver: resolver, git: git, logger: slog.Default()}
}

// Commits compares two refs. Requires READ.
func (s *DiffService) Commits(ctx context.Context, repoID, userID int64, base, head string) (DiffReport, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return DiffReport{}, err
	}
	defer ws.Close()

	baseHash, err := s.resolveRef(ctx, ws.Dir, base)
	if err != nil {
		return DiffReport{}, err
	}
	headHash, err := s.resolveRef(ctx, ws.Dir, head)
	if err != nil {
		return DiffReport{}, err
	}

	report := DiffReport{Base: baseHash, Head: headHash}

	raw, err := s.git.Diff(ctx, ws.Dir, baseHash, headHash)
	if err != nil {
		return DiffReport{}, opFailed(err, "diffing %s..%s", base, head)
	}
	if report.Files, err = diff.ParseUnified(raw); err != nil {
		return DiffReport{}, opFailed(err, "parsing diff")
	}

	raw, err = s.git.DiffNumstat(ctx, ws.Dir, baseHash, headHash)
	if err != nil {
		return DiffReport{}, opFailed(err, "counting changed lines")
	}
	if report.Stats, err = diff.ParseNumstat(raw); err != nil {
		return DiffReport{}, opFailed(err, "parsing numstat")
	}

	raw, err = s.git.DiffNameStatus(ctx, ws.Dir, baseHash, headHash)
	if err != nil {
		return DiffReport{}, opFailed(err, "summarizing changes")
	}
	if report.Changes, err = diff.ParseNameStatus(raw); err != nil {
		return DiffReport{}, opFailed(err, "parsing name-status")
	}

	return report, nil
}

// Worktree returns the uncommitted changes as structured file diffs.
// Requires READ.
func (s *DiffService) Worktree(ctx context.Context, repoID, userID int64) ([]diff.FileDiff, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	raw, err := s.git.DiffWorktree(ctx, ws.Dir)
	if err != nil {
		return nil, opFailed(err, "diffing working tree")
	}
	files, err := diff.ParseUnified(raw)
	if err != nil {
		return nil, opFailed(err, "parsing diff")
	}
	return files, nil
}

// resolveRef resolves a branch name or hash to a commit hash.
func (s *DiffService) resolveRef(ctx context.Context, dir, ref string) (string, error) {
	if ref == "" {
		ref = "HEAD"
	}
	hash, err := s.git.RevParse(ctx, dir, ref)
	if err != nil {
		if isVariant(err, driven.VariantUnknownRef) {
			return "", model.NewError(model.KindCommitNotFound, "ref %q does not exist", ref)
		}
		return "", opFailed(err, "resolving %q", ref)
	}
	return hash, nil
}
