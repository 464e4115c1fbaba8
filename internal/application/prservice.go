package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// PRService runs the pull request state machine: OPEN moves to MERGED or
// CLOSED and never leaves a terminal state. The actual ref merge is
// delegated to the branch engine; only a clean merge progresses the PR.
type PRService struct {
	resolver *Resolver
	branches *BranchService
	git      driven.Git
	prs      driven.PullRequestStore
	reviews  driven.ReviewStore
	logger   *slog.Logger
}

// NewPRService creates a PRService.
func NewPRService(resolver *Resolver, branches *BranchService, git driven.Git, prs driven.PullRequestStore, reviews driven.ReviewStore) *PRService {
	return &PRService{
		resolver: resolver,
		branches: branches,
		git:      git,
		prs:      prs,
		reviews:  reviews,
		logger:   slog.Default(),
	}
}

// Create opens a pull request after checking both branches exist and
// differ. At most one OPEN pull request per (source, target) pair.
// Requires WRITE.
func (s *PRService) Create(ctx context.Context, repoID, authorID int64, title, description, source, target string, requiresApproval bool) (model.PullRequest, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, authorID, model.RoleWrite)
	if err != nil {
		return model.PullRequest{}, err
	}
	defer ws.Close()

	if title == "" {
		return model.PullRequest{}, model.NewError(model.KindBadRequest, "title must not be empty")
	}
	if source == target {
		return model.PullRequest{}, model.NewError(model.KindBadRequest, "source and target branch must differ")
	}
	for _, name := range []string{source, target} {
		ok, err := s.git.BranchExists(ctx, ws.Dir, name)
		if err != nil {
			return model.PullRequest{}, opFailed(err, "checking branch %q", name)
		}
		if !ok {
			return model.PullRequest{}, branchNotFound(name)
		}
	}

	pr, err := s.prs.Create(ctx, model.PullRequest{
		RepoID:           repoID,
		Title:            title,
		Description:      description,
		AuthorID:         authorID,
		SourceBranch:     source,
		TargetBranch:     target,
		Status:           model.PRStatusOpen,
		RequiresApproval: requiresApproval,
	})
	if err != nil {
		if errors.Is(err, driven.ErrOpenPRExists) {
			return model.PullRequest{}, model.NewError(model.KindConflict,
				"an open pull request from %q to %q already exists", source, target)
		}
		return model.PullRequest{}, fmt.Errorf("creating pull request: %w", err)
	}

	s.logger.Info("opened pull request", "repo", repoID, "pr", pr.ID, "source", source, "target", target)
	return pr, nil
}

// Get returns one pull request. Requires READ.
func (s *PRService) Get(ctx context.Context, repoID, actorID, prID int64) (*model.PullRequest, error) {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleRead); err != nil {
		return nil, err
	}
	return s.load(ctx, repoID, prID)
}

// List returns the repository's pull requests, newest first. Requires
// READ.
func (s *PRService) List(ctx context.Context, repoID, actorID int64) ([]model.PullRequest, error) {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleRead); err != nil {
		return nil, err
	}
	prs, err := s.prs.ListByRepo(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}
	return prs, nil
}

// Merge merges an OPEN pull request. With requiresApproval set, at least
// one APPROVED review must exist. A merge that stops on conflicts leaves
// the PR OPEN and returns the conflict result; only a clean merge records
// MERGED with its timestamp, actor, and merge commit. Requires WRITE.
func (s *PRService) Merge(ctx context.Context, repoID, actorID, prID int64) (model.PullRequest, model.MergeResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, actorID, model.RoleWrite)
	if err != nil {
		return model.PullRequest{}, model.MergeResult{}, err
	}
	defer ws.Close()

	pr, err := s.load(ctx, repoID, prID)
	if err != nil {
		return model.PullRequest{}, model.MergeResult{}, err
	}
	if !pr.IsOpen() {
		return model.PullRequest{}, model.MergeResult{}, model.NewError(model.KindInvalidPullRequestState,
			"pull request %d is %s", prID, pr.Status)
	}
	if pr.RequiresApproval {
		approvals, err := s.reviews.CountApprovals(ctx, prID)
		if err != nil {
			return model.PullRequest{}, model.MergeResult{}, fmt.Errorf("counting approvals: %w", err)
		}
		if approvals == 0 {
			return model.PullRequest{}, model.MergeResult{}, model.NewError(model.KindApprovalRequired,
				"pull request %d needs at least one approval", prID)
		}
	}

	result, err := s.branches.mergeInWorkspace(ctx, ws, pr.SourceBranch, pr.TargetBranch, false, false)
	if err != nil {
		return model.PullRequest{}, model.MergeResult{}, err
	}
	if result.HasConflict {
		// The PR stays OPEN; the caller resolves and retries.
		return *pr, result, nil
	}

	if err := s.git.Push(ctx, ws.Dir, "origin", pr.TargetBranch, true, false); err != nil {
		return model.PullRequest{}, model.MergeResult{}, opFailed(err, "publishing merged branch %q", pr.TargetBranch)
	}

	now := time.Now().UTC()
	pr.Status = model.PRStatusMerged
	pr.MergedAt = &now
	pr.MergedBy = &actorID
	pr.MergeCommit = result.To
	pr.UpdatedAt = now
	if err := s.prs.Update(ctx, *pr); err != nil {
		return model.PullRequest{}, model.MergeResult{}, fmt.Errorf("recording merge: %w", err)
	}

	s.logger.Info("merged pull request", "repo", repoID, "pr", prID, "actor", actorID, "commit", result.To)
	return *pr, result, nil
}

// Close closes an OPEN pull request. Terminal and irreversible. Requires
// WRITE.
func (s *PRService) Close(ctx context.Context, repoID, actorID, prID int64) (model.PullRequest, error) {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleWrite); err != nil {
		return model.PullRequest{}, err
	}
	pr, err := s.load(ctx, repoID, prID)
	if err != nil {
		return model.PullRequest{}, err
	}
	if !pr.IsOpen() {
		return model.PullRequest{}, model.NewError(model.KindInvalidPullRequestState,
			"pull request %d is %s", prID, pr.Status)
	}

	pr.Status = model.PRStatusClosed
	pr.UpdatedAt = time.Now().UTC()
	if err := s.prs.Update(ctx, *pr); err != nil {
		return model.PullRequest{}, fmt.Errorf("recording close: %w", err)
	}

	s.logger.Info("closed pull request", "repo", repoID, "pr", prID, "actor", actorID)
	return *pr, nil
}

// Review records the actor's verdict. The PR author cannot review their
// own pull request, and a repeat review replaces the earlier one.
// Requires READ.
func (s *PRService) Review(ctx context.Context, repoID, actorID, prID int64, status model.ReviewStatus, comment string) error {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleRead); err != nil {
		return err
	}
	pr, err := s.load(ctx, repoID, prID)
	if err != nil {
		return err
	}
	if pr.AuthorID == actorID {
		return model.NewError(model.KindConflict, "authors cannot review their own pull request")
	}
	switch status {
	case model.ReviewStatusApproved, model.ReviewStatusChangesRequested, model.ReviewStatusCommented:
	default:
		return model.NewError(model.KindBadRequest, "unknown review status %q", status)
	}

	if err := s.reviews.Upsert(ctx, model.Review{PRID: prID, ReviewerID: actorID, Status: status, Comment: comment}); err != nil {
		return fmt.Errorf("saving review: %w", err)
	}
	return nil
}

// ListReviews returns every review on the pull request. Requires READ.
func (s *PRService) ListReviews(ctx context.Context, repoID, actorID, prID int64) ([]model.Review, error) {
	if _, err := s.resolver.Authorize(ctx, repoID, actorID, model.RoleRead); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, repoID, prID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByPR(ctx, prID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, nil
}

// load fetches a pull request and checks it belongs to the repository.
func (s *PRService) load(ctx context.Context, repoID, prID int64) (*model.PullRequest, error) {
	pr, err := s.prs.GetByID(ctx, prID)
	if err != nil {
		if errors.Is(err, driven.ErrPRNotFound) {
			return nil, model.NewError(model.KindPullRequestNotFound, "pull request %d does not exist", prID)
		}
		return nil, fmt.Errorf("loading pull request %d: %w", prID, err)
	}
	if pr.RepoID != repoID {
		return nil, model.NewError(model.KindPullRequestNotFound, "pull request %d does not exist", prID)
	}
	return pr, nil
}
