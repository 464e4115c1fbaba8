package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

func newPREnv(t *testing.T) (*env, *PRService, model.Repository) {
	t.Helper()
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	e.seedUser(2, "reviewer@example.com")
	repo := e.seedRepo(t, 1, "proj")
	e.grant(repo.ID, 2, model.RoleWrite)
	branches := NewBranchService(e.resolver, e.git)
	return e, NewPRService(e.resolver, branches, e.git, e.prs, e.reviews), repo
}

func openPR(t *testing.T, svc *PRService, repo model.Repository, requiresApproval bool) model.PullRequest {
	t.Helper()
	pr, err := svc.Create(context.Background(), repo.ID, 1, "Add feature", "", "feat", "main", requiresApproval)
	require.NoError(t, err)
	return pr
}

func TestCreatePullRequest(t *testing.T) {
	_, svc, repo := newPREnv(t)

	pr := openPR(t, svc, repo, false)
	assert.Equal(t, model.PRStatusOpen, pr.Status)
	assert.Equal(t, "feat", pr.SourceBranch)
	assert.Equal(t, "main", pr.TargetBranch)
}

func TestCreateRejectsSameBranch(t *testing.T) {
	_, svc, repo := newPREnv(t)

	_, err := svc.Create(context.Background(), repo.ID, 1, "t", "", "main", "main", false)
	assert.Equal(t, model.KindBadRequest, model.KindOf(err))
}

func TestCreateRejectsMissingBranch(t *testing.T) {
	e, svc, repo := newPREnv(t)
	e.git.branchExistsFn = func(_, name string) (bool, error) {
		return name != "ghost", nil
	}

	_, err := svc.Create(context.Background(), repo.ID, 1, "t", "", "ghost", "main", false)
	assert.Equal(t, model.KindBranchNotFound, model.KindOf(err))
}

func TestCreateRejectsDuplicateOpenPair(t *testing.T) {
	_, svc, repo := newPREnv(t)
	openPR(t, svc, repo, false)

	_, err := svc.Create(context.Background(), repo.ID, 1, "again", "", "feat", "main", false)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestMergeApprovalGate(t *testing.T) {
	e, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, true)

	_, _, err := svc.Merge(context.Background(), repo.ID, 1, pr.ID)
	assert.Equal(t, model.KindApprovalRequired, model.KindOf(err))

	// One APPROVED review makes the identical call succeed.
	require.NoError(t, svc.Review(context.Background(), repo.ID, 2, pr.ID, model.ReviewStatusApproved, "lgtm"))

	merged, result, err := svc.Merge(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, model.PRStatusMerged, merged.Status)
	require.NotNil(t, merged.MergedBy)
	assert.Equal(t, int64(1), *merged.MergedBy)
	assert.NotNil(t, merged.MergedAt)
	assert.Equal(t, result.To, merged.MergeCommit)
	assert.Equal(t, 1, e.git.called("push"))
}

func TestMergeConflictLeavesPROpen(t *testing.T) {
	e, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, false)
	e.git.mergeFn = func(_, _ string, _ driven.MergeOptions) error {
		return gitFail("merge", driven.VariantMergeConflict)
	}
	e.git.conflictedFilesFn = func(string) ([]string, error) {
		return []string{"a.txt"}, nil
	}

	got, result, err := svc.Merge(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)
	assert.True(t, result.HasConflict)
	assert.Equal(t, model.PRStatusOpen, got.Status)

	stored, err := svc.Get(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PRStatusOpen, stored.Status)
	assert.Equal(t, 0, e.git.called("push"))
}

func TestMergeTerminalStateRejected(t *testing.T) {
	_, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, false)
	_, err := svc.Close(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)

	_, _, err = svc.Merge(context.Background(), repo.ID, 1, pr.ID)
	assert.Equal(t, model.KindInvalidPullRequestState, model.KindOf(err))
}

func TestCloseIsIrreversible(t *testing.T) {
	_, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, false)

	closed, err := svc.Close(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PRStatusClosed, closed.Status)

	_, err = svc.Close(context.Background(), repo.ID, 1, pr.ID)
	assert.Equal(t, model.KindInvalidPullRequestState, model.KindOf(err))
}

func TestReviewRejectsSelfReview(t *testing.T) {
	_, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, false)

	err := svc.Review(context.Background(), repo.ID, 1, pr.ID, model.ReviewStatusApproved, "")
	assert.Equal(t, model.KindConflict, model.KindOf(err))
}

func TestRepeatReviewReplaces(t *testing.T) {
	_, svc, repo := newPREnv(t)
	pr := openPR(t, svc, repo, false)

	require.NoError(t, svc.Review(context.Background(), repo.ID, 2, pr.ID, model.ReviewStatusChangesRequested, "needs work"))
	require.NoError(t, svc.Review(context.Background(), repo.ID, 2, pr.ID, model.ReviewStatusApproved, "better"))

	reviews, err := svc.ListReviews(context.Background(), repo.ID, 1, pr.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, model.ReviewStatusApproved, reviews[0].Status)
	assert.Equal(t, "better", reviews[0].Comment)
}

func TestMergeUnknownPR(t *testing.T) {
	_, svc, repo := newPREnv(t)

	_, _, err := svc.Merge(context.Background(), repo.ID, 1, 99)
	assert.Equal(t, model.KindPullRequestNotFound, model.KindOf(err))
}

func TestGetPRFromAnotherRepo(t *testing.T) {
	e, svc, repo := newPREnv(t)
	other := e.seedRepo(t, 1, "other")
	pr := openPR(t, svc, repo, false)

	_, err := svc.Get(context.Background(), other.ID, 1, pr.ID)
	assert.Equal(t, model.KindPullRequestNotFound, model.KindOf(err))
}
