package application

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

func newConflictEnv(t *testing.T) (*env, *ConflictService, model.Repository) {
	t.Helper()
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	repo := e.seedRepo(t, 1, "proj")
	branches := NewBranchService(e.resolver, e.git)
	sync := NewSyncService(e.resolver, e.git)
	return e, NewConflictService(e.resolver, branches, sync, e.git, nil), repo
}

func TestCheckReportsConflictedPaths(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.conflictedFilesFn = func(string) ([]string, error) {
		return []string{"a.txt", "b.txt"}, nil
	}

	state, err := svc.Check(context.Background(), repo.ID, 1)
	require.NoError(t, err)
	assert.True(t, state.HasConflict)
	assert.Equal(t, []string{"a.txt", "b.txt"}, state.ConflictFiles)
}

func TestCheckCleanTree(t *testing.T) {
	_, svc, repo := newConflictEnv(t)

	state, err := svc.Check(context.Background(), repo.ID, 1)
	require.NoError(t, err)
	assert.False(t, state.HasConflict)
}

func TestResolveTakesSideAndStages(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	var side model.Resolution
	e.git.checkoutConflictSideFn = func(_ string, s model.Resolution, path string) error {
		side = s
		assert.Equal(t, "a.txt", path)
		return nil
	}
	var staged []string
	e.git.addFn = func(_ string, paths []string) error {
		staged = paths
		return nil
	}

	result, err := svc.Resolve(context.Background(), repo.ID, 1, "a.txt", model.ResolutionTheirs, "")
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionTheirs, side)
	assert.Equal(t, []string{"a.txt"}, staged)
	assert.True(t, result.Resolved)
}

func TestResolveManualWritesContent(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.conflictedFilesFn = func(string) ([]string, error) {
		return []string{"b.txt"}, nil
	}

	result, err := svc.Resolve(context.Background(), repo.ID, 1, "a.txt", model.ResolutionManual, "merged content\n")
	require.NoError(t, err)
	assert.False(t, result.Resolved)
	assert.Equal(t, []string{"b.txt"}, result.Remaining)

	dir := e.resolver.workspaceDir(repo.ID, 1)
	content, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "merged content\n", string(content))
}

func TestResolveManualNeedsContent(t *testing.T) {
	_, svc, repo := newConflictEnv(t)

	_, err := svc.Resolve(context.Background(), repo.ID, 1, "a.txt", model.ResolutionManual, "")
	assert.Equal(t, model.KindBadRequest, model.KindOf(err))
}

func TestSafePullStashesAndRestores(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.statusFn = func(string) ([]model.StatusEntry, error) {
		return []model.StatusEntry{
			{Path: "a.txt", Index: ' ', Worktree: 'M'},
			{Path: "b.txt", Index: 'M', Worktree: ' '},
		}, nil
	}
	var marker string
	e.git.stashFn = func(_, message string) error {
		marker = message
		return nil
	}
	e.stubRefs("c1", "c2")

	result, upToDate, err := svc.SafePull(context.Background(), repo.ID, 1, "main", false)
	require.NoError(t, err)
	assert.False(t, upToDate)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(marker, "gitserve-autostash-"))
	assert.Equal(t, 1, e.git.called("stash"))
	assert.Equal(t, 1, e.git.called("stashPop"))
}

func TestSafePullCleanTreeSkipsStash(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.stubRefs("c1", "c2")

	_, _, err := svc.SafePull(context.Background(), repo.ID, 1, "main", false)
	require.NoError(t, err)
	assert.Equal(t, 0, e.git.called("stash"))
	assert.Equal(t, 0, e.git.called("stashPop"))
}

func TestSafePullStashConflictIsDistinct(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.statusFn = func(string) ([]model.StatusEntry, error) {
		return []model.StatusEntry{{Path: "a.txt", Index: ' ', Worktree: 'M'}}, nil
	}
	e.stubRefs("c1", "c2")
	e.git.stashPopFn = func(string) error {
		return gitFail("stash", driven.VariantMergeConflict)
	}
	e.git.conflictedFilesFn = func(string) ([]string, error) {
		return []string{"a.txt"}, nil
	}

	_, _, err := svc.SafePull(context.Background(), repo.ID, 1, "main", false)
	assert.Equal(t, model.KindGitStashConflict, model.KindOf(err))
	var engineErr *model.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, []string{"a.txt"}, engineErr.Files)
}

func TestSafeMergeRestoresBranchOnFailure(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.currentBranchFn = func(string) (string, error) { return "feat", nil }
	var checkouts []string
	e.git.checkoutFn = func(_, name string) error {
		checkouts = append(checkouts, name)
		return nil
	}
	e.git.mergeFn = func(_, _ string, _ driven.MergeOptions) error {
		return gitFail("merge", driven.VariantGeneric)
	}

	_, err := svc.SafeMerge(context.Background(), repo.ID, 1, "topic", "main", false)
	assert.Equal(t, model.KindGitOperationFailed, model.KindOf(err))
	assert.Equal(t, []string{"main", "feat"}, checkouts)
}

func TestSafeMergeConflictDoesNotRestore(t *testing.T) {
	e, svc, repo := newConflictEnv(t)
	e.git.currentBranchFn = func(string) (string, error) { return "feat", nil }
	var checkouts []string
	e.git.checkoutFn = func(_, name string) error {
		checkouts = append(checkouts, name)
		return nil
	}
	e.git.mergeFn = func(_, _ string, _ driven.MergeOptions) error {
		return gitFail("merge", driven.VariantMergeConflict)
	}
	e.git.conflictedFilesFn = func(string) ([]string, error) {
		return []string{"a.txt"}, nil
	}

	result, err := svc.SafeMerge(context.Background(), repo.ID, 1, "topic", "main", false)
	require.NoError(t, err)
	assert.True(t, result.HasConflict)
	// The conflicted tree stays on the target branch for resolution.
	assert.Equal(t, []string{"main"}, checkouts)
}

func TestSuggestWithoutAssistant(t *testing.T) {
	_, svc, repo := newConflictEnv(t)

	_, err := svc.Suggest(context.Background(), repo.ID, 1, "a.txt")
	assert.ErrorIs(t, err, driven.ErrAssistantNotConfigured)
}

func TestAbortMerge(t *testing.T) {
	e, svc, repo := newConflictEnv(t)

	require.NoError(t, svc.AbortMerge(context.Background(), repo.ID, 1))
	require.NoError(t, svc.AbortRebase(context.Background(), repo.ID, 1))
	assert.Equal(t, 1, e.git.called("abortMerge"))
	assert.Equal(t, 1, e.git.called("abortRebase"))
}
