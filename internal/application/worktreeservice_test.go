package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

func newWorktreeEnv(t *testing.T) (*env, *WorktreeService, model.Repository) {
	t.Helper()
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	repo := e.seedRepo(t, 1, "proj")
	return e, NewWorktreeService(e.resolver, e.git), repo
}

// touch creates a file inside the user's materialized workspace.
func touch(t *testing.T, e *env, repoID, userID int64, name string) {
	t.Helper()
	// Materialize the workspace first.
	ws, err := e.resolver.Resolve(context.Background(), repoID, userID, model.RoleRead)
	require.NoError(t, err)
	ws.Close()
	require.NoError(t, os.WriteFile(filepath.Join(e.resolver.workspaceDir(repoID, userID), name), []byte("x\n"), 0o644))
}

func TestStatusThreeViews(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	e.git.statusFn = func(string) ([]model.StatusEntry, error) {
		return []model.StatusEntry{
			{Path: "a.txt", Index: ' ', Worktree: 'M'},
			{Path: "b.txt", Index: 'A', Worktree: ' '},
			{Path: "new.txt", Index: '?', Worktree: '?'},
		}, nil
	}
	e.git.trackedFilesFn = func(string) ([]string, error) {
		return []string{"a.txt", "b.txt"}, nil
	}

	result, err := svc.Status(context.Background(), repo.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.FileChange{
		{Name: "a.txt", Status: "modified"},
		{Name: "b.txt", Status: "added"},
		{Name: "new.txt", Status: "untracked"},
	}, result.Files)
	assert.Equal(t, []string{"a.txt", "b.txt"}, result.AllFiles)
	assert.False(t, result.IsEmpty)
}

func TestStatusEmptyRepository(t *testing.T) {
	_, svc, repo := newWorktreeEnv(t)

	result, err := svc.Status(context.Background(), repo.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty)
}

func TestAddFilesEmptyListStagesEverything(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)

	require.NoError(t, svc.AddFiles(context.Background(), repo.ID, 1, nil))
	assert.Equal(t, 1, e.git.called("addAll"))
	assert.Equal(t, 0, e.git.called("add"))
}

func TestAddFilesValidatesBeforeStaging(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	touch(t, e, repo.ID, 1, "exists.txt")

	err := svc.AddFiles(context.Background(), repo.ID, 1, []string{"exists.txt", "ghost.txt", "phantom.txt"})
	assert.Equal(t, model.KindFileNotFound, model.KindOf(err))
	var engineErr *model.Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, []string{"ghost.txt", "phantom.txt"}, engineErr.Files)
	// Nothing was staged.
	assert.Equal(t, 0, e.git.called("add"))
}

func TestAddFilesStagesExistingList(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	touch(t, e, repo.ID, 1, "a.txt")
	var staged []string
	e.git.addFn = func(_ string, paths []string) error {
		staged = paths
		return nil
	}

	require.NoError(t, svc.AddFiles(context.Background(), repo.ID, 1, []string{"a.txt"}))
	assert.Equal(t, []string{"a.txt"}, staged)
}

func TestAddFilesRejectsEscapingPath(t *testing.T) {
	_, svc, repo := newWorktreeEnv(t)

	err := svc.AddFiles(context.Background(), repo.ID, 1, []string{"../outside.txt"})
	assert.Equal(t, model.KindBadRequest, model.KindOf(err))
}

func TestCommitUsesCallerIdentity(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	var author, email string
	e.git.commitFn = func(_, _, authorName, authorEmail string, _ bool) (string, error) {
		author = authorName
		email = authorEmail
		return "c7", nil
	}

	result, err := svc.Commit(context.Background(), repo.ID, 1, "add feature", "")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", author)
	assert.Equal(t, "owner@example.com", email)
	assert.Equal(t, "c7", result.Hash)
	assert.Equal(t, "main", result.Branch)
}

func TestCommitForceSwitchesBranch(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	var forced string
	e.git.forceCheckoutFn = func(_, name string) error {
		forced = name
		return nil
	}

	_, err := svc.Commit(context.Background(), repo.ID, 1, "msg", "feat")
	require.NoError(t, err)
	assert.Equal(t, "feat", forced)
}

func TestCommitNothingToCommit(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	e.git.commitFn = func(_, _, _, _ string, _ bool) (string, error) {
		return "", gitFail("commit", driven.VariantNothingToCommit)
	}

	_, err := svc.Commit(context.Background(), repo.ID, 1, "msg", "")
	assert.Equal(t, model.KindBadRequest, model.KindOf(err))
}

func TestResetToCommit(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	hashes := []string{"c2", "c1"}
	e.git.revParseFn = func(_, _ string) (string, error) {
		h := hashes[0]
		hashes = hashes[1:]
		return h, nil
	}
	var gotMode model.ResetMode
	e.git.resetFn = func(_ string, mode model.ResetMode, ref string) error {
		gotMode = mode
		assert.Equal(t, "c1", ref)
		return nil
	}
	e.git.statusFn = func(string) ([]model.StatusEntry, error) {
		return []model.StatusEntry{
			{Path: "a.txt", Index: 'M', Worktree: ' '},
			{Path: "b.txt", Index: ' ', Worktree: 'M'},
		}, nil
	}

	result, err := svc.ResetToCommit(context.Background(), repo.ID, 1, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, model.ResetMixed, gotMode)
	assert.Equal(t, "c2", result.Before)
	assert.Equal(t, "c1", result.After)
	assert.Equal(t, []string{"a.txt"}, result.Staged)
	assert.Equal(t, []string{"b.txt"}, result.Modified)
}

func TestResetUnknownCommit(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	e.git.commitExistsFn = func(_, _ string) (bool, error) { return false, nil }

	_, err := svc.ResetToCommit(context.Background(), repo.ID, 1, "deadbeef", model.ResetHard)
	assert.Equal(t, model.KindCommitNotFound, model.KindOf(err))
	assert.Equal(t, 0, e.git.called("reset"))
}

func TestResetRejectsUnknownMode(t *testing.T) {
	_, svc, repo := newWorktreeEnv(t)

	_, err := svc.ResetToCommit(context.Background(), repo.ID, 1, "c1", "sideways")
	assert.Equal(t, model.KindBadRequest, model.KindOf(err))
}

func TestWriteRequiresWriteRole(t *testing.T) {
	e, svc, repo := newWorktreeEnv(t)
	e.seedUser(2, "reader@example.com")
	e.grant(repo.ID, 2, model.RoleRead)

	err := svc.AddFiles(context.Background(), repo.ID, 2, nil)
	assert.Equal(t, model.KindRepoAccessDenied, model.KindOf(err))

	// Promotion to WRITE makes the identical call succeed.
	e.grant(repo.ID, 2, model.RoleWrite)
	assert.NoError(t, svc.AddFiles(context.Background(), repo.ID, 2, nil))
}
