// Package gitcli shells out to the installed git binary. It is the only
// place in the codebase that runs subprocesses or reads git error text.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Git = (*CLI)(nil)

// DefaultTimeout bounds a single git invocation when the caller does not
// configure one. Remote operations go through the network and can hang
// indefinitely without it.
const DefaultTimeout = 60 * time.Second

// CLI implements the driven.Git port by running the git binary found on
// PATH. Each invocation gets its own stdout/stderr buffers and runs under
// a per-call timeout.
type CLI struct {
	bin     string
	timeout time.Duration
}

// New locates the git binary on PATH and returns a CLI using the given
// per-invocation timeout (DefaultTimeout when zero).
func New(timeout time.Duration) (*CLI, error) {
	bin, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("no git binary on PATH: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CLI{bin: bin, timeout: timeout}, nil
}

// run executes one git command under dir and returns its stdout. On
// failure the combined output is classified into a tagged GitFailure.
func (g *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.bin, args...)
	cmd.Dir = dir
	// Never let a subprocess block on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	op := args[0]
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &driven.GitFailure{Op: op, Variant: driven.VariantTimeout, Output: stderr.String(), Err: err}
	}
	// git reports merge conflicts on stdout, everything else on stderr.
	return stdout.String(), classify(op, stdout.String()+stderr.String(), err)
}

// runExit executes one git command and returns true on exit 0, false on
// exit 1, and an error otherwise. Used for predicates like is-ancestor
// and cat-file -e where exit 1 is an answer, not a failure.
func (g *CLI) runExit(ctx context.Context, dir string, args ...string) (bool, error) {
	_, err := g.run(ctx, dir, args...)
	if err == nil {
		return true, nil
	}
	var f *driven.GitFailure
	if errors.As(err, &f) && f.Variant != driven.VariantTimeout {
		var exitErr *exec.ExitError
		if errors.As(f.Err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
	}
	return false, err
}

// InitBare creates a bare repository at dir with the given default branch.
func (g *CLI) InitBare(ctx context.Context, dir, defaultBranch string) error {
	_, err := g.run(ctx, "", "init", "--bare", "--initial-branch="+defaultBranch, dir)
	return err
}

// Clone clones src into dst.
func (g *CLI) Clone(ctx context.Context, src, dst string) error {
	_, err := g.run(ctx, "", "clone", src, dst)
	return err
}

// CurrentBranch returns the short name of the checked-out branch.
func (g *CLI) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListBranchHeads returns every local branch with its head commit.
func (g *CLI) ListBranchHeads(ctx context.Context, dir string) ([]model.BranchHead, error) {
	out, err := g.run(ctx, dir, "for-each-ref", "--format=%(refname:short)%00%(objectname)", "refs/heads")
	if err != nil {
		return nil, err
	}
	return parseBranchHeads(out, ""), nil
}

// ListRemoteBranchHeads returns every origin remote-tracking branch with
// its head commit, names stripped of the origin/ prefix. origin/HEAD is
// skipped.
func (g *CLI) ListRemoteBranchHeads(ctx context.Context, dir string) ([]model.BranchHead, error) {
	out, err := g.run(ctx, dir, "for-each-ref", "--format=%(refname:short)%00%(objectname)", "refs/remotes/origin")
	if err != nil {
		return nil, err
	}
	return parseBranchHeads(out, "origin/"), nil
}

// BranchExists reports whether a local branch named name exists.
func (g *CLI) BranchExists(ctx context.Context, dir, name string) (bool, error) {
	return g.runExit(ctx, dir, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
}

// RevParse resolves a ref to a commit hash.
func (g *CLI) RevParse(ctx context.Context, dir, ref string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitExists reports whether hash names an existing commit object.
func (g *CLI) CommitExists(ctx context.Context, dir, hash string) (bool, error) {
	return g.runExit(ctx, dir, "cat-file", "-e", hash+"^{commit}")
}

// CreateBranch creates branch name at from without switching to it. An
// empty from creates it at HEAD.
func (g *CLI) CreateBranch(ctx context.Context, dir, name, from string) error {
	args := []string{"branch", name}
	if from != "" {
		args = append(args, from)
	}
	_, err := g.run(ctx, dir, args...)
	return err
}

// Checkout switches the working tree to branch name.
func (g *CLI) Checkout(ctx context.Context, dir, name string) error {
	_, err := g.run(ctx, dir, "checkout", name)
	return err
}

// ForceCheckout switches to branch name, creating or resetting it to HEAD.
func (g *CLI) ForceCheckout(ctx context.Context, dir, name string) error {
	_, err := g.run(ctx, dir, "checkout", "-B", name)
	return err
}

// DeleteBranch deletes a local branch; force deletes even when unmerged.
func (g *CLI) DeleteBranch(ctx context.Context, dir, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := g.run(ctx, dir, "branch", flag, name)
	return err
}

// Merge merges ref into the current branch.
func (g *CLI) Merge(ctx context.Context, dir, ref string, opts driven.MergeOptions) error {
	args := []string{"merge"}
	switch {
	case opts.FFOnly:
		args = append(args, "--ff-only")
	case opts.NoFF:
		args = append(args, "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	args = append(args, ref)
	_, err := g.run(ctx, dir, args...)
	return err
}

// AbortMerge aborts an in-progress merge.
func (g *CLI) AbortMerge(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "merge", "--abort")
	return err
}

// AbortRebase aborts an in-progress rebase.
func (g *CLI) AbortRebase(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "rebase", "--abort")
	return err
}

// IsAncestor reports whether ancestor is reachable from descendant along
// any parent chain.
func (g *CLI) IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error) {
	return g.runExit(ctx, dir, "merge-base", "--is-ancestor", ancestor, descendant)
}

// Status returns the parsed porcelain status entries.
func (g *CLI) Status(ctx context.Context, dir string) ([]model.StatusEntry, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// ConflictedFiles lists the currently unmerged paths.
func (g *CLI) ConflictedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// TrackedFiles lists every file in the index.
func (g *CLI) TrackedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, dir, "ls-files")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// AddAll stages every change including untracked files.
func (g *CLI) AddAll(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "add", "-A")
	return err
}

// Add stages the given paths.
func (g *CLI) Add(ctx context.Context, dir string, paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := g.run(ctx, dir, args...)
	return err
}

// Commit records a commit authored by the given identity, signed off and
// never GPG-signed, and returns the new commit hash.
func (g *CLI) Commit(ctx context.Context, dir, message, authorName, authorEmail string, allowEmpty bool) (string, error) {
	args := []string{
		"-c", "user.name=" + authorName,
		"-c", "user.email=" + authorEmail,
		"commit", "--signoff", "--no-gpg-sign", "-m", message,
	}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := g.run(ctx, dir, args...); err != nil {
		return "", err
	}
	return g.RevParse(ctx, dir, "HEAD")
}

// Reset moves HEAD to ref in the given mode.
func (g *CLI) Reset(ctx context.Context, dir string, mode model.ResetMode, ref string) error {
	_, err := g.run(ctx, dir, "reset", "--"+string(mode), ref)
	return err
}

// CheckoutConflictSide takes one side of a conflicted path and leaves it
// in the working tree.
func (g *CLI) CheckoutConflictSide(ctx context.Context, dir string, side model.Resolution, path string) error {
	_, err := g.run(ctx, dir, "checkout", "--"+string(side), "--", path)
	return err
}

// ShowFile returns the contents of path at ref.
func (g *CLI) ShowFile(ctx context.Context, dir, ref, path string) ([]byte, error) {
	out, err := g.run(ctx, dir, "show", ref+":"+path)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Log returns commits across the given refs in --date-order, newest
// first, bounded by Max and optionally excluding ancestors of Since.
func (g *CLI) Log(ctx context.Context, dir string, opts driven.LogOptions) ([]model.Commit, error) {
	args := []string{"log", "--date-order", "--pretty=format:" + logFormat}
	if opts.Max > 0 {
		args = append(args, fmt.Sprintf("-n%d", opts.Max))
	}
	args = append(args, opts.Refs...)
	if opts.Since != "" {
		args = append(args, "^"+opts.Since)
	}
	args = append(args, "--")
	out, err := g.run(ctx, dir, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

// HasRemote reports whether the named remote is configured.
func (g *CLI) HasRemote(ctx context.Context, dir, remote string) (bool, error) {
	out, err := g.run(ctx, dir, "remote")
	if err != nil {
		return false, err
	}
	for _, name := range splitLines(out) {
		if name == remote {
			return true, nil
		}
	}
	return false, nil
}

// Fetch updates remote-tracking refs from the remote.
func (g *CLI) Fetch(ctx context.Context, dir, remote string) error {
	_, err := g.run(ctx, dir, "fetch", remote)
	return err
}

// Pull merges the remote branch into the current branch.
func (g *CLI) Pull(ctx context.Context, dir, remote, branch string, ffOnly bool) error {
	args := []string{"pull", "--no-rebase"}
	if ffOnly {
		args = append(args, "--ff-only")
	}
	args = append(args, remote, branch)
	_, err := g.run(ctx, dir, args...)
	return err
}

// Push pushes branch to the remote.
func (g *CLI) Push(ctx context.Context, dir, remote, branch string, setUpstream, force bool) error {
	args := []string{"push"}
	if setUpstream {
		args = append(args, "-u")
	}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, branch)
	_, err := g.run(ctx, dir, args...)
	return err
}

// UpstreamOf returns the upstream ref of branch, or "" when none is
// configured.
func (g *CLI) UpstreamOf(ctx context.Context, dir, branch string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", branch+"@{upstream}")
	if err != nil {
		if driven.VariantOf(err) == driven.VariantNoUpstream || driven.VariantOf(err) == driven.VariantUnknownRef {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// AheadBehind counts the commits only on local (ahead) and only on
// upstream (behind).
func (g *CLI) AheadBehind(ctx context.Context, dir, upstream, local string) (int, int, error) {
	out, err := g.run(ctx, dir, "rev-list", "--left-right", "--count", upstream+"..."+local)
	if err != nil {
		return 0, 0, err
	}
	return parseAheadBehind(out)
}

// Stash saves uncommitted changes, untracked files included, under the
// given message.
func (g *CLI) Stash(ctx context.Context, dir, message string) error {
	_, err := g.run(ctx, dir, "stash", "push", "--include-untracked", "-m", message)
	return err
}

// StashPop re-applies and drops the most recent stash. A conflicting
// apply surfaces as a MergeConflict failure.
func (g *CLI) StashPop(ctx context.Context, dir string) error {
	_, err := g.run(ctx, dir, "stash", "pop")
	return err
}

// Diff returns the unified diff between two commits.
func (g *CLI) Diff(ctx context.Context, dir, base, head string) (string, error) {
	return g.run(ctx, dir, "diff", base, head)
}

// DiffNumstat returns per-file addition/deletion counts between two
// commits.
func (g *CLI) DiffNumstat(ctx context.Context, dir, base, head string) (string, error) {
	return g.run(ctx, dir, "diff", "--numstat", base, head)
}

// DiffNameStatus returns per-file status letters between two commits.
func (g *CLI) DiffNameStatus(ctx context.Context, dir, base, head string) (string, error) {
	return g.run(ctx, dir, "diff", "--name-status", "-M", base, head)
}

// DiffWorktree returns the unified diff of the working tree against HEAD.
func (g *CLI) DiffWorktree(ctx context.Context, dir string) (string, error) {
	return g.run(ctx, dir, "diff", "HEAD")
}
