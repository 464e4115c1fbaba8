package driven

import (
	"context"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// LogOptions bounds a combined commit listing. Refs may contain branch
// names, remote-tracking refs, or ranges; Since, when set, excludes that
// ref's ancestors. Max caps the number of commits returned.
type LogOptions struct {
	Refs  []string
	Max   int
	Since string
}

// MergeOptions controls how a merge is performed. FFOnly and NoFF are
// mutually exclusive; NoFF always records an explicit merge commit.
type MergeOptions struct {
	FFOnly  bool
	NoFF    bool
	Message string
}

// Git is the driven port for the installed git binary. Every method runs
// one or more git subprocesses under dir, blocks until they finish, and
// classifies failures into a tagged GitFailure at the boundary so
// callers never parse git error text themselves.
//
// Implementations do not serialize concurrent calls against the same dir;
// the application layer holds a per-workspace lock around each operation.
type Git interface {
	// Repository setup.
	InitBare(ctx context.Context, dir, defaultBranch string) error
	Clone(ctx context.Context, src, dst string) error

	// Refs.
	CurrentBranch(ctx context.Context, dir string) (string, error)
	ListBranchHeads(ctx context.Context, dir string) ([]model.BranchHead, error)
	ListRemoteBranchHeads(ctx context.Context, dir string) ([]model.BranchHead, error)
	BranchExists(ctx context.Context, dir, name string) (bool, error)
	RevParse(ctx context.Context, dir, ref string) (string, error)
	CommitExists(ctx context.Context, dir, hash string) (bool, error)

	// Branch lifecycle.
	CreateBranch(ctx context.Context, dir, name, from string) error
	Checkout(ctx context.Context, dir, name string) error
	ForceCheckout(ctx context.Context, dir, name string) error
	DeleteBranch(ctx context.Context, dir, name string, force bool) error

	// Merging.
	Merge(ctx context.Context, dir, ref string, opts MergeOptions) error
	AbortMerge(ctx context.Context, dir string) error
	AbortRebase(ctx context.Context, dir string) error
	IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error)

	// Working tree and index.
	Status(ctx context.Context, dir string) ([]model.StatusEntry, error)
	ConflictedFiles(ctx context.Context, dir string) ([]string, error)
	TrackedFiles(ctx context.Context, dir string) ([]string, error)
	AddAll(ctx context.Context, dir string) error
	Add(ctx context.Context, dir string, paths []string) error
	Commit(ctx context.Context, dir, message, authorName, authorEmail string, allowEmpty bool) (string, error)
	Reset(ctx context.Context, dir string, mode model.ResetMode, ref string) error
	CheckoutConflictSide(ctx context.Context, dir string, side model.Resolution, path string) error
	ShowFile(ctx context.Context, dir, ref, path string) ([]byte, error)

	// History.
	Log(ctx context.Context, dir string, opts LogOptions) ([]model.Commit, error)

	// Remote sync.
	HasRemote(ctx context.Context, dir, remote string) (bool, error)
	Fetch(ctx context.Context, dir, remote string) error
	Pull(ctx context.Context, dir, remote, branch string, ffOnly bool) error
	Push(ctx context.Context, dir, remote, branch string, setUpstream, force bool) error
	UpstreamOf(ctx context.Context, dir, branch string) (string, error)
	AheadBehind(ctx context.Context, dir, upstream, local string) (ahead, behind int, err error)

	// Stash.
	Stash(ctx context.Context, dir, message string) error
	StashPop(ctx context.Context, dir string) error

	// Diffs (raw text, parsed by the diff package).
	Diff(ctx context.Context, dir, base, head string) (string, error)
	DiffNumstat(ctx context.Context, dir, base, head string) (string, error)
	DiffNameStatus(ctx context.Context, dir, base, head string) (string, error)
	DiffWorktree(ctx context.Context, dir string) (string, error)
}
