package model

// MergeResult reports the outcome of a merge or pull. A merge that stops on
// textual conflicts is a normal result with HasConflict set, not an error.
type MergeResult struct {
	Success       bool
	FastForward   bool
	From          string
	To            string
	SourceBranch  string
	TargetBranch  string
	HasConflict   bool
	ConflictFiles []string
}

// PushResult reports the outcome of a push. UpToDate means the upstream
// already had every local commit and no network push was attempted.
type PushResult struct {
	Success  bool
	UpToDate bool
	Pushed   []string
}

// FileChange is one working-tree or index change from git status.
type FileChange struct {
	Name   string
	Status string
}

// StatusResult is the three-view status snapshot: per-file classification,
// the full tracked file list, and an empty-repository flag for UI bootstrap.
type StatusResult struct {
	Files    []FileChange
	AllFiles []string
	IsEmpty  bool
}

// BranchCreated reports a successful branch creation.
type BranchCreated struct {
	Name string
	Head string
	Base string
}

// CommitResult reports a successful commit.
type CommitResult struct {
	Hash    string
	Branch  string
	Message string
}

// ResetResult reports a reset, with the HEAD positions before and after and
// the change sets the reset left behind.
type ResetResult struct {
	Branch   string
	Before   string
	After    string
	Mode     ResetMode
	Modified []string
	Staged   []string
}

// ConflictState lists the currently conflicted paths; an empty list means
// no conflict is in progress.
type ConflictState struct {
	HasConflict   bool
	ConflictFiles []string
}

// ResolveResult reports progress after resolving a single conflicted path.
type ResolveResult struct {
	Resolved  bool
	Remaining []string
}
