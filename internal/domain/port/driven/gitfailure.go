package driven

import (
	"errors"
	"fmt"
	"strings"
)

// Variant tags a git subprocess failure with its cause. The Git adapter
// classifies each failure exactly once at the subprocess boundary, so no
// caller ever matches raw git error text.
type Variant string

const (
	// VariantMergeConflict: the merge, pull, or stash apply stopped on
	// textual conflicts.
	VariantMergeConflict Variant = "MergeConflict"

	// VariantNonFastForward: a fast-forward was required but the refs have
	// diverged, or a push was rejected as non-fast-forward.
	VariantNonFastForward Variant = "NonFastForward"

	// VariantNoUpstream: the branch has no upstream configured.
	VariantNoUpstream Variant = "NoUpstream"

	// VariantAuthRequired: the remote rejected the operation for lack of
	// credentials or permissions.
	VariantAuthRequired Variant = "AuthRequired"

	// VariantNothingToCommit: commit was invoked with a clean index.
	VariantNothingToCommit Variant = "NothingToCommit"

	// VariantUnknownRef: a ref, revision, or pathspec does not exist.
	VariantUnknownRef Variant = "UnknownRef"

	// VariantDirtyWorktree: uncommitted changes block the operation.
	VariantDirtyWorktree Variant = "DirtyWorktree"

	// VariantBranchExists: branch creation hit an existing name.
	VariantBranchExists Variant = "BranchExists"

	// VariantBranchCheckedOut: the branch is checked out and cannot be
	// deleted.
	VariantBranchCheckedOut Variant = "BranchCheckedOut"

	// VariantNotFullyMerged: branch deletion without force on an unmerged
	// branch.
	VariantNotFullyMerged Variant = "NotFullyMerged"

	// VariantNoRemote: the named remote does not exist.
	VariantNoRemote Variant = "NoRemote"

	// VariantTimeout: the subprocess exceeded the per-invocation timeout.
	VariantTimeout Variant = "Timeout"

	// VariantGeneric: anything not covered above.
	VariantGeneric Variant = "Generic"
)

// GitFailure is the tagged error returned by every failed git invocation.
type GitFailure struct {
	Op      string
	Variant Variant
	Output  string
	Err     error
}

// Error implements the error interface.
func (f *GitFailure) Error() string {
	out := strings.TrimSpace(f.Output)
	if out != "" {
		return fmt.Sprintf("git %s: %s: %s", f.Op, f.Variant, out)
	}
	return fmt.Sprintf("git %s: %s: %v", f.Op, f.Variant, f.Err)
}

// Unwrap exposes the underlying exec error.
func (f *GitFailure) Unwrap() error {
	return f.Err
}

// VariantOf returns the variant of err when it is a GitFailure, or "".
func VariantOf(err error) Variant {
	var f *GitFailure
	if errors.As(err, &f) {
		return f.Variant
	}
	return ""
}
