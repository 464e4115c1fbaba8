package gitcli

import (
	"strings"

	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// classifyRule maps an output substring to a variant. First match wins, so
// more specific rules come first.
type classifyRule struct {
	needle  string
	variant driven.Variant
}

var classifyRules = []classifyRule{
	{"would be overwritten by", driven.VariantDirtyWorktree},
	{"commit your changes or stash them", driven.VariantDirtyWorktree},
	{"you have unstaged changes", driven.VariantDirtyWorktree},
	{"cannot pull with rebase: you have uncommitted changes", driven.VariantDirtyWorktree},
	{"needs merge", driven.VariantMergeConflict},
	{"conflict", driven.VariantMergeConflict},
	{"automatic merge failed", driven.VariantMergeConflict},
	{"fix conflicts and then commit", driven.VariantMergeConflict},
	{"unmerged files", driven.VariantMergeConflict},
	{"not possible to fast-forward", driven.VariantNonFastForward},
	{"non-fast-forward", driven.VariantNonFastForward},
	{"fetch first", driven.VariantNonFastForward},
	{"tip of your current branch is behind", driven.VariantNonFastForward},
	{"has no upstream branch", driven.VariantNoUpstream},
	{"no upstream configured", driven.VariantNoUpstream},
	{"no tracking information", driven.VariantNoUpstream},
	{"authentication failed", driven.VariantAuthRequired},
	{"permission denied", driven.VariantAuthRequired},
	{"could not read username", driven.VariantAuthRequired},
	{"403", driven.VariantAuthRequired},
	{"nothing to commit", driven.VariantNothingToCommit},
	{"nothing added to commit", driven.VariantNothingToCommit},
	{"no changes added to commit", driven.VariantNothingToCommit},
	{"already exists", driven.VariantBranchExists},
	{"used by worktree at", driven.VariantBranchCheckedOut},
	{"checked out at", driven.VariantBranchCheckedOut},
	{"cannot delete branch", driven.VariantBranchCheckedOut},
	{"not fully merged", driven.VariantNotFullyMerged},
	{"does not appear to be a git repository", driven.VariantNoRemote},
	{"no such remote", driven.VariantNoRemote},
	{"unknown revision", driven.VariantUnknownRef},
	{"not a valid object name", driven.VariantUnknownRef},
	{"bad revision", driven.VariantUnknownRef},
	{"did not match any file(s) known to git", driven.VariantUnknownRef},
	{"invalid reference", driven.VariantUnknownRef},
	{"couldn't find remote ref", driven.VariantUnknownRef},
	{"not something we can merge", driven.VariantUnknownRef},
	{"no such ref", driven.VariantUnknownRef},
	{"not found", driven.VariantUnknownRef},
}

// classify builds a GitFailure from the combined output of a failed git
// subprocess. Merge machinery reports conflicts on stdout, so callers pass
// stdout and stderr concatenated.
func classify(op, output string, err error) *driven.GitFailure {
	lower := strings.ToLower(output)
	for _, rule := range classifyRules {
		if strings.Contains(lower, rule.needle) {
			return &driven.GitFailure{Op: op, Variant: rule.variant, Output: output, Err: err}
		}
	}
	return &driven.GitFailure{Op: op, Variant: driven.VariantGeneric, Output: output, Err: err}
}
