package model

// StatusEntry is one parsed line of `git status --porcelain` output.
// Index and Worktree hold the two status columns; From is set for renames.
type StatusEntry struct {
	Path     string
	Index    byte
	Worktree byte
	From     string
}

// IsConflicted reports whether the entry is an unmerged path.
func (e StatusEntry) IsConflicted() bool {
	if e.Index == 'U' || e.Worktree == 'U' {
		return true
	}
	// Both-added and both-deleted conflicts have no 'U' column.
	return (e.Index == 'A' && e.Worktree == 'A') || (e.Index == 'D' && e.Worktree == 'D')
}

// IsUntracked reports whether the path is not yet tracked.
func (e StatusEntry) IsUntracked() bool {
	return e.Index == '?' && e.Worktree == '?'
}

// Classify maps the porcelain columns to the UI-facing change kind.
func (e StatusEntry) Classify() string {
	if e.IsConflicted() {
		return "conflicted"
	}
	if e.IsUntracked() {
		return "untracked"
	}
	switch {
	case e.Index == 'A':
		return "added"
	case e.Index == 'R' || e.Worktree == 'R':
		return "renamed"
	case e.Index == 'D' || e.Worktree == 'D':
		return "deleted"
	default:
		return "modified"
	}
}
