package model

import "time"

// Commit is a transient view of one commit, rebuilt from the live ref and
// log state on every request. It is never persisted.
type Commit struct {
	Hash      string
	Parents   []string
	Author    string
	Timestamp time.Time
	Message   string
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// FirstParent returns the first parent hash, or "" for a root commit.
func (c Commit) FirstParent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// BranchHead is a branch name together with the commit its ref points at.
type BranchHead struct {
	Name string
	Hash string
}

// GraphCommit is a Commit enriched for graph rendering with the branches it
// belongs to and head markers.
type GraphCommit struct {
	Commit
	Branches     []string
	IsLocalHead  []string
	IsRemoteHead []string
}

// BranchTimeline is the first-parent commit list of a single branch head,
// ordered oldest to newest.
type BranchTimeline struct {
	Name    string
	Commits []Commit
}

// GraphResult is the combined cross-branch commit view for UI rendering.
type GraphResult struct {
	CurrentBranch  string
	BranchHeads    map[string]string
	ForkPoints     map[string]string
	Commits        []GraphCommit
	LocalBranches  []BranchTimeline
	RemoteBranches []BranchTimeline
}
