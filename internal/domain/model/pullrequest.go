package model

import "time"

// PullRequest proposes merging SourceBranch into TargetBranch. Status moves
// OPEN -> MERGED or OPEN -> CLOSED and never leaves a terminal state.
type PullRequest struct {
	ID               int64
	RepoID           int64
	Title            string
	Description      string
	AuthorID         int64
	SourceBranch     string
	TargetBranch     string
	Status           PRStatus
	RequiresApproval bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Set only once the PR is merged.
	MergedAt    *time.Time
	MergedBy    *int64
	MergeCommit string
}

// IsOpen reports whether the pull request can still transition.
func (pr PullRequest) IsOpen() bool {
	return pr.Status == PRStatusOpen
}
