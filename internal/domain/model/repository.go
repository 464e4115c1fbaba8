package model

import "time"

// Repository is a hosted git repository. Path points at the canonical
// server-side store; per-user workspaces are cloned from it on first
// access. A repository always has at least one commit once created.
type Repository struct {
	ID         int64
	OwnerID    int64
	Name       string
	Visibility Visibility
	Path       string
	CreatedAt  time.Time
}

// IsPublic returns true when the repository is visible to everyone.
func (r Repository) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}
