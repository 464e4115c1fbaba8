package model

import "time"

// CollaboratorGrant gives a user a role on a repository. One grant per
// (repository, user) pair; the owner is never a grant row and implicitly
// holds ADMIN.
type CollaboratorGrant struct {
	RepoID  int64
	UserID  int64
	Role    Role
	AddedAt time.Time
}
