package model

import "time"

// User is an account known to the platform. Authentication lives outside
// the engine; the engine only needs a stable id and an email to stamp
// commits with.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// AuthorName returns the name used for the git author identity, falling
// back to the email local part when no display name is set.
func (u User) AuthorName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
