package model

import "time"

// Review is one reviewer's verdict on a pull request. At most one row per
// (pull request, reviewer); a repeat review overwrites status and comment.
type Review struct {
	ID         int64
	PRID       int64
	ReviewerID int64
	Status     ReviewStatus
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
