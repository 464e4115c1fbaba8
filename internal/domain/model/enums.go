package model

// Role is a collaborator access level. Levels are strictly ordered
// READ < WRITE < ADMIN; a grant at one level satisfies any check at
// that level or below.
type Role string

const (
	RoleRead  Role = "READ"
	RoleWrite Role = "WRITE"
	RoleAdmin Role = "ADMIN"
)

// rank maps roles onto their ordering. Unknown roles rank below READ.
func (r Role) rank() int {
	switch r {
	case RoleRead:
		return 1
	case RoleWrite:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether a grant at level r passes a check requiring
// the given role.
func (r Role) Satisfies(required Role) bool {
	return r.rank() >= required.rank()
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// PRStatus represents the state of a pull request. OPEN is the initial
// state; MERGED and CLOSED are terminal.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "OPEN"
	PRStatusMerged PRStatus = "MERGED"
	PRStatusClosed PRStatus = "CLOSED"
)

// ReviewStatus represents the verdict of a single review.
type ReviewStatus string

const (
	ReviewStatusApproved         ReviewStatus = "APPROVED"
	ReviewStatusChangesRequested ReviewStatus = "CHANGES_REQUESTED"
	ReviewStatusCommented        ReviewStatus = "COMMENTED"
)

// Visibility controls who can see a repository.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ResetMode selects how a reset treats the index and working tree.
type ResetMode string

const (
	ResetHard  ResetMode = "hard"
	ResetSoft  ResetMode = "soft"
	ResetMixed ResetMode = "mixed"
)

// Resolution selects which side wins when resolving a conflicted path.
type Resolution string

const (
	ResolutionOurs   Resolution = "ours"
	ResolutionTheirs Resolution = "theirs"
	ResolutionManual Resolution = "manual"
)
