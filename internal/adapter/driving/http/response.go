package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/application"
	"github.com/Team-mobabi/backend-sub000/internal/diff"
	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps an engine error onto an HTTP status and writes the
// structured error body. Errors without a Kind become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, driven.ErrAssistantNotConfigured) {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}

	var de *model.Error
	if !errors.As(err, &de) {
		slog.Default().Error("unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, statusOf(de.Kind), errorResponse{
		Error: de.Message,
		Kind:  string(de.Kind),
		Files: de.Files,
		Hint:  de.Hint,
	})
}

// statusOf maps an error kind onto its HTTP status class.
func statusOf(kind model.Kind) int {
	switch kind {
	case model.KindRepoNotFound, model.KindBranchNotFound,
		model.KindPullRequestNotFound, model.KindCommitNotFound,
		model.KindFileNotFound, model.KindUserNotFound:
		return http.StatusNotFound
	case model.KindRepoAccessDenied, model.KindApprovalRequired:
		return http.StatusForbidden
	case model.KindBranchAlreadyExists, model.KindMergeConflict,
		model.KindFastForwardNotPossible, model.KindRemoteEmpty,
		model.KindGitPullConflict, model.KindGitPushRejected,
		model.KindGitRebaseConflict, model.KindGitStashConflict,
		model.KindInvalidPullRequestState, model.KindConflict:
		return http.StatusConflict
	case model.KindFilenameTooLong, model.KindPathIsDirectory,
		model.KindGitUncommittedChanges, model.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse is the standard error response body. Kind, Files and Hint
// are present only for engine errors that carry them.
type errorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind,omitempty"`
	Files []string `json:"files,omitempty"`
	Hint  string   `json:"hint,omitempty"`
}

// RepoResponse is the JSON representation of a repository.
type RepoResponse struct {
	ID         int64  `json:"id"`
	OwnerID    int64  `json:"owner_id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	CreatedAt  string `json:"created_at"`
}

// CollaboratorResponse is the JSON representation of an access grant.
type CollaboratorResponse struct {
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
	AddedAt string `json:"added_at"`
}

// BranchListResponse pairs the checked-out branch with all local heads.
type BranchListResponse struct {
	Current  string               `json:"current"`
	Branches []BranchHeadResponse `json:"branches"`
}

// BranchHeadResponse is one branch name with the commit its ref points at.
type BranchHeadResponse struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// BranchCreatedResponse reports a successful branch creation.
type BranchCreatedResponse struct {
	Name string `json:"name"`
	Head string `json:"head"`
	Base string `json:"base"`
}

// MergeResponse is the JSON representation of a merge or pull outcome.
// Conflicts are reported here with a 200, never as an error body.
type MergeResponse struct {
	Success       bool     `json:"success"`
	FastForward   bool     `json:"fast_forward"`
	From          string   `json:"from,omitempty"`
	To            string   `json:"to,omitempty"`
	SourceBranch  string   `json:"source_branch,omitempty"`
	TargetBranch  string   `json:"target_branch,omitempty"`
	HasConflict   bool     `json:"has_conflict"`
	ConflictFiles []string `json:"conflict_files"`
}

// PushResponse is the JSON representation of a push outcome.
type PushResponse struct {
	Success  bool     `json:"success"`
	UpToDate bool     `json:"up_to_date"`
	Pushed   []string `json:"pushed"`
}

// FileChangeResponse is one classified working-tree change.
type FileChangeResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StatusResponse is the three-view worktree status snapshot.
type StatusResponse struct {
	Files    []FileChangeResponse `json:"files"`
	AllFiles []string             `json:"all_files"`
	IsEmpty  bool                 `json:"is_empty"`
}

// CommitResponse reports a successful commit.
type CommitResponse struct {
	Hash    string `json:"hash"`
	Branch  string `json:"branch"`
	Message string `json:"message"`
}

// ResetResponse reports a reset with HEAD positions and leftover changes.
type ResetResponse struct {
	Branch   string   `json:"branch"`
	Before   string   `json:"before"`
	After    string   `json:"after"`
	Mode     string   `json:"mode"`
	Modified []string `json:"modified"`
	Staged   []string `json:"staged"`
}

// ConflictStateResponse lists the currently conflicted paths.
type ConflictStateResponse struct {
	HasConflict   bool     `json:"has_conflict"`
	ConflictFiles []string `json:"conflict_files"`
}

// ResolveResponse reports progress after resolving one conflicted path.
type ResolveResponse struct {
	Resolved  bool     `json:"resolved"`
	Remaining []string `json:"remaining"`
}

// SuggestionResponse carries an assistant-proposed resolution for one path.
type SuggestionResponse struct {
	Path       string `json:"path"`
	Suggestion string `json:"suggestion"`
}

// PRResponse is the JSON representation of a pull request.
type PRResponse struct {
	ID               int64  `json:"id"`
	RepoID           int64  `json:"repo_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	AuthorID         int64  `json:"author_id"`
	SourceBranch     string `json:"source_branch"`
	TargetBranch     string `json:"target_branch"`
	Status           string `json:"status"`
	RequiresApproval bool   `json:"requires_approval"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
	MergedAt         string `json:"merged_at,omitempty"`
	MergedBy         *int64 `json:"merged_by,omitempty"`
	MergeCommit      string `json:"merge_commit,omitempty"`
}

// PRMergeResponse pairs the updated pull request with the merge outcome.
type PRMergeResponse struct {
	PullRequest PRResponse    `json:"pull_request"`
	Merge       MergeResponse `json:"merge"`
}

// ReviewResponse is the JSON representation of a single review.
type ReviewResponse struct {
	ID         int64  `json:"id"`
	PRID       int64  `json:"pr_id"`
	ReviewerID int64  `json:"reviewer_id"`
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// CommitInfoResponse is one commit in a graph or timeline payload.
type CommitInfoResponse struct {
	Hash      string   `json:"hash"`
	Parents   []string `json:"parents"`
	Author    string   `json:"author"`
	Timestamp string   `json:"timestamp"`
	Message   string   `json:"message"`
	IsMerge   bool     `json:"is_merge"`
}

// GraphCommitResponse is a commit enriched with branch membership and
// head markers for graph rendering.
type GraphCommitResponse struct {
	CommitInfoResponse
	Branches     []string `json:"branches"`
	IsLocalHead  []string `json:"is_local_head"`
	IsRemoteHead []string `json:"is_remote_head"`
}

// TimelineResponse is one branch's first-parent history, oldest first.
type TimelineResponse struct {
	Name    string               `json:"name"`
	Commits []CommitInfoResponse `json:"commits"`
}

// GraphResponse is the combined cross-branch commit view.
type GraphResponse struct {
	CurrentBranch  string                `json:"current_branch"`
	BranchHeads    map[string]string     `json:"branch_heads"`
	ForkPoints     map[string]string     `json:"fork_points"`
	Commits        []GraphCommitResponse `json:"commits"`
	LocalBranches  []TimelineResponse    `json:"local_branches"`
	RemoteBranches []TimelineResponse    `json:"remote_branches"`
}

// DiffLineResponse is one line within a hunk.
type DiffLineResponse struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// DiffHunkResponse is one @@ section of a file diff.
type DiffHunkResponse struct {
	OldStart int                `json:"old_start"`
	OldLines int                `json:"old_lines"`
	NewStart int                `json:"new_start"`
	NewLines int                `json:"new_lines"`
	Header   string             `json:"header"`
	Lines    []DiffLineResponse `json:"lines"`
}

// FileDiffResponse is the parsed diff of a single file.
type FileDiffResponse struct {
	OldPath  string             `json:"old_path"`
	NewPath  string             `json:"new_path"`
	Status   string             `json:"status"`
	IsBinary bool               `json:"is_binary"`
	Hunks    []DiffHunkResponse `json:"hunks"`
}

// DiffStatResponse is the per-file addition/deletion count.
type DiffStatResponse struct {
	Path      string `json:"path"`
	OldPath   string `json:"old_path,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	IsBinary  bool   `json:"is_binary"`
}

// DiffChangeResponse is one name-status entry of the comparison.
type DiffChangeResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path"`
	OldPath string `json:"old_path,omitempty"`
}

// DiffReportResponse is the structured comparison of two refs.
type DiffReportResponse struct {
	Base    string               `json:"base"`
	Head    string               `json:"head"`
	Files   []FileDiffResponse   `json:"files"`
	Stats   []DiffStatResponse   `json:"stats"`
	Changes []DiffChangeResponse `json:"changes"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRepoResponse converts a domain Repository to its JSON representation.
func toRepoResponse(repo model.Repository) RepoResponse {
	return RepoResponse{
		ID:         repo.ID,
		OwnerID:    repo.OwnerID,
		Name:       repo.Name,
		Visibility: string(repo.Visibility),
		CreatedAt:  repo.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toCollaboratorResponse converts a domain grant to its JSON representation.
func toCollaboratorResponse(g model.CollaboratorGrant) CollaboratorResponse {
	return CollaboratorResponse{
		UserID:  g.UserID,
		Role:    string(g.Role),
		AddedAt: g.AddedAt.UTC().Format(time.RFC3339),
	}
}

// toMergeResponse converts a domain MergeResult to its JSON representation.
func toMergeResponse(res model.MergeResult) MergeResponse {
	files := res.ConflictFiles
	if files == nil {
		files = []string{}
	}

	return MergeResponse{
		Success:       res.Success,
		FastForward:   res.FastForward,
		From:          res.From,
		To:            res.To,
		SourceBranch:  res.SourceBranch,
		TargetBranch:  res.TargetBranch,
		HasConflict:   res.HasConflict,
		ConflictFiles: files,
	}
}

// toPushResponse converts a domain PushResult to its JSON representation.
func toPushResponse(res model.PushResult) PushResponse {
	pushed := res.Pushed
	if pushed == nil {
		pushed = []string{}
	}

	return PushResponse{
		Success:  res.Success,
		UpToDate: res.UpToDate,
		Pushed:   pushed,
	}
}

// toStatusResponse converts a domain StatusResult to its JSON representation.
func toStatusResponse(res model.StatusResult) StatusResponse {
	files := make([]FileChangeResponse, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, FileChangeResponse{Name: f.Name, Status: f.Status})
	}

	all := res.AllFiles
	if all == nil {
		all = []string{}
	}

	return StatusResponse{Files: files, AllFiles: all, IsEmpty: res.IsEmpty}
}

// toResetResponse converts a domain ResetResult to its JSON representation.
func toResetResponse(res model.ResetResult) ResetResponse {
	modified := res.Modified
	if modified == nil {
		modified = []string{}
	}
	staged := res.Staged
	if staged == nil {
		staged = []string{}
	}

	return ResetResponse{
		Branch:   res.Branch,
		Before:   res.Before,
		After:    res.After,
		Mode:     string(res.Mode),
		Modified: modified,
		Staged:   staged,
	}
}

// toPRResponse converts a domain PullRequest to its JSON representation.
func toPRResponse(pr model.PullRequest) PRResponse {
	resp := PRResponse{
		ID:               pr.ID,
		RepoID:           pr.RepoID,
		Title:            pr.Title,
		Description:      pr.Description,
		AuthorID:         pr.AuthorID,
		SourceBranch:     pr.SourceBranch,
		TargetBranch:     pr.TargetBranch,
		Status:           string(pr.Status),
		RequiresApproval: pr.RequiresApproval,
		CreatedAt:        pr.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        pr.UpdatedAt.UTC().Format(time.RFC3339),
		MergedBy:         pr.MergedBy,
		MergeCommit:      pr.MergeCommit,
	}
	if pr.MergedAt != nil {
		resp.MergedAt = pr.MergedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

// toReviewResponse converts a domain Review to its JSON representation.
func toReviewResponse(r model.Review) ReviewResponse {
	return ReviewResponse{
		ID:         r.ID,
		PRID:       r.PRID,
		ReviewerID: r.ReviewerID,
		Status:     string(r.Status),
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toCommitInfoResponse converts a domain Commit to its JSON representation.
func toCommitInfoResponse(c model.Commit) CommitInfoResponse {
	parents := c.Parents
	if parents == nil {
		parents = []string{}
	}

	return CommitInfoResponse{
		Hash:      c.Hash,
		Parents:   parents,
		Author:    c.Author,
		Timestamp: c.Timestamp.UTC().Format(time.RFC3339),
		Message:   c.Message,
		IsMerge:   c.IsMerge(),
	}
}

// toGraphResponse converts a domain GraphResult to its JSON representation.
func toGraphResponse(res model.GraphResult) GraphResponse {
	commits := make([]GraphCommitResponse, 0, len(res.Commits))
	for _, gc := range res.Commits {
		commits = append(commits, GraphCommitResponse{
			CommitInfoResponse: toCommitInfoResponse(gc.Commit),
			Branches:           emptyIfNil(gc.Branches),
			IsLocalHead:        emptyIfNil(gc.IsLocalHead),
			IsRemoteHead:       emptyIfNil(gc.IsRemoteHead),
		})
	}

	heads := res.BranchHeads
	if heads == nil {
		heads = map[string]string{}
	}
	forks := res.ForkPoints
	if forks == nil {
		forks = map[string]string{}
	}

	return GraphResponse{
		CurrentBranch:  res.CurrentBranch,
		BranchHeads:    heads,
		ForkPoints:     forks,
		Commits:        commits,
		LocalBranches:  toTimelineResponses(res.LocalBranches),
		RemoteBranches: toTimelineResponses(res.RemoteBranches),
	}
}

// toTimelineResponses converts branch timelines to their JSON representation.
func toTimelineResponses(timelines []model.BranchTimeline) []TimelineResponse {
	resp := make([]TimelineResponse, 0, len(timelines))
	for _, t := range timelines {
		commits := make([]CommitInfoResponse, 0, len(t.Commits))
		for _, c := range t.Commits {
			commits = append(commits, toCommitInfoResponse(c))
		}
		resp = append(resp, TimelineResponse{Name: t.Name, Commits: commits})
	}

	return resp
}

// toFileDiffResponses converts parsed file diffs to their JSON representation.
func toFileDiffResponses(files []diff.FileDiff) []FileDiffResponse {
	resp := make([]FileDiffResponse, 0, len(files))
	for _, f := range files {
		hunks := make([]DiffHunkResponse, 0, len(f.Hunks))
		for _, h := range f.Hunks {
			lines := make([]DiffLineResponse, 0, len(h.Lines))
			for _, l := range h.Lines {
				lines = append(lines, DiffLineResponse{Kind: string(l.Kind), Content: l.Content})
			}
			hunks = append(hunks, DiffHunkResponse{
				OldStart: h.OldStart,
				OldLines: h.OldLines,
				NewStart: h.NewStart,
				NewLines: h.NewLines,
				Header:   h.Header,
				Lines:    lines,
			})
		}
		resp = append(resp, FileDiffResponse{
			OldPath:  f.OldPath,
			NewPath:  f.NewPath,
			Status:   f.Status,
			IsBinary: f.IsBinary,
			Hunks:    hunks,
		})
	}

	return resp
}

// toDiffReportResponse converts a diff report to its JSON representation.
func toDiffReportResponse(report application.DiffReport) DiffReportResponse {
	stats := make([]DiffStatResponse, 0, len(report.Stats))
	for _, s := range report.Stats {
		stats = append(stats, DiffStatResponse{
			Path:      s.Path,
			OldPath:   s.OldPath,
			Additions: s.Additions,
			Deletions: s.Deletions,
			IsBinary:  s.IsBinary,
		})
	}

	changes := make([]DiffChangeResponse, 0, len(report.Changes))
	for _, c := range report.Changes {
		changes = append(changes, DiffChangeResponse{
			Status:  c.Status,
			Path:    c.Path,
			OldPath: c.OldPath,
		})
	}

	return DiffReportResponse{
		Base:    report.Base,
		Head:    report.Head,
		Files:   toFileDiffResponses(report.Files),
		Stats:   stats,
		Changes: changes,
	}
}

// emptyIfNil normalizes nil string slices to empty for JSON output.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
