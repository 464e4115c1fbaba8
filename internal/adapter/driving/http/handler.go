package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/application"
	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// Handler is the HTTP driving adapter that serves the REST API. Every
// endpoint resolves the acting user from the X-User-ID header and maps
// 1:1 onto an engine operation.
type Handler struct {
	repos     *application.RepoService
	collabs   *application.CollabService
	branches  *application.BranchService
	graph     *application.GraphService
	worktree  *application.WorktreeService
	sync      *application.SyncService
	conflicts *application.ConflictService
	prs       *application.PRService
	diffs     *application.DiffService
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	repos *application.RepoService,
	collabs *application.CollabService,
	branches *application.BranchService,
	graph *application.GraphService,
	worktree *application.WorktreeService,
	sync *application.SyncService,
	conflicts *application.ConflictService,
	prs *application.PRService,
	diffs *application.DiffService,
) *Handler {
	return &Handler{
		repos:     repos,
		collabs:   collabs,
		branches:  branches,
		graph:     graph,
		worktree:  worktree,
		sync:      sync,
		conflicts: conflicts,
		prs:       prs,
		diffs:     diffs,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/repos", h.CreateRepo)
	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("GET /api/v1/repos/{id}", h.GetRepo)
	mux.HandleFunc("DELETE /api/v1/repos/{id}", h.DeleteRepo)

	mux.HandleFunc("GET /api/v1/repos/{id}/collaborators", h.ListCollaborators)
	mux.HandleFunc("PUT /api/v1/repos/{id}/collaborators/{userID}", h.AddCollaborator)
	mux.HandleFunc("DELETE /api/v1/repos/{id}/collaborators/{userID}", h.RemoveCollaborator)

	mux.HandleFunc("GET /api/v1/repos/{id}/branches", h.ListBranches)
	mux.HandleFunc("POST /api/v1/repos/{id}/branches", h.CreateBranch)
	mux.HandleFunc("POST /api/v1/repos/{id}/branches/switch", h.SwitchBranch)
	mux.HandleFunc("DELETE /api/v1/repos/{id}/branches/{name}", h.DeleteBranch)
	mux.HandleFunc("POST /api/v1/repos/{id}/merge", h.Merge)
	mux.HandleFunc("POST /api/v1/repos/{id}/merge/safe", h.SafeMerge)

	mux.HandleFunc("GET /api/v1/repos/{id}/graph", h.Graph)
	mux.HandleFunc("GET /api/v1/repos/{id}/status", h.Status)
	mux.HandleFunc("POST /api/v1/repos/{id}/add", h.AddFiles)
	mux.HandleFunc("POST /api/v1/repos/{id}/commits", h.Commit)
	mux.HandleFunc("POST /api/v1/repos/{id}/reset", h.Reset)

	mux.HandleFunc("POST /api/v1/repos/{id}/pull", h.Pull)
	mux.HandleFunc("POST /api/v1/repos/{id}/pull/safe", h.SafePull)
	mux.HandleFunc("POST /api/v1/repos/{id}/push", h.Push)

	mux.HandleFunc("GET /api/v1/repos/{id}/conflicts", h.ConflictState)
	mux.HandleFunc("POST /api/v1/repos/{id}/conflicts/resolve", h.ResolveConflict)
	mux.HandleFunc("POST /api/v1/repos/{id}/conflicts/abort-merge", h.AbortMerge)
	mux.HandleFunc("POST /api/v1/repos/{id}/conflicts/abort-rebase", h.AbortRebase)
	mux.HandleFunc("GET /api/v1/repos/{id}/conflicts/suggest", h.SuggestResolution)

	mux.HandleFunc("GET /api/v1/repos/{id}/diff", h.DiffCommits)
	mux.HandleFunc("GET /api/v1/repos/{id}/diff/worktree", h.DiffWorktree)

	mux.HandleFunc("POST /api/v1/repos/{id}/prs", h.CreatePR)
	mux.HandleFunc("GET /api/v1/repos/{id}/prs", h.ListPRs)
	mux.HandleFunc("GET /api/v1/repos/{id}/prs/{prID}", h.GetPR)
	mux.HandleFunc("POST /api/v1/repos/{id}/prs/{prID}/merge", h.MergePR)
	mux.HandleFunc("POST /api/v1/repos/{id}/prs/{prID}/close", h.ClosePR)
	mux.HandleFunc("POST /api/v1/repos/{id}/prs/{prID}/reviews", h.SubmitReview)
	mux.HandleFunc("GET /api/v1/repos/{id}/prs/{prID}/reviews", h.ListReviews)

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// identity resolves the acting user from the X-User-ID header. Writes a 401
// and returns false when the header is missing or malformed.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnauthorized, "invalid X-User-ID header")
		return 0, false
	}

	return id, true
}

// repoID parses the {id} path segment. Writes a 400 and returns false on
// malformed input.
func (h *Handler) repoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid repository id")
		return 0, false
	}
	return id, true
}

// prID parses the {prID} path segment.
func (h *Handler) prID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("prID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pull request id")
		return 0, false
	}
	return id, true
}

// decode reads the JSON request body into dst. Writes a 400 and returns
// false on malformed input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// CreateRepoRequest is the JSON body for the create repository endpoint.
type CreateRepoRequest struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

// CreateRepo creates a repository owned by the acting user and seeds its
// initial commit.
func (h *Handler) CreateRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateRepoRequest
	if !h.decode(w, r, &req) {
		return
	}

	repo, err := h.repos.Create(r.Context(), userID, req.Name, model.Visibility(req.Visibility))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRepoResponse(repo))
}

// ListRepos returns the repositories visible to the acting user.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}

	repos, err := h.repos.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRepo returns a single repository.
func (h *Handler) GetRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	repo, err := h.repos.Get(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRepoResponse(*repo))
}

// DeleteRepo removes a repository and all of its workspaces.
func (h *Handler) DeleteRepo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	if err := h.repos.Delete(r.Context(), repoID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCollaborators returns the access grants on a repository.
func (h *Handler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	grants, err := h.collabs.List(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]CollaboratorResponse, 0, len(grants))
	for _, g := range grants {
		resp = append(resp, toCollaboratorResponse(g))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GrantRequest is the JSON body for the add collaborator endpoint.
type GrantRequest struct {
	Role string `json:"role"`
}

// AddCollaborator grants or updates a user's role on a repository.
func (h *Handler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req GrantRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.collabs.Add(r.Context(), repoID, actorID, targetID, model.Role(req.Role)); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveCollaborator revokes a user's access to a repository.
func (h *Handler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.collabs.Remove(r.Context(), repoID, actorID, targetID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBranches returns the checked-out branch and all local heads.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	current, heads, err := h.branches.List(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := BranchListResponse{Current: current, Branches: make([]BranchHeadResponse, 0, len(heads))}
	for _, head := range heads {
		resp.Branches = append(resp.Branches, BranchHeadResponse{Name: head.Name, Hash: head.Hash})
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateBranchRequest is the JSON body for the create branch endpoint.
type CreateBranchRequest struct {
	Name string `json:"name"`
	From string `json:"from"`
}

// CreateBranch creates a branch from the given base, defaulting to the
// current branch.
func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req CreateBranchRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.branches.Create(r.Context(), repoID, userID, req.Name, req.From)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BranchCreatedResponse{
		Name: created.Name,
		Head: created.Head,
		Base: created.Base,
	})
}

// SwitchBranchRequest is the JSON body for the switch branch endpoint.
type SwitchBranchRequest struct {
	Name string `json:"name"`
}

// SwitchBranch checks out an existing branch in the user's workspace.
func (h *Handler) SwitchBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req SwitchBranchRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.branches.Switch(r.Context(), repoID, userID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteBranch deletes a branch; ?force=true discards unmerged commits.
func (h *Handler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	if err := h.branches.Delete(r.Context(), repoID, userID, r.PathValue("name"), force); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MergeRequest is the JSON body for the merge endpoints.
type MergeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	FFOnly bool   `json:"ff_only"`
}

// Merge merges source into target. A conflicted merge is a 200 with the
// conflict detail in the body.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req MergeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.branches.Merge(r.Context(), repoID, userID, req.Source, req.Target, req.FFOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMergeResponse(res))
}

// SafeMerge merges with the guarantee that the starting branch is restored
// when the merge fails outright.
func (h *Handler) SafeMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req MergeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.conflicts.SafeMerge(r.Context(), repoID, userID, req.Source, req.Target, req.FFOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMergeResponse(res))
}

// Graph returns the cross-branch commit graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	max := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid max parameter")
			return
		}
		max = parsed
	}

	res, err := h.graph.Graph(r.Context(), repoID, userID, max, r.URL.Query().Get("since"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGraphResponse(res))
}

// Status returns the worktree status snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	res, err := h.worktree.Status(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(res))
}

// AddFilesRequest is the JSON body for the stage files endpoint.
type AddFilesRequest struct {
	Files []string `json:"files"`
}

// AddFiles stages the listed paths, or everything when the list is empty.
func (h *Handler) AddFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req AddFilesRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.worktree.AddFiles(r.Context(), repoID, userID, req.Files); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CommitRequest is the JSON body for the commit endpoint.
type CommitRequest struct {
	Message string `json:"message"`
	Branch  string `json:"branch"`
}

// Commit records the staged changes as a commit authored by the acting user.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req CommitRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.worktree.Commit(r.Context(), repoID, userID, req.Message, req.Branch)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CommitResponse{
		Hash:    res.Hash,
		Branch:  res.Branch,
		Message: res.Message,
	})
}

// ResetRequest is the JSON body for the reset endpoint.
type ResetRequest struct {
	Commit string `json:"commit"`
	Mode   string `json:"mode"`
}

// Reset moves HEAD to the given commit, defaulting to mixed mode.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req ResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.worktree.ResetToCommit(r.Context(), repoID, userID, req.Commit, model.ResetMode(req.Mode))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResetResponse(res))
}

// PullRequestBody is the JSON body for the pull endpoints.
type PullRequestBody struct {
	Branch string `json:"branch"`
	FFOnly bool   `json:"ff_only"`
}

// Pull integrates remote changes into the workspace branch. An already
// up-to-date branch answers 204 with no body.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req PullRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	res, upToDate, err := h.sync.Pull(r.Context(), repoID, userID, req.Branch, req.FFOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if upToDate {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, toMergeResponse(res))
}

// SafePull pulls with local changes stashed for the duration.
func (h *Handler) SafePull(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req PullRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	res, upToDate, err := h.conflicts.SafePull(r.Context(), repoID, userID, req.Branch, req.FFOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if upToDate {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, toMergeResponse(res))
}

// PushRequestBody is the JSON body for the push endpoint.
type PushRequestBody struct {
	Branch string `json:"branch"`
	Force  bool   `json:"force"`
}

// Push publishes local commits to the remote.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req PushRequestBody
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.sync.Push(r.Context(), repoID, userID, req.Branch, req.Force)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPushResponse(res))
}

// ConflictState returns the currently conflicted paths.
func (h *Handler) ConflictState(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	res, err := h.conflicts.Check(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConflictStateResponse{
		HasConflict:   res.HasConflict,
		ConflictFiles: emptyIfNil(res.ConflictFiles),
	})
}

// ResolveConflictRequest is the JSON body for the resolve endpoint.
type ResolveConflictRequest struct {
	Path       string `json:"path"`
	Resolution string `json:"resolution"`
	Content    string `json:"content"`
}

// ResolveConflict resolves one conflicted path with ours, theirs, or
// manual content.
func (h *Handler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req ResolveConflictRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.conflicts.Resolve(r.Context(), repoID, userID, req.Path, model.Resolution(req.Resolution), req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResolveResponse{
		Resolved:  res.Resolved,
		Remaining: emptyIfNil(res.Remaining),
	})
}

// AbortMerge abandons an in-progress merge.
func (h *Handler) AbortMerge(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	if err := h.conflicts.AbortMerge(r.Context(), repoID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AbortRebase abandons an in-progress rebase.
func (h *Handler) AbortRebase(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	if err := h.conflicts.AbortRebase(r.Context(), repoID, userID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SuggestResolution asks the configured assistant for a resolution proposal.
func (h *Handler) SuggestResolution(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing path parameter")
		return
	}

	suggestion, err := h.conflicts.Suggest(r.Context(), repoID, userID, path)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestionResponse{Path: path, Suggestion: suggestion})
}

// DiffCommits compares two refs, defaulting head to HEAD.
func (h *Handler) DiffCommits(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	base := r.URL.Query().Get("base")
	head := r.URL.Query().Get("head")

	report, err := h.diffs.Commits(r.Context(), repoID, userID, base, head)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDiffReportResponse(report))
}

// DiffWorktree returns the uncommitted changes as parsed file diffs.
func (h *Handler) DiffWorktree(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	files, err := h.diffs.Worktree(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileDiffResponses(files))
}

// CreatePRRequest is the JSON body for the create pull request endpoint.
type CreatePRRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	SourceBranch     string `json:"source_branch"`
	TargetBranch     string `json:"target_branch"`
	RequiresApproval bool   `json:"requires_approval"`
}

// CreatePR opens a pull request authored by the acting user.
func (h *Handler) CreatePR(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	var req CreatePRRequest
	if !h.decode(w, r, &req) {
		return
	}

	pr, err := h.prs.Create(r.Context(), repoID, userID, req.Title, req.Description,
		req.SourceBranch, req.TargetBranch, req.RequiresApproval)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPRResponse(pr))
}

// ListPRs returns all pull requests of a repository.
func (h *Handler) ListPRs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}

	prs, err := h.prs.List(r.Context(), repoID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]PRResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPRResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPR returns a single pull request.
func (h *Handler) GetPR(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}
	prID, ok := h.prID(w, r)
	if !ok {
		return
	}

	pr, err := h.prs.Get(r.Context(), repoID, userID, prID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(*pr))
}

// MergePR merges an open pull request. A conflicted merge leaves the PR
// open and reports the conflict in the merge payload with a 200.
func (h *Handler) MergePR(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}
	prID, ok := h.prID(w, r)
	if !ok {
		return
	}

	pr, res, err := h.prs.Merge(r.Context(), repoID, userID, prID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PRMergeResponse{
		PullRequest: toPRResponse(pr),
		Merge:       toMergeResponse(res),
	})
}

// ClosePR closes an open pull request without merging.
func (h *Handler) ClosePR(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}
	prID, ok := h.prID(w, r)
	if !ok {
		return
	}

	pr, err := h.prs.Close(r.Context(), repoID, userID, prID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPRResponse(pr))
}

// ReviewRequest is the JSON body for the submit review endpoint.
type ReviewRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// SubmitReview records the acting user's verdict on a pull request.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}
	prID, ok := h.prID(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.prs.Review(r.Context(), repoID, userID, prID, model.ReviewStatus(req.Status), req.Comment); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListReviews returns all reviews on a pull request.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity(w, r)
	if !ok {
		return
	}
	repoID, ok := h.repoID(w, r)
	if !ok {
		return
	}
	prID, ok := h.prID(w, r)
	if !ok {
		return
	}

	reviews, err := h.prs.ListReviews(r.Context(), repoID, userID, prID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]ReviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		resp = append(resp, toReviewResponse(rv))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
