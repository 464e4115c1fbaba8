package application

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// fakeGit implements driven.Git with overridable per-method functions.
// Unset methods return permissive defaults so happy paths need no setup.
// Every invocation is appended to calls for order assertions.
type fakeGit struct {
	calls []string

	initBareFn             func(dir, defaultBranch string) error
	cloneFn                func(src, dst string) error
	currentBranchFn        func(dir string) (string, error)
	listBranchHeadsFn      func(dir string) ([]model.BranchHead, error)
	listRemoteHeadsFn      func(dir string) ([]model.BranchHead, error)
	branchExistsFn         func(dir, name string) (bool, error)
	revParseFn             func(dir, ref string) (string, error)
	commitExistsFn         func(dir, hash string) (bool, error)
	createBranchFn         func(dir, name, from string) error
	checkoutFn             func(dir, name string) error
	forceCheckoutFn        func(dir, name string) error
	deleteBranchFn         func(dir, name string, force bool) error
	mergeFn                func(dir, ref string, opts driven.MergeOptions) error
	abortMergeFn           func(dir string) error
	abortRebaseFn          func(dir string) error
	isAncestorFn           func(dir, ancestor, descendant string) (bool, error)
	statusFn               func(dir string) ([]model.StatusEntry, error)
	conflictedFilesFn      func(dir string) ([]string, error)
	trackedFilesFn         func(dir string) ([]string, error)
	addAllFn               func(dir string) error
	addFn                  func(dir string, paths []string) error
	commitFn               func(dir, message, authorName, authorEmail string, allowEmpty bool) (string, error)
	resetFn                func(dir string, mode model.ResetMode, ref string) error
	checkoutConflictSideFn func(dir string, side model.Resolution, path string) error
	showFileFn             func(dir, ref, path string) ([]byte, error)
	logFn                  func(dir string, opts driven.LogOptions) ([]model.Commit, error)
	hasRemoteFn            func(dir, remote string) (bool, error)
	fetchFn                func(dir, remote string) error
	pullFn                 func(dir, remote, branch string, ffOnly bool) error
	pushFn                 func(dir, remote, branch string, setUpstream, force bool) error
	upstreamOfFn           func(dir, branch string) (string, error)
	aheadBehindFn          func(dir, upstream, local string) (int, int, error)
	stashFn                func(dir, message string) error
	stashPopFn             func(dir string) error
	diffFn                 func(dir, base, head string) (string, error)
	diffNumstatFn          func(dir, base, head string) (string, error)
	diffNameStatusFn       func(dir, base, head string) (string, error)
	diffWorktreeFn         func(dir string) (string, error)
}

var _ driven.Git = (*fakeGit)(nil)

func (f *fakeGit) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeGit) called(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeGit) InitBare(_ context.Context, dir, defaultBranch string) error {
	f.record("initBare")
	if f.initBareFn != nil {
		return f.initBareFn(dir, defaultBranch)
	}
	return nil
}

func (f *fakeGit) Clone(_ context.Context, src, dst string) error {
	f.record("clone")
	if f.cloneFn != nil {
		return f.cloneFn(src, dst)
	}
	return os.MkdirAll(filepath.Join(dst, ".git"), 0o755)
}

func (f *fakeGit) CurrentBranch(_ context.Context, dir string) (string, error) {
	f.record("currentBranch")
	if f.currentBranchFn != nil {
		return f.currentBranchFn(dir)
	}
	return "main", nil
}

func (f *fakeGit) ListBranchHeads(_ context.Context, dir string) ([]model.BranchHead, error) {
	f.record("listBranchHeads")
	if f.listBranchHeadsFn != nil {
		return f.listBranchHeadsFn(dir)
	}
	return nil, nil
}

func (f *fakeGit) ListRemoteBranchHeads(_ context.Context, dir string) ([]model.BranchHead, error) {
	f.record("listRemoteBranchHeads")
	if f.listRemoteHeadsFn != nil {
		return f.listRemoteHeadsFn(dir)
	}
	return nil, nil
}

func (f *fakeGit) BranchExists(_ context.Context, dir, name string) (bool, error) {
	f.record("branchExists")
	if f.branchExistsFn != nil {
		return f.branchExistsFn(dir, name)
	}
	return true, nil
}

func (f *fakeGit) RevParse(_ context.Context, dir, ref string) (string, error) {
	f.record("revParse")
	if f.revParseFn != nil {
		return f.revParseFn(dir, ref)
	}
	return "abc123", nil
}

func (f *fakeGit) CommitExists(_ context.Context, dir, hash string) (bool, error) {
	f.record("commitExists")
	if f.commitExistsFn != nil {
		return f.commitExistsFn(dir, hash)
	}
	return true, nil
}

func (f *fakeGit) CreateBranch(_ context.Context, dir, name, from string) error {
	f.record("createBranch")
	if f.createBranchFn != nil {
		return f.createBranchFn(dir, name, from)
	}
	return nil
}

func (f *fakeGit) Checkout(_ context.Context, dir, name string) error {
	f.record("checkout")
	if f.checkoutFn != nil {
		return f.checkoutFn(dir, name)
	}
	return nil
}

func (f *fakeGit) ForceCheckout(_ context.Context, dir, name string) error {
	f.record("forceCheckout")
	if f.forceCheckoutFn != nil {
		return f.forceCheckoutFn(dir, name)
	}
	return nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, dir, name string, force bool) error {
	f.record("deleteBranch")
	if f.deleteBranchFn != nil {
		return f.deleteBranchFn(dir, name, force)
	}
	return nil
}

func (f *fakeGit) Merge(_ context.Context, dir, ref string, opts driven.MergeOptions) error {
	f.record("merge")
	if f.mergeFn != nil {
		return f.mergeFn(dir, ref, opts)
	}
	return nil
}

func (f *fakeGit) AbortMerge(_ context.Context, dir string) error {
	f.record("abortMerge")
	if f.abortMergeFn != nil {
		return f.abortMergeFn(dir)
	}
	return nil
}

func (f *fakeGit) AbortRebase(_ context.Context, dir string) error {
	f.record("abortRebase")
	if f.abortRebaseFn != nil {
		return f.abortRebaseFn(dir)
	}
	return nil
}

func (f *fakeGit) IsAncestor(_ context.Context, dir, ancestor, descendant string) (bool, error) {
	f.record("isAncestor")
	if f.isAncestorFn != nil {
		return f.isAncestorFn(dir, ancestor, descendant)
	}
	return true, nil
}

func (f *fakeGit) Status(_ context.Context, dir string) ([]model.StatusEntry, error) {
	f.record("status")
	if f.statusFn != nil {
		return f.statusFn(dir)
	}
	return nil, nil
}

func (f *fakeGit) ConflictedFiles(_ context.Context, dir string) ([]string, error) {
	f.record("conflictedFiles")
	if f.conflictedFilesFn != nil {
		return f.conflictedFilesFn(dir)
	}
	return nil, nil
}

func (f *fakeGit) TrackedFiles(_ context.Context, dir string) ([]string, error) {
	f.record("trackedFiles")
	if f.trackedFilesFn != nil {
		return f.trackedFilesFn(dir)
	}
	return nil, nil
}

func (f *fakeGit) AddAll(_ context.Context, dir string) error {
	f.record("addAll")
	if f.addAllFn != nil {
		return f.addAllFn(dir)
	}
	return nil
}

func (f *fakeGit) Add(_ context.Context, dir string, paths []string) error {
	f.record("add")
	if f.addFn != nil {
		return f.addFn(dir, paths)
	}
	return nil
}

func (f *fakeGit) Commit(_ context.Context, dir, message, authorName, authorEmail string, allowEmpty bool) (string, error) {
	f.record("commit")
	if f.commitFn != nil {
		return f.commitFn(dir, message, authorName, authorEmail, allowEmpty)
	}
	return "abc123", nil
}

func (f *fakeGit) Reset(_ context.Context, dir string, mode model.ResetMode, ref string) error {
	f.record("reset")
	if f.resetFn != nil {
		return f.resetFn(dir, mode, ref)
	}
	return nil
}

func (f *fakeGit) CheckoutConflictSide(_ context.Context, dir string, side model.Resolution, path string) error {
	f.record("checkoutConflictSide")
	if f.checkoutConflictSideFn != nil {
		return f.checkoutConflictSideFn(dir, side, path)
	}
	return nil
}

func (f *fakeGit) ShowFile(_ context.Context, dir, ref, path string) ([]byte, error) {
	f.record("showFile")
	if f.showFileFn != nil {
		return f.showFileFn(dir, ref, path)
	}
	return nil, nil
}

func (f *fakeGit) Log(_ context.Context, dir string, opts driven.LogOptions) ([]model.Commit, error) {
	f.record("log")
	if f.logFn != nil {
		return f.logFn(dir, opts)
	}
	return nil, nil
}

func (f *fakeGit) HasRemote(_ context.Context, dir, remote string) (bool, error) {
	f.record("hasRemote")
	if f.hasRemoteFn != nil {
		return f.hasRemoteFn(dir, remote)
	}
	return true, nil
}

func (f *fakeGit) Fetch(_ context.Context, dir, remote string) error {
	f.record("fetch")
	if f.fetchFn != nil {
		return f.fetchFn(dir, remote)
	}
	return nil
}

func (f *fakeGit) Pull(_ context.Context, dir, remote, branch string, ffOnly bool) error {
	f.record("pull")
	if f.pullFn != nil {
		return f.pullFn(dir, remote, branch, ffOnly)
	}
	return nil
}

func (f *fakeGit) Push(_ context.Context, dir, remote, branch string, setUpstream, force bool) error {
	f.record("push")
	if f.pushFn != nil {
		return f.pushFn(dir, remote, branch, setUpstream, force)
	}
	return nil
}

func (f *fakeGit) UpstreamOf(_ context.Context, dir, branch string) (string, error) {
	f.record("upstreamOf")
	if f.upstreamOfFn != nil {
		return f.upstreamOfFn(dir, branch)
	}
	return "origin/" + branch, nil
}

func (f *fakeGit) AheadBehind(_ context.Context, dir, upstream, local string) (int, int, error) {
	f.record("aheadBehind")
	if f.aheadBehindFn != nil {
		return f.aheadBehindFn(dir, upstream, local)
	}
	return 1, 0, nil
}

func (f *fakeGit) Stash(_ context.Context, dir, message string) error {
	f.record("stash")
	if f.stashFn != nil {
		return f.stashFn(dir, message)
	}
	return nil
}

func (f *fakeGit) StashPop(_ context.Context, dir string) error {
	f.record("stashPop")
	if f.stashPopFn != nil {
		return f.stashPopFn(dir)
	}
	return nil
}

func (f *fakeGit) Diff(_ context.Context, dir, base, head string) (string, error) {
	f.record("diff")
	if f.diffFn != nil {
		return f.diffFn(dir, base, head)
	}
	return "", nil
}

func (f *fakeGit) DiffNumstat(_ context.Context, dir, base, head string) (string, error) {
	f.record("diffNumstat")
	if f.diffNumstatFn != nil {
		return f.diffNumstatFn(dir, base, head)
	}
	return "", nil
}

func (f *fakeGit) DiffNameStatus(_ context.Context, dir, base, head string) (string, error) {
	f.record("diffNameStatus")
	if f.diffNameStatusFn != nil {
		return f.diffNameStatusFn(dir, base, head)
	}
	return "", nil
}

func (f *fakeGit) DiffWorktree(_ context.Context, dir string) (string, error) {
	f.record("diffWorktree")
	if f.diffWorktreeFn != nil {
		return f.diffWorktreeFn(dir)
	}
	return "", nil
}

// gitFail builds a tagged failure the way the subprocess boundary would.
func gitFail(op string, variant driven.Variant) error {
	return &driven.GitFailure{Op: op, Variant: variant, Output: "simulated"}
}

// In-memory stores.

type fakeRepoStore struct {
	nextID int64
	repos  map[int64]model.Repository
}

var _ driven.RepoStore = (*fakeRepoStore)(nil)

func newFakeRepoStore() *fakeRepoStore {
	return &fakeRepoStore{repos: make(map[int64]model.Repository)}
}

func (s *fakeRepoStore) Create(_ context.Context, repo model.Repository) (model.Repository, error) {
	for _, r := range s.repos {
		if r.OwnerID == repo.OwnerID && r.Name == repo.Name {
			return model.Repository{}, driven.ErrRepoAlreadyExists
		}
	}
	s.nextID++
	repo.ID = s.nextID
	repo.CreatedAt = time.Now().UTC()
	s.repos[repo.ID] = repo
	return repo, nil
}

func (s *fakeRepoStore) GetByID(_ context.Context, id int64) (*model.Repository, error) {
	repo, ok := s.repos[id]
	if !ok {
		return nil, driven.ErrRepoNotFound
	}
	return &repo, nil
}

func (s *fakeRepoStore) SetPath(_ context.Context, id int64, path string) error {
	repo, ok := s.repos[id]
	if !ok {
		return driven.ErrRepoNotFound
	}
	repo.Path = path
	s.repos[id] = repo
	return nil
}

func (s *fakeRepoStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.repos[id]; !ok {
		return driven.ErrRepoNotFound
	}
	delete(s.repos, id)
	return nil
}

func (s *fakeRepoStore) ListByUser(_ context.Context, userID int64) ([]model.Repository, error) {
	var out []model.Repository
	for _, r := range s.repos {
		if r.OwnerID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeUserStore struct {
	users map[int64]model.User
}

var _ driven.UserStore = (*fakeUserStore)(nil)

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]model.User)}
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, driven.ErrUserNotFound
	}
	return &user, nil
}

type grantKey struct {
	repoID int64
	userID int64
}

type fakeGrantStore struct {
	grants map[grantKey]model.CollaboratorGrant
}

var _ driven.CollaboratorStore = (*fakeGrantStore)(nil)

func newFakeGrantStore() *fakeGrantStore {
	return &fakeGrantStore{grants: make(map[grantKey]model.CollaboratorGrant)}
}

func (s *fakeGrantStore) Upsert(_ context.Context, grant model.CollaboratorGrant) error {
	s.grants[grantKey{grant.RepoID, grant.UserID}] = grant
	return nil
}

func (s *fakeGrantStore) Get(_ context.Context, repoID, userID int64) (*model.CollaboratorGrant, error) {
	grant, ok := s.grants[grantKey{repoID, userID}]
	if !ok {
		return nil, driven.ErrGrantNotFound
	}
	return &grant, nil
}

func (s *fakeGrantStore) Remove(_ context.Context, repoID, userID int64) error {
	key := grantKey{repoID, userID}
	if _, ok := s.grants[key]; !ok {
		return driven.ErrGrantNotFound
	}
	delete(s.grants, key)
	return nil
}

func (s *fakeGrantStore) ListByRepo(_ context.Context, repoID int64) ([]model.CollaboratorGrant, error) {
	var out []model.CollaboratorGrant
	for _, g := range s.grants {
		if g.RepoID == repoID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type fakePRStore struct {
	nextID int64
	prs    map[int64]model.PullRequest
}

var _ driven.PullRequestStore = (*fakePRStore)(nil)

func newFakePRStore() *fakePRStore {
	return &fakePRStore{prs: make(map[int64]model.PullRequest)}
}

func (s *fakePRStore) Create(_ context.Context, pr model.PullRequest) (model.PullRequest, error) {
	for _, existing := range s.prs {
		if existing.RepoID == pr.RepoID && existing.Status == model.PRStatusOpen &&
			existing.SourceBranch == pr.SourceBranch && existing.TargetBranch == pr.TargetBranch {
			return model.PullRequest{}, driven.ErrOpenPRExists
		}
	}
	s.nextID++
	pr.ID = s.nextID
	pr.CreatedAt = time.Now().UTC()
	pr.UpdatedAt = pr.CreatedAt
	s.prs[pr.ID] = pr
	return pr, nil
}

func (s *fakePRStore) GetByID(_ context.Context, id int64) (*model.PullRequest, error) {
	pr, ok := s.prs[id]
	if !ok {
		return nil, driven.ErrPRNotFound
	}
	return &pr, nil
}

func (s *fakePRStore) Update(_ context.Context, pr model.PullRequest) error {
	if _, ok := s.prs[pr.ID]; !ok {
		return driven.ErrPRNotFound
	}
	s.prs[pr.ID] = pr
	return nil
}

func (s *fakePRStore) ListByRepo(_ context.Context, repoID int64) ([]model.PullRequest, error) {
	var out []model.PullRequest
	for _, pr := range s.prs {
		if pr.RepoID == repoID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type reviewKey struct {
	prID       int64
	reviewerID int64
}

type fakeReviewStore struct {
	nextID  int64
	reviews map[reviewKey]model.Review
}

var _ driven.ReviewStore = (*fakeReviewStore)(nil)

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{reviews: make(map[reviewKey]model.Review)}
}

func (s *fakeReviewStore) Upsert(_ context.Context, review model.Review) error {
	key := reviewKey{review.PRID, review.ReviewerID}
	if existing, ok := s.reviews[key]; ok {
		existing.Status = review.Status
		existing.Comment = review.Comment
		existing.UpdatedAt = time.Now().UTC()
		s.reviews[key] = existing
		return nil
	}
	s.nextID++
	review.ID = s.nextID
	review.CreatedAt = time.Now().UTC()
	review.UpdatedAt = review.CreatedAt
	s.reviews[key] = review
	return nil
}

func (s *fakeReviewStore) ListByPR(_ context.Context, prID int64) ([]model.Review, error) {
	var out []model.Review
	for _, r := range s.reviews {
		if r.PRID == prID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeReviewStore) CountApprovals(_ context.Context, prID int64) (int, error) {
	n := 0
	for _, r := range s.reviews {
		if r.PRID == prID && r.Status == model.ReviewStatusApproved {
			n++
		}
	}
	return n, nil
}

// env wires the fakes behind a real Resolver rooted in a temp directory.
type env struct {
	git      *fakeGit
	repos    *fakeRepoStore
	users    *fakeUserStore
	grants   *fakeGrantStore
	prs      *fakePRStore
	reviews  *fakeReviewStore
	resolver *Resolver
	root     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		git:     &fakeGit{},
		repos:   newFakeRepoStore(),
		users:   newFakeUserStore(),
		grants:  newFakeGrantStore(),
		prs:     newFakePRStore(),
		reviews: newFakeReviewStore(),
		root:    t.TempDir(),
	}
	e.resolver = NewResolver(e.repos, e.users, e.grants, e.git, filepath.Join(e.root, "workspaces"))
	return e
}

func (e *env) seedUser(id int64, email string) model.User {
	user := model.User{ID: id, Email: email, DisplayName: "", CreatedAt: time.Now().UTC()}
	e.users.users[id] = user
	return user
}

func (e *env) seedRepo(t *testing.T, ownerID int64, name string) model.Repository {
	t.Helper()
	repo, err := e.repos.Create(context.Background(), model.Repository{
		OwnerID:    ownerID,
		Name:       name,
		Visibility: model.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("seeding repository: %v", err)
	}
	path := filepath.Join(e.root, "repos", name+".git")
	if err := e.repos.SetPath(context.Background(), repo.ID, path); err != nil {
		t.Fatalf("seeding repository path: %v", err)
	}
	repo.Path = path
	return repo
}

func (e *env) grant(repoID, userID int64, role model.Role) {
	e.grants.grants[grantKey{repoID, userID}] = model.CollaboratorGrant{RepoID: repoID, UserID: userID, Role: role}
}
