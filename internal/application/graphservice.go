package application

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// defaultGraphMax bounds the commit horizon when the caller does not.
const defaultGraphMax = 200

// GraphService rebuilds the cross-branch commit view. Branch membership
// follows first-parent chains only: a merge into main must not pull the
// merged branch's commits into main's membership, and a branch owns only
// the commits between its head and its fork point.
type GraphService struct {
	resolver *Resolver
	git      driven.Git
	logger   *slog.Logger
}

// NewGraphService creates a GraphService.
func NewGraphService(resolver *Resolver, git driven.Git) *GraphService {
	return &GraphService{resolver: resolver, git: git, logger: slog.Default()}
}

// Graph produces the combined commit view bounded by max commits,
// optionally excluding the ancestors of since. Requires READ.
func (s *GraphService) Graph(ctx context.Context, repoID, userID int64, max int, since string) (model.GraphResult, error) {
	ws, err := s.resolver.Resolve(ctx, repoID, userID, model.RoleRead)
	if err != nil {
		return model.GraphResult{}, err
	}
	defer ws.Close()

	if max <= 0 {
		max = defaultGraphMax
	}

	// A detached HEAD has no branch name; the graph tolerates that.
	current, err := s.git.CurrentBranch(ctx, ws.Dir)
	if err != nil {
		current = ""
	}

	locals, err := s.git.ListBranchHeads(ctx, ws.Dir)
	if err != nil {
		return model.GraphResult{}, opFailed(err, "listing local branches")
	}
	remotes, err := s.git.ListRemoteBranchHeads(ctx, ws.Dir)
	if err != nil {
		return model.GraphResult{}, opFailed(err, "listing remote branches")
	}
	sortHeads(locals)
	sortHeads(remotes)

	refs := make([]string, 0, len(locals)+len(remotes))
	for _, h := range locals {
		refs = append(refs, h.Hash)
	}
	for _, h := range remotes {
		refs = append(refs, h.Hash)
	}
	if len(refs) == 0 {
		return model.GraphResult{
			CurrentBranch: current,
			BranchHeads:   map[string]string{},
			ForkPoints:    map[string]string{},
		}, nil
	}

	commits, err := s.git.Log(ctx, ws.Dir, driven.LogOptions{Refs: refs, Max: max, Since: since})
	if err != nil {
		return model.GraphResult{}, opFailed(err, "listing commits")
	}

	// Index once so traversal never scans the commit list.
	index := make(map[string]model.Commit, len(commits))
	for _, c := range commits {
		index[c.Hash] = c
	}

	branchHeads := make(map[string]string, len(locals))
	var mainHead string
	for _, h := range locals {
		branchHeads[h.Name] = h.Hash
		if h.Name == trunkBranch {
			mainHead = h.Hash
		}
	}

	// Trunk membership is main's first-parent ancestry. Second parents of
	// merge commits stay out, so merged-in feature history never counts
	// as trunk history.
	mainSet := make(map[string]bool)
	membership := make(map[string][]string)
	walkFirstParent(index, mainHead, func(c model.Commit) bool {
		mainSet[c.Hash] = true
		membership[c.Hash] = append(membership[c.Hash], trunkBranch)
		return true
	})

	// Each other branch owns its first-parent chain down to and including
	// its fork point, the first commit shared with the trunk. A chain that
	// exhausts the horizon without reaching the trunk has no fork point.
	forkPoints := make(map[string]string)
	for _, h := range locals {
		if h.Name == trunkBranch {
			continue
		}
		name := h.Name
		walkFirstParent(index, h.Hash, func(c model.Commit) bool {
			membership[c.Hash] = append(membership[c.Hash], name)
			if mainSet[c.Hash] {
				forkPoints[name] = c.Hash
				return false
			}
			return true
		})
	}

	localHeadsAt := headMarkers(locals)
	remoteHeadsAt := headMarkers(remotes)

	enriched := make([]model.GraphCommit, 0, len(commits))
	for _, c := range commits {
		enriched = append(enriched, model.GraphCommit{
			Commit:       c,
			Branches:     membership[c.Hash],
			IsLocalHead:  localHeadsAt[c.Hash],
			IsRemoteHead: remoteHeadsAt[c.Hash],
		})
	}

	return model.GraphResult{
		CurrentBranch:  current,
		BranchHeads:    branchHeads,
		ForkPoints:     forkPoints,
		Commits:        enriched,
		LocalBranches:  timelines(index, locals),
		RemoteBranches: timelines(index, remotes),
	}, nil
}

// walkFirstParent visits the first-parent chain from head until the chain
// leaves the indexed horizon or visit returns false.
func walkFirstParent(index map[string]model.Commit, head string, visit func(model.Commit) bool) {
	for hash := head; hash != ""; {
		c, ok := index[hash]
		if !ok {
			return
		}
		if !visit(c) {
			return
		}
		hash = c.FirstParent()
	}
}

// sortHeads orders branch heads with the trunk first, the rest by name.
// The trunk-first order makes main win every tie-break downstream.
func sortHeads(heads []model.BranchHead) {
	sort.Slice(heads, func(i, j int) bool {
		if heads[i].Name == trunkBranch {
			return true
		}
		if heads[j].Name == trunkBranch {
			return false
		}
		return heads[i].Name < heads[j].Name
	})
}

// headMarkers maps each commit hash to the sorted branch names whose head
// points exactly at it.
func headMarkers(heads []model.BranchHead) map[string][]string {
	markers := make(map[string][]string)
	for _, h := range heads {
		markers[h.Hash] = append(markers[h.Hash], h.Name)
	}
	return markers
}

// timelines builds the per-branch first-parent commit list, oldest first.
// A head outside the indexed horizon yields an empty timeline rather than
// failing the graph.
func timelines(index map[string]model.Commit, heads []model.BranchHead) []model.BranchTimeline {
	out := make([]model.BranchTimeline, 0, len(heads))
	for _, h := range heads {
		var chain []model.Commit
		walkFirstParent(index, h.Hash, func(c model.Commit) bool {
			chain = append(chain, c)
			return true
		})
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		out = append(out, model.BranchTimeline{Name: h.Name, Commits: chain})
	}
	return out
}
