package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

func TestResolveUnknownRepo(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")

	_, err := e.resolver.Resolve(context.Background(), 42, 1, model.RoleRead)
	assert.Equal(t, model.KindRepoNotFound, model.KindOf(err))
}

func TestResolveRoleOrdering(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	e.seedUser(2, "collab@example.com")
	repo := e.seedRepo(t, 1, "proj")

	tests := []struct {
		name     string
		granted  model.Role
		required model.Role
		allowed  bool
	}{
		{"read satisfies read", model.RoleRead, model.RoleRead, true},
		{"read denied write", model.RoleRead, model.RoleWrite, false},
		{"write satisfies write", model.RoleWrite, model.RoleWrite, true},
		{"write satisfies read", model.RoleWrite, model.RoleRead, true},
		{"write denied admin", model.RoleWrite, model.RoleAdmin, false},
		{"admin satisfies everything", model.RoleAdmin, model.RoleWrite, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.grant(repo.ID, 2, tt.granted)
			ws, err := e.resolver.Resolve(context.Background(), repo.ID, 2, tt.required)
			if tt.allowed {
				require.NoError(t, err)
				ws.Close()
			} else {
				assert.Equal(t, model.KindRepoAccessDenied, model.KindOf(err))
			}
		})
	}
}

func TestResolveOwnerAlwaysPasses(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	repo := e.seedRepo(t, 1, "proj")

	ws, err := e.resolver.Resolve(context.Background(), repo.ID, 1, model.RoleAdmin)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, repo.ID, ws.Repo.ID)
	assert.Equal(t, int64(1), ws.User.ID)
}

func TestResolveStrangerDenied(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	e.seedUser(3, "stranger@example.com")
	repo := e.seedRepo(t, 1, "proj")

	_, err := e.resolver.Resolve(context.Background(), repo.ID, 3, model.RoleRead)
	assert.Equal(t, model.KindRepoAccessDenied, model.KindOf(err))
}

func TestResolvePublicRepoReadableByAnyone(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	e.seedUser(3, "stranger@example.com")
	repo := e.seedRepo(t, 1, "proj")
	r := e.repos.repos[repo.ID]
	r.Visibility = model.VisibilityPublic
	e.repos.repos[repo.ID] = r

	ws, err := e.resolver.Resolve(context.Background(), repo.ID, 3, model.RoleRead)
	require.NoError(t, err)
	ws.Close()

	// Public visibility never grants write.
	_, err = e.resolver.Resolve(context.Background(), repo.ID, 3, model.RoleWrite)
	assert.Equal(t, model.KindRepoAccessDenied, model.KindOf(err))
}

func TestResolveClonesLazilyOnce(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	repo := e.seedRepo(t, 1, "proj")

	ws, err := e.resolver.Resolve(context.Background(), repo.ID, 1, model.RoleRead)
	require.NoError(t, err)
	ws.Close()
	assert.Equal(t, 1, e.git.called("clone"))

	// Second resolve finds the materialized workspace and does not clone.
	ws, err = e.resolver.Resolve(context.Background(), repo.ID, 1, model.RoleRead)
	require.NoError(t, err)
	ws.Close()
	assert.Equal(t, 1, e.git.called("clone"))
}

func TestResolvePathNotConfigured(t *testing.T) {
	e := newEnv(t)
	e.seedUser(1, "owner@example.com")
	repo := e.seedRepo(t, 1, "proj")
	r := e.repos.repos[repo.ID]
	r.Path = ""
	e.repos.repos[repo.ID] = r

	_, err := e.resolver.Resolve(context.Background(), repo.ID, 1, model.RoleRead)
	assert.Equal(t, model.KindRepoPathNotConfigured, model.KindOf(err))
}

func TestPathLockerSerializesSameKey(t *testing.T) {
	locks := newPathLocker()
	release := locks.acquire("1/1")

	acquired := make(chan struct{})
	go func() {
		r := locks.acquire("1/1")
		close(acquired)
		r()
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while the lock was held")
	default:
	}

	// A different key is independent.
	other := locks.acquire("1/2")
	other()

	release()
	<-acquired
}
