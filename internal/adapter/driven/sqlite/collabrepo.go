package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CollaboratorStore = (*CollabRepo)(nil)

// CollabRepo is the SQLite implementation of the CollaboratorStore port
// interface.
type CollabRepo struct {
	db *DB
}

// NewCollabRepo creates a new CollabRepo backed by the given DB.
func NewCollabRepo(db *DB) *CollabRepo {
	return &CollabRepo{db: db}
}

// Upsert creates or replaces the grant for the (repository, user) pair.
func (r *CollabRepo) Upsert(ctx context.Context, grant model.CollaboratorGrant) error {
	const query = `
		INSERT INTO collaborators (repo_id, user_id, role, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id, user_id) DO UPDATE SET role = excluded.role
	`

	addedAt := grant.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		grant.RepoID, grant.UserID, string(grant.Role), addedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert grant repo=%d user=%d: %w", grant.RepoID, grant.UserID, err)
	}

	return nil
}

// Get returns the grant for the pair, or ErrGrantNotFound.
func (r *CollabRepo) Get(ctx context.Context, repoID, userID int64) (*model.CollaboratorGrant, error) {
	const query = `SELECT repo_id, user_id, role, added_at FROM collaborators WHERE repo_id = ? AND user_id = ?`

	grant, err := scanGrant(r.db.Reader.QueryRowContext(ctx, query, repoID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get grant repo=%d user=%d: %w", repoID, userID, driven.ErrGrantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get grant repo=%d user=%d: %w", repoID, userID, err)
	}

	return grant, nil
}

// Remove deletes the grant for the pair. Returns ErrGrantNotFound when no
// grant exists.
func (r *CollabRepo) Remove(ctx context.Context, repoID, userID int64) error {
	const query = `DELETE FROM collaborators WHERE repo_id = ? AND user_id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, repoID, userID)
	if err != nil {
		return fmt.Errorf("remove grant repo=%d user=%d: %w", repoID, userID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove grant repo=%d user=%d: %w", repoID, userID, driven.ErrGrantNotFound)
	}

	return nil
}

// ListByRepo returns all grants on the repository ordered by user id.
func (r *CollabRepo) ListByRepo(ctx context.Context, repoID int64) ([]model.CollaboratorGrant, error) {
	const query = `SELECT repo_id, user_id, role, added_at FROM collaborators WHERE repo_id = ? ORDER BY user_id`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("list grants repo=%d: %w", repoID, err)
	}
	defer rows.Close()

	var grants []model.CollaboratorGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, *grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	return grants, nil
}

func scanGrant(s scanner) (*model.CollaboratorGrant, error) {
	var grant model.CollaboratorGrant
	var role, addedAt string

	err := s.Scan(&grant.RepoID, &grant.UserID, &role, &addedAt)
	if err != nil {
		return nil, err
	}

	grant.Role = model.Role(role)
	grant.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &grant, nil
}
