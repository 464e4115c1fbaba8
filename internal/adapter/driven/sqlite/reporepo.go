package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
	"github.com/Team-mobabi/backend-sub000/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Create inserts a repository row and returns it with the assigned id.
// Returns ErrRepoAlreadyExists on an (owner, name) collision.
func (r *RepoRepo) Create(ctx context.Context, repo model.Repository) (model.Repository, error) {
	const query = `INSERT INTO repositories (owner_id, name, visibility, path, created_at) VALUES (?, ?, ?, ?, ?)`

	createdAt := repo.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		repo.OwnerID, repo.Name, string(repo.Visibility), repo.Path, createdAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Repository{}, fmt.Errorf("create repository %s: %w", repo.Name, driven.ErrRepoAlreadyExists)
		}
		return model.Repository{}, fmt.Errorf("create repository %s: %w", repo.Name, err)
	}

	repo.ID, err = res.LastInsertId()
	if err != nil {
		return model.Repository{}, fmt.Errorf("repository insert id: %w", err)
	}
	repo.CreatedAt = createdAt

	return repo, nil
}

// GetByID retrieves a repository. Returns ErrRepoNotFound if no row exists.
func (r *RepoRepo) GetByID(ctx context.Context, id int64) (*model.Repository, error) {
	const query = `SELECT id, owner_id, name, visibility, path, created_at FROM repositories WHERE id = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get repository %d: %w", id, driven.ErrRepoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %d: %w", id, err)
	}

	return repo, nil
}

// SetPath records the canonical on-disk path after the store is created.
func (r *RepoRepo) SetPath(ctx context.Context, id int64, path string) error {
	const query = `UPDATE repositories SET path = ? WHERE id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, path, id)
	if err != nil {
		return fmt.Errorf("set repository %d path: %w", id, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("set repository %d path: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// Delete removes a repository row. Grants, pull requests, and reviews go
// with it via foreign key cascade.
func (r *RepoRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM repositories WHERE id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete repository %d: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete repository %d: %w", id, driven.ErrRepoNotFound)
	}

	return nil
}

// ListByUser returns repositories the user owns or collaborates on,
// ordered by name.
func (r *RepoRepo) ListByUser(ctx context.Context, userID int64) ([]model.Repository, error) {
	const query = `
		SELECT DISTINCT r.id, r.owner_id, r.name, r.visibility, r.path, r.created_at
		FROM repositories r
		LEFT JOIN collaborators c ON c.repo_id = r.id
		WHERE r.owner_id = ? OR c.user_id = ?
		ORDER BY r.name
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list repositories for user %d: %w", userID, err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var visibility, createdAt string

	err := s.Scan(&repo.ID, &repo.OwnerID, &repo.Name, &visibility, &repo.Path, &createdAt)
	if err != nil {
		return nil, err
	}

	repo.Visibility = model.Visibility(visibility)
	repo.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &repo, nil
}
