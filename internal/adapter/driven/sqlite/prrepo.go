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
var _ driven.PullRequestStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PullRequestStore port
// interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `id, repo_id, title, description, author_id, source_branch, target_branch,
	       status, requires_approval, created_at, updated_at, merged_at, merged_by, merge_commit`

// Create inserts a pull request and returns it with the assigned id. The
// partial unique index on OPEN rows turns a duplicate (source, target)
// pair into ErrOpenPRExists.
func (r *PRRepo) Create(ctx context.Context, pr model.PullRequest) (model.PullRequest, error) {
	const query = `
		INSERT INTO pull_requests (
			repo_id, title, description, author_id, source_branch, target_branch,
			status, requires_approval, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if pr.CreatedAt.IsZero() {
		pr.CreatedAt = now
	}
	pr.UpdatedAt = now
	if pr.Status == "" {
		pr.Status = model.PRStatusOpen
	}

	requiresApproval := 0
	if pr.RequiresApproval {
		requiresApproval = 1
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		pr.RepoID, pr.Title, pr.Description, pr.AuthorID, pr.SourceBranch, pr.TargetBranch,
		string(pr.Status), requiresApproval,
		pr.CreatedAt.Format(time.RFC3339), pr.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.PullRequest{}, fmt.Errorf("create pull request %s->%s: %w",
				pr.SourceBranch, pr.TargetBranch, driven.ErrOpenPRExists)
		}
		return model.PullRequest{}, fmt.Errorf("create pull request: %w", err)
	}

	pr.ID, err = res.LastInsertId()
	if err != nil {
		return model.PullRequest{}, fmt.Errorf("pull request insert id: %w", err)
	}

	return pr, nil
}

// GetByID retrieves a pull request. Returns ErrPRNotFound if no row
// exists.
func (r *PRRepo) GetByID(ctx context.Context, id int64) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE id = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get pull request %d: %w", id, driven.ErrPRNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request %d: %w", id, err)
	}

	return pr, nil
}

// Update persists status transitions and merge metadata.
func (r *PRRepo) Update(ctx context.Context, pr model.PullRequest) error {
	const query = `
		UPDATE pull_requests
		SET title = ?, description = ?, status = ?, requires_approval = ?,
		    updated_at = ?, merged_at = ?, merged_by = ?, merge_commit = ?
		WHERE id = ?
	`

	requiresApproval := 0
	if pr.RequiresApproval {
		requiresApproval = 1
	}

	var mergedAt any
	if pr.MergedAt != nil {
		mergedAt = pr.MergedAt.UTC().Format(time.RFC3339)
	}
	var mergedBy any
	if pr.MergedBy != nil {
		mergedBy = *pr.MergedBy
	}

	res, err := r.db.Writer.ExecContext(ctx, query,
		pr.Title, pr.Description, string(pr.Status), requiresApproval,
		time.Now().UTC().Format(time.RFC3339), mergedAt, mergedBy, pr.MergeCommit, pr.ID)
	if err != nil {
		return fmt.Errorf("update pull request %d: %w", pr.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update pull request %d: %w", pr.ID, driven.ErrPRNotFound)
	}

	return nil
}

// ListByRepo returns all pull requests for the repository, newest first.
func (r *PRRepo) ListByRepo(ctx context.Context, repoID int64) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repo_id = ? ORDER BY id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("list pull requests repo=%d: %w", repoID, err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var status, createdAt, updatedAt string
	var requiresApproval int
	var mergedAt sql.NullString
	var mergedBy sql.NullInt64

	err := s.Scan(&pr.ID, &pr.RepoID, &pr.Title, &pr.Description, &pr.AuthorID,
		&pr.SourceBranch, &pr.TargetBranch, &status, &requiresApproval,
		&createdAt, &updatedAt, &mergedAt, &mergedBy, &pr.MergeCommit)
	if err != nil {
		return nil, err
	}

	pr.Status = model.PRStatus(status)
	pr.RequiresApproval = requiresApproval != 0

	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if mergedAt.Valid {
		t, err := parseTime(mergedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse merged_at: %w", err)
		}
		pr.MergedAt = &t
	}
	if mergedBy.Valid {
		pr.MergedBy = &mergedBy.Int64
	}

	return &pr, nil
}
