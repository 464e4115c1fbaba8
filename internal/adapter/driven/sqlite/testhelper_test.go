package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database. Writer and
// reader share the same in-memory database via cache=shared; a name derived
// from t.Name() isolates parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	safeName := url.PathEscape(t.Name())
	// WAL mode does not apply to in-memory databases; omit that pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedUser inserts a user and returns it.
func seedUser(t *testing.T, db *DB, email string) model.User {
	t.Helper()

	u, err := NewUserRepo(db).Add(context.Background(), model.User{
		Email:       email,
		DisplayName: email,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// seedRepo inserts a repository owned by ownerID and returns it.
func seedRepo(t *testing.T, db *DB, ownerID int64, name string) model.Repository {
	t.Helper()

	repo, err := NewRepoRepo(db).Create(context.Background(), model.Repository{
		OwnerID:    ownerID,
		Name:       name,
		Visibility: model.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("seed repo %s: %v", name, err)
	}
	return repo
}
